package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// Section IDs define the binary identifiers for each module section.
const (
	SectionCustom    byte = 0  // Custom section (can appear anywhere)
	SectionType      byte = 1  // Type section (function signatures)
	SectionImport    byte = 2  // Import section
	SectionFunction  byte = 3  // Function section (type indices)
	SectionTable     byte = 4  // Table section
	SectionMemory    byte = 5  // Memory section
	SectionGlobal    byte = 6  // Global section
	SectionExport    byte = 7  // Export section
	SectionStart     byte = 8  // Start section
	SectionElement   byte = 9  // Element section
	SectionCode      byte = 10 // Code section (function bodies)
	SectionData      byte = 11 // Data section
	SectionDataCount byte = 12 // Data count section (bulk memory)
)

// sectionOrder is the canonical order of the non-custom sections. Section
// IDs are not monotonic: DataCount sits between Element and Code.
var sectionOrder = [...]byte{
	SectionType,
	SectionImport,
	SectionFunction,
	SectionTable,
	SectionMemory,
	SectionGlobal,
	SectionExport,
	SectionStart,
	SectionElement,
	SectionDataCount,
	SectionCode,
	SectionData,
}

// SectionName returns a human-readable name for a section ID.
func SectionName(id byte) string {
	switch id {
	case SectionCustom:
		return "custom"
	case SectionType:
		return "type"
	case SectionImport:
		return "import"
	case SectionFunction:
		return "function"
	case SectionTable:
		return "table"
	case SectionMemory:
		return "memory"
	case SectionGlobal:
		return "global"
	case SectionExport:
		return "export"
	case SectionStart:
		return "start"
	case SectionElement:
		return "element"
	case SectionCode:
		return "code"
	case SectionData:
		return "data"
	case SectionDataCount:
		return "datacount"
	default:
		return "unknown"
	}
}

// Import/Export descriptor kinds identify the type of imported or exported item.
const (
	KindFunc   byte = 0 // Function import/export
	KindTable  byte = 1 // Table import/export
	KindMemory byte = 2 // Memory import/export
	KindGlobal byte = 3 // Global import/export
)

// Binary encodings of types.
const (
	// FuncTypeForm is the signed 7-bit form marker of a function type (0x60).
	FuncTypeForm int8 = -0x20

	ElemTypeFuncRef   byte = 0x70
	ElemTypeExternRef byte = 0x6F
)

// Signed 7-bit value type tags as they appear in the binary format.
const (
	wasmTypeI32   int8 = -0x01 // 0x7F
	wasmTypeI64   int8 = -0x02 // 0x7E
	wasmTypeF32   int8 = -0x03 // 0x7D
	wasmTypeF64   int8 = -0x04 // 0x7C
	wasmTypeBlock int8 = -0x40 // 0x40, empty block type
)

// Opcodes that may appear in constant expressions.
const (
	OpEnd       byte = 0x0B
	OpGlobalGet byte = 0x23
	OpI32Const  byte = 0x41
	OpI64Const  byte = 0x42
	OpF32Const  byte = 0x43
	OpF64Const  byte = 0x44
	OpI32Add    byte = 0x6A
	OpI32Sub    byte = 0x6B
	OpI32Mul    byte = 0x6C
	OpI64Add    byte = 0x7C
	OpI64Sub    byte = 0x7D
	OpI64Mul    byte = 0x7E
	OpRefNull   byte = 0xD0
	OpRefFunc   byte = 0xD2
)

// Name section subsection kinds.
const (
	NameSubsectionModule   byte = 0
	NameSubsectionFunction byte = 1
	NameSubsectionLocal    byte = 2
)

// DefaultModuleName is the display name of a module before it is named.
const DefaultModuleName = ".unnamed"
