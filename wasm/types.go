package wasm

import "strings"

// ValueType is the canonical, normalised value type of the decoder.
type ValueType uint8

const (
	ValueTypeNone ValueType = iota // empty block type
	ValueTypeI32
	ValueTypeI64
	ValueTypeF32
	ValueTypeF64
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeNone:
		return "nil"
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return "unknown"
	}
}

// FuncType is a function signature. Types holds the results followed by
// the arguments. A FuncType is immutable once registered in a TypeTable.
type FuncType struct {
	Types   []ValueType
	NumArgs uint32
	NumRets uint32
}

// Rets returns the result types.
func (f *FuncType) Rets() []ValueType {
	return f.Types[:f.NumRets]
}

// Args returns the argument types.
func (f *FuncType) Args() []ValueType {
	return f.Types[f.NumRets:]
}

// Equal reports whether two signatures are identical.
func (f *FuncType) Equal(o *FuncType) bool {
	if f.NumArgs != o.NumArgs || f.NumRets != o.NumRets || len(f.Types) != len(o.Types) {
		return false
	}
	for i := range f.Types {
		if f.Types[i] != o.Types[i] {
			return false
		}
	}
	return true
}

// String formats the signature as "(i32, i32) -> i64".
func (f *FuncType) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, t := range f.Args() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.String())
	}
	b.WriteString(") -> ")
	switch rets := f.Rets(); len(rets) {
	case 0:
		b.WriteString("nil")
	case 1:
		b.WriteString(rets[0].String())
	default:
		b.WriteByte('(')
		for i, t := range rets {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(t.String())
		}
		b.WriteByte(')')
	}
	return b.String()
}

// key is the interning key of the signature.
func (f *FuncType) key() string {
	var b strings.Builder
	b.Grow(len(f.Types) + 4)
	b.WriteByte(byte(f.NumRets))
	b.WriteByte(byte(f.NumRets >> 8))
	b.WriteByte(byte(f.NumRets >> 16))
	b.WriteByte(byte(f.NumRets >> 24))
	for _, t := range f.Types {
		b.WriteByte(byte(t))
	}
	return b.String()
}

// ImportInfo names the module and field an entity is imported from.
type ImportInfo struct {
	Module string
	Field  string
}

func (i *ImportInfo) String() string {
	return i.Module + "." + i.Field
}

// Function is an entry in the module's function index space.
type Function struct {
	// Import is set iff the function is imported.
	Import *ImportInfo
	// Names holds export and debug names; Names[0] is the primary name.
	Names []string
	// Code is the body of a locally defined function: local declarations
	// followed by the expression, exactly as it appears in the code section.
	Code      View
	TypeIndex uint32
}

// IsImport reports whether the function is imported.
func (f *Function) IsImport() bool {
	return f.Import != nil
}

// Name returns the primary name, or "" if the function is unnamed.
func (f *Function) Name() string {
	if len(f.Names) == 0 {
		return ""
	}
	return f.Names[0]
}

// Limits describes size constraints for tables and memories.
type Limits struct {
	Max *uint32
	Min uint32
}

// Table is a table declaration or import.
type Table struct {
	Import     *ImportInfo
	ExportName string
	Limits     Limits
	ElemType   byte
}

// MemoryInfo describes the module's single linear memory, in 64KiB pages.
type MemoryInfo struct {
	Import     *ImportInfo
	ExportName string
	Limits     Limits
	Imported   bool
}

// Global is a global declaration or import.
type Global struct {
	Import *ImportInfo
	Name   string
	// Init is empty for imported globals.
	Init     InitExpr
	Type     ValueType
	Mutable  bool
	Imported bool
}

// DataSegment initialises a region of linear memory at instantiation.
type DataSegment struct {
	Offset      InitExpr
	Data        View
	MemoryIndex uint32
	Size        uint32
}

// ElementSection is the element section payload, left unparsed for the
// instantiation phase. Span starts just after the segment count.
type ElementSection struct {
	Span  View
	Count uint32
}

// Module is a decoded, structurally validated module.
type Module struct {
	env    *Environment
	buffer *Buffer

	// Start is the start function index, if any.
	Start *uint32
	// DataCount is the count declared by the data count section, if any.
	DataCount *uint32
	// Memory is nil when the module neither declares nor imports a memory.
	Memory *MemoryInfo

	// staged holds decoded signatures until the decode commits.
	staged []*FuncType

	Name string

	// FuncTypes are handles into the environment's TypeTable, in
	// module type-index order.
	FuncTypes    []TypeHandle
	Functions    []Function
	Tables       []Table
	Globals      []Global
	DataSegments []DataSegment
	Elements     ElementSection

	NumFuncImports uint32
}

// Environment returns the environment the module was decoded against.
func (m *Module) Environment() *Environment {
	return m.env
}

// Bytes returns the retained module input.
func (m *Module) Bytes() []byte {
	return m.buffer.Bytes()
}

// Buffer returns the retained module input buffer.
func (m *Module) Buffer() *Buffer {
	return m.buffer
}

// NumTypes returns the number of function types declared by the module.
func (m *Module) NumTypes() int {
	if m.staged != nil {
		return len(m.staged)
	}
	return len(m.FuncTypes)
}

// FuncType returns the signature with the given module type index,
// or nil if the index is out of range.
func (m *Module) FuncType(typeIndex uint32) *FuncType {
	if m.staged != nil {
		if int(typeIndex) >= len(m.staged) {
			return nil
		}
		return m.staged[typeIndex]
	}
	if int(typeIndex) >= len(m.FuncTypes) {
		return nil
	}
	return m.env.Types.Lookup(m.FuncTypes[typeIndex])
}

// NumFunctions returns the size of the function index space.
func (m *Module) NumFunctions() uint32 {
	return uint32(len(m.Functions))
}

// NumLocalFunctions returns the number of functions defined by the module.
func (m *Module) NumLocalFunctions() uint32 {
	return uint32(len(m.Functions)) - m.NumFuncImports
}

// Function returns the function with the given index, or nil.
func (m *Module) Function(index uint32) *Function {
	if index >= uint32(len(m.Functions)) {
		return nil
	}
	return &m.Functions[index]
}

// FunctionByName returns the index of the first function carrying name.
func (m *Module) FunctionByName(name string) (uint32, bool) {
	for i := range m.Functions {
		for _, n := range m.Functions[i].Names {
			if n == name {
				return uint32(i), true
			}
		}
	}
	return 0, false
}

// Signature returns the signature of the function with the given index.
func (m *Module) Signature(funcIndex uint32) *FuncType {
	f := m.Function(funcIndex)
	if f == nil {
		return nil
	}
	return m.FuncType(f.TypeIndex)
}
