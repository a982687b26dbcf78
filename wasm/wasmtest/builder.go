// Package wasmtest assembles binary modules for tests.
//
// A Builder collects declarations and emits the sections in canonical
// order. Indices follow the binary format: imported functions come before
// locally defined ones.
//
//	b := wasmtest.New()
//	add := b.Type([]byte{wasmtest.I32, wasmtest.I32}, []byte{wasmtest.I32})
//	f := b.Func(add, wasmtest.Body(0x20, 0x00, 0x20, 0x01, 0x6A))
//	b.Export("add", wasm.KindFunc, f)
//	data := b.Bytes()
//
// Raw assembles modules section by section, including invalid ones.
package wasmtest

import (
	"github.com/birdhello/wasm3/wasm"
	"github.com/birdhello/wasm3/wasm/internal/binary"
)

// Binary value type tags.
const (
	I32 byte = 0x7F
	I64 byte = 0x7E
	F32 byte = 0x7D
	F64 byte = 0x7C
)

// Section is a raw section for Raw.
type Section struct {
	Payload []byte
	ID      byte
}

// Builder assembles a module.
type Builder struct {
	types      [][]byte
	imports    [][]byte
	funcs      [][]byte
	bodies     [][]byte
	tables     [][]byte
	memories   [][]byte
	globals    [][]byte
	exports    [][]byte
	elements   [][]byte
	data       [][]byte
	funcNames  [][]byte
	customs    []Section
	start      *uint32
	dataCount  *uint32
	funcImport uint32
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Type declares a function signature and returns its type index.
func (b *Builder) Type(params, results []byte) uint32 {
	e := binary.NewEncoder(0x60)
	e.U32(uint32(len(params))).Raw(params...)
	e.U32(uint32(len(results))).Raw(results...)
	b.types = append(b.types, e.Bytes())
	return uint32(len(b.types) - 1)
}

func (b *Builder) addImport(module, field string, kind byte, desc *binary.Encoder) {
	e := binary.NewEncoder().Name(module).Name(field).Raw(kind).Raw(desc.Bytes()...)
	b.imports = append(b.imports, e.Bytes())
}

// ImportFunc imports a function and returns its function index. Function
// imports must be declared before any Func.
func (b *Builder) ImportFunc(module, field string, typeIndex uint32) uint32 {
	b.addImport(module, field, wasm.KindFunc, binary.NewEncoder().U32(typeIndex))
	b.funcImport++
	return b.funcImport - 1
}

// ImportTable imports a funcref table.
func (b *Builder) ImportTable(module, field string, minSize uint32, maxSize ...uint32) {
	b.addImport(module, field, wasm.KindTable, limits(binary.NewEncoder(wasm.ElemTypeFuncRef), minSize, maxSize))
}

// ImportMemory imports a memory.
func (b *Builder) ImportMemory(module, field string, minPages uint32, maxPages ...uint32) {
	b.addImport(module, field, wasm.KindMemory, limits(binary.NewEncoder(), minPages, maxPages))
}

// ImportGlobal imports a global.
func (b *Builder) ImportGlobal(module, field string, valType byte, mutable bool) {
	b.addImport(module, field, wasm.KindGlobal, binary.NewEncoder(valType, boolByte(mutable)))
}

// Func defines a function and returns its function index. body is the
// encoded body without its size prefix; see Body.
func (b *Builder) Func(typeIndex uint32, body []byte) uint32 {
	b.funcs = append(b.funcs, U32(typeIndex))
	b.bodies = append(b.bodies, binary.NewEncoder().U32(uint32(len(body))).Raw(body...).Bytes())
	return b.funcImport + uint32(len(b.funcs)-1)
}

// Table declares a funcref table.
func (b *Builder) Table(minSize uint32, maxSize ...uint32) {
	b.tables = append(b.tables, limits(binary.NewEncoder(wasm.ElemTypeFuncRef), minSize, maxSize).Bytes())
}

// Memory declares a memory.
func (b *Builder) Memory(minPages uint32, maxPages ...uint32) {
	b.memories = append(b.memories, limits(binary.NewEncoder(), minPages, maxPages).Bytes())
}

// Global declares a global initialised by the constant expression init.
func (b *Builder) Global(valType byte, mutable bool, init []byte) {
	b.globals = append(b.globals, Concat([]byte{valType, boolByte(mutable)}, init))
}

// Export exports the entity of the given kind and index.
func (b *Builder) Export(name string, kind byte, index uint32) {
	b.exports = append(b.exports, binary.NewEncoder().Name(name).Raw(kind).U32(index).Bytes())
}

// Start sets the start function.
func (b *Builder) Start(funcIndex uint32) {
	b.start = &funcIndex
}

// Element appends an active element segment for table 0 at offset.
func (b *Builder) Element(offset []byte, funcIndices ...uint32) {
	e := binary.NewEncoder().U32(0).Raw(offset...).U32(uint32(len(funcIndices)))
	for _, idx := range funcIndices {
		e.U32(idx)
	}
	b.elements = append(b.elements, e.Bytes())
}

// DataCount emits a data count section declaring n segments.
func (b *Builder) DataCount(n uint32) {
	b.dataCount = &n
}

// Data appends an active data segment for memory 0 at offset.
func (b *Builder) Data(offset []byte, payload []byte) {
	e := binary.NewEncoder().U32(0).Raw(offset...).U32(uint32(len(payload))).Raw(payload...)
	b.data = append(b.data, e.Bytes())
}

// FuncName adds an entry to the function names subsection of a "name"
// section emitted after all other sections.
func (b *Builder) FuncName(funcIndex uint32, name string) {
	b.funcNames = append(b.funcNames, binary.NewEncoder().U32(funcIndex).Name(name).Bytes())
}

// Custom appends a custom section emitted after all other sections.
func (b *Builder) Custom(name string, payload []byte) {
	b.customs = append(b.customs, Section{ID: wasm.SectionCustom, Payload: Concat(Name(name), payload)})
}

// Sections returns the module's sections in canonical order.
func (b *Builder) Sections() []Section {
	var out []Section
	vec := func(id byte, entries [][]byte) {
		if len(entries) > 0 {
			out = append(out, Section{ID: id, Payload: binary.NewEncoder().Vec(entries).Bytes()})
		}
	}
	single := func(id byte, v *uint32) {
		if v != nil {
			out = append(out, Section{ID: id, Payload: U32(*v)})
		}
	}

	vec(wasm.SectionType, b.types)
	vec(wasm.SectionImport, b.imports)
	vec(wasm.SectionFunction, b.funcs)
	vec(wasm.SectionTable, b.tables)
	vec(wasm.SectionMemory, b.memories)
	vec(wasm.SectionGlobal, b.globals)
	vec(wasm.SectionExport, b.exports)
	single(wasm.SectionStart, b.start)
	vec(wasm.SectionElement, b.elements)
	single(wasm.SectionDataCount, b.dataCount)
	vec(wasm.SectionCode, b.bodies)
	vec(wasm.SectionData, b.data)

	if len(b.funcNames) > 0 {
		e := binary.NewEncoder().Name("name").Raw(wasm.NameSubsectionFunction)
		e.Framed(func(sub *binary.Encoder) { sub.Vec(b.funcNames) })
		out = append(out, Section{ID: wasm.SectionCustom, Payload: e.Bytes()})
	}
	return append(out, b.customs...)
}

// Bytes returns the encoded module.
func (b *Builder) Bytes() []byte {
	return Raw(b.Sections()...)
}

// Raw encodes a header followed by sections exactly as given.
func Raw(sections ...Section) []byte {
	e := Header()
	for _, s := range sections {
		e.Section(s.ID, s.Payload)
	}
	return e.Bytes()
}

// Header returns an encoder holding only the module header.
func Header() *binary.Encoder {
	return binary.NewEncoder().Fixed32(wasm.Magic).Fixed32(wasm.Version)
}

// Body encodes a function body with no locals and the given instructions,
// followed by end.
func Body(instrs ...byte) []byte {
	out := make([]byte, 0, len(instrs)+2)
	out = append(out, 0x00)
	out = append(out, instrs...)
	return append(out, wasm.OpEnd)
}

// I32Const encodes the constant expression i32.const v; end.
func I32Const(v int32) []byte {
	return binary.NewEncoder(wasm.OpI32Const).I32(v).Raw(wasm.OpEnd).Bytes()
}

// I64Const encodes the constant expression i64.const v; end.
func I64Const(v int64) []byte {
	return binary.NewEncoder(wasm.OpI64Const).I64(v).Raw(wasm.OpEnd).Bytes()
}

// GlobalGet encodes the constant expression global.get idx; end.
func GlobalGet(idx uint32) []byte {
	return binary.NewEncoder(wasm.OpGlobalGet).U32(idx).Raw(wasm.OpEnd).Bytes()
}

// U32 encodes v as unsigned LEB128.
func U32(v uint32) []byte {
	return binary.NewEncoder().U32(v).Bytes()
}

// Name encodes a length-prefixed name.
func Name(s string) []byte {
	return binary.NewEncoder().Name(s).Bytes()
}

// Concat joins byte slices.
func Concat(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func limits(e *binary.Encoder, minVal uint32, maxVal []uint32) *binary.Encoder {
	if len(maxVal) == 0 {
		return e.Raw(0x00).U32(minVal)
	}
	return e.Raw(0x01).U32(minVal).U32(maxVal[0])
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
