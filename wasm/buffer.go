package wasm

import "math"

// Buffer is the module input retained for the lifetime of a decoded Module.
// Function bodies, data payloads, constant expressions and the element
// section are Views into it; holding any View keeps the Buffer alive.
// The decoder never writes to the bytes and callers must not either.
type Buffer struct {
	data []byte
}

// Bytes returns the retained input.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the size of the retained input.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

func (b *Buffer) view(start, end int) View {
	return View{buf: b, off: uint32(start), n: uint32(end - start)}
}

// View is a non-owning window [Offset, Offset+Len) into a Buffer.
type View struct {
	buf *Buffer
	off uint32
	n   uint32
}

// Bytes returns the viewed bytes. The slice shares storage with the Buffer
// and is capped so appends cannot overwrite neighbouring bytes.
func (v View) Bytes() []byte {
	if v.buf == nil {
		return nil
	}
	end := v.off + v.n
	return v.buf.data[v.off:end:end]
}

// Offset returns the absolute offset of the view in the module.
func (v View) Offset() uint32 { return v.off }

// Len returns the number of viewed bytes.
func (v View) Len() uint32 { return v.n }

// Empty reports whether the view covers no bytes.
func (v View) Empty() bool { return v.n == 0 }

// Buffer returns the buffer the view points into.
func (v View) Buffer() *Buffer { return v.buf }

// Value is a constant produced by evaluating an InitExpr.
// Bits holds the raw little-endian representation.
type Value struct {
	Bits uint64
	Type ValueType
}

// I32 returns the value as an int32.
func (v Value) I32() int32 { return int32(v.Bits) }

// I64 returns the value as an int64.
func (v Value) I64() int64 { return int64(v.Bits) }

// F32 returns the value as a float32.
func (v Value) F32() float32 { return math.Float32frombits(uint32(v.Bits)) }

// F64 returns the value as a float64.
func (v Value) F64() float64 { return math.Float64frombits(v.Bits) }

// InitExpr is a constant expression that is recognised and bounded during
// decoding and evaluated later, at instantiation. It starts Unevaluated,
// holding only its raw bytes, and becomes Evaluated once Resolve is called.
type InitExpr struct {
	value *Value
	raw   View
}

// Raw returns the expression bytes, including the end marker.
func (e *InitExpr) Raw() View { return e.raw }

// Evaluated reports whether a value has been resolved.
func (e *InitExpr) Evaluated() bool { return e.value != nil }

// Value returns the resolved value, if any.
func (e *InitExpr) Value() (Value, bool) {
	if e.value == nil {
		return Value{}, false
	}
	return *e.value, true
}

// Resolve records the evaluated value of the expression.
func (e *InitExpr) Resolve(v Value) {
	e.value = &v
}
