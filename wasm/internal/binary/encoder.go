package binary

import "encoding/binary"

// Encoder appends binary-format values to a byte slice. Each method mirrors
// the Cursor read of the same value and returns the Encoder for chaining.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder appending to prefix.
func NewEncoder(prefix ...byte) *Encoder {
	return &Encoder{buf: prefix}
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int { return len(e.buf) }

// Raw appends p unchanged.
func (e *Encoder) Raw(p ...byte) *Encoder {
	e.buf = append(e.buf, p...)
	return e
}

// U32 appends v as unsigned LEB128.
func (e *Encoder) U32(v uint32) *Encoder {
	e.buf = binary.AppendUvarint(e.buf, uint64(v))
	return e
}

// I32 appends v as signed LEB128.
func (e *Encoder) I32(v int32) *Encoder {
	return e.I64(int64(v))
}

// I64 appends v as signed LEB128. The sign bit of the final group must
// agree with the remaining value, which rules out the zigzag varint of
// encoding/binary.
func (e *Encoder) I64(v int64) *Encoder {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			e.buf = append(e.buf, b)
			return e
		}
		e.buf = append(e.buf, b|0x80)
	}
}

// Name appends a length-prefixed name.
func (e *Encoder) Name(s string) *Encoder {
	e.U32(uint32(len(s)))
	e.buf = append(e.buf, s...)
	return e
}

// Fixed32 appends v as four little-endian bytes.
func (e *Encoder) Fixed32(v uint32) *Encoder {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
	return e
}

// Vec appends a count followed by the given pre-encoded entries.
func (e *Encoder) Vec(entries [][]byte) *Encoder {
	e.U32(uint32(len(entries)))
	for _, entry := range entries {
		e.buf = append(e.buf, entry...)
	}
	return e
}

// Framed appends whatever fill encodes, prefixed by its byte length.
func (e *Encoder) Framed(fill func(*Encoder)) *Encoder {
	inner := &Encoder{}
	fill(inner)
	e.U32(uint32(len(inner.buf)))
	e.buf = append(e.buf, inner.buf...)
	return e
}

// Section appends a section id and its length-prefixed payload.
func (e *Encoder) Section(id byte, payload []byte) *Encoder {
	e.buf = append(e.buf, id)
	return e.Framed(func(p *Encoder) { p.Raw(payload...) })
}
