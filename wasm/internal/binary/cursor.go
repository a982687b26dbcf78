package binary

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/birdhello/wasm3/errors"
)

// Cursor reads from a byte slice within the bound [pos, end).
// Positions are absolute offsets into the underlying slice, so a sub-cursor
// reports the same offsets as its parent. A failed read leaves the position
// unchanged.
type Cursor struct {
	buf []byte
	pos int
	end int
}

// NewCursor creates a Cursor over all of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf, end: len(buf)}
}

// Position returns the current absolute offset.
func (c *Cursor) Position() int {
	return c.pos
}

// End returns the absolute end bound.
func (c *Cursor) End() int {
	return c.end
}

// Len returns the number of unread bytes before the end bound.
func (c *Cursor) Len() int {
	return c.end - c.pos
}

// Done reports whether the cursor has reached its end bound.
func (c *Cursor) Done() bool {
	return c.pos >= c.end
}

// Sub returns a cursor over the next n bytes without advancing c.
func (c *Cursor) Sub(n uint32) (*Cursor, error) {
	if uint64(n) > uint64(c.Len()) {
		return nil, errors.StreamOverrun(c.pos, int(n), c.Len())
	}
	return &Cursor{buf: c.buf, pos: c.pos, end: c.pos + int(n)}, nil
}

// Skip advances past n bytes.
func (c *Cursor) Skip(n uint32) error {
	if uint64(n) > uint64(c.Len()) {
		return errors.StreamOverrun(c.pos, int(n), c.Len())
	}
	c.pos += int(n)
	return nil
}

// SeekTo moves forward to an absolute position inside [Position, End].
func (c *Cursor) SeekTo(pos int) error {
	if pos < c.pos {
		return errors.New(errors.PhaseDecode, errors.KindMalformed).
			Offset(pos).
			Detail("cannot seek backwards from %d", c.pos).
			Build()
	}
	if pos > c.end {
		return errors.StreamOverrun(c.pos, pos-c.pos, c.Len())
	}
	c.pos = pos
	return nil
}

// Window returns buf[start:end] without copying. Both bounds must lie
// within the cursor's underlying slice.
func (c *Cursor) Window(start, end int) []byte {
	return c.buf[start:end:end]
}

// ReadByte reads a single raw byte.
func (c *Cursor) ReadByte() (byte, error) {
	if c.pos >= c.end {
		return 0, errors.StreamOverrun(c.pos, 1, 0)
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// ReadU32LE reads a little-endian uint32 (fixed 4 bytes).
func (c *Cursor) ReadU32LE() (uint32, error) {
	if c.Len() < 4 {
		return 0, errors.StreamOverrun(c.pos, 4, c.Len())
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

// ReadU7 reads an unsigned LEB128 value restricted to 7 bits (one byte).
func (c *Cursor) ReadU7() (uint8, error) {
	v, err := c.readUnsigned(7)
	return uint8(v), err
}

// ReadI7 reads a signed LEB128 value restricted to 7 bits (one byte).
func (c *Cursor) ReadI7() (int8, error) {
	v, err := c.readSigned(7)
	return int8(v), err
}

// ReadU32 reads an unsigned LEB128 encoded uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	v, err := c.readUnsigned(32)
	return uint32(v), err
}

// ReadI32 reads a signed LEB128 encoded int32.
func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.readSigned(32)
	return int32(v), err
}

// ReadI64 reads a signed LEB128 encoded int64.
func (c *Cursor) ReadI64() (int64, error) {
	return c.readSigned(64)
}

// ReadName reads a length-prefixed UTF-8 string of at most maxLen bytes.
// The returned string does not share memory with the input.
func (c *Cursor) ReadName(maxLen uint32) (string, error) {
	start := c.pos
	n, err := c.ReadU32()
	if err != nil {
		return "", err
	}
	if n > maxLen {
		c.pos = start
		return "", errors.New(errors.PhaseDecode, errors.KindLimitExceeded).
			Offset(start).
			Value(n).
			Detail("name length %d exceeds %d", n, maxLen).
			Build()
	}
	if uint64(n) > uint64(c.Len()) {
		err := errors.StreamOverrun(c.pos, int(n), c.Len())
		c.pos = start
		return "", err
	}
	data := c.buf[c.pos : c.pos+int(n)]
	if !utf8.Valid(data) {
		c.pos = start
		return "", errors.InvalidUTF8(start, data)
	}
	c.pos += int(n)
	return string(data), nil
}

// readUnsigned decodes an unsigned LEB128 value of at most bits bits.
// Encodings longer than ceil(bits/7) bytes, or whose final byte carries bits
// beyond the width, are rejected.
func (c *Cursor) readUnsigned(bits uint) (uint64, error) {
	maxBytes := (bits + 6) / 7
	var result uint64
	var shift uint
	p := c.pos
	for i := uint(0); ; i++ {
		if p >= c.end {
			return 0, errors.StreamOverrun(c.pos, int(i)+1, c.end-c.pos)
		}
		b := c.buf[p]
		p++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if i == maxBytes-1 {
				used := bits - 7*(maxBytes-1)
				if used < 7 && b>>used != 0 {
					return 0, errors.LEBOverflow(c.pos, int(bits))
				}
			}
			c.pos = p
			return result, nil
		}
		shift += 7
		if i+1 >= maxBytes {
			return 0, errors.LEBOverflow(c.pos, int(bits))
		}
	}
}

// readSigned decodes a signed LEB128 value of at most bits bits. Unused bits
// of a maximal-length encoding must repeat the sign bit.
func (c *Cursor) readSigned(bits uint) (int64, error) {
	maxBytes := (bits + 6) / 7
	var result int64
	var shift uint
	p := c.pos
	for i := uint(0); ; i++ {
		if p >= c.end {
			return 0, errors.StreamOverrun(c.pos, int(i)+1, c.end-c.pos)
		}
		b := c.buf[p]
		p++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if i == maxBytes-1 {
				used := bits - 7*(maxBytes-1)
				if used < 7 {
					mask := byte(0x7f) &^ (byte(1)<<(used-1) - 1)
					if v := b & mask; v != 0 && v != mask {
						return 0, errors.LEBOverflow(c.pos, int(bits))
					}
				}
			}
			// Sign extend
			if shift < 64 && b&0x40 != 0 {
				result |= ^int64(0) << shift
			}
			c.pos = p
			return result, nil
		}
		if i+1 >= maxBytes {
			return 0, errors.LEBOverflow(c.pos, int(bits))
		}
	}
}
