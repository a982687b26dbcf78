package wasm

import (
	"github.com/birdhello/wasm3/errors"
	"github.com/birdhello/wasm3/wasm/internal/binary"
)

// ConstExprBoundary finds the extent of a constant expression without
// evaluating it. Consume scans data starting at the absolute offset start,
// never reading at or beyond len(data), and returns the offset just past the
// expression's end marker.
type ConstExprBoundary interface {
	Consume(data []byte, start int) (next int, err error)
}

// ConstExprScanner is the default ConstExprBoundary. It accepts the MVP
// constant instructions plus the extended-const integer arithmetic, and
// checks immediates are well-formed.
type ConstExprScanner struct{}

// Consume implements ConstExprBoundary.
func (ConstExprScanner) Consume(data []byte, start int) (int, error) {
	c := binary.NewCursor(data)
	if err := c.SeekTo(start); err != nil {
		return 0, err
	}
	for {
		at := c.Position()
		op, err := c.ReadByte()
		if err != nil {
			return 0, err
		}
		switch op {
		case OpEnd:
			return c.Position(), nil
		case OpI32Const:
			_, err = c.ReadI32()
		case OpI64Const:
			_, err = c.ReadI64()
		case OpF32Const:
			err = c.Skip(4)
		case OpF64Const:
			err = c.Skip(8)
		case OpGlobalGet, OpRefFunc:
			_, err = c.ReadU32()
		case OpRefNull:
			_, err = c.ReadByte()
		case OpI32Add, OpI32Sub, OpI32Mul, OpI64Add, OpI64Sub, OpI64Mul:
			// no immediates
		default:
			return 0, errors.New(errors.PhaseParse, errors.KindMalformed).
				Offset(at).
				Value(op).
				Detail("opcode 0x%02x not allowed in constant expression", op).
				Build()
		}
		if err != nil {
			return 0, err
		}
	}
}
