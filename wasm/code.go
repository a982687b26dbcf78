package wasm

import (
	"go.uber.org/zap"

	"github.com/birdhello/wasm3/errors"
	"github.com/birdhello/wasm3/wasm/internal/binary"
)

// parseCodeSection attaches a body to every locally defined function.
// Bodies are not decoded here; each Function.Code views the local
// declarations and instructions that follow the body's size prefix.
func (d *decoder) parseCodeSection(c *binary.Cursor) error {
	d.sawCode = true

	at := c.Position()
	n, err := c.ReadU32()
	if err != nil {
		return err
	}
	d.log.Debug("code section", zap.Uint32("count", n))

	if local := d.m.NumLocalFunctions(); n != local {
		return errors.New(errors.PhaseParse, errors.KindFunctionCountMismatch).
			Offset(at).
			Value(n).
			Detail("%d bodies for %d declared functions", n, local).
			Build()
	}

	for i := uint32(0); i < n; i++ {
		bodyAt := c.Position()
		size, err := c.ReadU32()
		if err != nil {
			return errors.Annotate(err, "code", entry(i))
		}
		if size == 0 {
			return errors.Annotate(fail(errors.KindMalformed, bodyAt, "empty function body"), "code", entry(i))
		}
		if uint64(size) > uint64(c.Len()) {
			return errors.Annotate(
				fail(errors.KindSectionOverrun, bodyAt, "body of %d bytes, %d remain in section", size, c.Len()),
				"code", entry(i))
		}
		start := c.Position()
		if err := c.Skip(size); err != nil {
			return errors.Annotate(err, "code", entry(i))
		}
		d.m.Functions[d.m.NumFuncImports+i].Code = d.m.buffer.view(start, c.Position())
	}

	if !c.Done() {
		return fail(errors.KindSectionUnderrun, c.Position(), "%d bytes left after function bodies", c.Len())
	}
	return nil
}

// parseDataSection records each segment's offset expression and a view of
// its payload. Payload bytes are not copied.
func (d *decoder) parseDataSection(c *binary.Cursor) error {
	d.sawData = true

	at := c.Position()
	n, err := readCount(c, "data", "data segments", 0, d.limits.MaxDataSegments)
	if err != nil {
		return err
	}
	d.log.Debug("data section", zap.Uint32("count", n))

	if dc := d.m.DataCount; dc != nil && *dc != n {
		return fail(errors.KindMalformed, at, "%d data segments, data count section declared %d", n, *dc)
	}

	d.m.DataSegments = make([]DataSegment, 0, n)
	for i := uint32(0); i < n; i++ {
		seg, err := d.readDataSegment(c)
		if err != nil {
			return errors.Annotate(err, "data", entry(i))
		}
		d.m.DataSegments = append(d.m.DataSegments, seg)
	}
	return nil
}

func (d *decoder) readDataSegment(c *binary.Cursor) (DataSegment, error) {
	at := c.Position()
	memIndex, err := c.ReadU32()
	if err != nil {
		return DataSegment{}, err
	}
	if memIndex != 0 || d.m.Memory == nil {
		return DataSegment{}, fail(errors.KindOutOfBounds, at, "memory index %d out of bounds", memIndex)
	}

	offset, err := d.readInitExpr(c)
	if err != nil {
		return DataSegment{}, err
	}

	sizeAt := c.Position()
	size, err := c.ReadU32()
	if err != nil {
		return DataSegment{}, err
	}
	start := c.Position()
	if uint64(start)+uint64(size) > uint64(c.End()) {
		return DataSegment{}, errors.New(errors.PhaseParse, errors.KindDataUnderflow).
			Offset(sizeAt).
			Value(size).
			Detail("segment of %d bytes, %d remain in section", size, c.Len()).
			Build()
	}
	if err := c.Skip(size); err != nil {
		return DataSegment{}, err
	}

	return DataSegment{
		MemoryIndex: memIndex,
		Offset:      offset,
		Size:        size,
		Data:        d.m.buffer.view(start, start+int(size)),
	}, nil
}
