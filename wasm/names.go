package wasm

import (
	"go.uber.org/zap"

	"github.com/birdhello/wasm3/errors"
	"github.com/birdhello/wasm3/wasm/internal/binary"
)

const nameSectionName = "name"

// parseCustomSection handles the "name" section itself and hands any other
// custom section to the environment's handler. Without a handler the
// section is skipped.
func (d *decoder) parseCustomSection(c *binary.Cursor) error {
	name, err := c.ReadName(d.limits.MaxNameLength)
	if err != nil {
		return err
	}

	if name == nameSectionName {
		return d.parseNameSection(c)
	}

	if h := d.custom; h != nil {
		payload := d.m.buffer.view(c.Position(), c.End())
		if err := h(d.m, name, payload); err != nil {
			return errors.New(errors.PhaseParse, errors.KindCustomSection).
				Offset(c.Position()).
				Value(name).
				Cause(err).
				Detail("custom section %q rejected", name).
				Build()
		}
		return nil
	}

	d.log.Debug("skipping custom section", zap.String("name", name), zap.Int("length", c.Len()))
	return nil
}

// parseNameSection walks the name subsections and applies function names.
// Module and local names are skipped.
func (d *decoder) parseNameSection(c *binary.Cursor) error {
	for !c.Done() {
		kind, err := c.ReadU7()
		if err != nil {
			return err
		}
		size, err := c.ReadU32()
		if err != nil {
			return err
		}
		sub, err := c.Sub(size)
		if err != nil {
			return err
		}

		switch kind {
		case NameSubsectionFunction:
			if err := d.parseFunctionNames(sub); err != nil {
				return errors.Annotate(err, nameSectionName, "function")
			}
		default:
			d.log.Debug("skipping name subsection", zap.Uint8("kind", kind), zap.Uint32("length", size))
		}

		if err := c.Skip(size); err != nil {
			return err
		}
	}
	return nil
}

// parseFunctionNames names functions that have no export name. Entries for
// indices outside the function index space are ignored.
func (d *decoder) parseFunctionNames(c *binary.Cursor) error {
	n, err := readCount(c, nameSectionName, "function names", 0, d.limits.MaxFunctions)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		index, err := c.ReadU32()
		if err != nil {
			return err
		}
		name, err := c.ReadName(d.limits.MaxNameLength)
		if err != nil {
			return err
		}
		if f := d.m.Function(index); f != nil && len(f.Names) == 0 {
			d.log.Debug("naming function", zap.Uint32("index", index), zap.String("name", name))
			f.Names = append(f.Names, name)
		}
	}
	return nil
}
