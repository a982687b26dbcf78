package wasm

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/birdhello/wasm3/errors"
	"github.com/birdhello/wasm3/wasm/internal/binary"
)

// ParseModule decodes and structurally validates a module. The returned
// Module keeps data alive and holds views into it, so data must not be
// modified afterwards. On error no Module is returned and env is left
// unchanged. A nil env decodes against a fresh default Environment.
func ParseModule(env *Environment, data []byte) (*Module, error) {
	if env == nil {
		env = NewEnvironment()
	}
	log := env.log()
	log.Debug("load module", zap.Int("bytes", len(data)))

	d := &decoder{
		env:    env,
		log:    log,
		custom: env.customSectionHandler(),
		limits: env.limits,
		m: &Module{
			Name:   DefaultModuleName,
			env:    env,
			buffer: &Buffer{data: data},
		},
	}
	m, err := d.decode()
	if err != nil {
		log.Debug("module rejected", zap.Error(err))
		return nil, err
	}
	return m, nil
}

// decoder holds the state of one decode. The Module under construction is
// private to it until decode returns successfully.
type decoder struct {
	env     *Environment
	m       *Module
	log     *zap.Logger
	custom  CustomSectionHandler
	limits  SanityLimits
	sawCode bool
	sawData bool
}

type sectionParser func(d *decoder, c *binary.Cursor) error

var sectionParsers = [...]sectionParser{
	SectionCustom:    (*decoder).parseCustomSection,
	SectionType:      (*decoder).parseTypeSection,
	SectionImport:    (*decoder).parseImportSection,
	SectionFunction:  (*decoder).parseFunctionSection,
	SectionTable:     (*decoder).parseTableSection,
	SectionMemory:    (*decoder).parseMemorySection,
	SectionGlobal:    (*decoder).parseGlobalSection,
	SectionExport:    (*decoder).parseExportSection,
	SectionStart:     (*decoder).parseStartSection,
	SectionElement:   (*decoder).parseElementSection,
	SectionCode:      (*decoder).parseCodeSection,
	SectionData:      (*decoder).parseDataSection,
	SectionDataCount: (*decoder).parseDataCountSection,
}

func (d *decoder) decode() (*Module, error) {
	c := binary.NewCursor(d.m.buffer.data)

	magic, err := c.ReadU32LE()
	if err != nil {
		return nil, errors.Annotate(err, "header")
	}
	if magic != Magic {
		return nil, errors.New(errors.PhaseParse, errors.KindMalformed).
			Section("header").
			Offset(0).
			Value(magic).
			Detail("invalid magic 0x%08x", magic).
			Build()
	}
	version, err := c.ReadU32LE()
	if err != nil {
		return nil, errors.Annotate(err, "header")
	}
	if version != Version {
		return nil, errors.New(errors.PhaseParse, errors.KindIncompatibleVersion).
			Section("header").
			Offset(4).
			Value(version).
			Detail("version %d, want %d", version, Version).
			Build()
	}

	next := 0
	for !c.Done() {
		idAt := c.Position()
		id, err := c.ReadU7()
		if err != nil {
			return nil, errors.Annotate(err, "section header")
		}
		if id != SectionCustom {
			if next, err = nextSection(id, next, idAt); err != nil {
				return nil, err
			}
		}

		name := SectionName(id)
		size, err := c.ReadU32()
		if err != nil {
			return nil, errors.Annotate(err, name)
		}
		payload, err := c.Sub(size)
		if err != nil {
			return nil, errors.Annotate(err, name)
		}
		d.log.Debug("section", zap.String("name", name), zap.Uint32("length", size), zap.Int("offset", idAt))

		if err := sectionParsers[id](d, payload); err != nil {
			return nil, errors.Annotate(err, name)
		}
		if err := c.Skip(size); err != nil {
			return nil, errors.Annotate(err, name)
		}
	}

	if err := d.finish(); err != nil {
		return nil, err
	}
	d.commit()
	return d.m, nil
}

// nextSection checks id appears after every section seen so far and
// returns the new position in sectionOrder. Repeated and unknown ids fail.
func nextSection(id byte, next, at int) (int, error) {
	for i := next; i < len(sectionOrder); i++ {
		if sectionOrder[i] == id {
			return i + 1, nil
		}
	}
	return next, errors.New(errors.PhaseParse, errors.KindMisorderedSection).
		Offset(at).
		Value(id).
		Detail("section id %d (%s) out of order", id, SectionName(id)).
		Build()
}

// finish checks invariants that span sections.
func (d *decoder) finish() error {
	if n := d.m.NumLocalFunctions(); n > 0 && !d.sawCode {
		return errors.New(errors.PhaseParse, errors.KindFunctionCountMismatch).
			Section("code").
			Detail("%d functions declared without a code section", n).
			Build()
	}
	if dc := d.m.DataCount; dc != nil && *dc > 0 && !d.sawData {
		return errors.New(errors.PhaseParse, errors.KindMalformed).
			Section("datacount").
			Detail("data count %d without a data section", *dc).
			Build()
	}
	return nil
}

// commit registers the module's signatures with the environment. Nothing
// reaches the shared TypeTable before the whole module has been accepted.
func (d *decoder) commit() {
	d.m.FuncTypes = d.env.Types.RegisterAll(d.m.staged)
	d.m.staged = nil
	d.log.Debug("module loaded",
		zap.Int("types", len(d.m.FuncTypes)),
		zap.Int("functions", len(d.m.Functions)),
		zap.Uint32("imports", d.m.NumFuncImports),
		zap.Int("globals", len(d.m.Globals)),
		zap.Int("data", len(d.m.DataSegments)),
	)
}

// readCount reads an entry count and checks it against ceiling before any
// storage is sized from it. existing entries count towards the ceiling.
func readCount(c *binary.Cursor, section, what string, existing int, ceiling uint32) (uint32, error) {
	n, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	if uint64(n)+uint64(existing) > uint64(ceiling) {
		return 0, errors.LimitExceeded(section, what, n, ceiling)
	}
	return n, nil
}

func entry(i uint32) string {
	return strconv.FormatUint(uint64(i), 10)
}

func fail(kind errors.Kind, at int, format string, args ...any) error {
	return errors.New(errors.PhaseParse, kind).Offset(at).Detail(format, args...).Build()
}
