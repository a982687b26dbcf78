package wasm

import (
	"slices"

	"go.uber.org/zap"

	"github.com/birdhello/wasm3/errors"
	"github.com/birdhello/wasm3/wasm/internal/binary"
)

func (d *decoder) parseTypeSection(c *binary.Cursor) error {
	n, err := readCount(c, "type", "types", 0, d.limits.MaxTypes)
	if err != nil {
		return err
	}
	d.log.Debug("type section", zap.Uint32("count", n))
	if n == 0 {
		return nil
	}

	types := make([]*FuncType, 0, n)
	for i := uint32(0); i < n; i++ {
		ft, err := d.readFuncType(c)
		if err != nil {
			return errors.Annotate(err, "type", entry(i))
		}
		types = append(types, ft)
	}
	d.m.staged = types
	return nil
}

func (d *decoder) readFuncType(c *binary.Cursor) (*FuncType, error) {
	at := c.Position()
	form, err := c.ReadI7()
	if err != nil {
		return nil, err
	}
	if form != FuncTypeForm {
		return nil, fail(errors.KindMalformed, at, "type form 0x%02x, want 0x60", byte(form)&0x7f)
	}

	numArgs, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	if numArgs > d.limits.MaxArgsRets {
		return nil, fail(errors.KindTooManyArgsRets, at, "%d arguments (max %d)", numArgs, d.limits.MaxArgsRets)
	}
	args := make([]ValueType, numArgs)
	for a := range args {
		if args[a], err = readValueType(c); err != nil {
			return nil, err
		}
	}

	numRets, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	if uint64(numArgs)+uint64(numRets) > uint64(d.limits.MaxArgsRets) {
		return nil, fail(errors.KindTooManyArgsRets, at, "%d arguments and %d results (max %d)", numArgs, numRets, d.limits.MaxArgsRets)
	}

	ft := &FuncType{
		NumArgs: numArgs,
		NumRets: numRets,
		Types:   make([]ValueType, numRets+numArgs),
	}
	for r := uint32(0); r < numRets; r++ {
		if ft.Types[r], err = readValueType(c); err != nil {
			return nil, err
		}
	}
	copy(ft.Types[numRets:], args)
	return ft, nil
}

// normalizeType maps a signed 7-bit binary type tag to a ValueType.
func normalizeType(t int8) (ValueType, bool) {
	switch t {
	case wasmTypeI32:
		return ValueTypeI32, true
	case wasmTypeI64:
		return ValueTypeI64, true
	case wasmTypeF32:
		return ValueTypeF32, true
	case wasmTypeF64:
		return ValueTypeF64, true
	case wasmTypeBlock:
		return ValueTypeNone, true
	default:
		return 0, false
	}
}

// readValueType reads a value type tag. The empty block type is not a
// value type and is rejected.
func readValueType(c *binary.Cursor) (ValueType, error) {
	at := c.Position()
	t, err := c.ReadI7()
	if err != nil {
		return 0, err
	}
	vt, ok := normalizeType(t)
	if !ok || vt == ValueTypeNone {
		return 0, errors.New(errors.PhaseParse, errors.KindInvalidType).
			Offset(at).
			Value(t).
			Detail("invalid value type 0x%02x", byte(t)&0x7f).
			Build()
	}
	return vt, nil
}

func (d *decoder) parseImportSection(c *binary.Cursor) error {
	n, err := readCount(c, "import", "imports", 0, d.limits.MaxImports)
	if err != nil {
		return err
	}
	d.log.Debug("import section", zap.Uint32("count", n))

	// Most imports are functions.
	d.m.Functions = slices.Grow(d.m.Functions, int(n))

	for i := uint32(0); i < n; i++ {
		if err := d.readImport(c); err != nil {
			return errors.Annotate(err, "import", entry(i))
		}
	}
	return nil
}

// readImport decodes one import entry and moves its ImportInfo into the
// entity it describes. The info is attached only once the entity has been
// decoded completely, so a failing entry leaves nothing behind.
func (d *decoder) readImport(c *binary.Cursor) error {
	module, err := c.ReadName(d.limits.MaxNameLength)
	if err != nil {
		return err
	}
	field, err := c.ReadName(d.limits.MaxNameLength)
	if err != nil {
		return err
	}
	at := c.Position()
	kind, err := c.ReadByte()
	if err != nil {
		return err
	}
	info := &ImportInfo{Module: module, Field: field}
	d.log.Debug("import", zap.Uint8("kind", kind), zap.Stringer("name", info))

	switch kind {
	case KindFunc:
		typeIndex, err := c.ReadU32()
		if err != nil {
			return err
		}
		if err := d.addFunction(typeIndex, info, at); err != nil {
			return err
		}
		d.m.NumFuncImports++

	case KindTable:
		if uint32(len(d.m.Tables)) >= d.limits.MaxTables {
			return errors.LimitExceeded("import", "tables", uint32(len(d.m.Tables))+1, d.limits.MaxTables)
		}
		t, err := readTableType(c)
		if err != nil {
			return err
		}
		t.Import = info
		d.m.Tables = append(d.m.Tables, t)

	case KindMemory:
		if d.m.Memory != nil {
			return fail(errors.KindTooManyMemories, at, "second memory import")
		}
		l, err := readLimits(c)
		if err != nil {
			return err
		}
		d.m.Memory = &MemoryInfo{Import: info, Imported: true, Limits: l}

	case KindGlobal:
		if uint32(len(d.m.Globals)) >= d.limits.MaxGlobals {
			return errors.LimitExceeded("import", "globals", uint32(len(d.m.Globals))+1, d.limits.MaxGlobals)
		}
		t, mutable, err := readGlobalType(c)
		if err != nil {
			return err
		}
		d.m.Globals = append(d.m.Globals, Global{
			Import:   info,
			Imported: true,
			Type:     t,
			Mutable:  mutable,
		})

	default:
		return fail(errors.KindMalformed, at, "unknown import kind 0x%02x", kind)
	}
	return nil
}

// addFunction appends a function to the index space. info is nil for
// locally defined functions.
func (d *decoder) addFunction(typeIndex uint32, info *ImportInfo, at int) error {
	if numTypes := uint32(d.m.NumTypes()); typeIndex >= numTypes {
		return fail(errors.KindOutOfBounds, at, "type index %d out of bounds (%d types)", typeIndex, numTypes)
	}
	if uint32(len(d.m.Functions)) >= d.limits.MaxFunctions {
		return errors.LimitExceeded("", "functions", uint32(len(d.m.Functions))+1, d.limits.MaxFunctions)
	}
	d.m.Functions = append(d.m.Functions, Function{TypeIndex: typeIndex, Import: info})
	return nil
}

func (d *decoder) parseFunctionSection(c *binary.Cursor) error {
	n, err := readCount(c, "function", "functions", len(d.m.Functions), d.limits.MaxFunctions)
	if err != nil {
		return err
	}
	d.log.Debug("function section", zap.Uint32("count", n))

	d.m.Functions = slices.Grow(d.m.Functions, int(n))
	for i := uint32(0); i < n; i++ {
		at := c.Position()
		typeIndex, err := c.ReadU32()
		if err != nil {
			return errors.Annotate(err, "function", entry(i))
		}
		if err := d.addFunction(typeIndex, nil, at); err != nil {
			return errors.Annotate(err, "function", entry(i))
		}
	}
	return nil
}

func (d *decoder) parseTableSection(c *binary.Cursor) error {
	n, err := readCount(c, "table", "tables", len(d.m.Tables), d.limits.MaxTables)
	if err != nil {
		return err
	}
	d.log.Debug("table section", zap.Uint32("count", n))

	d.m.Tables = slices.Grow(d.m.Tables, int(n))
	for i := uint32(0); i < n; i++ {
		t, err := readTableType(c)
		if err != nil {
			return errors.Annotate(err, "table", entry(i))
		}
		d.m.Tables = append(d.m.Tables, t)
	}
	return nil
}

func readTableType(c *binary.Cursor) (Table, error) {
	at := c.Position()
	elemType, err := c.ReadU7()
	if err != nil {
		return Table{}, err
	}
	if elemType != ElemTypeFuncRef && elemType != ElemTypeExternRef {
		return Table{}, errors.New(errors.PhaseParse, errors.KindInvalidType).
			Offset(at).
			Value(elemType).
			Detail("invalid table element type 0x%02x", elemType).
			Build()
	}
	l, err := readLimits(c)
	if err != nil {
		return Table{}, err
	}
	return Table{ElemType: elemType, Limits: l}, nil
}

func readLimits(c *binary.Cursor) (Limits, error) {
	at := c.Position()
	flag, err := c.ReadU7()
	if err != nil {
		return Limits{}, err
	}
	if flag > 1 {
		return Limits{}, fail(errors.KindMalformed, at, "invalid limits flag 0x%02x", flag)
	}

	var l Limits
	if l.Min, err = c.ReadU32(); err != nil {
		return Limits{}, err
	}
	if flag == 1 {
		maxVal, err := c.ReadU32()
		if err != nil {
			return Limits{}, err
		}
		if l.Min > maxVal {
			return Limits{}, fail(errors.KindMalformed, at, "limits min (%d) exceeds max (%d)", l.Min, maxVal)
		}
		l.Max = &maxVal
	}
	return l, nil
}

func (d *decoder) parseMemorySection(c *binary.Cursor) error {
	at := c.Position()
	n, err := c.ReadU32()
	if err != nil {
		return err
	}
	d.log.Debug("memory section", zap.Uint32("count", n))

	if n > 1 {
		return fail(errors.KindTooManyMemories, at, "%d memories declared", n)
	}
	if n == 0 {
		return nil
	}
	if d.m.Memory != nil {
		return fail(errors.KindTooManyMemories, at, "memory declared and imported")
	}
	l, err := readLimits(c)
	if err != nil {
		return err
	}
	d.m.Memory = &MemoryInfo{Limits: l}
	return nil
}

func readGlobalType(c *binary.Cursor) (ValueType, bool, error) {
	t, err := readValueType(c)
	if err != nil {
		return 0, false, err
	}
	at := c.Position()
	mut, err := c.ReadU7()
	if err != nil {
		return 0, false, err
	}
	if mut > 1 {
		return 0, false, fail(errors.KindMalformed, at, "invalid mutability 0x%02x", mut)
	}
	return t, mut == 1, nil
}

func (d *decoder) parseGlobalSection(c *binary.Cursor) error {
	n, err := readCount(c, "global", "globals", len(d.m.Globals), d.limits.MaxGlobals)
	if err != nil {
		return err
	}
	d.log.Debug("global section", zap.Uint32("count", n))

	d.m.Globals = slices.Grow(d.m.Globals, int(n))
	for i := uint32(0); i < n; i++ {
		t, mutable, err := readGlobalType(c)
		if err != nil {
			return errors.Annotate(err, "global", entry(i))
		}
		init, err := d.readInitExpr(c)
		if err != nil {
			return errors.Annotate(err, "global", entry(i))
		}
		d.m.Globals = append(d.m.Globals, Global{Type: t, Mutable: mutable, Init: init})
	}
	return nil
}

// readInitExpr bounds one constant expression with the environment's
// ConstExprBoundary and records it unevaluated.
func (d *decoder) readInitExpr(c *binary.Cursor) (InitExpr, error) {
	start := c.Position()
	next, err := d.env.constExpr.Consume(c.Window(0, c.End()), start)
	if err != nil {
		return InitExpr{}, err
	}
	if next-start <= 1 {
		return InitExpr{}, fail(errors.KindMissingInitExpr, start, "empty constant expression")
	}
	if err := c.SeekTo(next); err != nil {
		return InitExpr{}, err
	}
	return InitExpr{raw: d.m.buffer.view(start, next)}, nil
}

func (d *decoder) parseExportSection(c *binary.Cursor) error {
	n, err := readCount(c, "export", "exports", 0, d.limits.MaxExports)
	if err != nil {
		return err
	}
	d.log.Debug("export section", zap.Uint32("count", n))

	for i := uint32(0); i < n; i++ {
		if err := d.readExport(c); err != nil {
			return errors.Annotate(err, "export", entry(i))
		}
	}
	return nil
}

func (d *decoder) readExport(c *binary.Cursor) error {
	name, err := c.ReadName(d.limits.MaxNameLength)
	if err != nil {
		return err
	}
	at := c.Position()
	kind, err := c.ReadByte()
	if err != nil {
		return err
	}
	index, err := c.ReadU32()
	if err != nil {
		return err
	}
	d.log.Debug("export", zap.String("name", name), zap.Uint8("kind", kind), zap.Uint32("index", index))

	switch kind {
	case KindFunc:
		if index >= d.m.NumFunctions() {
			return fail(errors.KindOutOfBounds, at, "function index %d out of bounds (%d functions)", index, d.m.NumFunctions())
		}
		f := &d.m.Functions[index]
		if uint32(len(f.Names)) >= d.limits.MaxFunctionNames {
			return fail(errors.KindDuplicateExport, at, "too many duplicate export names for function %d", index)
		}
		f.Names = append(f.Names, name)

	case KindTable:
		if index >= uint32(len(d.m.Tables)) {
			return fail(errors.KindOutOfBounds, at, "table index %d out of bounds (%d tables)", index, len(d.m.Tables))
		}
		d.m.Tables[index].ExportName = name

	case KindMemory:
		if index != 0 || d.m.Memory == nil {
			return fail(errors.KindOutOfBounds, at, "memory index %d out of bounds", index)
		}
		d.m.Memory.ExportName = name

	case KindGlobal:
		if index >= uint32(len(d.m.Globals)) {
			return fail(errors.KindOutOfBounds, at, "global index %d out of bounds (%d globals)", index, len(d.m.Globals))
		}
		d.m.Globals[index].Name = name

	default:
		return fail(errors.KindMalformed, at, "unknown export kind 0x%02x", kind)
	}
	return nil
}

func (d *decoder) parseStartSection(c *binary.Cursor) error {
	at := c.Position()
	index, err := c.ReadU32()
	if err != nil {
		return err
	}
	d.log.Debug("start function", zap.Uint32("index", index))

	if index >= d.m.NumFunctions() {
		e := errors.OutOfBounds(errors.PhaseParse, "start", index, d.m.NumFunctions())
		e.Offset = at
		return e
	}
	d.m.Start = &index
	return nil
}

// parseElementSection only bounds the section. Segments reference tables
// and functions and are resolved at instantiation.
func (d *decoder) parseElementSection(c *binary.Cursor) error {
	n, err := readCount(c, "element", "element segments", 0, d.limits.MaxElementSegments)
	if err != nil {
		return err
	}
	d.log.Debug("element section", zap.Uint32("count", n))

	d.m.Elements = ElementSection{
		Count: n,
		Span:  d.m.buffer.view(c.Position(), c.End()),
	}
	return nil
}

func (d *decoder) parseDataCountSection(c *binary.Cursor) error {
	n, err := readCount(c, "datacount", "data segments", 0, d.limits.MaxDataSegments)
	if err != nil {
		return err
	}
	d.m.DataCount = &n
	return nil
}
