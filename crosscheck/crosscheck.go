// Package crosscheck compares a decoded module with wazero's view of the
// same bytes. It is a consistency check for the decoder: both sides must
// agree on the function index space, imports, exports, signatures and
// memory.
package crosscheck

import (
	"context"
	"fmt"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/birdhello/wasm3/errors"
	"github.com/birdhello/wasm3/wasm"
)

// Config holds configuration for a cross-check.
type Config struct {
	// Logger receives one Debug entry per mismatch. Defaults to a no-op logger.
	Logger *zap.Logger

	// MemoryLimitPages caps memory declarations wazero accepts, in 64KiB
	// pages. 0 means wazero's default.
	MemoryLimitPages uint32

	// Compiler selects wazero's optimizing compiler instead of the
	// interpreter. The compiler is only available on some platforms.
	Compiler bool
}

// Mismatch is one disagreement between the decoder and wazero.
type Mismatch struct {
	What   string
	Ours   string
	Theirs string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: decoder=%s wazero=%s", m.What, m.Ours, m.Theirs)
}

// Report is the outcome of a cross-check.
type Report struct {
	Mismatches      []Mismatch
	ImportedFuncs   int
	ExportedFuncs   int
	CheckedMemories int
}

// OK reports whether no mismatch was found.
func (r *Report) OK() bool {
	return len(r.Mismatches) == 0
}

// Run compiles data with wazero's interpreter and compares the result
// with m, which must have been decoded from data.
func Run(ctx context.Context, m *wasm.Module, data []byte) (*Report, error) {
	return RunWithConfig(ctx, m, data, nil)
}

// RunWithConfig is Run with custom configuration.
func RunWithConfig(ctx context.Context, m *wasm.Module, data []byte, cfg *Config) (*Report, error) {
	runtimeCfg := wazero.NewRuntimeConfigInterpreter()
	log := zap.NewNop()
	if cfg != nil {
		if cfg.Compiler {
			runtimeCfg = wazero.NewRuntimeConfig()
		}
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.Logger != nil {
			log = cfg.Logger
		}
	}

	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, data)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindMalformed, err, "wazero rejected module")
	}
	defer compiled.Close(ctx)

	c := &checker{m: m, log: log, report: &Report{}}
	c.imports(compiled.ImportedFunctions())
	c.exports(compiled.ExportedFunctions())
	c.memories(compiled.ImportedMemories(), compiled.ExportedMemories())
	return c.report, nil
}

type checker struct {
	m      *wasm.Module
	log    *zap.Logger
	report *Report
}

func (c *checker) mismatch(what, ours, theirs string) {
	c.log.Debug("cross-check mismatch", zap.String("what", what), zap.String("decoder", ours), zap.String("wazero", theirs))
	c.report.Mismatches = append(c.report.Mismatches, Mismatch{What: what, Ours: ours, Theirs: theirs})
}

func (c *checker) imports(defs []api.FunctionDefinition) {
	c.report.ImportedFuncs = len(defs)
	if uint32(len(defs)) != c.m.NumFuncImports {
		c.mismatch("imported function count", fmt.Sprint(c.m.NumFuncImports), fmt.Sprint(len(defs)))
	}
	for _, def := range defs {
		idx := def.Index()
		f := c.m.Function(idx)
		if f == nil || !f.IsImport() {
			c.mismatch(fmt.Sprintf("function %d", idx), "not imported", "imported")
			continue
		}
		module, name, _ := def.Import()
		if f.Import.Module != module || f.Import.Field != name {
			c.mismatch(fmt.Sprintf("function %d import", idx), f.Import.String(), module+"."+name)
		}
		c.signature(idx, def)
	}
}

func (c *checker) exports(defs map[string]api.FunctionDefinition) {
	c.report.ExportedFuncs = len(defs)
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		def := defs[name]
		idx := def.Index()
		// Names also holds debug names, so look the export up by index.
		if f := c.m.Function(idx); f == nil || !slices.Contains(f.Names, name) {
			got := "missing"
			if other, ok := c.m.FunctionByName(name); ok {
				got = fmt.Sprintf("function %d", other)
			}
			c.mismatch(fmt.Sprintf("export %q", name), got, fmt.Sprintf("function %d", idx))
			continue
		}
		c.signature(idx, def)
	}
}

func (c *checker) signature(idx uint32, def api.FunctionDefinition) {
	sig := c.m.Signature(idx)
	if sig == nil {
		c.mismatch(fmt.Sprintf("function %d signature", idx), "missing", formatTypes(def.ParamTypes(), def.ResultTypes()))
		return
	}
	if !sameTypes(sig.Args(), def.ParamTypes()) || !sameTypes(sig.Rets(), def.ResultTypes()) {
		c.mismatch(fmt.Sprintf("function %d signature", idx), sig.String(), formatTypes(def.ParamTypes(), def.ResultTypes()))
	}
}

func (c *checker) memories(imported []api.MemoryDefinition, exported map[string]api.MemoryDefinition) {
	mem := c.m.Memory
	c.report.CheckedMemories = len(imported) + len(exported)

	ourImported := mem != nil && mem.Imported
	if ourImported != (len(imported) > 0) {
		c.mismatch("memory import", fmt.Sprint(ourImported), fmt.Sprint(len(imported) > 0))
	}

	for name, def := range exported {
		if mem == nil || mem.ExportName != name {
			ours := "none"
			if mem != nil {
				ours = fmt.Sprintf("%q", mem.ExportName)
			}
			c.mismatch("memory export", ours, fmt.Sprintf("%q", name))
			continue
		}
		if def.Min() != mem.Limits.Min {
			c.mismatch("memory min", fmt.Sprint(mem.Limits.Min), fmt.Sprint(def.Min()))
		}
		theirMax, hasMax := def.Max()
		if hasMax != (mem.Limits.Max != nil) || (hasMax && theirMax != *mem.Limits.Max) {
			c.mismatch("memory max", formatMax(mem.Limits.Max), formatMax(maxPtr(theirMax, hasMax)))
		}
	}
}

func apiType(t wasm.ValueType) api.ValueType {
	switch t {
	case wasm.ValueTypeI32:
		return api.ValueTypeI32
	case wasm.ValueTypeI64:
		return api.ValueTypeI64
	case wasm.ValueTypeF32:
		return api.ValueTypeF32
	case wasm.ValueTypeF64:
		return api.ValueTypeF64
	default:
		return 0
	}
}

func sameTypes(ours []wasm.ValueType, theirs []api.ValueType) bool {
	if len(ours) != len(theirs) {
		return false
	}
	for i := range ours {
		if apiType(ours[i]) != theirs[i] {
			return false
		}
	}
	return true
}

func formatTypes(params, results []api.ValueType) string {
	ft := &wasm.FuncType{
		NumArgs: uint32(len(params)),
		NumRets: uint32(len(results)),
	}
	for _, t := range results {
		ft.Types = append(ft.Types, fromAPI(t))
	}
	for _, t := range params {
		ft.Types = append(ft.Types, fromAPI(t))
	}
	return ft.String()
}

func fromAPI(t api.ValueType) wasm.ValueType {
	switch t {
	case api.ValueTypeI32:
		return wasm.ValueTypeI32
	case api.ValueTypeI64:
		return wasm.ValueTypeI64
	case api.ValueTypeF32:
		return wasm.ValueTypeF32
	case api.ValueTypeF64:
		return wasm.ValueTypeF64
	default:
		return wasm.ValueTypeNone
	}
}

func maxPtr(v uint32, ok bool) *uint32 {
	if !ok {
		return nil
	}
	return &v
}

func formatMax(v *uint32) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprint(*v)
}
