package wasm

import (
	"sync"

	"go.uber.org/zap"
)

// TypeHandle is a stable index into a TypeTable.
type TypeHandle uint32

// TypeTable is an append-only registry of function signatures shared by all
// modules decoded against one Environment. Equal signatures are interned to
// a single handle. It is safe for concurrent use.
type TypeTable struct {
	index map[string]TypeHandle
	types []*FuncType
	mu    sync.RWMutex
}

// NewTypeTable creates an empty TypeTable.
func NewTypeTable() *TypeTable {
	return &TypeTable{index: make(map[string]TypeHandle)}
}

// Register interns ft and returns its handle. Ownership of ft passes to the
// table; it must not be modified afterwards.
func (t *TypeTable) Register(ft *FuncType) TypeHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.register(ft)
}

// RegisterAll interns a batch of signatures under a single lock, so the
// batch lands in the table as a unit.
func (t *TypeTable) RegisterAll(fts []*FuncType) []TypeHandle {
	if len(fts) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	handles := make([]TypeHandle, len(fts))
	for i, ft := range fts {
		handles[i] = t.register(ft)
	}
	return handles
}

func (t *TypeTable) register(ft *FuncType) TypeHandle {
	k := ft.key()
	if h, ok := t.index[k]; ok {
		return h
	}
	h := TypeHandle(len(t.types))
	t.types = append(t.types, ft)
	t.index[k] = h
	return h
}

// Lookup returns the signature for h, or nil if h is unknown.
func (t *TypeTable) Lookup(h TypeHandle) *FuncType {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(h) >= len(t.types) {
		return nil
	}
	return t.types[h]
}

// Len returns the number of distinct signatures registered.
func (t *TypeTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.types)
}

// CustomSectionHandler receives custom sections other than "name".
// payload covers the section bytes after the section's own name.
type CustomSectionHandler func(m *Module, name string, payload View) error

// Environment holds state shared by the modules decoded against it: the
// type table, the decoding configuration and the custom section hook.
type Environment struct {
	Types         *TypeTable
	logger        *zap.Logger
	constExpr     ConstExprBoundary
	customSection CustomSectionHandler
	limits        SanityLimits
	hookMu        sync.RWMutex
}

// NewEnvironment creates an environment with the default configuration.
func NewEnvironment() *Environment {
	return NewEnvironmentWithConfig(nil)
}

// NewEnvironmentWithConfig creates an environment with custom configuration.
func NewEnvironmentWithConfig(cfg *Config) *Environment {
	env := &Environment{
		Types:     NewTypeTable(),
		limits:    DefaultSanityLimits(),
		constExpr: ConstExprScanner{},
	}
	if cfg != nil {
		env.limits = cfg.Limits.withDefaults()
		if cfg.ConstExpr != nil {
			env.constExpr = cfg.ConstExpr
		}
		env.customSection = cfg.CustomSectionHandler
		env.logger = cfg.Logger
	}
	return env
}

// Limits returns the sanity ceilings applied while decoding.
func (e *Environment) Limits() SanityLimits {
	return e.limits
}

// SetCustomSectionHandler replaces the custom section hook. Pass nil to
// ignore unrecognised custom sections. Decodes already past their start keep
// the previous hook.
func (e *Environment) SetCustomSectionHandler(h CustomSectionHandler) {
	e.hookMu.Lock()
	e.customSection = h
	e.hookMu.Unlock()
}

func (e *Environment) customSectionHandler() CustomSectionHandler {
	e.hookMu.RLock()
	defer e.hookMu.RUnlock()
	return e.customSection
}

// ParseModule decodes data against this environment.
func (e *Environment) ParseModule(data []byte) (*Module, error) {
	return ParseModule(e, data)
}

func (e *Environment) log() *zap.Logger {
	if e.logger != nil {
		return e.logger
	}
	return Logger()
}
