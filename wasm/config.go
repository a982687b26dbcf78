package wasm

import "go.uber.org/zap"

// Config holds configuration for environment creation. The zero value of
// every field selects its default.
type Config struct {
	// ConstExpr bounds constant expressions in globals and data segments.
	// Defaults to ConstExprScanner.
	ConstExpr ConstExprBoundary

	// CustomSectionHandler is invoked for custom sections other than "name".
	// Without one, such sections are skipped.
	CustomSectionHandler CustomSectionHandler

	// Logger overrides the package logger for this environment.
	Logger *zap.Logger

	// Limits bounds every count read from the input before anything is
	// allocated for it.
	Limits SanityLimits
}

// SanityLimits are ceilings on counts declared by a module. A crafted module
// can declare huge counts in a few bytes; every count is checked against
// its ceiling before storage is sized from it.
type SanityLimits struct {
	MaxTypes           uint32
	MaxFunctions       uint32
	MaxImports         uint32
	MaxExports         uint32
	MaxGlobals         uint32
	MaxElementSegments uint32
	MaxDataSegments    uint32
	MaxTables          uint32
	// MaxArgsRets bounds arguments plus results of one signature.
	MaxArgsRets uint32
	// MaxNameLength bounds every name string, in bytes.
	MaxNameLength uint32
	// MaxFunctionNames bounds the names one function can carry.
	MaxFunctionNames uint32
}

// DefaultSanityLimits returns the default ceilings.
func DefaultSanityLimits() SanityLimits {
	return SanityLimits{
		MaxTypes:           100000,
		MaxFunctions:       100000,
		MaxImports:         10000,
		MaxExports:         10000,
		MaxGlobals:         100000,
		MaxElementSegments: 10000000,
		MaxDataSegments:    100000,
		MaxTables:          100000,
		MaxArgsRets:        1000,
		MaxNameLength:      10000,
		MaxFunctionNames:   3,
	}
}

func (l SanityLimits) withDefaults() SanityLimits {
	d := DefaultSanityLimits()
	fill := func(v *uint32, def uint32) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&l.MaxTypes, d.MaxTypes)
	fill(&l.MaxFunctions, d.MaxFunctions)
	fill(&l.MaxImports, d.MaxImports)
	fill(&l.MaxExports, d.MaxExports)
	fill(&l.MaxGlobals, d.MaxGlobals)
	fill(&l.MaxElementSegments, d.MaxElementSegments)
	fill(&l.MaxDataSegments, d.MaxDataSegments)
	fill(&l.MaxTables, d.MaxTables)
	fill(&l.MaxArgsRets, d.MaxArgsRets)
	fill(&l.MaxNameLength, d.MaxNameLength)
	fill(&l.MaxFunctionNames, d.MaxFunctionNames)
	return l
}
