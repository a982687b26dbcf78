package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode Phase = "decode" // byte-level reads
	PhaseParse  Phase = "parse"  // section structure
	PhaseLoad   Phase = "load"   // handing a decoded module to a runtime
)

// Kind categorizes the error
type Kind string

const (
	// encoding
	KindStreamOverrun       Kind = "stream_overrun"
	KindLEBOverflow         Kind = "leb_overflow"
	KindMalformed           Kind = "malformed"
	KindIncompatibleVersion Kind = "incompatible_version"
	KindInvalidType         Kind = "invalid_type"
	KindInvalidUTF8         Kind = "invalid_utf8"

	// structure
	KindMisorderedSection     Kind = "misordered_section"
	KindOutOfBounds           Kind = "out_of_bounds"
	KindFunctionCountMismatch Kind = "function_count_mismatch"
	KindSectionOverrun        Kind = "section_overrun"
	KindSectionUnderrun       Kind = "section_underrun"
	KindDataUnderflow         Kind = "data_underflow"
	KindMissingInitExpr       Kind = "missing_init_expr"
	KindTooManyMemories       Kind = "too_many_memories"
	KindDuplicateExport       Kind = "duplicate_export"

	// resource limits
	KindLimitExceeded   Kind = "limit_exceeded"
	KindTooManyArgsRets Kind = "too_many_args_rets"

	// collaborators
	KindCustomSection Kind = "custom_section"
)

// Error is the structured error type used throughout the decoder
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	Section string
	Detail  string
	Path    []string
	// Offset is the absolute byte offset into the module, or -1 when unknown.
	Offset int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Section != "" {
		b.WriteString(" in ")
		b.WriteString(e.Section)
		b.WriteString(" section")
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Offset >= 0 {
		b.WriteString(" (offset ")
		b.WriteString(strconv.Itoa(e.Offset))
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches its kind in every phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return (t.Phase == "" || e.Phase == t.Phase) && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: -1,
		},
	}
}

// Section sets the name of the section being decoded
func (b *Builder) Section(name string) *Builder {
	b.err.Section = name
	return b
}

// Path sets the entry path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Offset sets the absolute byte offset
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Sentinel returns a detail-free error usable as an errors.Is target. An
// empty phase matches the kind in any phase.
func Sentinel(phase Phase, kind Kind) *Error {
	return &Error{Phase: phase, Kind: kind, Offset: -1}
}

// Convenience constructors for common error patterns

// StreamOverrun creates an error for a read past the end bound
func StreamOverrun(offset, want, have int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindStreamOverrun,
		Offset: offset,
		Detail: fmt.Sprintf("need %d bytes, %d remain", want, have),
	}
}

// LEBOverflow creates an error for an overlong variable-length integer
func LEBOverflow(offset int, bits int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindLEBOverflow,
		Offset: offset,
		Detail: fmt.Sprintf("encoding exceeds %d bits", bits),
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(offset int, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidUTF8,
		Offset: offset,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, section string, index, length uint32) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindOutOfBounds,
		Section: section,
		Offset:  -1,
		Detail:  fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:   index,
	}
}

// LimitExceeded creates an error for a declared count above its sanity ceiling
func LimitExceeded(section, what string, count, ceiling uint32) *Error {
	return &Error{
		Phase:   PhaseParse,
		Kind:    KindLimitExceeded,
		Section: section,
		Offset:  -1,
		Detail:  fmt.Sprintf("too many %s: %d (max %d)", what, count, ceiling),
		Value:   count,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: -1,
		Detail: detail,
		Cause:  cause,
	}
}

// Annotate returns a copy of err with the section and path filled in when it
// is an *Error that does not carry them yet. err itself is never modified, so
// sentinels pass through unchanged. Foreign errors are wrapped as malformed.
func Annotate(err error, section string, path ...string) error {
	if err == nil {
		return nil
	}
	e, ok := err.(*Error)
	if !ok {
		return &Error{
			Phase:   PhaseParse,
			Kind:    KindMalformed,
			Section: section,
			Path:    path,
			Offset:  -1,
			Cause:   err,
		}
	}
	c := *e
	if c.Section == "" {
		c.Section = section
	}
	if len(c.Path) == 0 && len(path) > 0 {
		c.Path = path
	}
	return &c
}
