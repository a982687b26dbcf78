// Package errors provides structured error types for the wasm3 decoder.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the section being decoded, the byte offset into the
// module, an entry path, and an optional cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseParse, errors.KindOutOfBounds).
//		Section("export").
//		Path("3").
//		Offset(118).
//		Detail("function index %d out of range", idx).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseParse, "start", 7, 3)
//	err := errors.LimitExceeded("type", "types", 100001, 100000)
//
// All errors implement the standard error interface and support errors.Is/As.
// Two *Error values match under errors.Is when their Phase and Kind agree, so
// a zero-detail *Error works as a sentinel.
package errors
