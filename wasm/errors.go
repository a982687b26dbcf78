package wasm

import "github.com/birdhello/wasm3/errors"

// Decoding errors returned by ParseModule. Match them with errors.Is; the
// returned errors carry section, offset and detail in addition.
// ErrLimitExceeded matches every sanity ceiling, over-long names included;
// ErrNameTooLong matches only the latter.
var (
	ErrStreamOverrun = errors.Sentinel(errors.PhaseDecode, errors.KindStreamOverrun)
	ErrLEBOverflow   = errors.Sentinel(errors.PhaseDecode, errors.KindLEBOverflow)
	ErrInvalidUTF8   = errors.Sentinel(errors.PhaseDecode, errors.KindInvalidUTF8)
	ErrNameTooLong   = errors.Sentinel(errors.PhaseDecode, errors.KindLimitExceeded)

	ErrMalformed             = errors.Sentinel(errors.PhaseParse, errors.KindMalformed)
	ErrIncompatibleVersion   = errors.Sentinel(errors.PhaseParse, errors.KindIncompatibleVersion)
	ErrMisorderedSection     = errors.Sentinel(errors.PhaseParse, errors.KindMisorderedSection)
	ErrInvalidType           = errors.Sentinel(errors.PhaseParse, errors.KindInvalidType)
	ErrTooManyArgsRets       = errors.Sentinel(errors.PhaseParse, errors.KindTooManyArgsRets)
	ErrLimitExceeded         = errors.Sentinel("", errors.KindLimitExceeded)
	ErrOutOfBounds           = errors.Sentinel(errors.PhaseParse, errors.KindOutOfBounds)
	ErrFunctionCountMismatch = errors.Sentinel(errors.PhaseParse, errors.KindFunctionCountMismatch)
	ErrSectionOverrun        = errors.Sentinel(errors.PhaseParse, errors.KindSectionOverrun)
	ErrSectionUnderrun       = errors.Sentinel(errors.PhaseParse, errors.KindSectionUnderrun)
	ErrDataUnderflow         = errors.Sentinel(errors.PhaseParse, errors.KindDataUnderflow)
	ErrMissingInitExpr       = errors.Sentinel(errors.PhaseParse, errors.KindMissingInitExpr)
	ErrTooManyMemories       = errors.Sentinel(errors.PhaseParse, errors.KindTooManyMemories)
	ErrDuplicateExport       = errors.Sentinel(errors.PhaseParse, errors.KindDuplicateExport)
	ErrCustomSection         = errors.Sentinel(errors.PhaseParse, errors.KindCustomSection)
)
