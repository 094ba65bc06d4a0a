package domain

import "errors"

// The recoverable error vocabulary callers are expected to handle with
// errors.Is. Anything else surfacing out of this package is a
// programmer-only invariant violation and is raised as a panic instead
// (see e.g. ReadFromSections's unmapped-image check, or writeByte's
// Reg-where-Mem-expected check).
var (
	// ErrConcretization: a value could not be materialised to a
	// concrete int/char/string.
	ErrConcretization = errors.New("domain: value could not be concretized")
	// ErrEmpty: an update would yield an infeasible state.
	ErrEmpty = errors.New("domain: update yields an infeasible state")
	// ErrBotDeref: dereference of an empty address set.
	ErrBotDeref = errors.New("domain: dereference of an empty address set")
	// ErrEnumFailure: to_addresses could not enumerate a finite set.
	ErrEnumFailure = errors.New("domain: address set could not be enumerated")
	// ErrNotFound: missing key, or no match found in a bounded scan.
	ErrNotFound = errors.New("domain: not found")
)
