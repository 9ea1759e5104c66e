package profile

import "errors"

// Sentinel kinds for profile errors.
var (
	ErrInvalidProfile  = errors.New("invalid scoring profile")
	ErrUnnamedCategory = errors.New("category has no name")
	ErrNoOptions       = errors.New("category has no options")
	ErrMissingWeight   = errors.New("option has no weight")
	ErrUnknownOption   = errors.New("weight for unknown option")
	ErrUnknownCategory = errors.New("unknown category")
	ErrProfileNotFound = errors.New("no scoring profile for sport")
)
