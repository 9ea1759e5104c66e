package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("rating record not found")
	ErrInvalidLimit      = errors.New("invalid list limit")
	ErrInvalidRecord     = errors.New("invalid rating record")
	ErrUnsupportedDriver = errors.New("unsupported store driver")
	ErrClosed            = errors.New("store closed")
)

func invalidRecord(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, reason)
}
