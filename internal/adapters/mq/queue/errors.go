package queue

import "errors"

// Sentinel errors returned by Enqueue.
var (
	ErrFull   = errors.New("placement queue full")
	ErrClosed = errors.New("placement queue closed")
)
