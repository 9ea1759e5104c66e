package worker

import (
	"time"

	"github.com/okian/deuce/internal/domain/model"
	"github.com/okian/deuce/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMaxTries bounds the attempts made for one record write.
func WithMaxTries(n uint) Option {
	return func(w *InMemoryWorker) {
		if n > 0 {
			w.maxTries = n
		}
	}
}

// WithInitialBackoff sets the first retry delay; later delays grow
// exponentially.
func WithInitialBackoff(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.initialBackoff = d
		}
	}
}

// WithFailureHandler is called once for each job that could not be
// persisted, after retries are exhausted.
func WithFailureHandler(fn func(job model.PlacementJob, err error)) Option {
	return func(w *InMemoryWorker) {
		w.onFailure = fn
	}
}
