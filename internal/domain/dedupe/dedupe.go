// Package dedupe tracks placement submissions already accepted so a retried
// submission is not queued twice.
package dedupe

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const defaultMaxSize = 50000

// Deduper records seen submission keys for at-most-once intake.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so the submission can be retried, for example
	// after the queue rejected it.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// Key builds the idempotency key for a submission. An explicit submission id
// wins; otherwise one placement per player, sport and season is accepted.
func Key(submissionID, playerID, sport, seasonID string) string {
	if id := strings.TrimSpace(submissionID); id != "" {
		return "sub:" + id
	}
	return strings.Join([]string{"player", playerID, sport, seasonID}, ":")
}

// inMemoryDeduper keeps keys in insertion order so the oldest can be evicted
// first when bounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    *orderedmap.OrderedMap[string, struct{}]
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = orderedmap.New[string, struct{}]()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen.Get(key); ok {
		return true
	}
	if d.maxSize > 0 && d.seen.Len() >= d.maxSize {
		if oldest := d.seen.Oldest(); oldest != nil {
			d.seen.Delete(oldest.Key)
		}
	}
	d.seen.Set(key, struct{}{})
	d.size.Store(int64(d.seen.Len()))
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen.Delete(key); ok {
		d.size.Store(int64(d.seen.Len()))
	}
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
