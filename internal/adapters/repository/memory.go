package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/deuce/internal/domain/model"
)

// MemoryStore is a mutex-guarded Store kept in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[model.RecordKey]model.Record
	history map[string][]model.HistoryEntry
	closed  bool

	reporter *reporter
}

// NewMemoryStore constructs an empty in-memory store. Background metrics stop
// when ctx is done or the store is closed.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	o := newOptions(opts)
	s := &MemoryStore{
		records: make(map[model.RecordKey]model.Record),
		history: make(map[string][]model.HistoryEntry),
	}
	s.reporter = startReporter(ctx, o.metricsUpdateInterval, s.Count)
	return s
}

func (s *MemoryStore) CreateInitial(ctx context.Context, rec model.Record, hist model.HistoryEntry) (bool, error) { //nolint:gocritic // records are values
	defer observeWrite(time.Now())

	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validate(&rec, &hist); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	key := rec.Key()
	if _, exists := s.records[key]; exists {
		return false, nil
	}
	s.records[key] = rec
	s.history[rec.ID] = append(s.history[rec.ID], hist)
	return true, nil
}

func (s *MemoryStore) Get(ctx context.Context, key model.RecordKey) (model.Record, error) {
	defer observeQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return model.Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.Record, error) {
	defer observeQuery(time.Now())

	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	out := make([]model.Record, 0)
	for key, rec := range s.records {
		if key.PlayerID == playerID {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return lessKey(out[i].Key(), out[j].Key()) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) History(ctx context.Context, ratingID string) ([]model.HistoryEntry, error) {
	defer observeQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.HistoryEntry(nil), s.history[ratingID]...), nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close stops background metrics. Reads keep working; writes fail with
// ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.reporter.Close()
	return nil
}
