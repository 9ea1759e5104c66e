// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/deuce/internal/adapters/http/api"
	"github.com/okian/deuce/internal/adapters/mq/queue"
	"github.com/okian/deuce/internal/adapters/mq/worker"
	"github.com/okian/deuce/internal/adapters/repository"
	"github.com/okian/deuce/internal/domain/dedupe"
	"github.com/okian/deuce/internal/domain/estimator"
	"github.com/okian/deuce/internal/domain/model"
	"github.com/okian/deuce/internal/domain/profile"
	"github.com/okian/deuce/internal/domain/rating"
	"github.com/okian/deuce/pkg/logger"
)

// ErrNotStarted is returned by operations that need a started service. The
// HTTP API answers it with 503.
var ErrNotStarted = fmt.Errorf("service not started: %w", api.ErrUnavailable)

// Service implements the API dependencies for the placement system.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry   *profile.Registry
	estimator  *estimator.Dispatcher
	deduper    dedupe.Deduper
	jobs       *queue.InMemoryQueue
	store      repository.Store
	workerPool *worker.Pool

	// Configuration
	workerCount    int
	workerMaxTries uint
	queueSize      int
	dedupeSize     int
	storeDriver    repository.Driver
	storeDSN       string

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithWorkerMaxTries bounds attempts for one record write.
func WithWorkerMaxTries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerMaxTries = uint(n)
		}
	}
}

// WithQueueSize sets the maximum size of the placement queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithStore selects the record store backend.
func WithStore(driver repository.Driver, dsn string) Option {
	return func(s *Service) {
		if driver != "" {
			s.storeDriver = driver
			s.storeDSN = dsn
		}
	}
}

// WithRegistry sets the sport profiles used for scoring.
func WithRegistry(r *profile.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    8,
		workerMaxTries: 5,
		queueSize:      10_000,
		dedupeSize:     50_000,
		storeDriver:    repository.DriverMemory,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components. Workers outlive ctx
// and run until Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting placement service...")

	if s.registry == nil {
		r, err := profile.NewRegistry()
		if err != nil {
			return fmt.Errorf("build profiles: %w", err)
		}
		s.registry = r
	}

	est, err := estimator.New(
		estimator.WithRegistry(s.registry),
		estimator.WithLogger(s.logger.Named("estimator")),
	)
	if err != nil {
		return fmt.Errorf("build estimator: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	store, err := s.openStore(runCtx)
	if err != nil {
		cancel()
		return err
	}

	s.estimator = est
	s.store = store
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = worker.NewPool(s.workerCount, s.jobs, s.registry, s.store, s.logger,
		worker.WithMaxTries(s.workerMaxTries),
		worker.WithFailureHandler(s.releaseFailed),
	)
	s.workerPool.Start(runCtx)

	s.cancel = cancel
	s.started = true
	s.logger.Info(ctx, "placement service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("store", string(s.storeDriver)),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	if s.storeDriver == repository.DriverMemory {
		return repository.NewMemoryStore(ctx), nil
	}
	store, err := repository.Open(ctx, s.storeDriver, s.storeDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// releaseFailed lets a submission whose records could not be written be
// submitted again.
func (s *Service) releaseFailed(job model.PlacementJob, _ error) { //nolint:gocritic // callback signature
	if job.DedupeKey != "" {
		s.deduper.Unrecord(context.Background(), job.DedupeKey)
	}
}

// Stop stops intake, drains queued jobs and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping placement service...")

	var errs []error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "placement service stopped")
	return errors.Join(errs...)
}

// SeenAndRecord atomically checks if a submission key was seen and records
// it if not. Before Start nothing is recorded and it reports false.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return false
	}
	return s.deduper.SeenAndRecord(ctx, key)
}

// Unrecord removes a submission key, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, key string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper != nil {
		s.deduper.Unrecord(ctx, key)
	}
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Estimate runs the placement engine.
func (s *Service) Estimate(ctx context.Context, sport rating.Sport, answers rating.AnswerSet) rating.Estimate {
	return s.estimator.Estimate(ctx, sport, answers)
}

// Enqueue submits a placement job for asynchronous recording.
func (s *Service) Enqueue(ctx context.Context, job model.PlacementJob) error { //nolint:gocritic // jobs travel by value
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return s.jobs.Enqueue(ctx, job)
}

// ListByPlayer returns a player's rating records. Records stay readable
// after Stop for as long as the store allows it.
func (s *Service) ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, ErrNotStarted
	}
	recs, err := s.store.ListByPlayer(ctx, playerID, limit)
	return recs, storeErr(err)
}

// History returns the history of one rating record.
func (s *Service) History(ctx context.Context, ratingID string) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, ErrNotStarted
	}
	hist, err := s.store.History(ctx, ratingID)
	return hist, storeErr(err)
}

func storeErr(err error) error {
	if errors.Is(err, repository.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrNotStarted, err)
	}
	return err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"storeDriver": string(s.storeDriver),
	}
	if !s.started {
		return stats
	}

	stats["queueLength"] = s.jobs.Len()
	stats["dedupeEntries"] = s.deduper.Size()
	if n, err := s.store.Count(context.Background()); err == nil {
		stats["totalRecords"] = n
	}
	return stats
}
