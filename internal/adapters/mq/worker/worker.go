// Package worker persists accepted placements off the queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/okian/deuce/internal/adapters/repository"
	"github.com/okian/deuce/internal/domain/model"
	"github.com/okian/deuce/internal/domain/profile"
	"github.com/okian/deuce/internal/domain/rating"
	"github.com/okian/deuce/pkg/logger"
	"github.com/okian/deuce/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	defaultMaxTries         = 5
	defaultInitialBackoff   = 50 * time.Millisecond
	poolShutdownTimeout     = 30 * time.Second
)

// Writer persists initial rating records.
type Writer interface {
	CreateInitial(ctx context.Context, rec model.Record, hist model.HistoryEntry) (bool, error)
}

// Profiles resolves the game modes a sport records.
type Profiles interface {
	Get(sport rating.Sport) (*profile.Profile, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.PlacementJob
}

// Worker processes jobs and writes records using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker once its current job is done.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	profiles Profiles
	writer   Writer
	name     string

	maxTries       uint
	initialBackoff time.Duration
	onFailure      func(job model.PlacementJob, err error)

	// Shutdown control
	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, profiles Profiles, writer Writer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:          queue,
		profiles:       profiles,
		writer:         writer,
		name:           "worker",
		maxTries:       defaultMaxTries,
		initialBackoff: defaultInitialBackoff,
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop. It returns when ctx is done, Shutdown is
// called, or the queue is drained after Close.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "placement not persisted",
					logger.String("job_id", job.JobID),
					logger.String("player_id", job.PlayerID),
					logger.Error(err),
				)
				if w.onFailure != nil {
					w.onFailure(job, err)
				}
			}
		}
	}
}

// Shutdown signals the worker to stop and waits for it.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process writes one record per game mode of the job's sport. A record that
// already exists is left untouched.
func (w *InMemoryWorker) process(ctx context.Context, job model.PlacementJob) error { //nolint:gocritic // jobs travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	prof, err := w.profiles.Get(job.Sport)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "unknown_sport")
		return fmt.Errorf("resolve modes for %s: %w", job.Sport, err)
	}

	var errs []error
	for _, p := range model.InitialRecords(job, prof.GameModes) {
		created, err := w.write(ctx, p)
		if err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "store_error")
			errs = append(errs, fmt.Errorf("%s: %w", p.Record.Key(), err))
			continue
		}
		if created {
			metrics.RecordRecordCreated(string(job.Sport), string(p.Record.GameMode))
			w.logger.Debug(ctx, "rating record created",
				logger.String("key", p.Record.Key().String()),
				logger.Int("rating", p.Record.CurrentRating),
			)
		} else {
			metrics.RecordRecordExisting()
			w.logger.Debug(ctx, "rating record exists", logger.String("key", p.Record.Key().String()))
		}
	}
	return errors.Join(errs...)
}

func (w *InMemoryWorker) write(ctx context.Context, p model.Placement) (bool, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.initialBackoff

	return backoff.Retry(ctx, func() (bool, error) {
		created, err := w.writer.CreateInitial(ctx, p.Record, p.History)
		if err != nil && !repository.IsTransient(err) {
			return false, backoff.Permanent(err)
		}
		if err != nil {
			w.logger.Warn(ctx, "retrying record write",
				logger.String("key", p.Record.Key().String()),
				logger.Error(err),
			)
		}
		return created, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(w.maxTries))
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64
	wg      sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a worker pool. A workerCount below one defaults to a
// multiple of the CPU count. Options apply to every worker.
func NewPool(workerCount int, queue Queue, profiles Profiles, writer Writer, log logger.Logger, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	if log == nil {
		log = logger.Nop()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  log.Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithLogger(log)}, opts...)
		workerOpts = append(workerOpts, WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(queue, profiles, writer, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			metrics.UpdateWorkerActiveCount(int(p.active.Add(1)))
			defer func() { metrics.UpdateWorkerActiveCount(int(p.active.Add(-1))) }()
			w.Run(ctx)
		}(w)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown closes the queue when it supports Close, lets workers drain what
// is already queued, and waits for them until ctx is done or the pool
// timeout passes.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		p.logger.Info(ctx, "worker pool drained")
		return nil
	case <-shutdownCtx.Done():
		for _, w := range p.workers {
			w.stopOnce.Do(func() { close(w.shutdown) })
		}
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
}
