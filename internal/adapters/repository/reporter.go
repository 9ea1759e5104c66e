package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/deuce/pkg/metrics"
)

// reporter periodically publishes the record count of a store.
type reporter struct {
	interval time.Duration
	count    func(ctx context.Context) (int, error)

	once sync.Once
	stop chan struct{}
	wg   sync.WaitGroup
}

func startReporter(ctx context.Context, interval time.Duration, count func(ctx context.Context) (int, error)) *reporter {
	r := &reporter{interval: interval, count: count, stop: make(chan struct{})}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-ticker.C:
				r.publish(ctx)
			}
		}
	}()
	return r
}

func (r *reporter) publish(ctx context.Context) {
	n, err := r.count(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "count")
		return
	}
	metrics.UpdateRepositoryRecordsTotal(n)
}

func (r *reporter) Close() {
	r.once.Do(func() { close(r.stop) })
	r.wg.Wait()
}

func observeWrite(start time.Time) {
	metrics.RecordRepositoryWriteLatency(float64(time.Since(start).Milliseconds()))
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
}
