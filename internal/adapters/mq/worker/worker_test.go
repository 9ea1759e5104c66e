package worker_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/deuce/internal/adapters/mq/queue"
	"github.com/okian/deuce/internal/adapters/mq/worker"
	"github.com/okian/deuce/internal/adapters/repository"
	"github.com/okian/deuce/internal/domain/model"
	"github.com/okian/deuce/internal/domain/profile"
	"github.com/okian/deuce/internal/domain/rating"
	"github.com/okian/deuce/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan model.PlacementJob
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan model.PlacementJob, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan model.PlacementJob {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

// flakyWriter fails the first failures calls with err, then delegates.
type flakyWriter struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
	next     worker.Writer
}

func (f *flakyWriter) CreateInitial(ctx context.Context, rec model.Record, hist model.HistoryEntry) (bool, error) { //nolint:gocritic // test double
	f.mu.Lock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return false, f.err
	}
	f.mu.Unlock()
	return f.next.CreateInitial(ctx, rec, hist)
}

func (f *flakyWriter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func job(id, player string, sport rating.Sport) model.PlacementJob {
	return model.PlacementJob{
		JobID:    id,
		PlayerID: player,
		Sport:    sport,
		SeasonID: "2026",
		Estimate: rating.Estimate{
			Singles:         1640,
			Doubles:         1600,
			RatingDeviation: 200,
			Confidence:      rating.ConfidenceMedium,
			Source:          rating.SourceQuestionnaire,
		},
		ReceivedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func runUntilDrained(ctx context.Context, w *worker.InMemoryWorker, q *mockQueue, jobs ...model.PlacementJob) {
	for _, j := range jobs {
		q.jobs <- j
	}
	_ = q.Close()
	w.Run(ctx)
}

func TestInMemoryWorker_Process(t *testing.T) {
	ctx := context.Background()
	registry := profile.MustNewRegistry()

	convey.Convey("Given a worker over an in-memory store", t, func() {
		store := repository.NewMemoryStore(ctx)
		defer store.Close()
		q := newMockQueue()
		w := worker.NewInMemoryWorker(q, registry, store, worker.WithName("test"), worker.WithLogger(logger.Nop()))

		convey.Convey("When a tennis placement is processed", func() {
			runUntilDrained(ctx, w, q, job("j1", "p1", rating.Tennis))

			convey.Convey("Then singles and doubles records exist", func() {
				n, _ := store.Count(ctx)
				convey.So(n, convey.ShouldEqual, 2)

				singles, err := store.Get(ctx, model.RecordKey{PlayerID: "p1", Sport: rating.Tennis, SeasonID: "2026", GameMode: rating.Singles})
				convey.So(err, convey.ShouldBeNil)
				convey.So(singles.CurrentRating, convey.ShouldEqual, 1640)
				convey.So(singles.IsProvisional, convey.ShouldBeTrue)

				doubles, err := store.Get(ctx, model.RecordKey{PlayerID: "p1", Sport: rating.Tennis, SeasonID: "2026", GameMode: rating.Doubles})
				convey.So(err, convey.ShouldBeNil)
				convey.So(doubles.CurrentRating, convey.ShouldEqual, 1600)

				hist, _ := store.History(ctx, doubles.ID)
				convey.So(hist, convey.ShouldHaveLength, 1)
				convey.So(hist[0].Delta, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When a padel placement is processed", func() {
			runUntilDrained(ctx, w, q, job("j1", "p1", rating.Padel))

			convey.Convey("Then only a doubles record exists", func() {
				recs, _ := store.ListByPlayer(ctx, "p1", 10)
				convey.So(recs, convey.ShouldHaveLength, 1)
				convey.So(recs[0].GameMode, convey.ShouldEqual, rating.Doubles)
			})
		})

		convey.Convey("When the same player is placed twice", func() {
			second := job("j2", "p1", rating.Tennis)
			second.Estimate.Singles = 2000
			runUntilDrained(ctx, w, q, job("j1", "p1", rating.Tennis), second)

			convey.Convey("Then the first placement is kept", func() {
				n, _ := store.Count(ctx)
				convey.So(n, convey.ShouldEqual, 2)
				rec, _ := store.Get(ctx, model.RecordKey{PlayerID: "p1", Sport: rating.Tennis, SeasonID: "2026", GameMode: rating.Singles})
				convey.So(rec.CurrentRating, convey.ShouldEqual, 1640)
			})
		})
	})
}

func TestInMemoryWorker_Retry(t *testing.T) {
	ctx := context.Background()
	registry := profile.MustNewRegistry()

	convey.Convey("Given a store that fails transiently", t, func() {
		store := repository.NewMemoryStore(ctx)
		defer store.Close()
		writer := &flakyWriter{failures: 2, err: driver.ErrBadConn, next: store}
		q := newMockQueue()
		w := worker.NewInMemoryWorker(q, registry, writer, worker.WithInitialBackoff(time.Millisecond))

		runUntilDrained(ctx, w, q, job("j1", "p1", rating.Padel))

		convey.Convey("Then the write is retried until it succeeds", func() {
			convey.So(writer.callCount(), convey.ShouldEqual, 3)
			n, _ := store.Count(ctx)
			convey.So(n, convey.ShouldEqual, 1)
		})
	})

	convey.Convey("Given a store that fails permanently", t, func() {
		store := repository.NewMemoryStore(ctx)
		defer store.Close()
		writer := &flakyWriter{failures: 100, err: errors.New("constraint violated"), next: store}
		q := newMockQueue()

		var (
			mu     sync.Mutex
			failed []string
		)
		w := worker.NewInMemoryWorker(q, registry, writer,
			worker.WithInitialBackoff(time.Millisecond),
			worker.WithFailureHandler(func(j model.PlacementJob, err error) {
				mu.Lock()
				defer mu.Unlock()
				failed = append(failed, j.JobID)
			}),
		)

		runUntilDrained(ctx, w, q, job("j1", "p1", rating.Padel), job("j2", "p2", rating.Sport("SQUASH")))

		convey.Convey("Then the write is not retried and the failure is reported", func() {
			convey.So(writer.callCount(), convey.ShouldEqual, 1)
			convey.So(failed, convey.ShouldResemble, []string{"j1", "j2"})
		})
	})

	convey.Convey("Given a store that never recovers", t, func() {
		writer := &flakyWriter{failures: 100, err: driver.ErrBadConn}
		q := newMockQueue()
		w := worker.NewInMemoryWorker(q, registry, writer,
			worker.WithInitialBackoff(time.Millisecond),
			worker.WithMaxTries(3),
		)

		runUntilDrained(ctx, w, q, job("j1", "p1", rating.Padel))

		convey.Convey("Then attempts stop at the limit", func() {
			convey.So(writer.callCount(), convey.ShouldEqual, 3)
		})
	})
}

func TestInMemoryWorker_Shutdown(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		q := newMockQueue()
		w := worker.NewInMemoryWorker(q, profile.MustNewRegistry(), repository.NewMemoryStore(context.Background()))
		go w.Run(context.Background())

		convey.Convey("Then Shutdown stops it", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool draining a real queue", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		defer store.Close()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		pool := worker.NewPool(4, q, profile.MustNewRegistry(), store, logger.Nop())
		convey.So(pool.Size(), convey.ShouldEqual, 4)

		players := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
		for i, p := range players {
			convey.So(q.Enqueue(ctx, job(p, p, rating.Pickleball)), convey.ShouldBeNil)
			// a repeat of every other player
			if i%2 == 0 {
				convey.So(q.Enqueue(ctx, job(p+"-again", p, rating.Pickleball)), convey.ShouldBeNil)
			}
		}

		pool.Start(ctx)
		convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)

		convey.Convey("Then every player has exactly two records", func() {
			n, _ := store.Count(ctx)
			convey.So(n, convey.ShouldEqual, 2*len(players))
			for _, p := range players {
				recs, _ := store.ListByPlayer(ctx, p, 10)
				convey.So(recs, convey.ShouldHaveLength, 2)
			}
		})
	})

	convey.Convey("Given a pool without a worker count", t, func() {
		pool := worker.NewPool(0, newMockQueue(), profile.MustNewRegistry(), nil, nil)

		convey.Convey("Then it sizes itself from the CPU count", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
