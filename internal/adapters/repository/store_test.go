package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/deuce/internal/domain/model"
	"github.com/okian/deuce/internal/domain/rating"
)

var createdAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func placement(player string, sport rating.Sport, mode rating.GameMode, value int) model.Placement {
	job := model.PlacementJob{
		JobID:    "job-" + player,
		PlayerID: player,
		Sport:    sport,
		SeasonID: "2026",
		Estimate: rating.Estimate{
			Singles:         value,
			Doubles:         value,
			RatingDeviation: 180,
			Confidence:      rating.ConfidenceMedium,
			Source:          rating.SourceQuestionnaire,
		},
		ReceivedAt: createdAt,
	}
	return model.InitialRecords(job, []rating.GameMode{mode})[0]
}

// stores returns every Store implementation under test.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sqlStore, err := Open(ctx, DriverSQLite, "file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	all := map[string]Store{
		"memory": NewMemoryStore(ctx),
		"sqlite": sqlStore,
	}
	t.Cleanup(func() {
		for name, s := range all {
			if err := s.Close(); err != nil {
				t.Errorf("close %s: %v", name, err)
			}
		}
	})
	return all
}

func TestStore_CreateInitial(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := placement("p1", rating.Tennis, rating.Singles, 1640)

			created, err := store.CreateInitial(ctx, p.Record, p.History)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !created {
				t.Fatal("expected record to be created")
			}

			got, err := store.Get(ctx, p.Record.Key())
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got != p.Record {
				t.Errorf("record mismatch:\n got %+v\nwant %+v", got, p.Record)
			}

			hist, err := store.History(ctx, p.Record.ID)
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			if len(hist) != 1 || hist[0] != p.History {
				t.Errorf("history mismatch: %+v", hist)
			}
			if hist[0].Delta != 140 || hist[0].Reason != model.ReasonInitialPlacement {
				t.Errorf("unexpected history entry: %+v", hist[0])
			}

			if n, _ := store.Count(ctx); n != 1 {
				t.Errorf("expected count 1, got %d", n)
			}
		})
	}
}

func TestStore_CreateInitialIsIdempotent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := placement("p1", rating.Tennis, rating.Doubles, 1600)
			second := placement("p1", rating.Tennis, rating.Doubles, 1900)

			if _, err := store.CreateInitial(ctx, first.Record, first.History); err != nil {
				t.Fatalf("first create: %v", err)
			}
			created, err := store.CreateInitial(ctx, second.Record, second.History)
			if err != nil {
				t.Fatalf("second create: %v", err)
			}
			if created {
				t.Error("expected existing record to be kept")
			}

			got, _ := store.Get(ctx, first.Record.Key())
			if got.CurrentRating != 1600 {
				t.Errorf("expected rating 1600 to survive, got %d", got.CurrentRating)
			}
			if hist, _ := store.History(ctx, second.Record.ID); len(hist) != 0 {
				t.Errorf("expected no history for rejected record, got %d", len(hist))
			}
		})
	}
}

func TestStore_ConcurrentCreate(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const goroutines = 16

			var (
				wg      sync.WaitGroup
				created atomic.Int32
			)
			for g := 0; g < goroutines; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					p := placement("racer", rating.Pickleball, rating.Singles, 1500+g)
					ok, err := store.CreateInitial(ctx, p.Record, p.History)
					if err != nil {
						t.Errorf("create: %v", err)
						return
					}
					if ok {
						created.Add(1)
					}
				}()
			}
			wg.Wait()

			if c := created.Load(); c != 1 {
				t.Errorf("expected exactly one record created, got %d", c)
			}
			if n, _ := store.Count(ctx); n != 1 {
				t.Errorf("expected count 1, got %d", n)
			}
		})
	}
}

func TestStore_ListByPlayer(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, p := range []model.Placement{
				placement("p1", rating.Tennis, rating.Singles, 1600),
				placement("p1", rating.Padel, rating.Doubles, 1450),
				placement("p1", rating.Tennis, rating.Doubles, 1580),
				placement("p2", rating.Tennis, rating.Singles, 1700),
			} {
				if _, err := store.CreateInitial(ctx, p.Record, p.History); err != nil {
					t.Fatalf("create: %v", err)
				}
			}

			recs, err := store.ListByPlayer(ctx, "p1", 10)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var got []string
			for _, r := range recs {
				got = append(got, fmt.Sprintf("%s/%s", r.Sport, r.GameMode))
			}
			want := []string{"PADEL/DOUBLES", "TENNIS/DOUBLES", "TENNIS/SINGLES"}
			if fmt.Sprint(got) != fmt.Sprint(want) {
				t.Errorf("expected %v, got %v", want, got)
			}

			recs, _ = store.ListByPlayer(ctx, "p1", 2)
			if len(recs) != 2 {
				t.Errorf("expected limit to apply, got %d", len(recs))
			}

			recs, err = store.ListByPlayer(ctx, "nobody", 10)
			if err != nil || len(recs) != 0 {
				t.Errorf("expected empty list, got %v, %v", recs, err)
			}

			if _, err := store.ListByPlayer(ctx, "p1", 0); !errors.Is(err, ErrInvalidLimit) {
				t.Errorf("expected ErrInvalidLimit, got %v", err)
			}
		})
	}
}

func TestStore_Errors(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, model.RecordKey{PlayerID: "ghost", Sport: rating.Tennis, SeasonID: "2026", GameMode: rating.Singles})
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}

			p := placement("p1", rating.Tennis, rating.Singles, 1500)
			p.Record.PlayerID = ""
			if _, err := store.CreateInitial(ctx, p.Record, p.History); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("expected ErrInvalidRecord, got %v", err)
			}

			p = placement("p1", rating.Tennis, rating.Singles, 1500)
			p.History.RatingID = "other"
			if _, err := store.CreateInitial(ctx, p.Record, p.History); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("expected ErrInvalidRecord for foreign history, got %v", err)
			}
		})
	}
}

func TestStore_Close(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p := placement("p1", rating.Tennis, rating.Singles, 1500)
			if _, err := store.CreateInitial(ctx, p.Record, p.History); err != nil {
				t.Fatalf("create: %v", err)
			}

			if err := store.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
			if err := store.Close(); err != nil {
				t.Errorf("second close: %v", err)
			}
			q := placement("p2", rating.Tennis, rating.Singles, 1500)
			_, err := store.CreateInitial(ctx, q.Record, q.History)
			if !errors.Is(err, ErrClosed) {
				t.Errorf("expected ErrClosed, got %v", err)
			}
			if IsTransient(err) {
				t.Errorf("ErrClosed should not be retried")
			}
		})
	}
}

func TestMemoryStore_ReadsAfterClose(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx, WithMetricsUpdateInterval(time.Millisecond))
	p := placement("p1", rating.Tennis, rating.Singles, 1500)
	if _, err := store.CreateInitial(ctx, p.Record, p.History); err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := store.Get(ctx, p.Record.Key()); err != nil {
		t.Errorf("reads should survive close: %v", err)
	}
}

func TestParseDriver(t *testing.T) {
	for _, name := range []string{"memory", "sqlite", "postgres"} {
		if _, err := ParseDriver(name); err != nil {
			t.Errorf("%s: unexpected error %v", name, err)
		}
	}
	if _, err := ParseDriver("mysql"); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
	if _, err := Open(context.Background(), Driver("mysql"), ""); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected Open to reject mysql, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", ErrNotFound, false},
		{"deadline", fmt.Errorf("insert: %w", context.DeadlineExceeded), true},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
