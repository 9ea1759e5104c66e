package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/deuce/internal/app"
	"github.com/okian/deuce/internal/domain/model"
	"github.com/okian/deuce/internal/domain/profile"
	"github.com/okian/deuce/internal/domain/rating"
	"github.com/okian/deuce/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report its defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 10_000)
			So(stats["dedupeSize"], ShouldEqual, 50_000)
			So(stats["storeDriver"], ShouldEqual, "memory")
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(500),
			service.WithDedupeSize(250),
			service.WithWorkerMaxTries(0),
			service.WithLogger(nil),
		)

		Convey("Then positive values are applied and the rest ignored", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueSize"], ShouldEqual, 500)
			So(stats["dedupeSize"], ShouldEqual, 250)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When enqueueing before start", func() {
			err := svc.Enqueue(ctx, model.PlacementJob{JobID: "j", PlayerID: "p"})

			Convey("Then it is refused", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["queueLength"], ShouldEqual, 0)
				So(stats["totalRecords"], ShouldEqual, 0)
			})

			Convey("And stopping it", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.Stop(ctx), ShouldBeNil)

				Convey("Then it should be marked as stopped", func() {
					So(svc.GetStats()["started"], ShouldEqual, false)
				})

				Convey("Then intake is refused", func() {
					err := svc.Enqueue(ctx, model.PlacementJob{JobID: "j", PlayerID: "p"})
					So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				})
			})
		})
	})
}

func TestService_SeenAndRecord(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When checking a new submission key", func() {
			seen := svc.SeenAndRecord(ctx, "sub:123")

			Convey("Then it should not have been seen before", func() {
				So(seen, ShouldBeFalse)
				So(svc.Size(), ShouldEqual, int64(1))
			})
		})

		Convey("When checking the same key again", func() {
			svc.SeenAndRecord(ctx, "sub:456")
			seen := svc.SeenAndRecord(ctx, "sub:456")

			Convey("Then it should have been seen before", func() {
				So(seen, ShouldBeTrue)
			})
		})

		Convey("When a key is unrecorded", func() {
			svc.SeenAndRecord(ctx, "sub:789")
			svc.Unrecord(ctx, "sub:789")

			Convey("Then it is accepted again", func() {
				So(svc.SeenAndRecord(ctx, "sub:789"), ShouldBeFalse)
			})
		})
	})
}

func TestService_Estimate(t *testing.T) {
	Convey("Given a service with a tuned padel profile", t, func() {
		reg, err := profile.NewRegistry(profile.WithDoublesOffset(rating.Padel, 0))
		So(err, ShouldBeNil)
		svc := service.New(service.WithRegistry(reg))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When estimating without answers", func() {
			est := svc.Estimate(ctx, rating.Tennis, rating.AnswerSet{})

			Convey("Then a well-formed estimate is returned", func() {
				So(est.Source, ShouldNotBeEmpty)
				So(est.RatingDeviation, ShouldBeBetweenOrEqual, rating.MinDeviation, rating.MaxDeviation)
			})
		})

		Convey("When estimating an unknown sport", func() {
			est := svc.Estimate(ctx, rating.Sport("SQUASH"), rating.AnswerSet{})

			Convey("Then the fallback estimate is returned", func() {
				So(est.Source, ShouldEqual, rating.SourceErrorFallback)
				So(est.Singles, ShouldEqual, rating.BaseRating)
			})
		})
	})
}

func TestService_Enqueue(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When enqueueing a tennis placement", func() {
			est := svc.Estimate(ctx, rating.Tennis, rating.AnswerSet{"experience": "5_to_10_years"})
			err := svc.Enqueue(ctx, model.PlacementJob{
				JobID:      "job-1",
				PlayerID:   "player-1",
				Sport:      rating.Tennis,
				SeasonID:   "2026",
				DedupeKey:  "sub:1",
				Estimate:   est,
				ReceivedAt: time.Now().UTC(),
			})
			So(err, ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then both game mode records are written before stop returns", func() {
				records, err := svc.ListByPlayer(ctx, "player-1", 10)
				So(err, ShouldBeNil)
				So(len(records), ShouldEqual, 2)
				So(records[0].GameMode, ShouldEqual, rating.Doubles)
				So(records[0].CurrentRating, ShouldEqual, est.Doubles)
				So(records[1].GameMode, ShouldEqual, rating.Singles)
				So(records[1].CurrentRating, ShouldEqual, est.Singles)

				hist, err := svc.History(ctx, records[1].ID)
				So(err, ShouldBeNil)
				So(len(hist), ShouldEqual, 1)
				So(hist[0].Reason, ShouldEqual, model.ReasonInitialPlacement)
			})
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should return basic stats", func() {
				So(stats, ShouldNotBeNil)
				So(stats["started"], ShouldEqual, false)
				So(stats, ShouldNotContainKey, "queueLength")
				So(svc.Size(), ShouldEqual, int64(0))
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	Convey("Given a system metrics sampler for this process", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		m, err := service.NewSystemMetrics(ctx, nil)
		So(err, ShouldBeNil)

		Convey("When sampling once", func() {
			So(func() { m.Sample(ctx) }, ShouldNotPanic)
		})

		Convey("When running until cancelled", func() {
			done := make(chan error, 1)
			go func() { done <- m.Run(ctx, 10*time.Millisecond) }()
			time.Sleep(30 * time.Millisecond)
			cancel()

			Convey("Then it returns cleanly", func() {
				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(2 * time.Second):
					So("run did not stop", ShouldBeEmpty)
				}
			})
		})

		Reset(cancel)
	})
}
