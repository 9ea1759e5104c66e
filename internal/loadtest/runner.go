package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/okian/deuce/internal/domain/profile"
	"github.com/okian/deuce/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
	pollInterval        = 50 * time.Millisecond
)

// ErrVerification is returned when the service lost or over-created records.
var ErrVerification = errors.New("verification failed")

// Run executes a complete load test against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting placement load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("workers", cfg.Workers),
		logger.Float64("duplicateRatio", cfg.DuplicateRatio),
	)

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	reg, err := profile.NewRegistry()
	if err != nil {
		return stats, err
	}
	subs, err := Generate(reg, cfg.Players, cfg.SeasonID)
	if err != nil {
		return stats, fmt.Errorf("generate submissions: %w", err)
	}
	stats.Generated = len(subs)

	if cfg.OutputFile != "" {
		if err := save(cfg.OutputFile, subs); err != nil {
			log.Warn(ctx, "failed to save submissions", logger.Error(err))
		}
	}

	accepted, err := submitAll(ctx, client, cfg, subs, stats)
	if err != nil {
		return stats, fmt.Errorf("submission failed: %w", err)
	}
	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
	)

	if err := verify(ctx, client, cfg, reg, accepted, stats, log); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "load test completed",
		logger.Int("playersVerified", stats.PlayersVerified),
		logger.Int("recordsFound", stats.RecordsFound),
		logger.String("duration", stats.Duration.String()),
	)
	return stats, nil
}

// submitAll posts every submission, resending a share of them to exercise
// idempotency. It returns the submissions the service accepted.
func submitAll(ctx context.Context, client *HTTPClient, cfg *Config, subs []Submission, stats *Stats) ([]*Submission, error) {
	var submitted, acceptedN, duplicate, rejected, failed atomic.Int64
	acceptedMask := make([]bool, len(subs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range subs {
		s := &subs[i]
		resend := randomFloat() < cfg.DuplicateRatio
		g.Go(func() error {
			for attempt := 0; attempt < 2; attempt++ {
				if attempt == 1 && !resend {
					break
				}
				submitted.Add(1)
				switch client.Submit(gctx, s) {
				case OutcomeAccepted:
					acceptedN.Add(1)
					acceptedMask[i] = true
				case OutcomeDuplicate:
					duplicate.Add(1)
				case OutcomeRejected:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
			}
			return gctx.Err()
		})
	}
	err := g.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Accepted = int(acceptedN.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())

	out := make([]*Submission, 0, stats.Accepted)
	for i := range subs {
		if acceptedMask[i] {
			out = append(out, &subs[i])
		}
	}
	return out, err
}

// verify polls each accepted player's ratings until the expected number of
// records shows up or the settle timeout passes.
func verify(ctx context.Context, client *HTTPClient, cfg *Config, reg *profile.Registry, accepted []*Submission, stats *Stats, log logger.Logger) error {
	settle := cfg.SettleTimeout
	if settle <= 0 {
		settle = time.Minute
	}
	vctx, cancel := context.WithTimeout(ctx, settle)
	defer cancel()

	var verified, found atomic.Int64
	g, gctx := errgroup.WithContext(vctx)
	g.SetLimit(cfg.Workers)
	for _, s := range accepted {
		want := ExpectedRecords(reg, s.Sport)
		g.Go(func() error {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = pollInterval
			b.MaxInterval = time.Second
			got, err := backoff.Retry(gctx, func() (int, error) {
				n, err := client.Records(gctx, s.PlayerID)
				if err != nil {
					return 0, err
				}
				if n < want {
					return n, errNoRecords
				}
				return n, nil
			}, backoff.WithBackOff(b))
			if err != nil {
				return fmt.Errorf("%w: player %s: %w", ErrVerification, s.PlayerID, err)
			}
			if got != want {
				return fmt.Errorf("%w: player %s has %d records, want %d", ErrVerification, s.PlayerID, got, want)
			}
			verified.Add(1)
			found.Add(int64(got))
			if cfg.Verbose {
				log.Debug(gctx, "player verified", logger.String("player", s.PlayerID), logger.Int("records", got))
			}
			return nil
		})
	}
	err := g.Wait()
	stats.PlayersVerified = int(verified.Load())
	stats.RecordsFound = int(found.Load())
	return err
}

func save(filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, filePermission)
}
