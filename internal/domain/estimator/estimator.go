// Package estimator picks the estimation path for a submission and always
// returns a usable rating estimate.
package estimator

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/deuce/internal/domain/dupr"
	"github.com/okian/deuce/internal/domain/profile"
	"github.com/okian/deuce/internal/domain/questionnaire"
	"github.com/okian/deuce/internal/domain/rating"
	"github.com/okian/deuce/pkg/logger"
	"github.com/okian/deuce/pkg/metrics"
)

// Fallback reasons reported to metrics.
const (
	reasonBenchmarkRejected = "benchmark_rejected"
	reasonNoAnswers         = "no_recognized_answers"
	reasonUnknownSport      = "unknown_sport"
	reasonNoRegistry        = "no_registry"
	reasonPanic             = "panic"
)

// Estimator produces a rating estimate for a sport and answer set.
type Estimator interface {
	// Estimate never fails; errors surface as fallback estimates.
	Estimate(ctx context.Context, sport rating.Sport, answers rating.AnswerSet) rating.Estimate
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRegistry sets the profile registry.
func WithRegistry(r *profile.Registry) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.registry = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// Dispatcher implements Estimator: benchmark conversion when the player
// supplied a usable DUPR, questionnaire scoring otherwise.
type Dispatcher struct {
	registry *profile.Registry
	log      logger.Logger
}

// New returns a dispatcher over the built-in profiles unless WithRegistry is
// given.
func New(opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{log: logger.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		r, err := profile.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("build profiles: %w", err)
		}
		d.registry = r
	}
	return d, nil
}

// ShouldUseBenchmark reports whether answers carry a usable benchmark: the
// has_dupr flag is truthy and at least one DUPR value parses into range.
func ShouldUseBenchmark(answers rating.AnswerSet) bool {
	if !answers.Truthy(rating.KeyHasDUPR) {
		return false
	}
	for _, key := range []string{rating.KeyDUPRSingles, rating.KeyDUPRDoubles} {
		if v, ok := answers.Number(key); ok && dupr.InRange(v) {
			return true
		}
	}
	return false
}

// Estimate returns an estimate for answers. It is total: an unknown sport, a
// missing registry or a panic anywhere below yields an error_fallback
// estimate, and an answer set with nothing recognizable yields a default one.
func (d *Dispatcher) Estimate(ctx context.Context, sport rating.Sport, answers rating.AnswerSet) (est rating.Estimate) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.lg().Error(ctx, "estimation panicked", logger.String("sport", string(sport)), logger.Any("panic", r))
			metrics.RecordEstimateFallback(reasonPanic)
			est = rating.Fallback(rating.SourceErrorFallback, fmt.Sprintf("internal error: %v", r))
		}
		metrics.RecordEstimate(string(sport), string(est.Source), string(est.Confidence))
		metrics.RecordEstimateLatency(string(sport), float64(time.Since(start).Microseconds())/1000)
		d.lg().Debug(ctx, "estimate",
			logger.String("sport", string(sport)),
			logger.String("source", string(est.Source)),
			logger.Int("singles", est.Singles),
			logger.Int("doubles", est.Doubles),
			logger.Int("rd", est.RatingDeviation),
			logger.String("confidence", string(est.Confidence)),
		)
	}()

	if d == nil || d.registry == nil {
		metrics.RecordEstimateFallback(reasonNoRegistry)
		return rating.Fallback(rating.SourceErrorFallback, "no scoring profiles configured")
	}
	p, err := d.registry.Get(sport)
	if err != nil {
		d.lg().Warn(ctx, "no profile for sport", logger.String("sport", string(sport)), logger.Error(err))
		metrics.RecordEstimateFallback(reasonUnknownSport)
		return rating.Fallback(rating.SourceErrorFallback, err.Error())
	}

	var benchmarkReason string
	if ShouldUseBenchmark(answers) {
		converted, err := dupr.Convert(dupr.ParseInput(answers))
		if err == nil {
			return converted
		}
		benchmarkReason = "benchmark rejected: " + err.Error()
		d.lg().Info(ctx, "falling back to questionnaire", logger.String("sport", string(sport)), logger.Error(err))
		metrics.RecordEstimateFallback(reasonBenchmarkRejected)
	}

	res := questionnaire.Score(p, answers)
	if n := len(res.Skipped); n > 0 {
		metrics.RecordScoringWarnings(n)
		for _, skipped := range res.Skipped {
			d.lg().Debug(ctx, "skipped answer", logger.String("sport", string(sport)), logger.Error(skipped))
		}
	}

	if res.Recognized == 0 {
		metrics.RecordEstimateFallback(reasonNoAnswers)
		reason := "no recognized answers"
		if benchmarkReason != "" {
			reason = benchmarkReason + "; " + reason
		}
		fallback := rating.Fallback(rating.SourceDefault, reason)
		fallback.Detail.Warnings = res.Estimate.Detail.Warnings
		return fallback
	}

	est = res.Estimate
	est.Detail.FallbackReason = benchmarkReason
	return est
}

func (d *Dispatcher) lg() logger.Logger {
	if d == nil || d.log == nil {
		return logger.Nop()
	}
	return d.log
}
