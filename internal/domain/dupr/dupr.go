// Package dupr converts an externally supplied DUPR benchmark rating into
// the platform's DMR scale.
//
// A player may supply singles, doubles or both, each optionally with the
// reliability percentage DUPR reports for it. With one format the other is
// estimated from the known one; with both, the gap between them decides which
// format is trusted and how wide the rating deviation should be.
package dupr

import (
	"errors"
	"math"

	"github.com/okian/deuce/internal/domain/rating"
)

// DUPR domain and reliability bounds.
const (
	MinDUPR        = 2.0
	MaxDUPR        = 8.0
	MinReliability = 0
	MaxReliability = 100
)

// Format is the rating format an RD adjustment is computed for.
type Format int

// Formats.
const (
	FormatCombined Format = iota
	FormatSingles
	FormatDoubles
)

// Pattern names recorded in estimate details.
const (
	PatternSinglesOnly     = "singles_only"
	PatternDoublesOnly     = "doubles_only"
	PatternDoublesDominant = "doubles_dominant"
	PatternSinglesDominant = "singles_dominant"
	PatternBalanced        = "balanced"
)

// Base RDs before reliability adjustment.
const (
	singlesOnlyBaseRD     = 130.0
	doublesOnlyBaseRD     = 110.0
	doublesDominantBaseRD = 65.0
	singlesDominantBaseRD = 75.0
	balancedBaseRD        = 70.0
)

// Pattern thresholds on |singles - doubles| in DUPR units.
const (
	doublesDominantGap = 0.15
	singlesDominantGap = 0.2
)

// ErrNoBenchmark means neither a singles nor a doubles DUPR was supplied.
var ErrNoBenchmark = errors.New("no benchmark rating supplied")

// Input is a benchmark submission. Nil fields were not supplied.
type Input struct {
	Singles            *float64
	Doubles            *float64
	SinglesReliability *int
	DoublesReliability *int
}

// ParseInput reads the DUPR answers out of an answer set. Values that do not
// parse as numbers are treated as absent; range checks happen in Convert.
func ParseInput(answers rating.AnswerSet) Input {
	var in Input
	if v, ok := answers.Number(rating.KeyDUPRSingles); ok {
		in.Singles = &v
	}
	if v, ok := answers.Number(rating.KeyDUPRDoubles); ok {
		in.Doubles = &v
	}
	if v, ok := answers.Number(rating.KeyDUPRSinglesReliability); ok {
		r := roundReliability(v)
		in.SinglesReliability = &r
	}
	if v, ok := answers.Number(rating.KeyDUPRDoublesReliability); ok {
		r := roundReliability(v)
		in.DoublesReliability = &r
	}
	return in
}

// roundReliability rounds to an int while keeping out-of-range values out of
// range, so validation still sees them.
func roundReliability(v float64) int {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int(math.Round(v))
}

// InRange reports whether x is a usable DUPR value.
func InRange(x float64) bool {
	return x >= MinDUPR && x <= MaxDUPR
}

// Validate returns a *rating.ValidationError for the first supplied value
// outside its domain.
func (in Input) Validate() error {
	if in.Singles != nil && !InRange(*in.Singles) {
		return &rating.ValidationError{Field: rating.KeyDUPRSingles, Value: *in.Singles, Reason: "must be between 2.0 and 8.0"}
	}
	if in.Doubles != nil && !InRange(*in.Doubles) {
		return &rating.ValidationError{Field: rating.KeyDUPRDoubles, Value: *in.Doubles, Reason: "must be between 2.0 and 8.0"}
	}
	if in.SinglesReliability != nil && !reliabilityInRange(*in.SinglesReliability) {
		return &rating.ValidationError{Field: rating.KeyDUPRSinglesReliability, Value: *in.SinglesReliability, Reason: "must be between 0 and 100"}
	}
	if in.DoublesReliability != nil && !reliabilityInRange(*in.DoublesReliability) {
		return &rating.ValidationError{Field: rating.KeyDUPRDoublesReliability, Value: *in.DoublesReliability, Reason: "must be between 0 and 100"}
	}
	return nil
}

func reliabilityInRange(r int) bool {
	return r >= MinReliability && r <= MaxReliability
}

// Convert turns a benchmark submission into an estimate with source
// dupr_conversion. It returns ErrNoBenchmark when nothing was supplied and a
// *rating.ValidationError when a supplied value is out of domain; callers are
// expected to fall back to questionnaire scoring on either.
func Convert(in Input) (rating.Estimate, error) {
	if in.Singles == nil && in.Doubles == nil {
		return rating.Estimate{}, ErrNoBenchmark
	}
	if err := in.Validate(); err != nil {
		return rating.Estimate{}, err
	}

	detail := rating.Detail{
		DUPRSingles:        in.Singles,
		DUPRDoubles:        in.Doubles,
		SinglesReliability: in.SinglesReliability,
		DoublesReliability: in.DoublesReliability,
	}

	switch {
	case in.Singles != nil && in.Doubles != nil:
		return convertBoth(*in.Singles, *in.Doubles, in, detail), nil
	case in.Singles != nil:
		return convertSinglesOnly(*in.Singles, in.SinglesReliability, detail), nil
	default:
		return convertDoublesOnly(*in.Doubles, in.DoublesReliability, detail), nil
	}
}

func convertSinglesOnly(singles float64, reliability *int, detail rating.Detail) rating.Estimate {
	doubles := EstimateDoubles(singles, reliability)
	detail.EstimatedFormat = rating.Doubles
	detail.EstimatedDUPR = doubles
	detail.Pattern = PatternSinglesOnly
	return rating.Estimate{
		Source:          rating.SourceDUPR,
		Singles:         ToRating(singles),
		Doubles:         ToRating(doubles),
		RatingDeviation: AdjustRD(singlesOnlyBaseRD, reliability, FormatSingles, false),
		Confidence:      rating.ConfidenceMedium,
		Detail:          detail,
	}
}

func convertDoublesOnly(doubles float64, reliability *int, detail rating.Detail) rating.Estimate {
	singles := EstimateSingles(doubles, reliability)
	detail.EstimatedFormat = rating.Singles
	detail.EstimatedDUPR = singles
	detail.Pattern = PatternDoublesOnly
	return rating.Estimate{
		Source:          rating.SourceDUPR,
		Singles:         ToRating(singles),
		Doubles:         ToRating(doubles),
		RatingDeviation: AdjustRD(doublesOnlyBaseRD, reliability, FormatDoubles, false),
		Confidence:      rating.ConfidenceMediumHigh,
		Detail:          detail,
	}
}

func convertBoth(singles, doubles float64, in Input, detail rating.Detail) rating.Estimate {
	a := Analyze(singles, doubles, in.SinglesReliability, in.DoublesReliability)
	detail.Pattern = a.Pattern
	detail.ConfidenceMultiplier = a.Multiplier

	var rd int
	switch a.Pattern {
	case PatternDoublesDominant:
		rd = AdjustRD(a.BaseRD/a.Multiplier, in.DoublesReliability, FormatDoubles, true)
	case PatternSinglesDominant:
		rd = AdjustRD(a.BaseRD/a.Multiplier, in.SinglesReliability, FormatSingles, true)
	default:
		rd = AdjustRD(a.BaseRD/a.Multiplier, averageReliability(in.SinglesReliability, in.DoublesReliability), FormatCombined, true)
	}

	confidence := rating.ConfidenceHigh
	if a.Pattern == PatternSinglesDominant {
		confidence = rating.ConfidenceMediumHigh
	}
	return rating.Estimate{
		Source:          rating.SourceDUPR,
		Singles:         ToRating(singles),
		Doubles:         ToRating(doubles),
		RatingDeviation: rd,
		Confidence:      confidence,
		Detail:          detail,
	}
}

// Analysis is the outcome of comparing a player's two DUPR formats.
type Analysis struct {
	Pattern    string
	Multiplier float64
	BaseRD     float64
}

// Analyze decides which format is the more reliable signal.
//
// Singles above doubles by more than 0.15 is the common shape (players log
// far more doubles), so doubles is trusted and confidence rises further when
// the reliabilities agree. Doubles above singles by more than 0.2 marks a
// doubles specialist: singles is trusted with reduced confidence.
func Analyze(singles, doubles float64, singlesRel, doublesRel *int) Analysis {
	diff := math.Abs(singles - doubles)
	switch {
	case singles > doubles && diff > doublesDominantGap:
		m := 1.0
		boosts := 0
		if doublesRel != nil && *doublesRel > 50 {
			boosts++
		}
		if singlesRel != nil && *singlesRel < 40 {
			boosts++
		}
		switch boosts {
		case 1:
			m = 1.2
		case 2:
			m = 1.3
		}
		return Analysis{Pattern: PatternDoublesDominant, Multiplier: m, BaseRD: doublesDominantBaseRD}
	case doubles > singles && diff > singlesDominantGap:
		return Analysis{Pattern: PatternSinglesDominant, Multiplier: 0.9, BaseRD: singlesDominantBaseRD}
	default:
		return Analysis{Pattern: PatternBalanced, Multiplier: 1.0, BaseRD: balancedBaseRD}
	}
}

func averageReliability(a, b *int) *int {
	switch {
	case a != nil && b != nil:
		avg := int(math.Round(float64(*a+*b) / 2))
		return &avg
	case a != nil:
		return a
	default:
		return b
	}
}
