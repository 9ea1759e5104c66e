// Package questionnaire turns a self-assessment answer set into a rating
// estimate using a sport's scoring profile.
package questionnaire

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/deuce/internal/domain/profile"
	"github.com/okian/deuce/internal/domain/rating"
)

// Confidence tier thresholds on the confidence ratio and the RD of each tier.
const (
	lowRatioBelow    = 0.4
	mediumRatioBelow = 0.7

	LowDeviation    = 350
	MediumDeviation = 250
	HighDeviation   = 150
)

// Result is a scored questionnaire plus what the scorer had to skip.
type Result struct {
	Estimate rating.Estimate
	// Recognized counts answers that matched a known label (categories and
	// skill sub-questions). Zero means nothing in the set was scorable.
	Recognized int
	// Skipped holds a *rating.ScoringError per malformed skill answer.
	Skipped []error
}

// Score computes the questionnaire estimate for answers under p.
//
// Every category answered with a string contributes weight×range to the
// adjustment and |weight|×confidenceWeight to the confidence ratio; unknown
// labels weigh 0 but still count toward the ratio's denominator. The skill
// matrix contributes its mean recognized weight. The skill confidence weight
// is always part of the denominator, answered or not.
func Score(p *profile.Profile, answers rating.AnswerSet) Result {
	var (
		adjustment         float64
		weightedConfidence float64
		maxConfidence      float64
		res                Result
	)

	for i := range p.Categories {
		c := &p.Categories[i]
		label, ok := answers.Label(c.Name)
		if !ok {
			continue
		}
		w, known := c.Lookup(label)
		if known {
			res.Recognized++
		}
		adjustment += w * c.RangeScale
		weightedConfidence += math.Abs(w) * c.ConfidenceWeight
		maxConfidence += c.ConfidenceWeight
	}

	mean, n, skipped := skillMean(&p.Skills, answers)
	res.Skipped = skipped
	if n > 0 {
		adjustment += mean * p.Skills.RangeScale
		weightedConfidence += math.Abs(mean) * p.Skills.ConfidenceWeight
		res.Recognized += n
	}
	maxConfidence += p.Skills.ConfidenceWeight

	ratio := 0.0
	if maxConfidence > 0 {
		ratio = clamp01(weightedConfidence / maxConfidence)
	}
	confidence, rd := tier(ratio)

	singles := int(math.Round(float64(p.BaseRating) + adjustment))
	res.Estimate = rating.Estimate{
		Source:          rating.SourceQuestionnaire,
		Singles:         singles,
		Doubles:         p.Doubles.Apply(singles, adjustment),
		RatingDeviation: rd,
		Confidence:      confidence,
		Detail: rating.Detail{
			BaseRating:      p.BaseRating,
			TotalAdjustment: &adjustment,
			ConfidenceRatio: &ratio,
			Warnings:        warnings(res.Skipped),
		},
	}
	return res
}

// skillMean averages the weights of recognized skill labels. Labels the
// table does not know are left out of both numerator and denominator;
// non-string values are reported as scoring errors.
func skillMean(skills *profile.Category, answers rating.AnswerSet) (mean float64, n int, skipped []error) {
	matrix, ok := answers.SkillMatrix()
	if !ok {
		if _, present := answers[rating.KeySkills]; present {
			skipped = append(skipped, &rating.ScoringError{Key: rating.KeySkills, Reason: "not a skill matrix"})
		}
		return 0, 0, skipped
	}

	// Sorted keys keep the summation order, and so the float result, stable.
	keys := make([]string, 0, len(matrix))
	for k := range matrix {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sum float64
	for _, k := range keys {
		label, ok := matrix[k].(string)
		if !ok {
			skipped = append(skipped, &rating.ScoringError{
				Key:    rating.KeySkills + "." + k,
				Reason: fmt.Sprintf("expected a label, got %T", matrix[k]),
			})
			continue
		}
		w, known := skills.Lookup(label)
		if !known {
			continue
		}
		sum += w
		n++
	}
	if n == 0 {
		return 0, 0, skipped
	}
	return sum / float64(n), n, skipped
}

func tier(ratio float64) (rating.Confidence, int) {
	switch {
	case ratio < lowRatioBelow:
		return rating.ConfidenceLow, LowDeviation
	case ratio < mediumRatioBelow:
		return rating.ConfidenceMedium, MediumDeviation
	default:
		return rating.ConfidenceHigh, HighDeviation
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func warnings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
