package profile

import "github.com/okian/deuce/internal/domain/rating"

// Range scales: the points a category weight of 1.0 moves the rating.
const (
	ExperienceRange       = 300.0
	SportsBackgroundRange = 280.0
	FrequencyRange        = 150.0
	CompetitiveLevelRange = 200.0
	SkillRange            = 320.0
	SelfRatingRange       = 0.7 * SkillRange
	TournamentRange       = 0.5 * SkillRange
)

// Confidence weights: each category's share of the confidence ratio.
const (
	ExperienceConfidence       = 1.0
	FrequencyConfidence        = 0.8
	CompetitiveLevelConfidence = 1.0
	SelfRatingConfidence       = 0.5
	TournamentConfidence       = 0.8
	SportsBackgroundConfidence = 0.6
	SkillConfidence            = 2.0
)

// DefaultDoublesOffset is added to doubles for below-base players in sports
// that derive doubles by offset.
const DefaultDoublesOffset = 50

type option struct {
	label  string
	weight float64
}

func opt(label string, weight float64) option { return option{label: label, weight: weight} }

// category builds a Category whose option order follows opts.
func category(name string, rangeScale, confidence float64, opts ...option) Category {
	c := Category{
		Name:             name,
		Options:          make([]string, 0, len(opts)),
		Weights:          make(map[string]float64, len(opts)),
		RangeScale:       rangeScale,
		ConfidenceWeight: confidence,
	}
	for _, o := range opts {
		c.Options = append(c.Options, o.label)
		c.Weights[o.label] = o.weight
	}
	return c
}

func frequencyCategory() Category {
	return category(CategoryFrequency, FrequencyRange, FrequencyConfidence,
		opt("rarely", -0.6),
		opt("monthly", -0.3),
		opt("weekly", 0.1),
		opt("2_3_times_week", 0.5),
		opt("4_plus_times_week", 0.8),
	)
}

// skillCategory is the label table every skill-matrix sub-question shares.
func skillCategory() Category {
	return category(CategorySkills, SkillRange, SkillConfidence,
		opt("beginner", -0.7),
		opt("developing", -0.3),
		opt("intermediate", 0.1),
		opt("advanced", 0.7),
		opt("expert", 1.0),
	)
}

func bothModes() []rating.GameMode { return []rating.GameMode{rating.Singles, rating.Doubles} }
