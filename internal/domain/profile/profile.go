// Package profile defines the per-sport scoring profiles consumed by the
// questionnaire scorer.
//
// A profile is pure data: for each questionnaire category it carries the
// legal answer labels, the signed weight of every label, the point range the
// weight is scaled by and the category's share of the confidence score.
// Profiles are validated when the registry is built so a missing or
// out-of-range weight stops the process at startup instead of skewing
// estimates per request.
package profile

import (
	"fmt"
	"math"

	"github.com/okian/deuce/internal/domain/rating"
)

// Category names shared by all questionnaires.
const (
	CategoryExperience       = "experience"
	CategoryFrequency        = "frequency"
	CategoryCompetitiveLevel = "competitive_level"
	CategorySelfRating       = "self_rating"
	CategoryTournament       = "tournament"
	CategorySportsBackground = "sports_background"
	CategorySkills           = rating.KeySkills
)

// Category is one weighted questionnaire dimension.
type Category struct {
	Name string
	// Options lists every label the questionnaire can emit for this category.
	Options []string
	// Weights maps an option label to a signed weight in [-1, 1].
	Weights map[string]float64
	// RangeScale is the point magnitude a weight of 1.0 is worth.
	RangeScale float64
	// ConfidenceWeight is the category's relative share of the confidence score.
	ConfidenceWeight float64
}

// Lookup returns the weight for label and whether the label is known.
func (c *Category) Lookup(label string) (float64, bool) {
	w, ok := c.Weights[label]
	return w, ok
}

// Weight returns the weight for label, or 0 for labels this profile does not
// know. New questionnaire options therefore score as neutral until a table
// update ships.
func (c *Category) Weight(label string) float64 {
	w, _ := c.Lookup(label)
	return w
}

// DoublesKind selects how a doubles rating is derived from singles.
type DoublesKind int

// Doubles derivation kinds.
const (
	// DoublesMirror copies the singles rating (doubles-only sports).
	DoublesMirror DoublesKind = iota
	// DoublesOffsetWhenNegative adds Offset when the net adjustment is negative.
	DoublesOffsetWhenNegative
)

// DoublesRule derives the doubles rating from the singles rating.
type DoublesRule struct {
	Kind   DoublesKind
	Offset int
}

// Apply returns the doubles rating for a singles rating reached through a
// total adjustment of adjustment points.
func (r DoublesRule) Apply(singles int, adjustment float64) int {
	if r.Kind == DoublesOffsetWhenNegative && adjustment < 0 {
		return singles + r.Offset
	}
	return singles
}

// Profile is the immutable scoring configuration of one sport. Values
// returned by a Registry are shared and must not be modified.
type Profile struct {
	Sport      rating.Sport
	BaseRating int
	// Categories are scored in order; each is answered with a single label.
	Categories []Category
	// Skills is the label table shared by every skill-matrix sub-question.
	Skills Category
	// SkillQuestions names the sub-skills the questionnaire asks about.
	SkillQuestions []string
	Doubles        DoublesRule
	// GameModes lists the rating records a placement creates for this sport.
	GameModes []rating.GameMode
}

// Category returns the named category.
func (p *Profile) Category(name string) (*Category, bool) {
	if name == CategorySkills {
		return &p.Skills, true
	}
	for i := range p.Categories {
		if p.Categories[i].Name == name {
			return &p.Categories[i], true
		}
	}
	return nil, false
}

// HasMode reports whether the sport persists ratings for mode.
func (p *Profile) HasMode(mode rating.GameMode) bool {
	for _, m := range p.GameModes {
		if m == mode {
			return true
		}
	}
	return false
}

// Validate checks that the profile is complete and every number is in range.
func (p *Profile) Validate() error {
	if p.BaseRating <= 0 {
		return fmt.Errorf("%w: %s: base rating %d", ErrInvalidProfile, p.Sport, p.BaseRating)
	}
	if len(p.GameModes) == 0 {
		return fmt.Errorf("%w: %s: no game modes", ErrInvalidProfile, p.Sport)
	}
	seen := make(map[string]struct{}, len(p.Categories))
	for i := range p.Categories {
		c := &p.Categories[i]
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: %s: duplicate category %q", ErrInvalidProfile, p.Sport, c.Name)
		}
		seen[c.Name] = struct{}{}
		if err := validateCategory(c); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidProfile, p.Sport, err)
		}
	}
	if err := validateCategory(&p.Skills); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidProfile, p.Sport, err)
	}
	return nil
}

func validateCategory(c *Category) error {
	if c.Name == "" {
		return ErrUnnamedCategory
	}
	if !(c.RangeScale > 0) || math.IsInf(c.RangeScale, 0) {
		return fmt.Errorf("category %q: range scale %v must be positive", c.Name, c.RangeScale)
	}
	if c.ConfidenceWeight < 0 || math.IsNaN(c.ConfidenceWeight) || math.IsInf(c.ConfidenceWeight, 0) {
		return fmt.Errorf("category %q: confidence weight %v must be non-negative", c.Name, c.ConfidenceWeight)
	}
	if len(c.Options) == 0 {
		return fmt.Errorf("category %q: %w", c.Name, ErrNoOptions)
	}
	options := make(map[string]struct{}, len(c.Options))
	for _, label := range c.Options {
		w, ok := c.Weights[label]
		if !ok {
			return fmt.Errorf("category %q: option %q: %w", c.Name, label, ErrMissingWeight)
		}
		if w < -1 || w > 1 || math.IsNaN(w) {
			return fmt.Errorf("category %q: option %q: weight %v outside [-1, 1]", c.Name, label, w)
		}
		options[label] = struct{}{}
	}
	for label := range c.Weights {
		if _, ok := options[label]; !ok {
			return fmt.Errorf("category %q: weight for %q: %w", c.Name, label, ErrUnknownOption)
		}
	}
	return nil
}

// clone returns a deep copy so overrides never touch the built-in tables.
func (p *Profile) clone() *Profile {
	out := *p
	out.Categories = make([]Category, len(p.Categories))
	for i := range p.Categories {
		out.Categories[i] = p.Categories[i].clone()
	}
	out.Skills = p.Skills.clone()
	out.SkillQuestions = append([]string(nil), p.SkillQuestions...)
	out.GameModes = append([]rating.GameMode(nil), p.GameModes...)
	return &out
}

func (c Category) clone() Category {
	out := c
	out.Options = append([]string(nil), c.Options...)
	out.Weights = make(map[string]float64, len(c.Weights))
	for k, v := range c.Weights {
		out.Weights[k] = v
	}
	return out
}
