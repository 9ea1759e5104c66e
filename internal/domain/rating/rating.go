// Package rating holds the value types shared by the placement engine:
// sports, game modes, answer sets and the RatingEstimate it produces.
package rating

import (
	"fmt"
	"strings"
)

// Rating scale constants.
const (
	// BaseRating is the starting DMR for every sport and the rating every
	// initial placement is measured against.
	BaseRating = 1500

	MinDeviation = 0
	MaxDeviation = 350
)

// Sport identifies a league sport.
type Sport string

// Supported sports.
const (
	Tennis     Sport = "TENNIS"
	Pickleball Sport = "PICKLEBALL"
	Padel      Sport = "PADEL"
)

// Sports lists every supported sport in display order.
func Sports() []Sport { return []Sport{Tennis, Pickleball, Padel} }

// ParseSport accepts a sport name in any case.
func ParseSport(s string) (Sport, error) {
	sp := Sport(strings.ToUpper(strings.TrimSpace(s)))
	switch sp {
	case Tennis, Pickleball, Padel:
		return sp, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSport, s)
}

// GameMode is singles or doubles.
type GameMode string

// Game modes.
const (
	Singles GameMode = "SINGLES"
	Doubles GameMode = "DOUBLES"
)

// Source records which path produced an estimate.
type Source string

// Estimate sources.
const (
	SourceQuestionnaire Source = "questionnaire"
	SourceDUPR          Source = "dupr_conversion"
	SourceDefault       Source = "default"
	SourceErrorFallback Source = "error_fallback"
)

// Confidence is a display-only tier. The order low < medium < medium-high < high
// is exposed through Rank and never used in arithmetic.
type Confidence string

// Confidence tiers.
const (
	ConfidenceLow        Confidence = "low"
	ConfidenceMedium     Confidence = "medium"
	ConfidenceMediumHigh Confidence = "medium-high"
	ConfidenceHigh       Confidence = "high"
)

// Rank orders confidence tiers for display and sorting.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceLow:
		return 0
	case ConfidenceMedium:
		return 1
	case ConfidenceMediumHigh:
		return 2
	case ConfidenceHigh:
		return 3
	default:
		return -1
	}
}

// Estimate is the engine's only output. It is built fresh per call and
// never mutated afterwards.
type Estimate struct {
	Source          Source     `json:"source"`
	Singles         int        `json:"singles"`
	Doubles         int        `json:"doubles"`
	RatingDeviation int        `json:"ratingDeviation"`
	Confidence      Confidence `json:"confidence"`
	Detail          Detail     `json:"detail"`
}

// Detail explains how an estimate was reached. Only the fields relevant to
// the producing path are populated.
type Detail struct {
	// questionnaire
	BaseRating      int      `json:"baseRating,omitempty"`
	TotalAdjustment *float64 `json:"totalAdjustment,omitempty"`
	ConfidenceRatio *float64 `json:"confidenceRatio,omitempty"`

	// dupr_conversion
	DUPRSingles          *float64 `json:"duprSingles,omitempty"`
	DUPRDoubles          *float64 `json:"duprDoubles,omitempty"`
	SinglesReliability   *int     `json:"singlesReliability,omitempty"`
	DoublesReliability   *int     `json:"doublesReliability,omitempty"`
	EstimatedFormat      GameMode `json:"estimatedFormat,omitempty"`
	EstimatedDUPR        float64  `json:"estimatedDupr,omitempty"`
	Pattern              string   `json:"pattern,omitempty"`
	ConfidenceMultiplier float64  `json:"confidenceMultiplier,omitempty"`

	// FallbackReason is set when a preferred path was abandoned.
	FallbackReason string   `json:"fallbackReason,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Value returns the rating for a game mode.
func (e Estimate) Value(mode GameMode) int {
	if mode == Doubles {
		return e.Doubles
	}
	return e.Singles
}

// Fallback builds the neutral estimate used when nothing could be scored.
func Fallback(source Source, reason string) Estimate {
	return Estimate{
		Source:          source,
		Singles:         BaseRating,
		Doubles:         BaseRating,
		RatingDeviation: MaxDeviation,
		Confidence:      ConfidenceLow,
		Detail: Detail{
			BaseRating:     BaseRating,
			FallbackReason: reason,
		},
	}
}

// ClampDeviation keeps an RD inside [MinDeviation, MaxDeviation].
func ClampDeviation(rd int) int {
	if rd < MinDeviation {
		return MinDeviation
	}
	if rd > MaxDeviation {
		return MaxDeviation
	}
	return rd
}
