package dupr

import (
	"math"

	"github.com/okian/deuce/internal/domain/rating"
)

// segment is one linear piece of the DUPR -> DMR conversion, covering
// (from, upTo] (the first piece also includes its lower bound).
type segment struct {
	upTo  float64
	from  float64
	base  float64
	slope float64
}

var conversion = []segment{
	{from: 2.0, upTo: 3.0, base: 1000, slope: 1500},
	{from: 3.0, upTo: 4.0, base: 2500, slope: 600},
	{from: 4.0, upTo: 5.0, base: 3100, slope: 450},
	{from: 5.0, upTo: 6.0, base: 3550, slope: 650},
	{from: 6.0, upTo: 8.0, base: 4200, slope: 400},
}

// ToRating converts a DUPR value to DMR points. Inputs are clamped to
// [MinDUPR, MaxDUPR] first; the result is rounded to the nearest point.
func ToRating(x float64) int {
	x = clampDUPR(x)
	for _, s := range conversion {
		if x <= s.upTo {
			return int(math.Round(s.base + (x-s.from)*s.slope))
		}
	}
	last := conversion[len(conversion)-1]
	return int(math.Round(last.base + (last.upTo-last.from)*last.slope))
}

func clampDUPR(x float64) float64 {
	if math.IsNaN(x) || x < MinDUPR {
		return MinDUPR
	}
	if x > MaxDUPR {
		return MaxDUPR
	}
	return x
}

// offsetBand maps an upper DUPR bound to the typical singles/doubles gap at
// that skill level. The gap peaks around 4.0 to 4.5 and narrows at both ends.
type offsetBand struct {
	upTo   float64
	offset float64
}

var offsetBands = []offsetBand{
	{upTo: 2.5, offset: 0.05},
	{upTo: 3.0, offset: 0.10},
	{upTo: 3.5, offset: 0.15},
	{upTo: 4.0, offset: 0.20},
	{upTo: 4.5, offset: 0.25},
	{upTo: 6.0, offset: 0.15},
	{upTo: 8.0, offset: 0.05},
}

// Reliability scaling of the cross-format offset.
const (
	lowReliabilityBelow      = 35
	highReliabilityAbove     = 70
	veryHighReliabilityAbove = 80

	lowReliabilityWiden       = 1.3
	highReliabilityNarrow     = 0.8
	veryHighReliabilityNarrow = 0.7
)

// CrossFormatOffset is the expected gap between a player's singles and
// doubles DUPR given one known value and that value's reliability.
func CrossFormatOffset(known float64, reliability int) float64 {
	known = clampDUPR(known)
	offset := offsetBands[len(offsetBands)-1].offset
	for _, b := range offsetBands {
		if known <= b.upTo {
			offset = b.offset
			break
		}
	}
	switch {
	case reliability < lowReliabilityBelow:
		offset *= lowReliabilityWiden
	case reliability > veryHighReliabilityAbove:
		offset *= veryHighReliabilityNarrow
	case reliability > highReliabilityAbove:
		offset *= highReliabilityNarrow
	}
	return offset
}

// EstimateDoubles estimates a doubles DUPR from a singles DUPR. Singles
// usually sits above doubles, so the estimate moves down.
func EstimateDoubles(singles float64, reliability *int) float64 {
	r := effectiveReliability(reliability, FormatSingles)
	return clampDUPR(singles - CrossFormatOffset(singles, r))
}

// EstimateSingles estimates a singles DUPR from a doubles DUPR, moving up.
func EstimateSingles(doubles float64, reliability *int) float64 {
	r := effectiveReliability(reliability, FormatDoubles)
	return clampDUPR(doubles + CrossFormatOffset(doubles, r))
}

// Reliability assumed when DUPR did not report one.
const (
	defaultSinglesReliability = 25
	defaultDoublesReliability = 45
)

func effectiveReliability(reliability *int, format Format) int {
	if reliability != nil {
		return *reliability
	}
	switch format {
	case FormatSingles:
		return defaultSinglesReliability
	case FormatDoubles:
		return defaultDoublesReliability
	default:
		return (defaultSinglesReliability + defaultDoublesReliability) / 2
	}
}

// RD multipliers.
const (
	singlesFormatFactor = 1.3
	doublesFormatFactor = 0.9
	singleSourceFactor  = 1.1
)

func reliabilityFactor(r int) float64 {
	switch {
	case r >= 85:
		return 0.6
	case r >= 70:
		return 0.8
	case r >= 50:
		return 1.0
	case r >= 30:
		return 1.4
	default:
		return 1.8
	}
}

// AdjustRD scales a base rating deviation by how much the benchmark can be
// trusted: its reliability, the format it came from, and whether the player
// supplied both formats. The result is rounded and clamped to [0, 350].
func AdjustRD(baseRD float64, reliability *int, format Format, hasBothFormats bool) int {
	m := reliabilityFactor(effectiveReliability(reliability, format))
	switch format {
	case FormatSingles:
		m *= singlesFormatFactor
	case FormatDoubles:
		m *= doublesFormatFactor
	}
	if !hasBothFormats {
		m *= singleSourceFactor
	}
	rd := baseRD * m
	if math.IsNaN(rd) {
		return rating.MaxDeviation
	}
	if rd > rating.MaxDeviation {
		return rating.MaxDeviation
	}
	return rating.ClampDeviation(int(math.Round(rd)))
}
