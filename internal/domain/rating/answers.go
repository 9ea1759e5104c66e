package rating

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Well-known answer keys.
const (
	KeySkills                 = "skills"
	KeyHasDUPR                = "has_dupr"
	KeyDUPRSingles            = "dupr_singles"
	KeyDUPRDoubles            = "dupr_doubles"
	KeyDUPRSinglesReliability = "dupr_singles_reliability"
	KeyDUPRDoublesReliability = "dupr_doubles_reliability"
)

// AnswerSet maps a question key to its answer: a label string, a nested
// skill matrix (sub-skill -> label), or a raw number/string input.
// Values usually come straight from a JSON decoder.
type AnswerSet map[string]any

// Label returns the answer for key when it is a string.
func (a AnswerSet) Label(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Number parses the answer for key as a finite float. Numeric strings are
// accepted; anything else reports false.
func (a AnswerSet) Number(key string) (float64, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, false
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Truthy reports whether the answer for key is an affirmative flag.
func (a AnswerSet) Truthy(key string) bool {
	v, ok := a[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "yes" || s == "y" {
			return true
		}
		b, err := strconv.ParseBool(s)
		return err == nil && b
	}
	f, ok := a.Number(key)
	return ok && f != 0
}

// SkillMatrix returns the nested skill answers, if any. Values keep their
// original type so the scorer can report the ones that are not labels.
func (a AnswerSet) SkillMatrix() (map[string]any, bool) {
	v, ok := a[KeySkills]
	if !ok {
		return nil, false
	}
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	case AnswerSet:
		return map[string]any(m), true
	}
	return nil, false
}
