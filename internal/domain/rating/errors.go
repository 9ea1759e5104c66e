package rating

import (
	"errors"
	"fmt"
)

// Sentinel kinds for rating errors.
var (
	ErrUnknownSport = errors.New("unknown sport")
	ErrValidation   = errors.New("validation failed")
	ErrScoring      = errors.New("scoring input skipped")
)

// ValidationError reports a benchmark value or reliability outside its domain.
// Callers recover by falling back to questionnaire scoring.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ScoringError reports an answer with an unexpected shape. The offending
// answer is skipped; the estimate is still produced.
type ScoringError struct {
	Key    string
	Reason string
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("skipped %s: %s", e.Key, e.Reason)
}

// Is lets errors.Is(err, ErrScoring) match any ScoringError.
func (e *ScoringError) Is(target error) bool { return target == ErrScoring }
