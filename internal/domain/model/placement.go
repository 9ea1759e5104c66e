// Package model contains the placement models passed between layers.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/deuce/internal/domain/rating"
)

// ReasonInitialPlacement tags the history entry written with a new record.
const ReasonInitialPlacement = "INITIAL_PLACEMENT"

// PlacementJob is an accepted submission waiting to be persisted.
type PlacementJob struct {
	JobID    string
	PlayerID string
	Sport    rating.Sport
	SeasonID string
	// DedupeKey is the idempotency key the submission was accepted under.
	DedupeKey  string
	Estimate   rating.Estimate
	ReceivedAt time.Time
}

// RecordKey identifies one rating record. At most one record exists per key.
type RecordKey struct {
	PlayerID string
	Sport    rating.Sport
	SeasonID string
	GameMode rating.GameMode
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.PlayerID, k.Sport, k.SeasonID, k.GameMode)
}

// Record is a player's rating in one sport, season and game mode.
type Record struct {
	ID              string          `json:"id"`
	PlayerID        string          `json:"player_id"`
	Sport           rating.Sport    `json:"sport"`
	SeasonID        string          `json:"season_id"`
	GameMode        rating.GameMode `json:"game_mode"`
	CurrentRating   int             `json:"current_rating"`
	RatingDeviation int             `json:"rating_deviation"`
	IsProvisional   bool            `json:"is_provisional"`
	MatchesPlayed   int             `json:"matches_played"`
	PeakRating      int             `json:"peak_rating"`
	LowestRating    int             `json:"lowest_rating"`
	Source          rating.Source   `json:"source"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Key returns the record's identity.
func (r Record) Key() RecordKey {
	return RecordKey{PlayerID: r.PlayerID, Sport: r.Sport, SeasonID: r.SeasonID, GameMode: r.GameMode}
}

// HistoryEntry is one rating change of a record.
type HistoryEntry struct {
	ID           string    `json:"id"`
	RatingID     string    `json:"rating_id"`
	RatingBefore int       `json:"rating_before"`
	RatingAfter  int       `json:"rating_after"`
	Delta        int       `json:"delta"`
	Reason       string    `json:"reason"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}

// Placement is a record with the history entry that created it.
type Placement struct {
	Record  Record
	History HistoryEntry
}

// InitialRecords builds the records a job creates, one per game mode. Every
// record starts provisional with no matches played and its peak and lowest
// set to the placed rating; the history entry is measured from BaseRating.
func InitialRecords(job PlacementJob, modes []rating.GameMode) []Placement {
	out := make([]Placement, 0, len(modes))
	for _, mode := range modes {
		value := job.Estimate.Value(mode)
		rec := Record{
			ID:              uuid.NewString(),
			PlayerID:        job.PlayerID,
			Sport:           job.Sport,
			SeasonID:        job.SeasonID,
			GameMode:        mode,
			CurrentRating:   value,
			RatingDeviation: job.Estimate.RatingDeviation,
			IsProvisional:   true,
			PeakRating:      value,
			LowestRating:    value,
			Source:          job.Estimate.Source,
			CreatedAt:       job.ReceivedAt,
		}
		out = append(out, Placement{
			Record: rec,
			History: HistoryEntry{
				ID:           uuid.NewString(),
				RatingID:     rec.ID,
				RatingBefore: rating.BaseRating,
				RatingAfter:  value,
				Delta:        value - rating.BaseRating,
				Reason:       ReasonInitialPlacement,
				Notes:        notes(job.Estimate),
				CreatedAt:    job.ReceivedAt,
			},
		})
	}
	return out
}

func notes(e rating.Estimate) string {
	return fmt.Sprintf("initial placement from %s (confidence %s, rd %d)", e.Source, e.Confidence, e.RatingDeviation)
}
