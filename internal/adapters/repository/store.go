// Package repository persists rating records and their history.
package repository

import (
	"context"

	"github.com/okian/deuce/internal/domain/model"
)

// Store provides read/write access to rating records.
type Store interface {
	// CreateInitial writes rec and its history entry unless a record with the
	// same key already exists. It returns false, and writes nothing, in that
	// case. Concurrent calls for one key create exactly one record.
	CreateInitial(ctx context.Context, rec model.Record, hist model.HistoryEntry) (bool, error)

	// Get returns the record for key or ErrNotFound.
	Get(ctx context.Context, key model.RecordKey) (model.Record, error)

	// ListByPlayer returns up to limit records of a player ordered by sport,
	// season and game mode.
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.Record, error)

	// History returns the history of a record, oldest first.
	History(ctx context.Context, ratingID string) ([]model.HistoryEntry, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	Close() error
}

func validate(rec *model.Record, hist *model.HistoryEntry) error {
	switch {
	case rec.ID == "":
		return invalidRecord("id is empty")
	case rec.PlayerID == "":
		return invalidRecord("player_id is empty")
	case rec.Sport == "" || rec.GameMode == "":
		return invalidRecord("sport and game_mode are required")
	case hist.RatingID != rec.ID:
		return invalidRecord("history does not belong to record")
	}
	return nil
}

func lessKey(a, b model.RecordKey) bool {
	if a.Sport != b.Sport {
		return a.Sport < b.Sport
	}
	if a.SeasonID != b.SeasonID {
		return a.SeasonID < b.SeasonID
	}
	return a.GameMode < b.GameMode
}
