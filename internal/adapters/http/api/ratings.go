package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/deuce/internal/domain/model"
)

// RatingsDependencies defines the interface for rating reads.
type RatingsDependencies interface {
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.Record, error)
}

// RatingsHandler handles rating record reads.
type RatingsHandler struct {
	deps     RatingsDependencies
	maxLimit int
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps RatingsDependencies, maxLimit int) *RatingsHandler {
	return &RatingsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetRatings handles GET /ratings/{player_id}?limit=N requests.
func (h *RatingsHandler) HandleGetRatings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ratings"
	playerID := strings.TrimSpace(r.PathValue("player_id"))
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing player_id")))
		return
	}

	limit := h.maxLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("limit must be a positive integer")))
			return
		}
		limit = min(n, h.maxLimit)
	}

	recs, err := h.deps.ListByPlayer(r.Context(), playerID, limit)
	if errors.Is(err, ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "unavailable", NewKind(op, err))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, err))
		return
	}
	if len(recs) == 0 {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, errors.New("no ratings for "+playerID)))
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
