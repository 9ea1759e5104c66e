package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/deuce/internal/adapters/mq/queue"
	"github.com/okian/deuce/internal/domain/dedupe"
	"github.com/okian/deuce/internal/domain/model"
	"github.com/okian/deuce/internal/domain/rating"
	"github.com/okian/deuce/pkg/logger"
	"github.com/okian/deuce/pkg/metrics"
)

// PlacementDependencies defines what the placement intake needs.
type PlacementDependencies interface {
	dedupe.Deduper
	Estimate(ctx context.Context, sport rating.Sport, answers rating.AnswerSet) rating.Estimate
	Enqueue(ctx context.Context, job model.PlacementJob) error
}

// PlacementsHandler accepts questionnaire submissions for placement.
type PlacementsHandler struct {
	deps          PlacementDependencies
	defaultSeason string
	logger        logger.Logger
}

// NewPlacementsHandler creates a new placements handler.
func NewPlacementsHandler(deps PlacementDependencies, defaultSeason string, log logger.Logger) *PlacementsHandler {
	return &PlacementsHandler{deps: deps, defaultSeason: defaultSeason, logger: log}
}

// HandlePostPlacement handles POST /placements requests. The estimate is
// computed synchronously and returned; records are written asynchronously.
func (h *PlacementsHandler) HandlePostPlacement(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_placement"
	ctx := r.Context()

	var req placementRequest
	if err := decodeJSON(r, &req); err != nil {
		metrics.RecordPlacementRejected()
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sport, err := req.validate()
	if err != nil {
		metrics.RecordPlacementRejected()
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	season := strings.TrimSpace(req.SeasonID)
	if season == "" {
		season = h.defaultSeason
	}
	playerID := strings.TrimSpace(req.PlayerID)

	// Idempotency check - mark as seen first
	key := dedupe.Key(req.SubmissionID, playerID, string(sport), season)
	if h.deps.SeenAndRecord(ctx, key) {
		metrics.RecordPlacementDuplicate()
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	est := h.deps.Estimate(ctx, sport, req.Answers)
	job := model.PlacementJob{
		JobID:      uuid.NewString(),
		PlayerID:   playerID,
		Sport:      sport,
		SeasonID:   season,
		DedupeKey:  key,
		Estimate:   est,
		ReceivedAt: time.Now().UTC(),
	}

	if err := h.deps.Enqueue(ctx, job); err != nil {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(ctx, key)
		metrics.RecordPlacementRejected()
		switch {
		case errors.Is(err, queue.ErrFull):
			writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		case errors.Is(err, queue.ErrClosed), errors.Is(err, ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		default:
			h.logger.Error(ctx, "enqueue failed", logger.String("job_id", job.JobID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, err))
		}
		return
	}

	metrics.RecordPlacementAccepted()
	h.logger.Debug(ctx, "placement accepted",
		logger.String("job_id", job.JobID),
		logger.String("player_id", playerID),
		logger.String("sport", string(sport)),
		logger.String("source", string(est.Source)),
	)
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", JobID: job.JobID, Estimate: &est})
}
