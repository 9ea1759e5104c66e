package api

import (
	"context"
	"net/http"

	"github.com/okian/deuce/internal/domain/rating"
)

// EstimateDependencies defines what the estimate handler needs.
type EstimateDependencies interface {
	Estimate(ctx context.Context, sport rating.Sport, answers rating.AnswerSet) rating.Estimate
}

// EstimateHandler answers dry-run estimates. Nothing is persisted.
type EstimateHandler struct {
	deps EstimateDependencies
}

// NewEstimateHandler creates a new estimate handler.
func NewEstimateHandler(deps EstimateDependencies) *EstimateHandler {
	return &EstimateHandler{deps: deps}
}

// HandleEstimate handles POST /estimate requests.
func (h *EstimateHandler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	const op = "api.estimate"
	var req estimateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sport, err := req.sport()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Estimate(r.Context(), sport, req.Answers))
}
