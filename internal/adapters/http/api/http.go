// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/okian/deuce/internal/domain/dedupe"
	"github.com/okian/deuce/internal/domain/model"
	"github.com/okian/deuce/internal/domain/rating"
	"github.com/okian/deuce/pkg/logger"
)

const (
	defaultSeason       = "default"
	defaultMaxListLimit = 100
	maxBodyBytes        = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Estimate runs the placement engine. It never fails.
	Estimate(ctx context.Context, sport rating.Sport, answers rating.AnswerSet) rating.Estimate

	// Enqueue hands a job to the workers without blocking.
	Enqueue(ctx context.Context, job model.PlacementJob) error

	// ListByPlayer reads persisted rating records.
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.Record, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	estimateHandler   *EstimateHandler
	placementsHandler *PlacementsHandler
	ratingsHandler    *RatingsHandler
	logger            logger.Logger
}

type serverConfig struct {
	defaultSeason string
	maxListLimit  int
	logger        logger.Logger
}

// Option configures a Server.
type Option func(*serverConfig)

// WithDefaultSeason sets the season used when a placement omits season_id.
func WithDefaultSeason(season string) Option {
	return func(c *serverConfig) {
		if s := strings.TrimSpace(season); s != "" {
			c.defaultSeason = s
		}
	}
}

// WithMaxListLimit caps the number of records GET /ratings returns.
func WithMaxListLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxListLimit = n
		}
	}
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{
		defaultSeason: defaultSeason,
		maxListLimit:  defaultMaxListLimit,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.logger.Named("api")

	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		estimateHandler:   NewEstimateHandler(deps),
		placementsHandler: NewPlacementsHandler(deps, cfg.defaultSeason, log),
		ratingsHandler:    NewRatingsHandler(deps, cfg.maxListLimit),
		logger:            log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, RequestIDMiddleware(MetricsMiddleware(AccessLogMiddleware(h, s.logger), endpoint)))
	}

	handle("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	handle("GET /stats", "stats", s.statsHandler.HandleStats)
	handle("POST /estimate", "estimate", s.estimateHandler.HandleEstimate)
	handle("POST /placements", "placements", s.placementsHandler.HandlePostPlacement)
	handle("GET /ratings/{player_id}", "ratings", s.ratingsHandler.HandleGetRatings)
}

// estimateRequest is the body of POST /estimate.
type estimateRequest struct {
	Sport   string           `json:"sport"`
	Answers rating.AnswerSet `json:"answers"`
}

func (e *estimateRequest) sport() (rating.Sport, error) {
	if strings.TrimSpace(e.Sport) == "" {
		return "", errors.New("missing sport")
	}
	return rating.ParseSport(e.Sport)
}

// placementRequest is the body of POST /placements.
type placementRequest struct {
	estimateRequest
	SubmissionID string `json:"submission_id"`
	PlayerID     string `json:"player_id"`
	SeasonID     string `json:"season_id"`
}

func (p *placementRequest) validate() (rating.Sport, error) {
	if strings.TrimSpace(p.PlayerID) == "" {
		return "", errors.New("missing player_id")
	}
	return p.sport()
}

type ackResponse struct {
	Status    string           `json:"status"`
	Duplicate bool             `json:"duplicate"`
	JobID     string           `json:"job_id,omitempty"`
	Estimate  *rating.Estimate `json:"estimate,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
