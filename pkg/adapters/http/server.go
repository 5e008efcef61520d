// Package http exposes an environment over a chi router.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/qcal"
	"github.com/aretw0/qcal/internal/logging"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Environment is the part of qcal.Environment served over HTTP.
type Environment interface {
	Reset(ctx context.Context, seed *int64) ([]float64, map[string]any, error)
	Step(ctx context.Context, actions [][]float64) (domain.StepResult, error)
	State() domain.EpisodeState
	EpisodeLength() int
	BestReward() float64
	OptimalAction() []float64
	Truncations() []domain.Truncation
	Target(i int) (domain.Target, error)
	AssignParameters(ctx context.Context, values map[string]float64) error
	Summary(ctx context.Context) (domain.Summary, error)
	RunID() string
}

var _ Environment = (*qcal.Environment)(nil)

// Server serves one environment.
type Server struct {
	Env     Environment
	Streams *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer exposes the given registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithStreams shares an existing stream manager, e.g. one already fed by StreamHooks.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// NewServer creates a Server. Wire Server.Hooks into the environment to feed /events.
func NewServer(env Environment, opts ...Option) *Server {
	s := &Server{
		Env:    env,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager()
	}
	s.Streams.logger = s.logger
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/reset", s.Reset)
	r.Post("/step", s.Step)
	r.Get("/state", s.GetState)
	r.Get("/truncations", s.GetTruncations)
	r.Get("/targets/{index}", s.GetTarget)
	r.Put("/context/parameters", s.AssignParameters)
	r.Get("/history", s.GetHistory)
	r.Get("/events", s.SubscribeEvents)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ResetRequest is the body of POST /reset. An empty body is accepted.
type ResetRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

// ResetResponse is returned by POST /reset.
type ResetResponse struct {
	Observation []float64      `json:"observation"`
	Info        map[string]any `json:"info"`
}

// StepRequest is the body of POST /step.
type StepRequest struct {
	Actions [][]float64 `json:"actions"`
}

// StateResponse is returned by GET /state.
type StateResponse struct {
	RunID         string              `json:"run_id"`
	State         domain.EpisodeState `json:"state"`
	EpisodeLength int                 `json:"episode_length"`
	BestReward    *float64            `json:"best_reward,omitempty"`
	OptimalAction []float64           `json:"optimal_action,omitempty"`
}

// ParametersRequest is the body of PUT /context/parameters.
type ParametersRequest struct {
	Values map[string]float64 `json:"values"`
}

// Reset handles POST /reset.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	var body ResetRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			s.logger.Warn("Reset: Invalid request body", "err", err)
			return
		}
	}
	obs, info, err := s.Env.Reset(r.Context(), body.Seed)
	if err != nil {
		s.fail(w, "Reset", err)
		return
	}
	s.writeJSON(w, ResetResponse{Observation: obs, Info: info})
}

// Step handles POST /step.
func (s *Server) Step(w http.ResponseWriter, r *http.Request) {
	var body StepRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Step: Invalid request body", "err", err)
		return
	}
	res, err := s.Env.Step(r.Context(), body.Actions)
	if err != nil {
		s.fail(w, "Step", err)
		return
	}
	s.writeJSON(w, res)
}

// GetState handles GET /state.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	resp := StateResponse{
		RunID:         s.Env.RunID(),
		State:         s.Env.State(),
		EpisodeLength: s.Env.EpisodeLength(),
		OptimalAction: s.Env.OptimalAction(),
	}
	// JSON cannot carry -Inf; omit the reward until an episode terminated.
	if best := s.Env.BestReward(); !math.IsInf(best, 0) {
		resp.BestReward = &best
	}
	s.writeJSON(w, resp)
}

// GetTruncations handles GET /truncations.
func (s *Server) GetTruncations(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Env.Truncations())
}

// GetTarget handles GET /targets/{index}.
func (s *Server) GetTarget(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "Invalid target index", http.StatusBadRequest)
		return
	}
	target, err := s.Env.Target(i)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.writeJSON(w, target)
}

// AssignParameters handles PUT /context/parameters.
func (s *Server) AssignParameters(w http.ResponseWriter, r *http.Request) {
	var body ParametersRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("AssignParameters: Invalid request body", "err", err)
		return
	}
	if err := s.Env.AssignParameters(r.Context(), body.Values); err != nil {
		s.fail(w, "AssignParameters", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHistory handles GET /history.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Env.Summary(r.Context())
	if err != nil {
		s.fail(w, "GetHistory", err)
		return
	}
	s.writeJSON(w, summary)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"app":     "qcal-http",
		"version": strings.TrimSpace(qcal.Version),
		"run_id":  s.Env.RunID(),
	})
}

// fail maps domain errors to status codes.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrBatchSizeMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrContextUnbound):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnresolvedParameter):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidReward):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Warn(op+" rejected", "err", err)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
