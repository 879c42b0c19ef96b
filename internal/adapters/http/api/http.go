// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/flowsense/internal/domain/model"
	"github.com/okian/flowsense/pkg/logger"
)

// Default server configuration constants.
const (
	defaultWindow   = 90 * 24 * time.Hour
	maxRequestBytes = 1 << 20
)

// Analytics exposes the read side of the engine.
type Analytics interface {
	Insights(ctx context.Context, userID string, start, end time.Time) (model.InsightsReport, error)
	Anomalies(ctx context.Context, userID string, start, end time.Time) ([]model.Anomaly, error)
	NextPeriod(ctx context.Context, userID string) (model.Prediction, error)
	HealthScore(ctx context.Context, userID string, asOf time.Time) (model.HealthScoreResult, error)
}

// Ingestor stores incoming records.
type Ingestor interface {
	SaveCycle(ctx context.Context, rec model.CycleRecord) (model.CycleRecord, error)
	// SaveSamples stores new samples and reports how many ids were already seen.
	SaveSamples(ctx context.Context, userID string, samples []model.BiometricSample) ([]model.BiometricSample, int, error)
}

// Refresher schedules background report recomputation. Returns false on backpressure.
type Refresher interface {
	EnqueueRefresh(ctx context.Context, userID string, start, end time.Time) (model.RefreshJob, bool)
}

// Dependencies bundles everything the handlers need, usually the app Service.
type Dependencies interface {
	Analytics
	Ingestor
	Refresher
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	insightsHandler *InsightsHandler
	ingestHandler   *IngestHandler
	refreshHandler  *RefreshHandler

	defaultWindow time.Duration
	now           func() time.Time
	logger        logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithDefaultWindow sets the report window used when a request names none.
func WithDefaultWindow(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.defaultWindow = d
		}
	}
}

// WithClock overrides the time source used for default windows.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		defaultWindow: defaultWindow,
		now:           time.Now,
		logger:        logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.insightsHandler = &InsightsHandler{server: s, deps: deps}
	s.ingestHandler = &IngestHandler{server: s, deps: deps}
	s.refreshHandler = &RefreshHandler{server: s, deps: deps}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.Handle(pattern, RequestContext(MetricsMiddleware(h, endpoint)))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("GET /v1/users/{userID}/insights", "insights", s.insightsHandler.HandleInsights)
	route("GET /v1/users/{userID}/anomalies", "anomalies", s.insightsHandler.HandleAnomalies)
	route("GET /v1/users/{userID}/predictions/next-period", "next_period", s.insightsHandler.HandleNextPeriod)
	route("GET /v1/users/{userID}/health-score", "health_score", s.insightsHandler.HandleHealthScore)

	route("POST /v1/users/{userID}/cycles", "cycles", s.ingestHandler.HandlePostCycle)
	route("POST /v1/users/{userID}/samples", "samples", s.ingestHandler.HandlePostSamples)
	route("POST /v1/users/{userID}/insights/refresh", "refresh", s.refreshHandler.HandleRefresh)
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as {code, message}. Internal failures are logged
// and their details kept out of the response.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", logger.Error(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
