package api

import (
	"net/http"

	"github.com/okian/flowsense/internal/domain/model"
	"github.com/okian/flowsense/pkg/logger"
)

// InsightsHandler serves the analytics read endpoints.
type InsightsHandler struct {
	server *Server
	deps   Analytics
}

type anomaliesResponse struct {
	UserID    string          `json:"user_id"`
	Anomalies []model.Anomaly `json:"anomalies"`
}

// HandleInsights handles GET /v1/users/{userID}/insights.
func (h *InsightsHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_insights"
	ctx := r.Context()

	id, err := userID(r)
	if err != nil {
		h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ctx = logger.WithUserID(ctx, id)
	start, end, err := h.server.window(r)
	if err != nil {
		h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, err))
		return
	}

	report, err := h.deps.Insights(ctx, id, start, end)
	if err != nil {
		h.server.writeError(ctx, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleAnomalies handles GET /v1/users/{userID}/anomalies.
func (h *InsightsHandler) HandleAnomalies(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_anomalies"
	ctx := r.Context()

	id, err := userID(r)
	if err != nil {
		h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ctx = logger.WithUserID(ctx, id)
	start, end, err := h.server.window(r)
	if err != nil {
		h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, err))
		return
	}

	anomalies, err := h.deps.Anomalies(ctx, id, start, end)
	if err != nil {
		h.server.writeError(ctx, w, Wrap(op, err))
		return
	}
	if anomalies == nil {
		anomalies = []model.Anomaly{}
	}
	writeJSON(w, http.StatusOK, anomaliesResponse{UserID: id, Anomalies: anomalies})
}

// HandleNextPeriod handles GET /v1/users/{userID}/predictions/next-period.
func (h *InsightsHandler) HandleNextPeriod(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_next_period"
	ctx := r.Context()

	id, err := userID(r)
	if err != nil {
		h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ctx = logger.WithUserID(ctx, id)

	prediction, err := h.deps.NextPeriod(ctx, id)
	if err != nil {
		h.server.writeError(ctx, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

// HandleHealthScore handles GET /v1/users/{userID}/health-score?as_of=.
func (h *InsightsHandler) HandleHealthScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_health_score"
	ctx := r.Context()

	id, err := userID(r)
	if err != nil {
		h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ctx = logger.WithUserID(ctx, id)

	asOf := h.server.now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		if asOf, err = parseTime(raw, true); err != nil {
			h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, err))
			return
		}
	}

	result, err := h.deps.HealthScore(ctx, id, asOf)
	if err != nil {
		h.server.writeError(ctx, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}
