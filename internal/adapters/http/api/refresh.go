package api

import (
	"net/http"

	"github.com/okian/flowsense/pkg/logger"
)

// RefreshHandler schedules report recomputation.
type RefreshHandler struct {
	server *Server
	deps   Refresher
}

// HandleRefresh handles POST /v1/users/{userID}/insights/refresh.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_refresh"
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

	job, ok := h.deps.EnqueueRefresh(ctx, id, start, end)
	if !ok {
		h.server.writeError(ctx, w, NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}
