package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/flowsense/internal/domain/model"
	"github.com/okian/flowsense/pkg/logger"
)

// IngestHandler stores cycles and biometric samples.
type IngestHandler struct {
	server *Server
	deps   Ingestor
}

type samplesRequest struct {
	Samples []model.BiometricSample `json:"samples"`
}

type samplesResponse struct {
	Accepted   int                     `json:"accepted"`
	Duplicates int                     `json:"duplicates"`
	Samples    []model.BiometricSample `json:"samples"`
}

var errUserMismatch = errors.New("user_id in body does not match the path")

// HandlePostCycle handles POST /v1/users/{userID}/cycles.
func (h *IngestHandler) HandlePostCycle(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_cycle"
	ctx := r.Context()

	id, err := userID(r)
	if err != nil {
		h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ctx = logger.WithUserID(ctx, id)

	var rec model.CycleRecord
	if err := decodeJSON(w, r, &rec); err != nil {
		h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, fmt.Errorf("decode cycle: %w", err)))
		return
	}
	if rec.UserID != "" && rec.UserID != id {
		h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, errUserMismatch))
		return
	}
	rec.UserID = id

	saved, err := h.deps.SaveCycle(ctx, rec)
	if err != nil {
		h.server.writeError(ctx, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// HandlePostSamples handles POST /v1/users/{userID}/samples. Samples whose
// id was already ingested are skipped and counted as duplicates.
func (h *IngestHandler) HandlePostSamples(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_samples"
	ctx := r.Context()

	id, err := userID(r)
	if err != nil {
		h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ctx = logger.WithUserID(ctx, id)

	var req samplesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, fmt.Errorf("decode samples: %w", err)))
		return
	}
	if len(req.Samples) == 0 {
		h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, errors.New("samples must not be empty")))
		return
	}
	for i := range req.Samples {
		if req.Samples[i].UserID != "" && req.Samples[i].UserID != id {
			h.server.writeError(ctx, w, WrapKind(op, ErrBadRequest, errUserMismatch))
			return
		}
		req.Samples[i].UserID = id
	}

	saved, duplicates, err := h.deps.SaveSamples(ctx, id, req.Samples)
	if err != nil {
		h.server.writeError(ctx, w, Wrap(op, err))
		return
	}
	if saved == nil {
		saved = []model.BiometricSample{}
	}
	status := http.StatusCreated
	if len(saved) == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, samplesResponse{Accepted: len(saved), Duplicates: duplicates, Samples: saved})
}
