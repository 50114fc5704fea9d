package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nobelqa/nobelqa"
)

type handler struct {
	engine nobelqa.Engine
}

func newHandler(e nobelqa.Engine) *handler {
	return &handler{engine: e}
}

// POST /query
func (h *handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req nobelqa.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	// Bound caller overrides.
	if req.TopK < 0 || req.TopK > 100 {
		req.TopK = 0
	}
	if req.ScoreThreshold < 0 || req.ScoreThreshold > 1 {
		req.ScoreThreshold = 0
	}

	resp, err := h.engine.Answer(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		writeError(w, status, err.Error())
		slog.Error("query error", "query", req.Query, "status", status, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Warmup(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// statusFor maps engine sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, nobelqa.ErrInvalidRequest),
		errors.Is(err, nobelqa.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, nobelqa.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, nobelqa.ErrEmbeddingFailure),
		errors.Is(err, nobelqa.ErrStoreUnavailable),
		errors.Is(err, nobelqa.ErrLLMFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
