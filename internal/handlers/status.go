package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"platepick/internal/model"
	"platepick/pkg/logging/logging"
)

const (
	defaultStatusPollInterval = time.Second
	defaultStatusMaxWait      = 90 * time.Second
)

type statusEvent struct {
	Status string       `json:"status"`
	Dishes []model.Dish `json:"dishes,omitempty"`
}

// AnalysisStatus handles GET /v1/analysis-status/{placeID} as a
// Server-Sent Events stream: it polls the analysis cache and emits
// "analyzing" heartbeats until the entry appears, then "complete" with
// the dish list. Cache errors end the stream with an "error" event.
// Mounted outside the request-timeout middleware.
func (h *Handler) AnalysisStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	placeID := chi.URLParam(r, "placeID")
	if placeID == "" {
		h.writeBadRequest(w, r, "place id is required", nil)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("response writer does not support flushing")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "streaming unsupported", Status: "error",
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func(ev statusEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	pollInterval := h.StatusPollInterval
	if pollInterval <= 0 {
		pollInterval = defaultStatusPollInterval
	}
	maxWait := h.StatusMaxWait
	if maxWait <= 0 {
		maxWait = defaultStatusMaxWait
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()

	for {
		analysis, found, err := h.Cache.Analysis(ctx, placeID)
		if err != nil {
			logger.Warn("analysis status check failed",
				zap.String("place_id", placeID), zap.Error(err))
			send(statusEvent{Status: "error"})
			return
		}
		if found {
			send(statusEvent{Status: "complete", Dishes: analysis.Dishes})
			return
		}
		send(statusEvent{Status: "analyzing"})

		select {
		case <-ctx.Done():
			// Client disconnected or server shutting down.
			return
		case <-deadline.C:
			logger.Info("analysis status poll timed out",
				zap.String("place_id", placeID), zap.Duration("max_wait", maxWait))
			send(statusEvent{Status: "error"})
			return
		case <-ticker.C:
		}
	}
}
