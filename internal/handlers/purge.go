package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"platepick/pkg/logging/logging"
)

// Purge handles DELETE /v1/cache/{placeID}: removes both the restaurant
// details and analysis entries for a place. Unlike reads, a purge failure
// is surfaced, a stale entry the caller believes gone would be misleading.
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "placeID")
	if placeID == "" {
		h.writeBadRequest(w, r, "place id is required", nil)
		return
	}

	if err := h.Cache.Purge(r.Context(), placeID); err != nil {
		logging.L(r.Context()).Error("cache purge failed",
			zap.String("place_id", placeID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "failed to clear cache", Status: "error",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
