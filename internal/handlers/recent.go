package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"platepick/internal/model"
	"platepick/pkg/logging/logging"
)

type recentResponse struct {
	Restaurants []model.RecentEntry `json:"restaurants"`
	Status      string              `json:"status"`
}

// Recent handles GET /v1/recent: the bounded recently-analyzed list,
// most recent first. A cache outage degrades to an empty list with an
// error status rather than failing hard.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Cache.Recent(r.Context())
	if err != nil {
		logging.L(r.Context()).Warn("recent list read failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, recentResponse{
			Restaurants: []model.RecentEntry{},
			Status:      "error",
		})
		return
	}

	writeJSON(w, http.StatusOK, recentResponse{
		Restaurants: entries,
		Status:      "success",
	})
}
