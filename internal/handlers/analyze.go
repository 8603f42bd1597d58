package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"platepick/internal/model"
	"platepick/pkg/logging/logging"
)

// Source tags reported to the client.
const (
	SourceCache = "cache" // both entries served from cache
	SourceFresh = "fresh" // both entries computed on this request
	SourceMixed = "mixed" // cached details, fresh analysis
)

type analyzeRequest struct {
	URL     string `json:"url,omitempty"`
	PlaceID string `json:"placeId,omitempty"`
	Refresh bool   `json:"refresh,omitempty"`
}

type restaurantSummary struct {
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
	Address     string  `json:"address"`
}

type analyzeResponse struct {
	PlaceID        string            `json:"placeId"`
	RestaurantName restaurantSummary `json:"restaurantName"`
	Dishes         []model.Dish      `json:"dishes"`
	Status         string            `json:"status"`
	Source         string            `json:"source"`
}

// Analyze handles POST /v1/analyze: resolve -> cache check -> fetch-or-reuse
// -> analyze-or-reuse -> cache write -> recent-list update -> respond.
// Cache read errors are treated as misses (fail open); cache write and
// recent-list errors are logged and never fail the request.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)
	start := time.Now()

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, r, "invalid JSON body", err)
		return
	}
	if req.URL == "" && req.PlaceID == "" {
		h.writeBadRequest(w, r, "url or placeId is required", nil)
		return
	}

	placeID := req.PlaceID
	if placeID == "" {
		id, err := h.Resolver.Resolve(ctx, req.URL)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		placeID = id
	}
	logger = logger.With(zap.String("place_id", placeID))

	var details *model.Restaurant
	var analysis *model.Analysis
	detailsCached := false
	analysisCached := false

	if !req.Refresh {
		if d, ok, err := h.Cache.Restaurant(ctx, placeID); err == nil && ok {
			details = d
			detailsCached = true
		}
		if a, ok, err := h.Cache.Analysis(ctx, placeID); err == nil && ok {
			analysis = a
			analysisCached = true
		}
	}

	if details == nil {
		fresh, err := h.Places.Details(ctx, placeID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		details = fresh
		if err := h.Cache.SetRestaurant(ctx, placeID, details); err != nil {
			logger.Warn("restaurant cache write failed", zap.Error(err))
		}
	}

	if analysis == nil {
		dishes, err := h.Analyzer.TopDishes(ctx, details.Reviews)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		analysis = &model.Analysis{Dishes: dishes, LastAnalyzed: time.Now().UTC()}
		if err := h.Cache.SetAnalysis(ctx, placeID, analysis); err != nil {
			logger.Warn("analysis cache write failed", zap.Error(err))
		}
	}

	var source string
	switch {
	case detailsCached && analysisCached:
		source = SourceCache
	case !detailsCached && !analysisCached:
		source = SourceFresh
	default:
		source = SourceMixed
	}

	if source != SourceCache {
		entry := model.RecentEntry{
			PlaceID:   placeID,
			Name:      details.Name,
			Address:   details.Address,
			Rating:    details.Rating,
			Timestamp: analysis.LastAnalyzed,
		}
		// Non-fatal: the analysis still succeeds if this write is lost.
		if err := h.Cache.TouchRecent(ctx, entry); err != nil {
			logger.Warn("recent list update failed", zap.Error(err))
		}
	}

	logger.Info("analyze completed",
		zap.String("source", source),
		zap.Bool("refresh", req.Refresh),
		zap.Int("dish_count", len(analysis.Dishes)),
		zap.Duration("total_latency", time.Since(start)),
	)

	writeJSON(w, http.StatusOK, analyzeResponse{
		PlaceID: placeID,
		RestaurantName: restaurantSummary{
			Name:        details.Name,
			Rating:      details.Rating,
			ReviewCount: len(details.Reviews),
			Address:     details.Address,
		},
		Dishes: analysis.Dishes,
		Status: "success",
		Source: source,
	})
}
