package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"platepick/internal/apperrs"
	"platepick/internal/model"
	"platepick/pkg/logging/logging"

	"go.uber.org/zap"
)

// TypedCache layers the restaurant / analysis / recent-list namespaces over
// a byte-level Store. Get errors are returned alongside ok=false so callers
// can fail open (treat as miss) while the SSE status endpoint can still tell
// an outage from a pending analysis.
type TypedCache struct {
	store         Store
	restaurantTTL time.Duration
	analysisTTL   time.Duration
	recentCap     int
}

// NewTypedCache wires the typed namespaces with their expiration policy.
// The recent list reuses the restaurant TTL.
func NewTypedCache(store Store, restaurantTTL, analysisTTL time.Duration, recentCap int) *TypedCache {
	return &TypedCache{
		store:         store,
		restaurantTTL: restaurantTTL,
		analysisTTL:   analysisTTL,
		recentCap:     recentCap,
	}
}

// Restaurant looks up cached details for a place.
func (c *TypedCache) Restaurant(ctx context.Context, placeID string) (*model.Restaurant, bool, error) {
	key := RestaurantKey(placeID)
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false, &apperrs.CacheError{Op: "get", Key: key, Err: err}
	}
	if !ok {
		return nil, false, nil
	}

	var details model.Restaurant
	if err := json.Unmarshal(data, &details); err != nil {
		// Corrupt entry: treat as a miss, it will be overwritten.
		logging.L(ctx).Warn("corrupt restaurant cache entry",
			zap.String("cache_key", key), zap.Error(err))
		return nil, false, nil
	}
	return &details, true, nil
}

// SetRestaurant writes details with the restaurant TTL.
func (c *TypedCache) SetRestaurant(ctx context.Context, placeID string, details *model.Restaurant) error {
	key := RestaurantKey(placeID)
	data, err := json.Marshal(details)
	if err != nil {
		return &apperrs.CacheError{Op: "set", Key: key, Err: err}
	}
	if err := c.store.Set(ctx, key, data, c.restaurantTTL); err != nil {
		return &apperrs.CacheError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// analysisEnvelope defers dish decoding so a legacy double-nested payload
// ({"dishes":{"dishes":[...]}}) can be unwrapped on read. New writes can
// never produce that shape; see normalizeAnalysis.
type analysisEnvelope struct {
	Dishes       json.RawMessage `json:"dishes"`
	LastAnalyzed time.Time       `json:"lastAnalyzed"`
}

// Analysis looks up a cached dish analysis for a place.
func (c *TypedCache) Analysis(ctx context.Context, placeID string) (*model.Analysis, bool, error) {
	key := AnalysisKey(placeID)
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false, &apperrs.CacheError{Op: "get", Key: key, Err: err}
	}
	if !ok {
		return nil, false, nil
	}

	var env analysisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		logging.L(ctx).Warn("corrupt analysis cache entry",
			zap.String("cache_key", key), zap.Error(err))
		return nil, false, nil
	}

	var dishes []model.Dish
	if err := json.Unmarshal(env.Dishes, &dishes); err != nil {
		// Migration shim for entries written before the strict write path.
		var nested struct {
			Dishes []model.Dish `json:"dishes"`
		}
		if err2 := json.Unmarshal(env.Dishes, &nested); err2 != nil {
			logging.L(ctx).Warn("corrupt analysis cache entry",
				zap.String("cache_key", key), zap.Error(err))
			return nil, false, nil
		}
		logging.L(ctx).Info("unwrapped legacy nested analysis entry",
			zap.String("cache_key", key))
		dishes = nested.Dishes
	}

	return &model.Analysis{Dishes: dishes, LastAnalyzed: env.LastAnalyzed}, true, nil
}

// SetAnalysis validates and writes an analysis with the analysis TTL.
// The payload is normalized here so a malformed shape is never persisted.
func (c *TypedCache) SetAnalysis(ctx context.Context, placeID string, analysis *model.Analysis) error {
	key := AnalysisKey(placeID)

	normalized, err := normalizeAnalysis(analysis)
	if err != nil {
		return &apperrs.CacheError{Op: "set", Key: key, Err: err}
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return &apperrs.CacheError{Op: "set", Key: key, Err: err}
	}
	if err := c.store.Set(ctx, key, data, c.analysisTTL); err != nil {
		return &apperrs.CacheError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// normalizeAnalysis enforces the stored schema: named dishes only, ranks
// sequential ascending from 1, LastAnalyzed filled in.
func normalizeAnalysis(analysis *model.Analysis) (*model.Analysis, error) {
	if analysis == nil {
		return nil, fmt.Errorf("nil analysis")
	}

	dishes := make([]model.Dish, 0, len(analysis.Dishes))
	for _, d := range analysis.Dishes {
		if d.Name == "" {
			continue
		}
		dishes = append(dishes, d)
	}
	if len(dishes) == 0 {
		return nil, fmt.Errorf("analysis has no dishes")
	}

	sort.SliceStable(dishes, func(i, j int) bool { return dishes[i].Rank < dishes[j].Rank })
	for i := range dishes {
		dishes[i].Rank = i + 1
	}

	lastAnalyzed := analysis.LastAnalyzed
	if lastAnalyzed.IsZero() {
		lastAnalyzed = time.Now().UTC()
	}

	return &model.Analysis{Dishes: dishes, LastAnalyzed: lastAnalyzed}, nil
}

// Recent returns the recently-analyzed list, most recent first. Missing or
// invalid data degrades to an empty list.
func (c *TypedCache) Recent(ctx context.Context) ([]model.RecentEntry, error) {
	data, ok, err := c.store.Get(ctx, recentKey)
	if err != nil {
		return nil, &apperrs.CacheError{Op: "get", Key: recentKey, Err: err}
	}
	if !ok {
		return []model.RecentEntry{}, nil
	}

	var entries []model.RecentEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		logging.L(ctx).Warn("invalid recent list entry", zap.Error(err))
		return []model.RecentEntry{}, nil
	}
	return entries, nil
}

// TouchRecent upserts an entry at the front of the recent list: any entry
// with the same place ID is removed first and the list is truncated to the
// configured cap. Read-modify-write without a transaction; concurrent
// upserts can lose an update, acceptable at this tool's scale.
func (c *TypedCache) TouchRecent(ctx context.Context, entry model.RecentEntry) error {
	current, err := c.Recent(ctx)
	if err != nil {
		// Fail open: rebuild the list from this entry alone.
		current = []model.RecentEntry{}
	}

	updated := make([]model.RecentEntry, 0, len(current)+1)
	updated = append(updated, entry)
	for _, e := range current {
		if e.PlaceID == entry.PlaceID {
			continue
		}
		updated = append(updated, e)
	}
	if len(updated) > c.recentCap {
		updated = updated[:c.recentCap]
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return &apperrs.CacheError{Op: "set", Key: recentKey, Err: err}
	}
	if err := c.store.Set(ctx, recentKey, data, c.restaurantTTL); err != nil {
		return &apperrs.CacheError{Op: "set", Key: recentKey, Err: err}
	}
	return nil
}

// Purge removes both cache entries for a place.
func (c *TypedCache) Purge(ctx context.Context, placeID string) error {
	if err := c.store.Delete(ctx, RestaurantKey(placeID)); err != nil {
		return &apperrs.CacheError{Op: "delete", Key: RestaurantKey(placeID), Err: err}
	}
	if err := c.store.Delete(ctx, AnalysisKey(placeID)); err != nil {
		return &apperrs.CacheError{Op: "delete", Key: AnalysisKey(placeID), Err: err}
	}
	return nil
}
