package cache

import "strings"

// Key namespaces. A place identifier determines at most one entry in each
// of the restaurant and analysis namespaces; the recent list is a single
// shared key with no per-user partitioning.
const (
	restaurantKeyPrefix = "restaurant:"
	analysisKeyPrefix   = "analysis:"
	recentKey           = "recent:restaurants"
)

// RestaurantKey returns the cache key for a place's details.
func RestaurantKey(placeID string) string {
	return restaurantKeyPrefix + placeID
}

// AnalysisKey returns the cache key for a place's dish analysis.
func AnalysisKey(placeID string) string {
	return analysisKeyPrefix + placeID
}

// entityOf maps a key to its metrics/log entity label.
func entityOf(key string) string {
	switch {
	case strings.HasPrefix(key, restaurantKeyPrefix):
		return "restaurant"
	case strings.HasPrefix(key, analysisKeyPrefix):
		return "analysis"
	case key == recentKey:
		return "recent"
	default:
		return "unknown"
	}
}
