package handlers

import (
	"context"
	"time"

	"platepick/internal/cache"
	"platepick/internal/model"
)

// PlaceResolver turns a maps URL into a place identifier.
type PlaceResolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// PlaceFetcher loads normalized place details with reviews.
type PlaceFetcher interface {
	Details(ctx context.Context, placeID string) (*model.Restaurant, error)
}

// DishAnalyzer produces the ranked dish list for a review set.
type DishAnalyzer interface {
	TopDishes(ctx context.Context, reviews []model.Review) ([]model.Dish, error)
}

// Handler holds the dependencies of the /v1 API endpoints.
type Handler struct {
	Cache    *cache.TypedCache
	Resolver PlaceResolver
	Places   PlaceFetcher
	Analyzer DishAnalyzer

	// ExposeErrors includes underlying error detail in responses
	// (development only).
	ExposeErrors bool

	// SSE status endpoint tuning; zero values get defaults.
	StatusPollInterval time.Duration
	StatusMaxWait      time.Duration
}

func New(c *cache.TypedCache, resolver PlaceResolver, places PlaceFetcher, analyzer DishAnalyzer, exposeErrors bool) *Handler {
	return &Handler{
		Cache:        c,
		Resolver:     resolver,
		Places:       places,
		Analyzer:     analyzer,
		ExposeErrors: exposeErrors,
	}
}
