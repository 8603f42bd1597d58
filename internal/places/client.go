package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"platepick/internal/apperrs"
	"platepick/internal/httpx"
	"platepick/internal/metrics"
	"platepick/internal/model"
)

const (
	detailsFieldMask = "id,displayName,formattedAddress,rating,reviews"
	searchFieldMask  = "places.id,places.displayName,places.formattedAddress"

	// Radius for biasing a fallback search around URL coordinates.
	searchBiasRadiusMeters = 100.0
)

type Config struct {
	// Required fields.
	BaseURL string
	APIKey  string

	Timeout     time.Duration // per-request timeout (default: 10s)
	MaxRetries  int           // retry attempts (default: 2)
	BaseBackoff time.Duration // initial backoff (default: 100ms)

	// Custom HTTP client (for testing or special configs).
	HTTPClient *http.Client
}

// Validate checks required fields only.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("BaseURL is required")
	}
	if c.APIKey == "" {
		return errors.New("APIKey is required")
	}
	return nil
}

// WithDefaults returns a copy of Config with sane defaults applied.
func (c *Config) WithDefaults() Config {
	cfg := *c

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 100 * time.Millisecond
	}

	return cfg
}

// Client talks to the places provider. It implements both the details
// lookup used by the fetcher and the text search used by the resolver.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a places client with the given configuration.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("places: invalid config: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: httpx.NewTransport(0, 0),
		}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.Named("places"),
	}, nil
}

// Details fetches and normalizes a place's details with reviews.
func (c *Client) Details(parentCtx context.Context, placeID string) (*model.Restaurant, error) {
	if placeID == "" {
		return nil, fmt.Errorf("places: place id is required")
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(parentCtx, c.cfg.Timeout)
	defer cancel()

	url := c.cfg.BaseURL + "/v1/places/" + placeID

	resp, err := httpx.Do(ctx, c.logger, c.retryConfig(), func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("places: build details request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)
		req.Header.Set("X-Goog-FieldMask", detailsFieldMask)
		return c.httpClient.Do(req)
	})
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("places", "error").Inc()
		c.logger.Error("place details request failed",
			zap.String("place_id", placeID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, &apperrs.UpstreamError{Target: "places", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.UpstreamRequestsTotal.WithLabelValues("places", "error").Inc()
		return nil, c.upstreamError(resp, placeID)
	}

	var place providerPlace
	if err := json.NewDecoder(resp.Body).Decode(&place); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("places", "error").Inc()
		return nil, &apperrs.UpstreamError{Target: "places", Message: "decode details response", Err: err}
	}

	metrics.UpstreamRequestsTotal.WithLabelValues("places", "success").Inc()

	details := normalizePlace(place, placeID)

	c.logger.Info("place details fetched",
		zap.String("place_id", details.PlaceID),
		zap.Int("review_count", len(details.Reviews)),
		zap.Duration("duration", time.Since(start)),
	)

	return details, nil
}

// SearchText resolves a free-text query to the top matching place ID,
// optionally biased around a coordinate.
func (c *Client) SearchText(parentCtx context.Context, query string, bias *LatLng) (string, error) {
	if query == "" {
		return "", fmt.Errorf("places: search query is required")
	}

	ctx, cancel := context.WithTimeout(parentCtx, c.cfg.Timeout)
	defer cancel()

	sReq := searchTextRequest{
		TextQuery:      query,
		MaxResultCount: 1,
	}
	if bias != nil {
		sReq.LocationBias = &locationBias{
			Circle: circle{Center: *bias, Radius: searchBiasRadiusMeters},
		}
	}

	body, err := json.Marshal(sReq)
	if err != nil {
		return "", fmt.Errorf("places: marshal search request: %w", err)
	}

	url := c.cfg.BaseURL + "/v1/places:searchText"

	resp, err := httpx.Do(ctx, c.logger, c.retryConfig(), func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("places: build search request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)
		req.Header.Set("X-Goog-FieldMask", searchFieldMask)
		return c.httpClient.Do(req)
	})
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("places", "error").Inc()
		return "", &apperrs.UpstreamError{Target: "places", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.UpstreamRequestsTotal.WithLabelValues("places", "error").Inc()
		return "", c.upstreamError(resp, query)
	}

	var result searchTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("places", "error").Inc()
		return "", &apperrs.UpstreamError{Target: "places", Message: "decode search response", Err: err}
	}

	metrics.UpstreamRequestsTotal.WithLabelValues("places", "success").Inc()

	if len(result.Places) == 0 || result.Places[0].ID == "" {
		c.logger.Info("text search returned no places", zap.String("query", query))
		return "", apperrs.ErrNotFound
	}

	return result.Places[0].ID, nil
}

func (c *Client) retryConfig() httpx.RetryConfig {
	return httpx.RetryConfig{
		MaxRetries:  c.cfg.MaxRetries,
		BaseBackoff: c.cfg.BaseBackoff,
	}
}

// upstreamError builds an UpstreamError from a non-2xx provider response.
func (c *Client) upstreamError(resp *http.Response, subject string) error {
	body, _ := io.ReadAll(resp.Body)

	var perr providerErrorResponse
	if err := json.Unmarshal(body, &perr); err == nil && perr.Error.Message != "" {
		c.logger.Error("places provider error",
			zap.String("subject", subject),
			zap.Int("status", resp.StatusCode),
			zap.String("provider_status", perr.Error.Status),
			zap.String("error_message", perr.Error.Message),
		)
		return &apperrs.UpstreamError{
			Target:  "places",
			Status:  resp.StatusCode,
			Message: perr.Error.Message,
		}
	}

	c.logger.Error("places upstream error",
		zap.String("subject", subject),
		zap.Int("status", resp.StatusCode),
		zap.String("body", truncate(string(body), 200)),
	)
	return &apperrs.UpstreamError{
		Target:  "places",
		Status:  resp.StatusCode,
		Message: truncate(string(body), 200),
	}
}

// normalizePlace maps the provider's nested shape to the internal record.
// Missing optional fields default to empty/zero.
func normalizePlace(place providerPlace, requestedID string) *model.Restaurant {
	id := place.ID
	if id == "" {
		id = requestedID
	}

	reviews := make([]model.Review, 0, len(place.Reviews))
	for _, r := range place.Reviews {
		reviews = append(reviews, model.Review{
			Text:       r.Text.Text,
			Rating:     r.Rating,
			Time:       r.RelativePublishTimeDescription,
			AuthorName: r.AuthorAttribution.DisplayName,
		})
	}

	return &model.Restaurant{
		PlaceID:     id,
		Name:        place.DisplayName.Text,
		Address:     place.FormattedAddress,
		Rating:      place.Rating,
		Reviews:     reviews,
		LastFetched: time.Now().UTC(),
	}
}

// truncate limits string length for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
