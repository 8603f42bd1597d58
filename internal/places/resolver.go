package places

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"platepick/internal/apperrs"
	"platepick/internal/httpx"
)

// URLType classifies an accepted maps URL shape.
type URLType string

const (
	URLTypeFull  URLType = "full"
	URLTypeShort URLType = "short"
)

var (
	fullURLPattern  = regexp.MustCompile(`^https://(www\.)?google\.com/maps/place/[^/]+/.+`)
	shortURLPattern = regexp.MustCompile(`^https://maps\.app\.goo\.gl/.+`)

	// Extraction heuristics, tried in order against the canonical URL.
	cidPattern         = regexp.MustCompile(`0x[0-9a-fA-F]+:0x[0-9a-fA-F]+`)
	placeIDQueryParam  = regexp.MustCompile(`[?&]place_id=([^&]+)`)
	dataSegmentPattern = regexp.MustCompile(`!1s([^!]+)!`)

	// Fallback-search helpers: restaurant name from the path, @lat,lng bias.
	placeNamePattern = regexp.MustCompile(`place/([^/@]+)`)
	coordPattern     = regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`)
)

// ValidateMapsURL checks a raw string against the two accepted URL shapes.
func ValidateMapsURL(raw string) (URLType, bool) {
	if fullURLPattern.MatchString(raw) {
		return URLTypeFull, true
	}
	if shortURLPattern.MatchString(raw) {
		return URLTypeShort, true
	}
	return "", false
}

// PlaceSearcher is the text-search dependency of the resolver,
// satisfied by *Client.
type PlaceSearcher interface {
	SearchText(ctx context.Context, query string, bias *LatLng) (string, error)
}

// Resolver turns a user-supplied maps URL into a place identifier:
// pattern extraction against the canonical URL first, provider text
// search as a fallback.
type Resolver struct {
	searcher   PlaceSearcher
	httpClient *http.Client
	retry      httpx.RetryConfig
	logger     *zap.Logger
}

// NewResolver builds a resolver. A nil httpClient gets a default with the
// shared transport; the client must follow redirects, short links are
// expanded by requesting them and reading the final URL.
func NewResolver(searcher PlaceSearcher, httpClient *http.Client, retry httpx.RetryConfig, logger *zap.Logger) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: httpx.NewTransport(0, 0),
			Timeout:   10 * time.Second,
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		searcher:   searcher,
		httpClient: httpClient,
		retry:      retry,
		logger:     logger.Named("resolver"),
	}
}

// Resolve validates the URL and produces a place identifier.
// Invalid shape -> ErrInvalidInput; no heuristic match and no search hit ->
// ErrNotFound; provider failure -> UpstreamError.
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	urlType, ok := ValidateMapsURL(raw)
	if !ok {
		return "", apperrs.ErrInvalidInput
	}

	canonical := raw
	if urlType == URLTypeShort {
		expanded, err := r.expand(ctx, raw)
		if err != nil {
			return "", err
		}
		r.logger.Debug("expanded short url",
			zap.String("short_url", raw),
			zap.String("canonical_url", expanded),
		)
		canonical = expanded
	}

	if id, heuristic := extractPlaceID(canonical); id != "" {
		r.logger.Info("place id extracted",
			zap.String("heuristic", heuristic),
			zap.String("place_id", id),
		)
		return id, nil
	}

	// No pattern matched: fall back to a text search using the restaurant
	// name from the URL path, biased by URL coordinates when present.
	query := parsePlaceName(canonical)
	if query == "" {
		query = canonical
	}
	bias := parseCoordinates(canonical)

	r.logger.Info("falling back to text search",
		zap.String("query", query),
		zap.Bool("has_bias", bias != nil),
	)

	return r.searcher.SearchText(ctx, query, bias)
}

// expand follows the short link's redirect chain and returns the final URL.
func (r *Resolver) expand(ctx context.Context, shortURL string) (string, error) {
	resp, err := httpx.Do(ctx, r.logger, r.retry, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, nil)
		if err != nil {
			return nil, fmt.Errorf("resolver: build expand request: %w", err)
		}
		return r.httpClient.Do(req)
	})
	if err != nil {
		return "", &apperrs.UpstreamError{Target: "redirect", Err: err}
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused; only the final URL matters.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.Request == nil || resp.Request.URL == nil {
		return "", &apperrs.UpstreamError{Target: "redirect", Message: "no final URL after redirect"}
	}
	return resp.Request.URL.String(), nil
}

// extractPlaceID runs the ordered extraction heuristics and returns the
// first match with the heuristic's name, or ("", "").
func extractPlaceID(canonical string) (string, string) {
	if m := cidPattern.FindString(canonical); m != "" {
		return m, "cid"
	}
	if m := placeIDQueryParam.FindStringSubmatch(canonical); m != nil {
		return m[1], "query_param"
	}
	if m := dataSegmentPattern.FindStringSubmatch(canonical); m != nil {
		return m[1], "data_segment"
	}
	return "", ""
}

// parsePlaceName pulls the restaurant name out of the /maps/place/<name>
// path segment, decoding + and percent escapes.
func parsePlaceName(canonical string) string {
	m := placeNamePattern.FindStringSubmatch(canonical)
	if m == nil {
		return ""
	}
	name := strings.ReplaceAll(m[1], "+", " ")
	if decoded, err := url.QueryUnescape(name); err == nil {
		return decoded
	}
	return name
}

// parseCoordinates pulls the @lat,lng pair out of a canonical URL.
func parseCoordinates(canonical string) *LatLng {
	m := coordPattern.FindStringSubmatch(canonical)
	if m == nil {
		return nil
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil
	}
	return &LatLng{Latitude: lat, Longitude: lng}
}
