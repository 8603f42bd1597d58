package places

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"platepick/internal/apperrs"
	"platepick/internal/httpx"
)

// stubSearcher records text-search calls and returns a fixed result.
type stubSearcher struct {
	calls   int
	gotText string
	gotBias *LatLng
	id      string
	err     error
}

func (s *stubSearcher) SearchText(_ context.Context, query string, bias *LatLng) (string, error) {
	s.calls++
	s.gotText = query
	s.gotBias = bias
	return s.id, s.err
}

func TestValidateMapsURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      string
		wantType URLType
		wantOK   bool
	}{
		{
			name:     "full url",
			url:      "https://www.google.com/maps/place/Thai+Orchid/@51.5,-0.12,17z/data=!3m1!4b1",
			wantType: URLTypeFull,
			wantOK:   true,
		},
		{
			name:     "full url without www",
			url:      "https://google.com/maps/place/Thai+Orchid/@51.5,-0.12,17z",
			wantType: URLTypeFull,
			wantOK:   true,
		},
		{
			name:     "short url",
			url:      "https://maps.app.goo.gl/AbCdEf123",
			wantType: URLTypeShort,
			wantOK:   true,
		},
		{
			name:   "http scheme rejected",
			url:    "http://www.google.com/maps/place/Thai+Orchid/@51.5,-0.12,17z",
			wantOK: false,
		},
		{
			name:   "not a maps url",
			url:    "https://example.com/maps/place/Thai+Orchid/extra",
			wantOK: false,
		},
		{
			name:   "place path without trailing segment",
			url:    "https://www.google.com/maps/place/Thai+Orchid",
			wantOK: false,
		},
		{
			name:   "empty",
			url:    "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, ok := ValidateMapsURL(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && gotType != tt.wantType {
				t.Fatalf("type = %s, want %s", gotType, tt.wantType)
			}
		})
	}
}

func TestExtractPlaceID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		url           string
		wantID        string
		wantHeuristic string
	}{
		{
			name:          "hex cid pair",
			url:           "https://www.google.com/maps/place/X/@1.0,2.0,17z/data=!4m6!3m5!1s0x487604ce3941eb1f:0xdc99eb5e3825b3cf!8m2",
			wantID:        "0x487604ce3941eb1f:0xdc99eb5e3825b3cf",
			wantHeuristic: "cid",
		},
		{
			name:          "place_id query param",
			url:           "https://www.google.com/maps/place/X/more?place_id=ChIJN1t_tDeuEmsRUsoyG83frY4",
			wantID:        "ChIJN1t_tDeuEmsRUsoyG83frY4",
			wantHeuristic: "query_param",
		},
		{
			name:          "data segment",
			url:           "https://www.google.com/maps/place/X/data=!1sChIJrTLr-GyuEmsRBfy61i59si0!3m1",
			wantID:        "ChIJrTLr-GyuEmsRBfy61i59si0",
			wantHeuristic: "data_segment",
		},
		{
			name: "no match",
			url:  "https://www.google.com/maps/place/X/@1.0,2.0,17z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, heuristic := extractPlaceID(tt.url)
			if id != tt.wantID {
				t.Fatalf("id = %q, want %q", id, tt.wantID)
			}
			if heuristic != tt.wantHeuristic {
				t.Fatalf("heuristic = %q, want %q", heuristic, tt.wantHeuristic)
			}
		})
	}
}

func TestResolveInvalidURL(t *testing.T) {
	t.Parallel()

	searcher := &stubSearcher{}
	r := NewResolver(searcher, nil, httpx.RetryConfig{}, zaptest.NewLogger(t))

	_, err := r.Resolve(context.Background(), "https://example.com/not-maps")
	if !errors.Is(err, apperrs.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if searcher.calls != 0 {
		t.Fatalf("search must not be called for invalid URLs")
	}
}

func TestResolveFullURLByPattern(t *testing.T) {
	t.Parallel()

	searcher := &stubSearcher{}
	r := NewResolver(searcher, nil, httpx.RetryConfig{}, zaptest.NewLogger(t))

	url := "https://www.google.com/maps/place/X/data=!1sChIJtest123!3m1"
	id, err := r.Resolve(context.Background(), url)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "ChIJtest123" {
		t.Fatalf("id = %q", id)
	}
	if searcher.calls != 0 {
		t.Fatalf("search must not be called when a pattern matches")
	}
}

func TestResolveShortURLExpansion(t *testing.T) {
	t.Parallel()

	// The redirect target carries an extractable data segment. The resolver
	// follows the redirect and matches against the final URL.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/short123" {
			http.Redirect(w, r, "/maps/place/X/data=!1sChIJexpanded!3m1", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Rewrite the short-link host to the test server while keeping the
	// accepted URL shape for validation.
	searcher := &stubSearcher{}
	rewrite := &http.Client{
		Transport: rewriteTransport{host: srv.Listener.Addr().String()},
	}
	r := NewResolver(searcher, rewrite, httpx.RetryConfig{}, zaptest.NewLogger(t))

	id, err := r.Resolve(context.Background(), "https://maps.app.goo.gl/short123")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "ChIJexpanded" {
		t.Fatalf("id = %q", id)
	}
	if searcher.calls != 0 {
		t.Fatalf("search must not be called when expansion yields a pattern match")
	}
}

func TestResolveFallbackSearch(t *testing.T) {
	t.Parallel()

	searcher := &stubSearcher{id: "place-789"}
	r := NewResolver(searcher, nil, httpx.RetryConfig{}, zaptest.NewLogger(t))

	url := "https://www.google.com/maps/place/Som+Tam+House/@13.75,100.49,17z"
	id, err := r.Resolve(context.Background(), url)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "place-789" {
		t.Fatalf("id = %q", id)
	}

	if searcher.calls != 1 {
		t.Fatalf("expected one search call, got %d", searcher.calls)
	}
	if searcher.gotText != "Som Tam House" {
		t.Fatalf("query = %q", searcher.gotText)
	}
	if searcher.gotBias == nil || searcher.gotBias.Latitude != 13.75 || searcher.gotBias.Longitude != 100.49 {
		t.Fatalf("bias = %#v", searcher.gotBias)
	}
}

func TestResolveFallbackSearchNotFound(t *testing.T) {
	t.Parallel()

	searcher := &stubSearcher{err: apperrs.ErrNotFound}
	r := NewResolver(searcher, nil, httpx.RetryConfig{}, zaptest.NewLogger(t))

	url := "https://www.google.com/maps/place/Nowhere/@0.0,0.0,17z"
	_, err := r.Resolve(context.Background(), url)
	if !errors.Is(err, apperrs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParsePlaceName(t *testing.T) {
	t.Parallel()

	if got := parsePlaceName("https://www.google.com/maps/place/Thai+Orchid%26Co/@1,2,3z"); got != "Thai Orchid&Co" {
		t.Fatalf("got %q", got)
	}
	if got := parsePlaceName("https://www.google.com/maps/@1,2,3z"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

// rewriteTransport redirects all requests to a fixed host over plain HTTP.
type rewriteTransport struct {
	host string
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = "http"
	clone.URL.Host = t.host
	return http.DefaultTransport.RoundTrip(clone)
}
