package places

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"platepick/internal/apperrs"
)

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, zaptest.NewLogger(t))
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}
}

func TestDetailsSuccess(t *testing.T) {
	t.Parallel()

	var gotKey, gotMask string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/places/place-123" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		gotKey = r.Header.Get("X-Goog-Api-Key")
		gotMask = r.Header.Get("X-Goog-FieldMask")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "place-123",
			"displayName": {"text": "Thai Orchid"},
			"formattedAddress": "1 Main St",
			"rating": 4.6,
			"reviews": [
				{
					"text": {"text": "The pad thai is incredible"},
					"rating": 5,
					"relativePublishTimeDescription": "a month ago",
					"authorAttribution": {"displayName": "Alex"}
				}
			]
		}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	details, err := client.Details(context.Background(), "place-123")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}

	if gotKey != "test-key" {
		t.Fatalf("unexpected api key header: %s", gotKey)
	}
	if gotMask != detailsFieldMask {
		t.Fatalf("unexpected field mask: %s", gotMask)
	}

	if details.PlaceID != "place-123" || details.Name != "Thai Orchid" {
		t.Fatalf("unexpected details: %#v", details)
	}
	if details.Rating != 4.6 || details.Address != "1 Main St" {
		t.Fatalf("unexpected details: %#v", details)
	}
	if len(details.Reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(details.Reviews))
	}
	rv := details.Reviews[0]
	if rv.Text != "The pad thai is incredible" || rv.Rating != 5 || rv.AuthorName != "Alex" {
		t.Fatalf("review not normalized: %#v", rv)
	}
	if details.LastFetched.IsZero() {
		t.Fatalf("LastFetched not set")
	}
}

func TestDetailsProviderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"code":404,"message":"Place not found","status":"NOT_FOUND"}}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "key"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Details(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	var upstream *apperrs.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if upstream.Status != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", upstream.Status)
	}
	if upstream.Message != "Place not found" {
		t.Fatalf("provider message not surfaced: %q", upstream.Message)
	}
}

func TestSearchTextFound(t *testing.T) {
	t.Parallel()

	var gotReq searchTextRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/places:searchText" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"places":[{"id":"place-456","displayName":{"text":"Som Tam House"}}]}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "key"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	bias := &LatLng{Latitude: 13.75, Longitude: 100.49}
	id, err := client.SearchText(context.Background(), "Som Tam House", bias)
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	if id != "place-456" {
		t.Fatalf("expected place-456, got %s", id)
	}

	if gotReq.TextQuery != "Som Tam House" {
		t.Fatalf("unexpected query: %q", gotReq.TextQuery)
	}
	if gotReq.MaxResultCount != 1 {
		t.Fatalf("expected maxResultCount 1, got %d", gotReq.MaxResultCount)
	}
	if gotReq.LocationBias == nil {
		t.Fatalf("expected location bias to be forwarded")
	}
	if gotReq.LocationBias.Circle.Center.Latitude != 13.75 {
		t.Fatalf("unexpected bias center: %#v", gotReq.LocationBias.Circle.Center)
	}
	if gotReq.LocationBias.Circle.Radius != searchBiasRadiusMeters {
		t.Fatalf("unexpected bias radius: %v", gotReq.LocationBias.Circle.Radius)
	}
}

func TestSearchTextNoResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "key"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.SearchText(context.Background(), "nowhere", nil)
	if !errors.Is(err, apperrs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
