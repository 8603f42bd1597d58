package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"platepick/internal/cache"
	"platepick/internal/model"
)

func statusServer(t *testing.T, h *Handler) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/v1/analysis-status/{placeID}", h.AnalysisStatus)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// readEvents consumes SSE data lines until the stream closes.
func readEvents(t *testing.T, resp *http.Response) []statusEvent {
	t.Helper()

	var events []statusEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev statusEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("decode event %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestAnalysisStatusCompleteImmediately(t *testing.T) {
	h, typed, _, _, _ := newAnalyzeFixture(t)
	h.StatusPollInterval = 5 * time.Millisecond
	h.StatusMaxWait = time.Second

	if err := typed.SetAnalysis(context.Background(), "place-1", &model.Analysis{Dishes: testDishes()}); err != nil {
		t.Fatalf("seed analysis: %v", err)
	}

	srv := statusServer(t, h)
	resp, err := http.Get(srv.URL + "/v1/analysis-status/place-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %s", ct)
	}

	events := readEvents(t, resp)
	if len(events) != 1 || events[0].Status != "complete" {
		t.Fatalf("unexpected events: %#v", events)
	}
	if len(events[0].Dishes) != 1 || events[0].Dishes[0].Name != "Pad Thai" {
		t.Fatalf("unexpected dishes: %#v", events[0].Dishes)
	}
}

func TestAnalysisStatusPollsUntilComplete(t *testing.T) {
	h, typed, _, _, _ := newAnalyzeFixture(t)
	h.StatusPollInterval = 5 * time.Millisecond
	h.StatusMaxWait = time.Second

	// Seed the analysis after the stream has started polling.
	go func() {
		time.Sleep(25 * time.Millisecond)
		_ = typed.SetAnalysis(context.Background(), "place-1", &model.Analysis{Dishes: testDishes()})
	}()

	srv := statusServer(t, h)
	resp, err := http.Get(srv.URL + "/v1/analysis-status/place-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	events := readEvents(t, resp)
	if len(events) < 2 {
		t.Fatalf("expected analyzing heartbeats before completion: %#v", events)
	}
	for _, ev := range events[:len(events)-1] {
		if ev.Status != "analyzing" {
			t.Fatalf("unexpected intermediate event: %#v", ev)
		}
	}
	if last := events[len(events)-1]; last.Status != "complete" {
		t.Fatalf("expected completion, got %#v", last)
	}
}

func TestAnalysisStatusTimesOut(t *testing.T) {
	h, _, _, _, _ := newAnalyzeFixture(t)
	h.StatusPollInterval = 5 * time.Millisecond
	h.StatusMaxWait = 30 * time.Millisecond

	srv := statusServer(t, h)
	resp, err := http.Get(srv.URL + "/v1/analysis-status/never-analyzed")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	events := readEvents(t, resp)
	if len(events) == 0 {
		t.Fatalf("expected events before timeout")
	}
	if last := events[len(events)-1]; last.Status != "error" {
		t.Fatalf("expected error after max wait, got %#v", last)
	}
}

func TestAnalysisStatusCacheOutage(t *testing.T) {
	typed := cache.NewTypedCache(brokenStore{}, time.Hour, time.Hour, 5)
	h := New(typed, &mockResolver{}, &mockFetcher{}, &mockAnalyzer{}, false)
	h.StatusPollInterval = 5 * time.Millisecond
	h.StatusMaxWait = time.Second

	srv := statusServer(t, h)
	resp, err := http.Get(srv.URL + "/v1/analysis-status/place-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	events := readEvents(t, resp)
	if len(events) != 1 || events[0].Status != "error" {
		t.Fatalf("expected a single error event, got %#v", events)
	}
}
