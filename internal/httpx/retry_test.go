package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func doGet(t *testing.T, url string, cfg RetryConfig) (*http.Response, error) {
	t.Helper()
	return Do(context.Background(), zaptest.NewLogger(t), cfg, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		return http.DefaultClient.Do(req)
	})
}

func TestDoRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	resp, err := doGet(t, srv.URL, RetryConfig{MaxRetries: 2, BaseBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	resp, err := doGet(t, srv.URL, RetryConfig{MaxRetries: 2, BaseBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := doGet(t, srv.URL, RetryConfig{MaxRetries: 2, BaseBackoff: time.Millisecond})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestDoHonorsRetryAfter(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	start := time.Now()
	resp, err := doGet(t, srv.URL, RetryConfig{MaxRetries: 1, BaseBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("expected to wait for Retry-After, waited %v", elapsed)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, zaptest.NewLogger(t), RetryConfig{}, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		if err != nil {
			return nil, err
		}
		return http.DefaultClient.Do(req)
	})
	if err == nil {
		t.Fatalf("expected context error")
	}
}

func TestShouldRetryStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   bool
	}{
		{0, true},
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		if got := shouldRetryStatus(tt.status); got != tt.want {
			t.Errorf("shouldRetryStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestComputeBackoffBounds(t *testing.T) {
	t.Parallel()

	base := 100 * time.Millisecond
	for attempt := 0; attempt < 15; attempt++ {
		for i := 0; i < 50; i++ {
			got := computeBackoff(base, attempt)
			if got < 0 {
				t.Fatalf("negative backoff: %v", got)
			}
			if got > 60*time.Second {
				t.Fatalf("backoff above cap: %v", got)
			}
		}
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	t.Parallel()

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "30")
	if got := parseRetryAfter(resp); got != 30*time.Second {
		t.Fatalf("got %v", got)
	}

	resp.Header.Set("Retry-After", "999999")
	if got := parseRetryAfter(resp); got != maxRetryAfter {
		t.Fatalf("expected cap, got %v", got)
	}

	resp.Header.Set("Retry-After", "garbage")
	if got := parseRetryAfter(resp); got != 0 {
		t.Fatalf("expected 0 for invalid header, got %v", got)
	}

	if got := parseRetryAfter(nil); got != 0 {
		t.Fatalf("expected 0 for nil response, got %v", got)
	}
}
