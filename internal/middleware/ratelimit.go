package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"platepick/pkg/logging/logging"
)

type rateWindow struct {
	count int
	start time.Time
}

// RateLimiter is a fixed-window per-IP request counter. It is an injected
// handle, never a package global, so tests can clock it and multiple
// instances can coexist.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow

	limit  int
	window time.Duration
	now    func() time.Time // injectable clock

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// NewRateLimiter allows limit requests per IP per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows:   make(map[string]*rateWindow),
		limit:     limit,
		window:    window,
		now:       time.Now,
		stopSweep: make(chan struct{}),
	}

	go rl.sweepExpired()

	return rl
}

// Allow records a request for ip and reports whether it fits the current
// window, the remaining budget and, when rejected, the wait until reset.
func (rl *RateLimiter) Allow(ip string) (ok bool, remaining int, retryAfter time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w := rl.windows[ip]
	if w == nil || now.Sub(w.start) > rl.window {
		w = &rateWindow{start: now}
		rl.windows[ip] = w
	}

	if w.count >= rl.limit {
		return false, 0, w.start.Add(rl.window).Sub(now)
	}

	w.count++
	return true, rl.limit - w.count, 0
}

// Handler enforces the limit and sets the X-RateLimit-* headers;
// rejections get a 429 with a Retry-After hint.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		ok, remaining, retryAfter := rl.Allow(ip)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !ok {
			logging.L(r.Context()).Warn("rate limit exceeded",
				zap.String("ip", ip),
				zap.Duration("retry_after", retryAfter),
			)
			seconds := int(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = fmt.Fprint(w, `{"error":"too many requests","status":"error"}`)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sweepExpired drops stale windows so the map does not grow unbounded.
func (rl *RateLimiter) sweepExpired() {
	interval := rl.window
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := rl.now()
			rl.mu.Lock()
			for ip, w := range rl.windows {
				if now.Sub(w.start) > rl.window {
					delete(rl.windows, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopSweep:
			return
		}
	}
}

// Close stops the sweep goroutine. Call on shutdown or in tests.
func (rl *RateLimiter) Close() error {
	rl.sweepOnce.Do(func() {
		close(rl.stopSweep)
	})
	return nil
}

// clientIP strips the port from RemoteAddr; chi's RealIP middleware has
// already substituted forwarded headers when configured.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
