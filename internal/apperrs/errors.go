// Package apperrs defines the error taxonomy shared by the resolver,
// fetcher, analyzer and handlers. Handlers map these onto HTTP statuses;
// cache failures are logged and treated as misses, never surfaced.
package apperrs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a URL that matches neither accepted maps-URL shape.
	ErrInvalidInput = errors.New("invalid google maps url")

	// ErrNotFound marks an identifier that could not be resolved to a place.
	ErrNotFound = errors.New("no matching place found")

	// ErrNoData marks an analysis attempt with zero reviews to work from.
	ErrNoData = errors.New("no reviews to analyze")
)

// UpstreamError wraps a failed provider or LLM call. Status is the upstream
// HTTP status when one was received, 0 otherwise.
type UpstreamError struct {
	Target  string // "places" | "llm" | "redirect"
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s upstream %d: %s", e.Target, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s upstream: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("%s upstream: %s", e.Target, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ParseError wraps malformed LLM output. Not retried by the analyzer.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse: %s: %v", e.Message, e.Err)
	}
	return "parse: " + e.Message
}

func (e *ParseError) Unwrap() error { return e.Err }

// CacheError wraps a failed cache operation. Soft failure: callers log it
// and carry on as if the key were missing.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }
