package cache

import (
	"context"
	"time"
)

// Store is the byte-level key-value cache underneath the typed layer.
// Implemented by the memory store (dev, tests) and the redis store (prod).
// Operations are atomic at the single-key level only.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
