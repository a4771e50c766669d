// Package cache defines the short-term memoization contract for computed
// rate responses.
package cache

import (
	"context"
	"time"
)

// RateCache stores serialized rate payloads under deterministic keys with
// a per-key expiry. It is a pure performance optimization: a miss and a
// backend failure look the same to callers, which fall through to the
// store or the network.
type RateCache interface {
	// Get returns the cached payload, or (nil, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
