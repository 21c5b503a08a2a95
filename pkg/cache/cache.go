// Package cache provides key/value caching for layout solver results.
//
// # Overview
//
// Solving a layout is the only expensive stage of the pipeline and a pure
// function of its request, so whole solver results can be memoized. This
// package defines the storage side of that memo:
//
//   - [Cache]: the storage interface (Get/Set/Delete/Close)
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: a shared Redis instance, for the API server
//   - [NullCache]: stores nothing, for --no-cache and tests
//
// Keys are built by a [Keyer] so that every backend sees the same key layout:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.SolveKey("graphviz", requestHash)
//
// Cached values are opaque bytes; callers own serialization.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values.
const (
	// TTLSolve is how long a memoized solver result is kept.
	TTLSolve = 7 * 24 * time.Hour
)

// Cache stores opaque values by key.
//
// Get returns hit=false with a nil error on a miss; errors are reserved for
// backend failures. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
