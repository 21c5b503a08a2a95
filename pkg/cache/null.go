package cache

import (
	"context"
	"time"
)

// NullCache is a cache that never stores anything.
// Every Get is a miss; writes and deletes succeed without effect.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache {
	return NullCache{}
}

// Get always reports a miss.
func (NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set discards the value.
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete has nothing to remove.
func (NullCache) Delete(context.Context, string) error { return nil }

// Close has nothing to release.
func (NullCache) Close() error { return nil }

var _ Cache = NullCache{}
