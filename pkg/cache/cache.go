// Package cache stores resolver results as opaque byte blobs.
//
// Three backends share the [Cache] interface:
//   - [NullCache]: never stores anything (caching disabled)
//   - [MemoryCache]: bounded in-process LRU
//   - [FileCache]: one JSON file per entry under a directory (CLI use)
//
// Keys are built by a [Keyer] so that the same (file, options, file stamp)
// always maps to the same entry.
package cache

import (
	"context"
	"time"
)

// TTLResolve is the default lifetime of a cached include lookup.
const TTLResolve = 7 * 24 * time.Hour

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// NullCache is a no-op cache that never stores anything.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache {
	return &NullCache{}
}

// Get always reports a miss.
func (c *NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set discards data.
func (c *NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete does nothing.
func (c *NullCache) Delete(context.Context, string) error { return nil }

// Close does nothing.
func (c *NullCache) Close() error { return nil }

var _ Cache = (*NullCache)(nil)
