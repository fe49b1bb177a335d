package cache

import (
	"context"
	"errors"
	"time"
)

// Layered puts a fast cache in front of a slower one. Reads try the front
// first and copy back-layer hits forward; writes and deletes go to both.
type Layered struct {
	front Cache
	back  Cache
	ttl   time.Duration
}

// NewLayered creates a layered cache. Entries promoted from back to front
// live for promoteTTL in the front layer; a value <= 0 means no expiry.
func NewLayered(front, back Cache, promoteTTL time.Duration) *Layered {
	return &Layered{front: front, back: back, ttl: promoteTTL}
}

// Get returns the front entry or, failing that, the back entry.
func (c *Layered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, ok, err := c.front.Get(ctx, key); err == nil && ok {
		return data, true, nil
	}
	data, ok, err := c.back.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = c.front.Set(ctx, key, data, c.ttl)
	return data, true, nil
}

// Set writes to both layers.
func (c *Layered) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return errors.Join(c.front.Set(ctx, key, data, ttl), c.back.Set(ctx, key, data, ttl))
}

// Delete removes key from both layers.
func (c *Layered) Delete(ctx context.Context, key string) error {
	return errors.Join(c.front.Delete(ctx, key), c.back.Delete(ctx, key))
}

// Close closes both layers.
func (c *Layered) Close() error {
	return errors.Join(c.front.Close(), c.back.Close())
}

var _ Cache = (*Layered)(nil)
