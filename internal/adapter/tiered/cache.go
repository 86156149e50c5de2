// Package tiered layers the in-process cache over the shared NATS KV
// cache. Identity resolution reads through both levels; a hit in the
// shared level is promoted into process memory so the next request on
// this instance stays local.
package tiered

import (
	"context"
	"time"

	"github.com/chronotrack-io/chronotrack/internal/port/cache"
)

// Cache is a read-through pair of cache levels. Writes and deletes go
// to both so instances never serve an entry the registry has retracted.
type Cache struct {
	local      cache.Cache
	shared     cache.Cache
	promoteTTL time.Duration
}

// New layers local over shared. promoteTTL bounds how long a promoted
// entry lives in the local level; the shared level keeps its own expiry.
func New(local, shared cache.Cache, promoteTTL time.Duration) *Cache {
	return &Cache{local: local, shared: shared, promoteTTL: promoteTTL}
}

// Get resolves key, preferring the local level. A shared-level hit is
// written back into the local level before returning.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, err := c.local.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	val, found, err = c.shared.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	// Promotion is best-effort; a full local cache must not fail the read.
	_ = c.local.Set(ctx, key, val, c.promoteTTL)
	return val, true, nil
}

// Set writes key to both levels with the same TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.local.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.shared.Set(ctx, key, value, ttl)
}

// Delete retracts key from both levels.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.local.Delete(ctx, key); err != nil {
		return err
	}
	return c.shared.Delete(ctx, key)
}
