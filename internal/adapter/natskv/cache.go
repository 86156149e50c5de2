// Package natskv backs the cache port with a NATS JetStream key-value
// bucket, giving every API instance a shared view of resolved identities.
package natskv

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Cache reads and writes a single JetStream KV bucket. Expiry is a
// property of the bucket (configured at creation), so per-entry TTLs
// passed through the port are not applied here.
type Cache struct {
	bucket jetstream.KeyValue
}

// New wraps an existing KV bucket handle.
func New(bucket jetstream.KeyValue) *Cache {
	return &Cache{bucket: bucket}
}

// Get looks up key in the bucket. A missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := c.bucket.Get(ctx, key)
	switch {
	case err == nil:
		return entry.Value(), true, nil
	case errors.Is(err, jetstream.ErrKeyNotFound):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// Set puts value under key. The TTL argument is ignored; the bucket's
// max-age governs expiry for every entry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	_, err := c.bucket.Put(ctx, key, value)
	return err
}

// Delete removes key. Deleting a key that was never set succeeds.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.bucket.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return err
	}
	return nil
}
