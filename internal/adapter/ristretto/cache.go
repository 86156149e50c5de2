// Package ristretto keeps hot identity entries in process memory using
// dgraph-io/ristretto, so repeated lookups for the same principal skip
// the network entirely.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Identity entries are small (a few hundred bytes of JSON), so sizing the
// admission counters off an assumed average entry size keeps the frequency
// sketch roomy without a separate knob.
const (
	assumedEntryBytes = 256
	writeBufferItems  = 64
)

// Cache adapts a ristretto instance to the cache port. Cost accounting
// uses the serialized entry size in bytes.
type Cache struct {
	store *ristretto.Cache[string, []byte]
}

// New builds a cache bounded to maxBytes of stored values.
func New(maxBytes int64) (*Cache, error) {
	counters := maxBytes / assumedEntryBytes * 10
	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: counters,
		MaxCost:     maxBytes,
		BufferItems: writeBufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{store: store}, nil
}

// Get returns the cached bytes for key, if present.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.store.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores value under key for at most ttl. Ristretto admission may
// reject the write; that is fine for a cache, so no error is surfaced.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.store.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Delete evicts key if present.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.store.Del(key)
	return nil
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.store.Close()
}
