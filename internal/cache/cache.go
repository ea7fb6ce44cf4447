// Package cache provides the time-bounded key/value layer backing registry
// lookups. TTL semantics live here, not in the storage engine: the storage
// timestamp travels inside the entry, and expiry is checked passively on
// read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// KV is the minimal byte store a Cache runs on. Implementations: the
// Postgres lookup_cache table (internal/store) and Memory below.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

type entry struct {
	Value    json.RawMessage `json:"value"`
	StoredAt time.Time       `json:"stored_at"`
}

type Cache struct {
	kv  KV
	ttl time.Duration
	now func() time.Time
}

// New returns a cache over kv with the given time-to-live per key.
func New(kv KV, ttl time.Duration) *Cache {
	return &Cache{kv: kv, ttl: ttl, now: time.Now}
}

// SetNowFunc overrides the clock. Tests only.
func (c *Cache) SetNowFunc(now func() time.Time) {
	c.now = now
}

// Get returns the cached value for key if present and younger than the TTL.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	if c.now().Sub(e.StoredAt) > c.ttl {
		return nil, false, nil
	}
	return e.Value, true, nil
}

// Put stores value under key, stamping it with the current time.
func (c *Cache) Put(ctx context.Context, key string, value json.RawMessage) error {
	raw, err := json.Marshal(entry{Value: value, StoredAt: c.now()})
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.kv.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}
