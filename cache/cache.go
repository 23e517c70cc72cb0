// Package cache wraps Redis with a read-through JSON cache for the dashboard
// and statistics read models. Keys are scoped by owner (user:{id}:..., or
// project:{id}:...) so write paths can evict everything a write may have
// staled with a single prefix purge.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache is a thin read-through layer over a Redis client. A nil client
// disables caching: Remember always calls fill and eviction is a no-op.
type Cache struct {
	client *redis.Client
}

// New returns a Cache backed by client. client may be nil.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Enabled reports whether a Redis backend is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Remember loads key into dest, calling fill and storing its result with the
// given TTL on a miss. A Redis read failure falls through to fill rather than
// failing the request.
func (c *Cache) Remember(ctx context.Context, key string, ttl time.Duration, dest interface{}, fill func() (interface{}, error)) error {
	if c.Enabled() {
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
				return nil
			}
			// Corrupt entry. Drop it and refill.
			c.client.Del(ctx, key)
		}
	}

	value, err := fill()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.Enabled() {
		c.client.Set(ctx, key, raw, ttl)
	}
	return json.Unmarshal(raw, dest)
}

// Forget drops a single key.
func (c *Cache) Forget(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	c.client.Del(ctx, keys...)
}

// ForgetPrefix drops every key under the given prefix using SCAN, so eviction
// does not need to enumerate the exact keys a read path may have created.
func (c *Cache) ForgetPrefix(ctx context.Context, prefix string) error {
	if !c.Enabled() {
		return nil
	}

	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}
