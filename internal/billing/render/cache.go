package render

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/sha3"
)

// Cache keeps rendered PDF bytes in Redis keyed by document fingerprint.
// It is purely an optimisation: a miss or a Redis failure falls back to a
// fresh render, which is deterministic from stored bill fields.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a render cache with the given TTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// CacheKey derives the Redis key for a document fingerprint.
func CacheKey(fingerprint string) string {
	sum := sha3.Sum256([]byte(fingerprint))
	return "scrapledger:render:" + hex.EncodeToString(sum[:])
}

// Get returns cached PDF bytes, if present.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores PDF bytes best-effort; errors are ignored.
func (c *Cache) Set(ctx context.Context, key string, pdf []byte) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, key, pdf, c.ttl).Err()
}
