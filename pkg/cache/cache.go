// Package cache holds short-lived copies of read-mostly responses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Stats describes cache contents and effectiveness.
type Stats struct {
	Backend     string `json:"backend"`
	TotalKeys   int    `json:"total_keys"`
	ValidKeys   int    `json:"valid_keys"`
	ExpiredKeys int    `json:"expired_keys"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
}

// Cache stores byte values under string keys with a time to live.
// Failures never surface to callers; a broken cache behaves as empty.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value; a zero ttl uses the cache default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Invalidate removes every key starting with prefix and returns how many were removed.
	Invalidate(ctx context.Context, prefix string) int
	Stats(ctx context.Context) Stats
	Close() error
}

// Key builds a cache key in namespace from the given parts.
func Key(namespace string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return namespace + ":" + hex.EncodeToString(sum[:8])
}

// GetJSON decodes the cached value at key into v.
func GetJSON(ctx context.Context, c Cache, key string, v any) bool {
	if c == nil {
		return false
	}
	data, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON stores v encoded as JSON.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, data, ttl)
}
