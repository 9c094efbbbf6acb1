package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"faqdesk/backend/pkg/logger"
	"faqdesk/backend/pkg/resilience"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisOptions configures a RedisCache
type RedisOptions struct {
	Addr       string
	Password   string
	DB         int
	KeyPrefix  string
	DefaultTTL time.Duration
}

// RedisCache keeps entries in redis behind a circuit breaker, so an
// unreachable server degrades to cache misses.
type RedisCache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
	breaker    *resilience.CircuitBreaker
	log        *logger.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewRedis connects a redis-backed cache
func NewRedis(opts RedisOptions, log *logger.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return newRedisWithClient(client, opts, log)
}

func newRedisWithClient(client *redis.Client, opts RedisOptions, log *logger.Logger) *RedisCache {
	if log == nil {
		log = logger.GetGlobal()
	}
	prefix := opts.KeyPrefix
	if prefix != "" {
		prefix += ":"
	}
	return &RedisCache{
		client:     client,
		prefix:     prefix,
		defaultTTL: opts.DefaultTTL,
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("redis-cache"), log),
		log:        log,
	}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	var value []byte
	err := c.breaker.Execute(func() error {
		b, err := c.client.Get(ctx, c.key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		value = b
		return nil
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.log.Warn("Cache get failed", "key", key, "error", err)
	}
	if value == nil {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	err := c.breaker.Execute(func() error {
		return c.client.Set(ctx, c.key(key), value, ttl).Err()
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.log.Warn("Cache set failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, prefix string) int {
	var removed int
	err := c.breaker.Execute(func() error {
		keys, err := c.scan(ctx, c.key(prefix)+"*")
		if err != nil {
			return err
		}
		for start := 0; start < len(keys); start += scanBatch {
			end := start + scanBatch
			if end > len(keys) {
				end = len(keys)
			}
			n, err := c.client.Del(ctx, keys[start:end]...).Result()
			if err != nil {
				return err
			}
			removed += int(n)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("Cache invalidation failed", "prefix", prefix, "error", err)
	}
	return removed
}

func (c *RedisCache) Stats(ctx context.Context) Stats {
	s := Stats{
		Backend: "redis",
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
	_ = c.breaker.Execute(func() error {
		keys, err := c.scan(ctx, c.prefix+"*")
		if err != nil {
			return err
		}
		s.TotalKeys = len(keys)
		s.ValidKeys = len(keys)
		return nil
	})
	return s
}

// Ping checks the redis connection, for health checks.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) scan(ctx context.Context, match string) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, match, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}
