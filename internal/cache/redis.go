package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisCache stores JSON-encoded values under a namespace with a fixed TTL.
type RedisCache[T any] struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	stats     counters
}

var (
	_ Cache[int]    = (*RedisCache[int])(nil)
	_ StatsReporter = (*RedisCache[int])(nil)
)

// NewRedisClient dials addr and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func NewRedisCache[T any](client *redis.Client, namespace string, ttl time.Duration) *RedisCache[T] {
	return &RedisCache[T]{client: client, namespace: namespace, ttl: ttl}
}

func (c *RedisCache[T]) key(k string) string {
	return c.namespace + ":" + k
}

func (c *RedisCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.stats.miss()
		return zero, false
	}
	if err != nil {
		c.stats.miss()
		slog.WarnContext(ctx, "Redis cache read failed", "key", key, "error", err)
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.WarnContext(ctx, "Redis cache entry undecodable, dropping", "key", key, "error", err)
		c.Delete(ctx, key)
		c.stats.miss()
		return zero, false
	}
	c.stats.hit()
	return v, true
}

func (c *RedisCache[T]) Set(ctx context.Context, key string, data T) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.WarnContext(ctx, "Redis cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache write failed", "key", key, "error", err)
	}
}

func (c *RedisCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache delete failed", "key", key, "error", err)
	}
}

func (c *RedisCache[T]) DeletePrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, c.key(prefix)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache scan failed", "prefix", prefix, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache prefix delete failed", "prefix", prefix, "error", err)
	}
}

// Stats counts reads made through this client. Evictions are done by Redis
// and are not reported.
func (c *RedisCache[T]) Stats() Stats {
	return c.stats.snapshot()
}
