package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const purgeBatchSize = 100

// RedisCache stores JSON-encoded values under a key prefix so that several
// replicas share one report cache.
type RedisCache[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache[T any](client *redis.Client, prefix string, ttl time.Duration) *RedisCache[T] {
	return &RedisCache[T]{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache[T]) key(k string) string {
	return c.prefix + k
}

func (c *RedisCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var out T
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "Redis cache get failed", "key", c.key(key), "error", err)
		}
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		slog.WarnContext(ctx, "Discarding undecodable cache entry", "key", c.key(key), "error", err)
		c.Delete(ctx, key)
		var zero T
		return zero, false
	}
	return out, true
}

func (c *RedisCache[T]) Set(ctx context.Context, key string, data T) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.WarnContext(ctx, "Redis cache encode failed", "key", c.key(key), "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache set failed", "key", c.key(key), "error", err)
	}
}

func (c *RedisCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache delete failed", "key", c.key(key), "error", err)
	}
}

// Purge deletes every key under the cache prefix.
func (c *RedisCache[T]) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", purgeBatchSize).Iterator()

	batch := make([]string, 0, purgeBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("delete cache keys: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	return flush()
}
