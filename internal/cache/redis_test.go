package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

type report struct {
	Range string `json:"range"`
	Count int64  `json:"count"`
}

func TestRedisCacheRoundTrip(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	c := NewRedisCache[[]report](client, "txdash-test:roundtrip:", time.Minute)
	defer c.Purge(ctx)

	want := []report{{Range: "0-100", Count: 8}, {Range: "901-above", Count: 1}}
	c.Set(ctx, "bar:3", want)

	got, ok := c.Get(ctx, "bar:3")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %+v, want %+v", got, want)
	}

	ttl, err := client.TTL(ctx, "txdash-test:roundtrip:bar:3").Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("unexpected ttl %v", ttl)
	}

	c.Delete(ctx, "bar:3")
	if _, ok := c.Get(ctx, "bar:3"); ok {
		t.Error("expected miss after delete")
	}
}

func TestRedisCachePurgeOnlyOwnPrefix(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	mine := NewRedisCache[int](client, "txdash-test:mine:", time.Minute)
	other := NewRedisCache[int](client, "txdash-test:other:", time.Minute)
	defer other.Purge(ctx)

	for i, k := range []string{"stats:1", "stats:2", "pie:1"} {
		mine.Set(ctx, k, i)
	}
	other.Set(ctx, "stats:1", 42)

	if err := mine.Purge(ctx); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, ok := mine.Get(ctx, "stats:1"); ok {
		t.Error("expected purged key to miss")
	}
	if v, ok := other.Get(ctx, "stats:1"); !ok || v != 42 {
		t.Error("purge removed keys outside its prefix")
	}
}

func TestRedisCacheDiscardsUndecodableEntry(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	c := NewRedisCache[int](client, "txdash-test:bad:", time.Minute)
	client.Set(ctx, "txdash-test:bad:k", "not json", time.Minute)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss for undecodable entry")
	}
	if n, _ := client.Exists(ctx, "txdash-test:bad:k").Result(); n != 0 {
		t.Error("undecodable entry should be removed")
	}
}
