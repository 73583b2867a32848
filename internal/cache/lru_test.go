package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](2, time.Minute)

	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	if v, ok := c.Get(ctx, "a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}

	// "b" is now least recently used
	c.Set(ctx, "c", 3)
	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("expected b to be evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", "v")
	c.Set(ctx, "k2", "v2")

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected expired entry to miss")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCacheDeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](10, time.Minute)
	c.Set(ctx, "stats:3", 1)
	c.Set(ctx, "bar:3", 2)
	c.Set(ctx, "pie:3", 3)

	c.Delete(ctx, "bar:3")
	if _, ok := c.Get(ctx, "bar:3"); ok {
		t.Error("expected deleted key to miss")
	}

	if err := c.Purge(ctx); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if c.Size() != 0 {
		t.Errorf("Size() after purge = %d", c.Size())
	}
	c.Set(ctx, "stats:4", 4)
	if v, ok := c.Get(ctx, "stats:4"); !ok || v != 4 {
		t.Error("cache unusable after purge")
	}
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](10, time.Millisecond)
	c.Set(ctx, "a", 1)

	m := NewManager()
	m.Register(c)
	m.Register(Noop[int]{})
	m.StartCleanup(5 * time.Millisecond)
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for c.Size() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expired entry was never cleaned")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Stop()
	m.Stop()
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c Cache[int] = Noop[int]{}
	c.Set(ctx, "a", 1)
	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("Noop cache should never hit")
	}
	if err := c.Purge(ctx); err != nil {
		t.Error(err)
	}
}
