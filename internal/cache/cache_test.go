package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/babar-raza/tbcv/internal/cache"
)

func TestCacheSetGetL1Only(t *testing.T) {
	c := cache.New(64, time.Hour, nil)
	ctx := context.Background()

	c.Set(ctx, "k1", []byte("v1"), 0)

	v, ok := c.Get(ctx, "k1")
	if !ok || string(v) != "v1" {
		t.Fatalf("Get(k1) = (%q, %v), want (v1, true)", v, ok)
	}
}

func TestCacheGetMiss(t *testing.T) {
	c := cache.New(64, time.Hour, nil)
	if _, ok := c.Get(context.Background(), "nope"); ok {
		t.Error("Get(nope) = true, want false")
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := cache.New(64, time.Hour, nil)
	ctx := context.Background()
	c.Set(ctx, "k1", []byte("v1"), 0)

	c.Invalidate(ctx, "k1")

	if _, ok := c.Get(ctx, "k1"); ok {
		t.Error("Get(k1) = true after Invalidate, want false")
	}
}

func TestCacheInvalidateTag(t *testing.T) {
	c := cache.New(64, time.Hour, nil)
	ctx := context.Background()
	c.Set(ctx, "k1", []byte("v1"), 0, "rules")
	c.Set(ctx, "k2", []byte("v2"), 0)

	c.InvalidateTag(ctx, "rules")

	if _, ok := c.Get(ctx, "k1"); ok {
		t.Error("Get(k1) = true after tag invalidation, want false")
	}
	if _, ok := c.Get(ctx, "k2"); !ok {
		t.Error("Get(k2) = false, want true — untagged entry should survive")
	}
}

func TestCacheClearResetsStats(t *testing.T) {
	c := cache.New(64, time.Hour, nil)
	ctx := context.Background()
	c.Set(ctx, "k1", []byte("v1"), 0)
	c.Get(ctx, "k1")
	c.Get(ctx, "missing")

	n := c.Clear()
	if n != 1 {
		t.Errorf("Clear() removed %d, want 1", n)
	}

	stats := c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("Stats() after Clear = %+v, want zeroed hit/miss counters", stats)
	}
	if stats.L1Size != 0 {
		t.Errorf("L1Size after Clear = %d, want 0", stats.L1Size)
	}
}

func TestCacheCleanupExpired(t *testing.T) {
	c := cache.New(64, time.Hour, nil)
	ctx := context.Background()
	c.Set(ctx, "k1", []byte("v1"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	n := c.CleanupExpired()
	if n != 1 {
		t.Errorf("CleanupExpired() removed %d, want 1", n)
	}
}

func TestCacheStatsHitRate(t *testing.T) {
	c := cache.New(64, time.Hour, nil)
	ctx := context.Background()
	c.Set(ctx, "k1", []byte("v1"), 0)

	c.Get(ctx, "k1")   // hit
	c.Get(ctx, "k1")   // hit
	c.Get(ctx, "miss") // miss

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Fatalf("Stats() = %+v, want Hits=2 Misses=1", stats)
	}
	wantRate := 2.0 / 3.0
	if stats.HitRate != wantRate {
		t.Errorf("HitRate = %v, want %v", stats.HitRate, wantRate)
	}
}

func TestKeyIsDeterministicAndDistinguishesInputs(t *testing.T) {
	k1 := cache.Key("content", "rule1", "v1")
	k2 := cache.Key("content", "rule1", "v1")
	if k1 != k2 {
		t.Error("Key() is not deterministic for identical inputs")
	}

	k3 := cache.Key("content", "rule2", "v1")
	if k1 == k3 {
		t.Error("Key() collided for different rule ids")
	}
}
