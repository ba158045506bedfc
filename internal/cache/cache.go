package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/babar-raza/tbcv/internal/eventbus"
	"github.com/babar-raza/tbcv/internal/metrics"
	"github.com/babar-raza/tbcv/pkg/contracts"
	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/rs/zerolog/log"
)

// Cache is the two-tier cache described in §4.4: an L1 in-process LRU+TTL
// and a pluggable persistent L2. Reads check L1 first, then L2 (promoting
// hits back into L1); writes go to both tiers.
type Cache struct {
	l1  *L1
	l2  contracts.CacheBackend
	l1TTL time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// New builds a Cache. l2 may be nil, in which case the cache is L1-only.
func New(l1MaxEntries int, l1TTL time.Duration, l2 contracts.CacheBackend) *Cache {
	return &Cache{
		l1:    NewL1(l1MaxEntries),
		l2:    l2,
		l1TTL: l1TTL,
	}
}

// Key builds a cache key from content, a rule identifier, and an optional
// prompt version, hashed together so callers never have to worry about
// delimiter collisions (§4.4 "keyed by content/rule/prompt hash").
func Key(content, ruleID, promptVersion string) string {
	h := sha256.New()
	h.Write([]byte(content))
	h.Write([]byte{0})
	h.Write([]byte(ruleID))
	h.Write([]byte{0})
	h.Write([]byte(promptVersion))
	return hex.EncodeToString(h.Sum(nil))
}

// Get checks L1 then L2, promoting an L2 hit back into L1.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := c.l1.Get(key); ok {
		c.hits.Add(1)
		metrics.CacheHitsTotal.WithLabelValues(string(models.TierL1), "hit").Inc()
		return v, true
	}
	metrics.CacheHitsTotal.WithLabelValues(string(models.TierL1), "miss").Inc()

	if c.l2 != nil {
		v, ok, err := c.l2.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache: L2 get failed")
		} else if ok {
			c.hits.Add(1)
			metrics.CacheHitsTotal.WithLabelValues(string(models.TierL2), "hit").Inc()
			c.l1.Set(key, v, c.l1TTL)
			return v, true
		} else {
			metrics.CacheHitsTotal.WithLabelValues(string(models.TierL2), "miss").Inc()
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set writes to both tiers. ttl of 0 means "use the cache's default L1 TTL
// and no expiry on L2" (L2 entries are pruned by tag invalidation instead).
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) {
	l1ttl := ttl
	if l1ttl == 0 {
		l1ttl = c.l1TTL
	}
	c.l1.Set(key, value, l1ttl, tags...)
	if c.l2 != nil {
		if err := c.l2.Set(ctx, key, value, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache: L2 set failed")
		}
	}
}

// Invalidate removes a single key from both tiers.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	c.l1.Delete(key)
	if c.l2 != nil {
		if err := c.l2.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache: L2 delete failed")
		}
	}
}

// InvalidateTag removes every entry carrying tag, from both tiers. Called
// when the rule loader or truth index reloads (§4.4 "cache is rule/prompt
// version scoped").
func (c *Cache) InvalidateTag(ctx context.Context, tag string) {
	removed := c.l1.DeleteByTag(tag)
	if c.l2 != nil {
		if err := c.l2.DeleteByTag(ctx, tag); err != nil {
			log.Warn().Err(err).Str("tag", tag).Msg("cache: L2 tag invalidation failed")
		}
	}
	log.Info().Str("tag", tag).Int("l1_removed", removed).Msg("cache: tag invalidated")
}

// Clear wipes L1 entirely and resets hit/miss counters. L2 is left alone:
// it holds durable cross-process derived data that repopulates itself on
// the next miss, and contracts.CacheBackend has no bulk-clear primitive.
func (c *Cache) Clear() int {
	n := c.l1.Clear()
	c.hits.Store(0)
	c.misses.Store(0)
	log.Info().Int("l1_removed", n).Msg("cache: cleared")
	return n
}

// CleanupExpired proactively sweeps L1 for TTL-expired entries, for the
// admin cleanup_cache method. L1 also expires lazily on Get; this just
// reclaims memory sooner for keys nobody has read since expiring.
func (c *Cache) CleanupExpired() int {
	return c.l1.CleanupExpired()
}

// Stats reports current hit-rate and size information for get_cache_stats.
func (c *Cache) Stats() models.CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses
	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return models.CacheStats{
		Hits:    hits,
		Misses:  misses,
		HitRate: rate,
		L1Size:  c.l1.Size(),
	}
}

// SubscribeInvalidation subscribes the cache to an event bus topic (the
// rule loader's or truth index's reload topic) so a reload invalidates every cache entry tagged
// with the given tag, instead of every caller having to remember to do it.
func (c *Cache) SubscribeInvalidation(bus *eventbus.Bus, topic, tag string) {
	sub := bus.Subscribe(topic)
	go func() {
		for range sub.Events() {
			c.InvalidateTag(context.Background(), tag)
		}
	}()
}
