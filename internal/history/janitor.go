// Package history provides read access over the append-only
// EnhancementRecord log and a background Janitor that reports rollback
// points whose window has expired. Unlike the teacher's retention
// package, history never deletes the underlying bytes: an
// EnhancementRecord's RollbackPoint is the only copy of the pre-edit
// content, so the janitor's job is to mark and surface expiry, not to
// purge it.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/babar-raza/tbcv/internal/eventbus"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/rs/zerolog/log"
)

// TopicRollbackExpired is published once per record the first time a
// sweep observes it past RollbackExpiresAt.
const TopicRollbackExpired = "rollback_expired"

// DefaultSweepInterval is how often the janitor scans for expired
// rollback windows when the caller doesn't specify one.
const DefaultSweepInterval = time.Hour

// CycleStats summarizes one sweep.
type CycleStats struct {
	Scanned int
	Expired int
	Errors  []error
}

// Janitor periodically scans for EnhancementRecords whose rollback
// window has passed and publishes a notification for each one newly
// observed. It is the teacher's retention.Janitor adapted: that type
// archived-then-purged traces and audit events on a ticker; this one
// never deletes anything, it only flags expiry so a caller (or an admin
// RPC method) can decide whether to prune the rollback bytes.
type Janitor struct {
	store    store.EnhancementStore
	bus      *eventbus.Bus
	interval time.Duration

	mu     sync.Mutex
	seen   map[string]bool // record IDs already reported expired
}

// NewJanitor creates a history janitor sweeping on the given interval.
func NewJanitor(s store.EnhancementStore, bus *eventbus.Bus, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{
		store:    s,
		bus:      bus,
		interval: interval,
		seen:     make(map[string]bool),
	}
}

// Start runs the janitor in the calling goroutine until ctx is canceled.
// Callers typically invoke this with `go janitor.Start(ctx)`.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().Dur("interval", j.interval).Msg("History janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("History janitor stopped")
			return
		case <-ticker.C:
			j.runCycle(ctx)
		}
	}
}

// runCycle performs one expiry sweep.
func (j *Janitor) runCycle(ctx context.Context) CycleStats {
	start := time.Now()
	stats := CycleStats{}

	expired, err := j.store.ListExpiredRollbacks(ctx, time.Now())
	if err != nil {
		log.Warn().Err(err).Msg("History janitor: failed to list expired rollbacks")
		stats.Errors = append(stats.Errors, err)
		return stats
	}
	stats.Scanned = len(expired)

	j.mu.Lock()
	for _, rec := range expired {
		if j.seen[rec.ID] {
			continue
		}
		j.seen[rec.ID] = true
		stats.Expired++
		if j.bus != nil {
			j.bus.Publish(ctx, TopicRollbackExpired, rec)
		}
	}
	j.mu.Unlock()

	if stats.Expired > 0 {
		log.Info().
			Int("scanned", stats.Scanned).
			Int("newly_expired", stats.Expired).
			Dur("elapsed", time.Since(start)).
			Msg("History janitor cycle complete")
	}
	return stats
}

// ExpiredSince is a synchronous helper for the admin/query RPC surface
// to list expired rollback points on demand, without waiting for the
// background ticker.
func (j *Janitor) ExpiredSince(ctx context.Context, asOf time.Time) ([]models.EnhancementRecord, error) {
	return j.store.ListExpiredRollbacks(ctx, asOf)
}
