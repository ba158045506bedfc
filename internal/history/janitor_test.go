package history

import (
	"context"
	"testing"
	"time"

	"github.com/babar-raza/tbcv/internal/eventbus"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/pkg/models"
)

func TestRunCycleReportsNewlyExpiredRecordsOnce(t *testing.T) {
	st := store.NewMemoryStore("")
	rec := &models.EnhancementRecord{
		ID:                "rec-1",
		FilePath:          "docs/a.md",
		RollbackExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := st.CreateEnhancementRecord(context.Background(), rec); err != nil {
		t.Fatalf("CreateEnhancementRecord() error = %v", err)
	}

	bus := eventbus.New(4)
	sub := bus.Subscribe(TopicRollbackExpired)
	j := NewJanitor(st, bus, time.Hour)

	stats := j.runCycle(context.Background())
	if stats.Scanned != 1 || stats.Expired != 1 {
		t.Errorf("stats = %+v, want Scanned=1 Expired=1", stats)
	}

	select {
	case <-sub.Events():
	default:
		t.Error("expected a rollback_expired event to be published")
	}

	// A second cycle must not re-report the same record.
	stats2 := j.runCycle(context.Background())
	if stats2.Expired != 0 {
		t.Errorf("second cycle Expired = %d, want 0 (already seen)", stats2.Expired)
	}
}

func TestExpiredSinceIsSynchronousAndDoesNotMarkSeen(t *testing.T) {
	st := store.NewMemoryStore("")
	rec := &models.EnhancementRecord{
		ID:                "rec-1",
		FilePath:          "docs/a.md",
		RollbackExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := st.CreateEnhancementRecord(context.Background(), rec); err != nil {
		t.Fatalf("CreateEnhancementRecord() error = %v", err)
	}

	j := NewJanitor(st, nil, time.Hour)
	recs, err := j.ExpiredSince(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ExpiredSince() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("ExpiredSince() returned %d records, want 1", len(recs))
	}

	// runCycle should still report it as newly expired; ExpiredSince must
	// not have marked it seen.
	stats := j.runCycle(context.Background())
	if stats.Expired != 1 {
		t.Errorf("Expired = %d, want 1 (ExpiredSince must not mark records as seen)", stats.Expired)
	}
}
