package history_test

import (
	"context"
	"testing"
	"time"

	"github.com/babar-raza/tbcv/internal/history"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/pkg/models"
)

func seedRecord(t *testing.T, st *store.MemoryStore, id, filePath string, appliedAt time.Time, rolledBack bool) {
	t.Helper()
	rec := &models.EnhancementRecord{
		ID:         id,
		FilePath:   filePath,
		AppliedAt:  appliedAt,
		RolledBack: rolledBack,
	}
	if err := st.CreateEnhancementRecord(context.Background(), rec); err != nil {
		t.Fatalf("CreateEnhancementRecord() error = %v", err)
	}
}

func TestForFileReturnsMostRecentFirst(t *testing.T) {
	st := store.NewMemoryStore("")
	now := time.Now()
	seedRecord(t, st, "rec-old", "docs/a.md", now.Add(-time.Hour), false)
	seedRecord(t, st, "rec-new", "docs/a.md", now, false)

	r := history.NewReader(st)
	recs, err := r.ForFile(context.Background(), "docs/a.md", 0)
	if err != nil {
		t.Fatalf("ForFile() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("ForFile() returned %d records, want 2", len(recs))
	}
	if recs[0].ID != "rec-new" {
		t.Errorf("recs[0].ID = %q, want rec-new (most recent first)", recs[0].ID)
	}
}

func TestLatestRollbackableSkipsRolledBackRecords(t *testing.T) {
	st := store.NewMemoryStore("")
	now := time.Now()
	seedRecord(t, st, "rec-rolled-back", "docs/a.md", now, true)
	seedRecord(t, st, "rec-live", "docs/a.md", now.Add(-time.Minute), false)

	r := history.NewReader(st)
	rec, err := r.LatestRollbackable(context.Background(), "docs/a.md")
	if err != nil {
		t.Fatalf("LatestRollbackable() error = %v", err)
	}
	if rec == nil {
		t.Fatal("LatestRollbackable() = nil, want rec-live")
	}
	if rec.ID != "rec-live" {
		t.Errorf("rec.ID = %q, want rec-live", rec.ID)
	}
}

func TestLatestRollbackableReturnsNilWhenAllRolledBack(t *testing.T) {
	st := store.NewMemoryStore("")
	seedRecord(t, st, "rec-1", "docs/b.md", time.Now(), true)

	r := history.NewReader(st)
	rec, err := r.LatestRollbackable(context.Background(), "docs/b.md")
	if err != nil {
		t.Fatalf("LatestRollbackable() error = %v", err)
	}
	if rec != nil {
		t.Errorf("LatestRollbackable() = %+v, want nil", rec)
	}
}
