package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/pkg/models"
)

func newTestStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	// Empty dataDir keeps the store purely in-memory, with no background
	// snapshot goroutine touching disk.
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMemoryStoreValidationLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v := &models.Validation{ID: "v1", Family: models.FamilyWords, Status: models.ValidationPending, CreatedAt: time.Now()}
	if err := s.CreateValidation(ctx, v); err != nil {
		t.Fatalf("CreateValidation() error = %v", err)
	}

	got, err := s.GetValidation(ctx, "v1")
	if err != nil {
		t.Fatalf("GetValidation() error = %v", err)
	}
	if got.ID != "v1" {
		t.Errorf("GetValidation().ID = %q, want %q", got.ID, "v1")
	}

	got.Status = models.ValidationApproved
	if err := s.UpdateValidation(ctx, got); err != nil {
		t.Fatalf("UpdateValidation() error = %v", err)
	}
	updated, _ := s.GetValidation(ctx, "v1")
	if updated.Status != models.ValidationApproved {
		t.Errorf("Status after update = %q, want %q", updated.Status, models.ValidationApproved)
	}

	if err := s.DeleteValidation(ctx, "v1"); err != nil {
		t.Fatalf("DeleteValidation() error = %v", err)
	}
	if _, err := s.GetValidation(ctx, "v1"); err == nil {
		t.Error("GetValidation() after delete = nil error, want ErrNotFound")
	}
}

func TestMemoryStoreGetValidationNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetValidation(context.Background(), "missing")
	if err == nil {
		t.Fatal("GetValidation(missing) = nil error, want ErrNotFound")
	}
	if _, ok := err.(*store.ErrNotFound); !ok {
		t.Errorf("error = %v (%T), want *store.ErrNotFound", err, err)
	}
}

func TestMemoryStoreListValidationsFiltersByFamilyAndStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.CreateValidation(ctx, &models.Validation{ID: "v1", Family: models.FamilyWords, Status: models.ValidationPending, CreatedAt: time.Now()})
	s.CreateValidation(ctx, &models.Validation{ID: "v2", Family: models.FamilyPDF, Status: models.ValidationApproved, CreatedAt: time.Now()})

	results, err := s.ListValidations(ctx, store.ValidationFilter{Family: models.FamilyWords})
	if err != nil {
		t.Fatalf("ListValidations() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != "v1" {
		t.Errorf("ListValidations(family=words) = %+v, want only v1", results)
	}
}

func TestMemoryStoreTransitionValidationAppliesFromPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateValidation(ctx, &models.Validation{ID: "v1", Status: models.ValidationPending, CreatedAt: time.Now()})

	got, err := s.TransitionValidation(ctx, "v1", models.ValidationPending, models.ValidationApproved)
	if err != nil {
		t.Fatalf("TransitionValidation() error = %v", err)
	}
	if got.Status != models.ValidationApproved {
		t.Errorf("Status = %q, want approved", got.Status)
	}
}

func TestMemoryStoreTransitionValidationIsIdempotentOnTarget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateValidation(ctx, &models.Validation{ID: "v1", Status: models.ValidationApproved, CreatedAt: time.Now()})

	got, err := s.TransitionValidation(ctx, "v1", models.ValidationPending, models.ValidationApproved)
	if err != nil {
		t.Fatalf("TransitionValidation() error = %v, want nil (already at target)", err)
	}
	if got.Status != models.ValidationApproved {
		t.Errorf("Status = %q, want approved", got.Status)
	}
}

func TestMemoryStoreTransitionValidationRejectsWrongFrom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateValidation(ctx, &models.Validation{ID: "v1", Status: models.ValidationRejected, CreatedAt: time.Now()})

	_, err := s.TransitionValidation(ctx, "v1", models.ValidationPending, models.ValidationApproved)
	if _, ok := err.(*store.ErrInvalidTransition); !ok {
		t.Fatalf("error = %v (%T), want *store.ErrInvalidTransition", err, err)
	}
}

// TestMemoryStoreTransitionValidationIsAtomicUnderConcurrency races an
// approve and a reject against the same pending validation; exactly one
// must win and the other must observe the loser's new status rather than
// the stale "pending" it would see under a non-atomic Get-then-Update.
func TestMemoryStoreTransitionValidationIsAtomicUnderConcurrency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateValidation(ctx, &models.Validation{ID: "v1", Status: models.ValidationPending, CreatedAt: time.Now()})

	results := make(chan error, 2)
	go func() {
		_, err := s.TransitionValidation(ctx, "v1", models.ValidationPending, models.ValidationApproved)
		results <- err
	}()
	go func() {
		_, err := s.TransitionValidation(ctx, "v1", models.ValidationPending, models.ValidationRejected)
		results <- err
	}()

	successes := 0
	for i := 0; i < 2; i++ {
		if err := <-results; err == nil {
			successes++
		} else if _, ok := err.(*store.ErrInvalidTransition); !ok {
			t.Fatalf("unexpected error = %v (%T)", err, err)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
}

func TestMemoryStoreRecommendationLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := []models.Recommendation{
		{ID: "r1", ValidationID: "v1", CreatedAt: time.Now()},
		{ID: "r2", ValidationID: "v1", CreatedAt: time.Now()},
	}
	if err := s.CreateRecommendations(ctx, recs); err != nil {
		t.Fatalf("CreateRecommendations() error = %v", err)
	}

	list, err := s.ListRecommendationsByValidation(ctx, "v1")
	if err != nil {
		t.Fatalf("ListRecommendationsByValidation() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListRecommendationsByValidation() returned %d, want 2", len(list))
	}

	if err := s.DeleteRecommendation(ctx, "r1"); err != nil {
		t.Fatalf("DeleteRecommendation() error = %v", err)
	}
	list, _ = s.ListRecommendationsByValidation(ctx, "v1")
	if len(list) != 1 {
		t.Errorf("ListRecommendationsByValidation() after delete returned %d, want 1", len(list))
	}
}

func TestMemoryStoreTransitionRecommendation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateRecommendations(ctx, []models.Recommendation{{ID: "r1", ValidationID: "v1", Status: models.RecPending, CreatedAt: time.Now()}})

	got, err := s.TransitionRecommendation(ctx, "r1", models.RecPending, models.RecApproved)
	if err != nil {
		t.Fatalf("TransitionRecommendation() error = %v", err)
	}
	if got.Status != models.RecApproved {
		t.Errorf("Status = %q, want approved", got.Status)
	}

	if _, err := s.TransitionRecommendation(ctx, "r1", models.RecPending, models.RecRejected); err == nil {
		t.Fatal("TransitionRecommendation() from the wrong source status = nil error, want *store.ErrInvalidTransition")
	}
}

func TestMemoryStoreWorkflowAndCheckpoints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wf := &models.Workflow{ID: "w1", State: models.WorkflowRunning, CreatedAt: time.Now()}
	if err := s.CreateWorkflow(ctx, wf); err != nil {
		t.Fatalf("CreateWorkflow() error = %v", err)
	}

	if err := s.CreateCheckpoint(ctx, &models.Checkpoint{ID: "c1", WorkflowID: "w1", StepNumber: 1, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateCheckpoint() error = %v", err)
	}
	if err := s.CreateCheckpoint(ctx, &models.Checkpoint{ID: "c2", WorkflowID: "w1", StepNumber: 2, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateCheckpoint() error = %v", err)
	}

	latest, err := s.GetLatestCheckpoint(ctx, "w1")
	if err != nil {
		t.Fatalf("GetLatestCheckpoint() error = %v", err)
	}
	if latest.ID != "c2" {
		t.Errorf("GetLatestCheckpoint().ID = %q, want %q", latest.ID, "c2")
	}

	resumable, err := s.ListResumable(ctx)
	if err != nil {
		t.Fatalf("ListResumable() error = %v", err)
	}
	if len(resumable) != 1 || resumable[0].ID != "w1" {
		t.Errorf("ListResumable() = %+v, want only w1 (non-terminal)", resumable)
	}

	if err := s.DeleteWorkflow(ctx, "w1"); err != nil {
		t.Fatalf("DeleteWorkflow() error = %v", err)
	}
	cps, _ := s.ListCheckpoints(ctx, "w1")
	if len(cps) != 0 {
		t.Errorf("ListCheckpoints() after DeleteWorkflow = %+v, want none (cascade delete)", cps)
	}
}

func TestMemoryStoreListResumableExcludesTerminal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.CreateWorkflow(ctx, &models.Workflow{ID: "w1", State: models.WorkflowCompleted, CreatedAt: time.Now()})
	s.CreateWorkflow(ctx, &models.Workflow{ID: "w2", State: models.WorkflowPaused, CreatedAt: time.Now()})

	resumable, err := s.ListResumable(ctx)
	if err != nil {
		t.Fatalf("ListResumable() error = %v", err)
	}
	if len(resumable) != 1 || resumable[0].ID != "w2" {
		t.Errorf("ListResumable() = %+v, want only w2", resumable)
	}
}

func TestMemoryStoreAuditEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.CreateAuditEvent(ctx, &models.AuditEvent{ID: "a1", Method: "enhance", Result: "ok", Timestamp: time.Now()})
	s.CreateAuditEvent(ctx, &models.AuditEvent{ID: "a2", Method: "rollback_enhancement", Result: "error", Timestamp: time.Now()})

	all, err := s.ListAuditEvents(ctx, store.AuditFilter{})
	if err != nil {
		t.Fatalf("ListAuditEvents() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListAuditEvents() returned %d, want 2", len(all))
	}

	filtered, err := s.ListAuditEvents(ctx, store.AuditFilter{Method: "enhance"})
	if err != nil {
		t.Fatalf("ListAuditEvents(method filter) error = %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "a1" {
		t.Errorf("ListAuditEvents(method=enhance) = %+v, want only a1", filtered)
	}
}

func TestMemoryStorePingAndClose(t *testing.T) {
	s := store.NewMemoryStore("")
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	// Close must be safe to call twice.
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestMemoryStorePersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1 := store.NewMemoryStore(dir)
	s1.CreateValidation(ctx, &models.Validation{ID: "v1", Family: models.FamilyWords, CreatedAt: time.Now()})
	if err := s1.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2 := store.NewMemoryStore(dir)
	defer s2.Close()
	got, err := s2.GetValidation(ctx, "v1")
	if err != nil {
		t.Fatalf("GetValidation() after restart error = %v", err)
	}
	if got.ID != "v1" {
		t.Errorf("GetValidation().ID = %q, want %q", got.ID, "v1")
	}
}
