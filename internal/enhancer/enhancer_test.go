package enhancer_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/babar-raza/tbcv/internal/accessguard"
	"github.com/babar-raza/tbcv/internal/enhancer"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/pkg/models"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func rpcCtx() context.Context {
	return accessguard.WithRPCContext(context.Background(), "enhance")
}

func writeFixture(t *testing.T, content string) (string, *models.Validation) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	v := &models.Validation{
		ID:              "val-1",
		FilePath:        path,
		Family:          models.FamilyWords,
		Status:          models.ValidationApproved,
		OriginalContent: content,
	}
	return path, v
}

func TestPreviewAppliesApprovedRecommendationWithoutTouchingDisk(t *testing.T) {
	path, v := writeFixture(t, "line one\nline two\nline three\n")
	st := store.NewMemoryStore("")
	e := enhancer.New(st, nil)

	recs := []models.Recommendation{
		{ID: "rec-1", Type: models.RecTone, Status: models.RecApproved,
			TargetLocation: models.TargetLocation{Line: 2}, SuggestedChange: "line two rewritten"},
	}

	preview, err := e.Preview(rpcCtx(), v, recs, models.DefaultPreservationRules())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if preview.Enhanced == v.OriginalContent {
		t.Error("Preview() did not change the content")
	}
	onDisk, _ := os.ReadFile(path)
	if string(onDisk) != v.OriginalContent {
		t.Error("Preview() must not write to disk")
	}
}

func TestApplyWritesFileAndCreatesRecord(t *testing.T) {
	path, v := writeFixture(t, "# Title\n\nsome body text here that is long enough\n")
	st := store.NewMemoryStore("")
	if err := st.CreateValidation(context.Background(), v); err != nil {
		t.Fatalf("CreateValidation() error = %v", err)
	}
	e := enhancer.New(st, nil)

	recs := []models.Recommendation{
		{ID: "rec-1", Type: models.RecTone, Status: models.RecApproved,
			TargetLocation: models.TargetLocation{Line: 3}, SuggestedChange: "some body text here that is long enough, rewritten"},
	}

	record, err := e.Apply(rpcCtx(), v, recs, models.PreservationRules{}, true)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if record.PendingCommit {
		t.Error("PendingCommit = true after a successful Apply()")
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read applied file: %v", err)
	}
	if string(onDisk) == v.OriginalContent {
		t.Error("Apply() did not write the enhanced content to disk")
	}
}

func TestApplyRefusedBySafetyGateWithoutOverride(t *testing.T) {
	_, v := writeFixture(t, "# Title\n\nKeepThisKeyword appears here\n")
	v.OriginalContent = "# Title\n\nKeepThisKeyword appears here\n"
	st := store.NewMemoryStore("")
	if err := st.CreateValidation(context.Background(), v); err != nil {
		t.Fatalf("CreateValidation() error = %v", err)
	}
	e := enhancer.New(st, nil)

	rules := models.PreservationRules{Keywords: []string{"KeepThisKeyword"}}
	recs := []models.Recommendation{
		{ID: "rec-1", Type: models.RecStructural, Status: models.RecApproved,
			TargetLocation: models.TargetLocation{Line: 3}, SuggestedChange: "replacement with no keyword at all"},
	}

	_, err := e.Apply(rpcCtx(), v, recs, rules, false)
	if err != enhancer.ErrSafetyGate {
		t.Fatalf("Apply() error = %v, want ErrSafetyGate", err)
	}
}

func TestApplyThenRollbackRestoresOriginalBytes(t *testing.T) {
	path, v := writeFixture(t, "# Title\n\nsome body text here that is long enough\n")
	st := store.NewMemoryStore("")
	if err := st.CreateValidation(context.Background(), v); err != nil {
		t.Fatalf("CreateValidation() error = %v", err)
	}
	e := enhancer.New(st, nil)

	recs := []models.Recommendation{
		{ID: "rec-1", Type: models.RecTone, Status: models.RecApproved,
			TargetLocation: models.TargetLocation{Line: 3}, SuggestedChange: "replacement text entirely"},
	}
	record, err := e.Apply(rpcCtx(), v, recs, models.PreservationRules{}, true)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if err := e.Rollback(rpcCtx(), record.ID); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file after rollback: %v", err)
	}
	if string(onDisk) != "# Title\n\nsome body text here that is long enough\n" {
		t.Errorf("file content after rollback = %q, want original content restored", string(onDisk))
	}
}

func TestRollbackIsIdempotent(t *testing.T) {
	_, v := writeFixture(t, "# Title\n\nsome body text here that is long enough\n")
	st := store.NewMemoryStore("")
	if err := st.CreateValidation(context.Background(), v); err != nil {
		t.Fatalf("CreateValidation() error = %v", err)
	}
	e := enhancer.New(st, nil)

	recs := []models.Recommendation{
		{ID: "rec-1", Type: models.RecTone, Status: models.RecApproved,
			TargetLocation: models.TargetLocation{Line: 3}, SuggestedChange: "replacement text entirely"},
	}
	record, err := e.Apply(rpcCtx(), v, recs, models.PreservationRules{}, true)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if err := e.Rollback(rpcCtx(), record.ID); err != nil {
		t.Fatalf("first Rollback() error = %v", err)
	}
	if err := e.Rollback(rpcCtx(), record.ID); err != nil {
		t.Errorf("second Rollback() error = %v, want nil (idempotent)", err)
	}
}

func TestRollbackUnknownRecordReturnsNotFound(t *testing.T) {
	st := store.NewMemoryStore("")
	e := enhancer.New(st, nil)

	err := e.Rollback(rpcCtx(), "nonexistent")
	if _, ok := err.(*store.ErrNotFound); !ok {
		t.Errorf("err = %v (%T), want *store.ErrNotFound", err, err)
	}
}

func TestRecoverPendingFinalisesWhenFileMatchesEnhancedHash(t *testing.T) {
	st := store.NewMemoryStore("")
	e := enhancer.New(st, nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	enhancedContent := "enhanced content"
	if err := os.WriteFile(path, []byte(enhancedContent), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	record := &models.EnhancementRecord{
		ID:            "rec-1",
		FilePath:      path,
		EnhancedHash:  sha256Hex(enhancedContent),
		PendingCommit: true,
	}
	if err := st.CreateEnhancementRecord(context.Background(), record); err != nil {
		t.Fatalf("CreateEnhancementRecord() error = %v", err)
	}

	if err := e.RecoverPending(context.Background()); err != nil {
		t.Fatalf("RecoverPending() error = %v", err)
	}

	got, err := st.GetEnhancementRecord(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("GetEnhancementRecord() error = %v", err)
	}
	if got.PendingCommit {
		t.Error("PendingCommit = true after RecoverPending() finalised a matching record")
	}
}
