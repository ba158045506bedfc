// Package enhancer implements the surgical edit engine (§4.5): context
// extraction, per-type edit handlers, conflict resolution, preservation
// validation, safety scoring, and preview/apply/rollback with the
// teacher's atomic-write idiom (temp file + rename, as in
// store/memory.go's snapshot saver) and a pending_commit recovery window
// modeled on the teacher's checkpoint-before-commit shape in
// workflow/engine.go.
package enhancer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/babar-raza/tbcv/internal/accessguard"
	"github.com/babar-raza/tbcv/internal/eventbus"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// TopicEnhancementApplied is published after a successful apply.
	TopicEnhancementApplied = "enhancement_applied"
	// TopicEnhancementRolledBack is published after a successful rollback.
	TopicEnhancementRolledBack = "enhancement_rolled_back"

	defaultContextWindow  = 10
	defaultSafetyGate     = 0.8
	defaultPreviewTTL     = 30 * time.Minute
	defaultRollbackWindow = 14 * 24 * time.Hour
)

// ErrSafetyGate is returned when an apply is refused by the safety-score
// gate and no override flag was passed.
var ErrSafetyGate = fmt.Errorf("enhancer: refused by safety gate")

// ErrRollbackExpired is returned when a rollback is attempted past the
// record's rollback window.
var ErrRollbackExpired = fmt.Errorf("enhancer: rollback window expired")

// Enhancer applies approved recommendations to a file under preservation
// and safety constraints.
type Enhancer struct {
	store store.Store
	bus   *eventbus.Bus

	previews   map[string]*pendingPreview
	fileLocks  *lockTable
}

type pendingPreview struct {
	preview      models.EnhancementPreview
	validationID string
	recs         []models.Recommendation
	rules        models.PreservationRules
}

func New(st store.Store, bus *eventbus.Bus) *Enhancer {
	return &Enhancer{
		store:     st,
		bus:       bus,
		previews:  make(map[string]*pendingPreview),
		fileLocks: newLockTable(),
	}
}

// Preview computes an EnhancementPreview without touching the file system
// (§4.5 step 6).
func (e *Enhancer) Preview(ctx context.Context, v *models.Validation, recs []models.Recommendation, rules models.PreservationRules) (*models.EnhancementPreview, error) {
	accessguard.RequireRPC(ctx)
	original := v.OriginalContent
	enhanced, applied, skipped := applyRecommendations(original, recs, rules)

	preservation := computePreservation(original, enhanced, rules, recs)
	safety := computeSafetyScore(preservation)

	preview := models.EnhancementPreview{
		PreviewID:              uuid.NewString(),
		ValidationID:           v.ID,
		Original:               original,
		Enhanced:               enhanced,
		UnifiedDiff:            unifiedDiff(v.FilePath, original, enhanced),
		AppliedRecommendations: applied,
		SkippedRecommendations: skipped,
		SafetyScore:            safety,
		PreservationReport:     preservation,
		CreatedAt:              timeNow(),
		ExpiresAt:              timeNow().Add(defaultPreviewTTL),
	}

	e.previews[preview.PreviewID] = &pendingPreview{
		preview:      preview,
		validationID: v.ID,
		recs:         recs,
		rules:        rules,
	}
	return &preview, nil
}

// ApplyPreview applies a previously computed preview by id. enhance_preview
// then enhance_auto_apply round-trips through this path.
func (e *Enhancer) ApplyPreview(ctx context.Context, previewID string, override bool) (*models.EnhancementRecord, error) {
	accessguard.RequireRPC(ctx)
	pending, ok := e.previews[previewID]
	if !ok {
		return nil, &store.ErrNotFound{Entity: "preview", Key: previewID}
	}
	v, err := e.store.GetValidation(ctx, pending.validationID)
	if err != nil {
		return nil, err
	}
	delete(e.previews, previewID)
	return e.commit(ctx, v, pending.preview.Enhanced, pending.recs, pending.preview.SafetyScore, pending.preview.PreservationReport, override)
}

// Apply computes and immediately applies an enhancement in one step
// (the plain `enhance` RPC method, as distinct from preview+apply).
func (e *Enhancer) Apply(ctx context.Context, v *models.Validation, recs []models.Recommendation, rules models.PreservationRules, override bool) (*models.EnhancementRecord, error) {
	accessguard.RequireRPC(ctx)
	original := v.OriginalContent
	enhanced, _, _ := applyRecommendations(original, recs, rules)
	preservation := computePreservation(original, enhanced, rules, recs)
	safety := computeSafetyScore(preservation)
	return e.commit(ctx, v, enhanced, recs, safety, preservation, override)
}

// commit enforces the safety gate, writes the file atomically, creates
// the EnhancementRecord (first as pending_commit, then finalised), and
// updates validation/recommendation statuses (§4.5 steps 7 and
// "Failure semantics").
func (e *Enhancer) commit(ctx context.Context, v *models.Validation, enhanced string, recs []models.Recommendation, safety models.SafetyScore, preservation models.PreservationReport, override bool) (*models.EnhancementRecord, error) {
	if !override && (safety.Value < defaultSafetyGate || preservation.HasCritical()) {
		return nil, ErrSafetyGate
	}

	unlock := e.fileLocks.lock(v.FilePath)
	defer unlock()

	original := v.OriginalContent
	originalBytes := []byte(original)
	mode := os.FileMode(0644)
	if info, err := os.Stat(v.FilePath); err == nil {
		mode = info.Mode()
	}

	record := &models.EnhancementRecord{
		ID:                uuid.NewString(),
		ValidationID:      v.ID,
		FilePath:          v.FilePath,
		OriginalHash:      contentHash(original),
		EnhancedHash:      contentHash(enhanced),
		SafetyScore:       safety,
		PreservationReport: preservation,
		AppliedBy:         "rpc",
		AppliedAt:         timeNow(),
		RollbackPoint: models.RollbackPoint{
			OriginalBytes: originalBytes,
			FileMode:      uint32(mode),
		},
		RollbackExpiresAt: timeNow().Add(defaultRollbackWindow),
		PendingCommit:     true,
	}
	for _, rec := range recs {
		if rec.Status == models.RecApproved {
			record.AppliedRecommendationIDs = append(record.AppliedRecommendationIDs, rec.ID)
		}
	}

	if err := e.store.CreateEnhancementRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("enhancer: persist pending record: %w", err)
	}

	if err := writeFileAtomic(v.FilePath, []byte(enhanced), mode); err != nil {
		// File was never written: the pending record is inert and safe to
		// drop, it never claimed a committed change.
		_ = e.store.DeleteEnhancementRecord(ctx, record.ID)
		return nil, fmt.Errorf("enhancer: write file: %w", err)
	}

	record.PendingCommit = false
	if err := e.store.UpdateEnhancementRecord(ctx, record); err != nil {
		// File write succeeded but the record could not be finalised.
		// Leave PendingCommit=true; RecoverPending on next start will
		// reconcile it (file bytes match EnhancedHash, so it finalises
		// rather than reverts).
		log.Error().Err(err).Str("enhancement_id", record.ID).Msg("enhancer: failed to finalise record, left pending_commit for recovery")
		return record, err
	}

	enhancedCopy := enhanced
	v.EnhancedContent = &enhancedCopy
	v.Status = models.ValidationEnhanced
	v.UpdatedAt = timeNow()
	if err := e.store.UpdateValidation(ctx, v); err != nil {
		return record, err
	}

	for _, rec := range recs {
		if rec.Status != models.RecApproved {
			continue
		}
		rec.Status = models.RecApplied
		if err := e.store.UpdateRecommendation(ctx, &rec); err != nil {
			log.Warn().Err(err).Str("recommendation_id", rec.ID).Msg("enhancer: failed to mark recommendation applied")
		}
	}

	if e.bus != nil {
		e.bus.Publish(ctx, TopicEnhancementApplied, record)
	}
	return record, nil
}

// Rollback restores file bytes from the record's rollback point, marks it
// rolled back, and reverses validation/recommendation statuses (§4.5 step 8).
func (e *Enhancer) Rollback(ctx context.Context, enhancementID string) error {
	accessguard.RequireRPC(ctx)
	record, err := e.store.GetEnhancementRecord(ctx, enhancementID)
	if err != nil {
		return err
	}
	if record.RolledBack {
		return nil // idempotent
	}
	if timeNow().After(record.RollbackExpiresAt) {
		return ErrRollbackExpired
	}

	unlock := e.fileLocks.lock(record.FilePath)
	defer unlock()

	mode := os.FileMode(record.RollbackPoint.FileMode)
	if err := writeFileAtomic(record.FilePath, record.RollbackPoint.OriginalBytes, mode); err != nil {
		return fmt.Errorf("enhancer: rollback write: %w", err)
	}

	now := timeNow()
	record.RolledBack = true
	record.RolledBackAt = &now
	if err := e.store.UpdateEnhancementRecord(ctx, record); err != nil {
		return err
	}

	if v, err := e.store.GetValidation(ctx, record.ValidationID); err == nil {
		v.Status = models.ValidationApproved
		v.EnhancedContent = nil
		v.UpdatedAt = now
		_ = e.store.UpdateValidation(ctx, v)
	}
	for _, id := range record.AppliedRecommendationIDs {
		if rec, err := e.store.GetRecommendation(ctx, id); err == nil {
			rec.Status = models.RecApproved
			_ = e.store.UpdateRecommendation(ctx, rec)
		}
	}

	if e.bus != nil {
		e.bus.Publish(ctx, TopicEnhancementRolledBack, record)
	}
	return nil
}

// RecoverPending scans for records left in PendingCommit state (crash
// between file write and store finalisation, §4.5 "Failure semantics")
// and resolves each: if the file on disk matches EnhancedHash the write
// succeeded, so the record finalises; otherwise the file is reverted to
// the rollback point and the record is deleted, never leaving a silently
// half-applied enhancement.
func (e *Enhancer) RecoverPending(ctx context.Context) error {
	pending, err := e.store.ListPendingCommits(ctx)
	if err != nil {
		return err
	}
	for i := range pending {
		record := pending[i]
		data, readErr := os.ReadFile(record.FilePath)
		if readErr == nil && contentHash(string(data)) == record.EnhancedHash {
			record.PendingCommit = false
			if err := e.store.UpdateEnhancementRecord(ctx, &record); err != nil {
				log.Error().Err(err).Str("enhancement_id", record.ID).Msg("enhancer: recovery finalise failed")
			}
			continue
		}
		mode := os.FileMode(record.RollbackPoint.FileMode)
		if err := writeFileAtomic(record.FilePath, record.RollbackPoint.OriginalBytes, mode); err != nil {
			log.Error().Err(err).Str("enhancement_id", record.ID).Msg("enhancer: recovery revert failed")
			continue
		}
		_ = e.store.DeleteEnhancementRecord(ctx, record.ID)
	}
	return nil
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames into place, so a crash mid-write never leaves a torn file.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tbcv-enhance-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func timeNow() time.Time { return time.Now().UTC() }
