package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/internal/validators"
	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// batchCheckpointState is the opaque state a Checkpoint.StateData carries
// for batch validation/enhancement runs (§4.6): the set of files that have
// already completed successfully, so RecoverResumable can subtract it from
// a fresh file list and resume by skipping what's done instead of redoing
// the whole batch. Failed items are deliberately left out so a resume
// retries them.
type batchCheckpointState struct {
	Processed []string `json:"processed"`
}

// encodeBatchState marshals the processed-so-far set for a checkpoint. A
// marshal failure (there's nothing in []string that can fail to encode,
// but checkpoint() takes the byte slice at face value) degrades to no
// resume state rather than aborting the batch.
func encodeBatchState(done []string) []byte {
	data, err := json.Marshal(batchCheckpointState{Processed: done})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode batch checkpoint state")
		return nil
	}
	return data
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// itemResult is one batch item's outcome, collected by the bounded
// worker pool below.
type itemResult struct {
	path string
	err  error
}

// runBatchValidation processes files with bounded concurrency (§4.6): a
// buffered channel gates how many workers run at once, generalizing the
// teacher's single-goroutine-per-run pattern to N workers for batch
// jobs. Per-item failures are collected; the workflow only fails once
// the configured error threshold is exceeded.
func (e *Engine) runBatchValidation(ctx context.Context, wf *models.Workflow, files []string) error {
	family := models.Family(paramString(wf.Parameters, "family", string(models.FamilyWords)))
	workers := paramInt(wf.Parameters, "concurrency", e.cfg.BatchValidationWorkers)
	errThreshold := paramFloat(wf.Parameters, "error_threshold_pct", e.cfg.ErrorThresholdPct)

	total := len(files)
	if total == 0 {
		return nil
	}

	sem := make(chan struct{}, workers)
	results := make(chan itemResult, total)
	var wg sync.WaitGroup

	for i, path := range files {
		if err := e.awaitControl(ctx, wf); err != nil {
			return err
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, p string) {
			defer wg.Done()
			defer func() { <-sem }()
			err := e.validateOne(ctx, p, family)
			results <- itemResult{path: p, err: err}
		}(i, path)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	processed, failed := 0, 0
	var failures, done []string
	for res := range results {
		processed++
		if res.err != nil {
			failed++
			failures = append(failures, fmt.Sprintf("%s: %v", res.path, res.err))
			log.Warn().Err(res.err).Str("file", res.path).Str("workflow_id", wf.ID).Msg("Batch validation item failed")
		} else {
			done = append(done, res.path)
		}
		percent := float64(processed) / float64(total) * 100
		e.checkpoint(ctx, wf, processed, encodeBatchState(done), percent, fmt.Sprintf("validated %d/%d", processed, total))
	}

	if ctx.Err() != nil {
		return errCancelled
	}
	if total > 0 && float64(failed)/float64(total) > errThreshold {
		wf.Summary = map[string]any{"processed": processed, "failed": failed, "errors": failures}
		return fmt.Errorf("batch validation exceeded error threshold: %d/%d items failed", failed, total)
	}
	wf.Summary = map[string]any{"processed": processed, "failed": failed}
	return nil
}

// validateOne reads a file, runs it through the full validator set, and
// persists the resulting Validation record.
func (e *Engine) validateOne(ctx context.Context, path string, family models.Family) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	content := string(data)

	vctx := validators.VContext{
		FilePath: path,
		Family:   family,
		Rules:    e.rules,
		Truth:    e.truth,
		LLM:      e.llm,
	}
	report, err := e.router.Run(ctx, content, vctx, validators.All())
	if err != nil && report == nil {
		return fmt.Errorf("run validators: %w", err)
	}

	now := time.Now().UTC()
	v := &models.Validation{
		ID:                uuid.NewString(),
		FilePath:          path,
		Family:            family,
		ContentHash:       contentHash(content),
		CreatedAt:         now,
		UpdatedAt:         now,
		Status:            models.ValidationPending,
		Severity:          severityFromReport(report),
		ValidationResults: report,
		OriginalContent:   content,
	}
	return e.store.CreateValidation(ctx, v)
}

// runBatchEnhancement validates, generates recommendations, and applies
// the enhancer to each file, bounded by a separate (typically smaller)
// worker pool since enhancement does real file I/O under a per-path lock.
func (e *Engine) runBatchEnhancement(ctx context.Context, wf *models.Workflow, files []string) error {
	family := models.Family(paramString(wf.Parameters, "family", string(models.FamilyWords)))
	workers := paramInt(wf.Parameters, "concurrency", e.cfg.BatchEnhancementWorkers)
	errThreshold := paramFloat(wf.Parameters, "error_threshold_pct", e.cfg.ErrorThresholdPct)
	rules := paramPreservationRules(wf.Parameters)
	autoApprove := paramBool(wf.Parameters, "auto_approve", false)

	total := len(files)
	if total == 0 {
		return nil
	}

	sem := make(chan struct{}, workers)
	results := make(chan itemResult, total)
	var wg sync.WaitGroup

	for i, path := range files {
		if err := e.awaitControl(ctx, wf); err != nil {
			return err
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, p string) {
			defer wg.Done()
			defer func() { <-sem }()
			err := e.enhanceOne(ctx, p, family, rules, autoApprove)
			results <- itemResult{path: p, err: err}
		}(i, path)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	processed, failed := 0, 0
	var failures, done []string
	for res := range results {
		processed++
		if res.err != nil {
			failed++
			failures = append(failures, fmt.Sprintf("%s: %v", res.path, res.err))
			log.Warn().Err(res.err).Str("file", res.path).Str("workflow_id", wf.ID).Msg("Batch enhancement item failed")
		} else {
			done = append(done, res.path)
		}
		percent := float64(processed) / float64(total) * 100
		e.checkpoint(ctx, wf, processed, encodeBatchState(done), percent, fmt.Sprintf("enhanced %d/%d", processed, total))
	}

	if ctx.Err() != nil {
		return errCancelled
	}
	if total > 0 && float64(failed)/float64(total) > errThreshold {
		wf.Summary = map[string]any{"processed": processed, "failed": failed, "errors": failures}
		return fmt.Errorf("batch enhancement exceeded error threshold: %d/%d items failed", failed, total)
	}
	wf.Summary = map[string]any{"processed": processed, "failed": failed}
	return nil
}

// enhanceOne runs the full validate → recommend → apply pipeline for a
// single file. Items that generate no recommendations are a no-op
// success, not a failure.
func (e *Engine) enhanceOne(ctx context.Context, path string, family models.Family, rules models.PreservationRules, autoApprove bool) error {
	if err := e.validateOne(ctx, path, family); err != nil {
		return err
	}
	vs, err := e.store.ListValidations(ctx, store.ValidationFilter{Family: family})
	if err != nil {
		return err
	}
	var latest *models.Validation
	for i := range vs {
		if vs[i].FilePath == path && (latest == nil || vs[i].CreatedAt.After(latest.CreatedAt)) {
			latest = &vs[i]
		}
	}
	if latest == nil {
		return fmt.Errorf("validation not found for %s after validate", path)
	}

	recs, err := e.recommender.Generate(ctx, latest.ID)
	if err != nil {
		return fmt.Errorf("generate recommendations: %w", err)
	}
	if len(recs) == 0 {
		return nil
	}

	if autoApprove {
		for i := range recs {
			recs[i].Status = models.RecApproved
			if err := e.store.UpdateRecommendation(ctx, &recs[i]); err != nil {
				return fmt.Errorf("approve recommendation: %w", err)
			}
		}
	}

	var approved []models.Recommendation
	for _, rec := range recs {
		if rec.Status == models.RecApproved {
			approved = append(approved, rec)
		}
	}
	if len(approved) == 0 {
		return nil
	}

	if _, err := e.enhancer.Apply(ctx, latest, approved, rules, false); err != nil {
		return fmt.Errorf("apply enhancement: %w", err)
	}
	return nil
}

func severityFromReport(r *models.ValidationReport) models.Severity {
	if r == nil {
		return models.SeverityInfo
	}
	worst := models.SeverityInfo
	rank := map[models.IssueLevel]models.Severity{
		models.IssueCritical: models.SeverityCritical,
		models.IssueError:    models.SeverityHigh,
		models.IssueWarning:  models.SeverityMedium,
		models.IssueInfo:     models.SeverityLow,
	}
	order := map[models.Severity]int{
		models.SeverityInfo: 0, models.SeverityLow: 1, models.SeverityMedium: 2,
		models.SeverityHigh: 3, models.SeverityCritical: 4,
	}
	for _, iss := range r.Issues {
		if sev, ok := rank[iss.Level]; ok && order[sev] > order[worst] {
			worst = sev
		}
	}
	return worst
}
