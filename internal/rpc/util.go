package rpc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	"github.com/babar-raza/tbcv/internal/rpcerr"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/internal/validators"
	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/google/uuid"
)

func timeNow() time.Time { return time.Now().UTC() }

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// severityFromReport rolls a report's worst issue level up into the
// Validation's single Severity field, following the same rank table the
// workflow engine's batch runner uses for the same purpose.
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

// selectValidators filters validators.All() by the optional "validators"
// param (a list of kind strings); an empty/absent list means "run every
// validator", the common case.
func selectValidators(params map[string]any) []validators.Validator {
	kinds := paramStringSlice(params, "validators")
	all := validators.All()
	if len(kinds) == 0 {
		return all
	}
	want := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		want[k] = struct{}{}
	}
	out := make([]validators.Validator, 0, len(all))
	for _, v := range all {
		if _, ok := want[string(v.Kind())]; ok {
			out = append(out, v)
		}
	}
	return out
}

// runValidation runs content through the tier router and persists the
// resulting Validation, the common core of validate_content/validate_file.
func (d Deps) runValidation(ctx context.Context, filePath string, family models.Family, content string, params map[string]any) (*models.Validation, error) {
	vctx := validators.VContext{
		FilePath: filePath,
		Family:   family,
		Rules:    d.Rules,
		Truth:    d.Truth,
		LLM:      d.LLM,
	}
	report, err := d.Router.Run(ctx, content, vctx, selectValidators(params))
	if err != nil && report == nil {
		return nil, rpcerr.Internal(err)
	}

	now := time.Now().UTC()
	v := &models.Validation{
		ID:                uuid.NewString(),
		FilePath:          filePath,
		Family:            family,
		ContentHash:       contentHash(content),
		CreatedAt:         now,
		UpdatedAt:         now,
		Status:            models.ValidationPending,
		Severity:          severityFromReport(report),
		ValidationResults: report,
		OriginalContent:   content,
	}
	if err := d.Store.CreateValidation(ctx, v); err != nil {
		return nil, rpcerr.Internal(err)
	}
	return v, nil
}

// getValidation fetches a Validation, mapping store.ErrNotFound onto the
// RPC not-found error every handler returns the same way.
func (d Deps) getValidation(ctx context.Context, id string) (*models.Validation, error) {
	v, err := d.Store.GetValidation(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, rpcerr.NotFound("validation", id)
		}
		return nil, rpcerr.Internal(err)
	}
	return v, nil
}

func (d Deps) getRecommendation(ctx context.Context, id string) (*models.Recommendation, error) {
	r, err := d.Store.GetRecommendation(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, rpcerr.NotFound("recommendation", id)
		}
		return nil, rpcerr.Internal(err)
	}
	return r, nil
}

func (d Deps) getWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	wf, err := d.Store.GetWorkflow(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, rpcerr.NotFound("workflow", id)
		}
		return nil, rpcerr.Internal(err)
	}
	return wf, nil
}

func (d Deps) getEnhancementRecord(ctx context.Context, id string) (*models.EnhancementRecord, error) {
	rec, err := d.Store.GetEnhancementRecord(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, rpcerr.NotFound("enhancement_record", id)
		}
		return nil, rpcerr.Internal(err)
	}
	return rec, nil
}

func isNotFound(err error) bool {
	_, ok := err.(*store.ErrNotFound)
	return ok
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", rpcerr.Newf(rpcerr.CodeNotFound, "cannot read file %q: %v", path, err)
	}
	return string(data), nil
}
