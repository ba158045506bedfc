package tier

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/babar-raza/tbcv/internal/validators"
	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Router runs a caller-selected set of validators tier by tier: all
// validators in a tier run concurrently (hand-rolled sync.WaitGroup fan-out,
// matching the teacher's own goroutine+channel idiom rather than pulling in
// golang.org/x/sync/errgroup), their reports merge, and the early-termination
// policy is evaluated before the next tier starts (§4.3).
type Router struct {
	// EarlyTerminationLevels overrides the default {critical} set when non-nil.
	EarlyTerminationLevels map[models.IssueLevel]struct{}
}

func NewRouter() *Router {
	return &Router{}
}

func (r *Router) terminationLevels() map[models.IssueLevel]struct{} {
	if r.EarlyTerminationLevels != nil {
		return r.EarlyTerminationLevels
	}
	return defaultEarlyTerminationLevels
}

// Run executes selected validators grouped by tier, in tier order, and
// returns the merged report. content/vctx are shared read-only across a
// tier's fan-out; vctx.FuzzyMatches is populated after Tier 2 so Tier 3's
// truth validator can read it, per §4.3's dependency note.
func (r *Router) Run(ctx context.Context, content string, vctx validators.VContext, selected []validators.Validator) (*models.ValidationReport, error) {
	byTier := make(map[int][]validators.Validator)
	for _, v := range selected {
		byTier[TierFor(v.Kind())] = append(byTier[TierFor(v.Kind())], v)
	}

	tiers := make([]int, 0, len(byTier))
	for t := range byTier {
		tiers = append(tiers, t)
	}
	sort.Ints(tiers)

	final := &models.ValidationReport{Confidence: 1.0}

	for _, t := range tiers {
		select {
		case <-ctx.Done():
			return final, ctx.Err()
		default:
		}

		tierReport, breakdown := r.runTier(ctx, content, vctx, t, byTier[t])
		final.Merge(tierReport)
		final.Tiers = append(final.Tiers, breakdown)
		final.TiersExecuted++

		if t == TierContent {
			vctx.FuzzyMatches = extractFuzzyMatches(tierReport)
		}

		if r.hasEarlyTermination(tierReport) {
			final.Tiers[len(final.Tiers)-1].Terminated = true
			break
		}
	}

	return final, nil
}

func (r *Router) runTier(ctx context.Context, content string, vctx validators.VContext, tierNum int, vs []validators.Validator) (*models.ValidationReport, models.TierBreakdown) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	merged := &models.ValidationReport{Confidence: 1.0}
	breakdown := models.TierBreakdown{Tier: tierNum}

	for _, val := range vs {
		wg.Add(1)
		go func(val validators.Validator) {
			defer wg.Done()
			start := time.Now()
			report, err := val.Validate(ctx, content, vctx)
			timing := models.ValidatorTiming{Kind: val.Kind(), Duration: time.Since(start)}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				timing.Err = err.Error()
				merged.Issues = append(merged.Issues, models.Issue{
					ID:            uuid.NewString(),
					Code:          "validator_runtime_error",
					Level:         models.IssueError,
					SeverityScore: 60,
					Category:      "runtime",
					Message:       err.Error(),
					Source:        models.SourceValidatorRun,
					Confidence:    1.0,
					ValidatorKind: val.Kind(),
				})
				log.Error().Err(err).Str("validator", string(val.Kind())).Msg("validator failed, continuing tier")
			} else if report != nil {
				merged.Issues = append(merged.Issues, report.Issues...)
				for k, v := range report.Metrics {
					if merged.Metrics == nil {
						merged.Metrics = make(map[string]any)
					}
					merged.Metrics[k] = v
				}
			}
			breakdown.Validators = append(breakdown.Validators, timing)
		}(val)
	}

	wg.Wait()
	merged.RecomputeConfidence()
	for _, iss := range merged.Issues {
		if iss.AutoFixable {
			merged.AutoFixableCount++
		}
	}
	return merged, breakdown
}

func (r *Router) hasEarlyTermination(report *models.ValidationReport) bool {
	levels := r.terminationLevels()
	for _, iss := range report.Issues {
		if _, ok := levels[iss.Level]; ok {
			return true
		}
	}
	return false
}

// extractFuzzyMatches reads the fuzzy validator's Metrics["fuzzy_matches"]
// entry out of the merged Tier 2 report.
func extractFuzzyMatches(report *models.ValidationReport) []models.TruthRecord {
	if report.Metrics == nil {
		return nil
	}
	raw, ok := report.Metrics["fuzzy_matches"]
	if !ok {
		return nil
	}
	matches, ok := raw.([]models.TruthRecord)
	if !ok {
		return nil
	}
	return matches
}
