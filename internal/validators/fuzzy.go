package validators

import (
	"context"

	"github.com/babar-raza/tbcv/pkg/models"
)

// FuzzyValidator scans document tokens against TruthIndex aliases to
// surface plugin/API names that look like a typo or near-miss of a known
// canonical name. Its matches are also threaded into VContext.FuzzyMatches
// by the tier router, since the Tier 3 truth validator depends on this
// output (§4.3). Tier 2 (content).
type FuzzyValidator struct{}

func (FuzzyValidator) Kind() models.ValidatorKind { return models.ValidatorFuzzy }

func (v FuzzyValidator) Validate(ctx context.Context, content string, vctx VContext) (*models.ValidationReport, error) {
	report := newReport()
	if vctx.Truth == nil {
		return report, nil
	}

	fm := splitFrontmatter(content)
	tokens := wordTokens(fm.Body)

	var matches []models.TruthRecord
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		if _, ok := vctx.Truth.Exact(vctx.Family, tok); ok {
			continue // exact hits are not fuzzy findings
		}
		for _, rec := range vctx.Truth.Alias(vctx.Family, tok) {
			if _, dup := seen[rec.CanonicalName]; dup {
				continue
			}
			seen[rec.CanonicalName] = struct{}{}
			matches = append(matches, rec)
			rule, _ := resolveRule(vctx, "fuzzy", "near_miss_plugin_name")
			report.Issues = append(report.Issues, issueFromRule(rule, "fuzzy_near_miss",
				Span{StartLine: 1}, "fuzzy",
				"\""+tok+"\" looks like a near-miss of known name \""+rec.CanonicalName+"\"", models.ValidatorFuzzy))
		}
	}

	report.Metrics = map[string]any{"fuzzy_match_count": len(matches)}
	if len(matches) > 0 {
		report.Metrics["fuzzy_matches"] = matches
	}
	return report, nil
}
