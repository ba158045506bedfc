package validators

import (
	"context"
	"strings"
	"time"

	"github.com/babar-raza/tbcv/pkg/contracts"
	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/rs/zerolog/log"
)

// Default bounds and thresholds for the truth validator's LLM phase, per
// §4.3.1: content outside this length range skips the LLM phase entirely,
// and an LLM-sourced issue below the confidence threshold is dropped.
const (
	defaultLLMMinContentLen  = 100
	defaultLLMMaxContentLen  = 50_000
	defaultLLMTimeout        = 30 * time.Second
	defaultConfidenceFloor   = 0.7
)

// TruthValidator runs rule-based checks over TruthIndex, then an optional
// LLM enhancement phase, then merges the two with dedup and a confidence
// floor (§4.3.1). The LLM phase degrades gracefully: on timeout,
// unavailability, or a content-length violation it contributes nothing,
// and the final report is the rule-based report verbatim. Tier 3 (semantic).
type TruthValidator struct{}

func (TruthValidator) Kind() models.ValidatorKind { return models.ValidatorTruth }

func (v TruthValidator) Validate(ctx context.Context, content string, vctx VContext) (*models.ValidationReport, error) {
	ruleBased := v.ruleBasedPhase(content, vctx)
	if vctx.LLM == nil {
		return ruleBased, nil
	}
	if len(content) < defaultLLMMinContentLen || len(content) > defaultLLMMaxContentLen {
		if ruleBased.Metrics == nil {
			ruleBased.Metrics = map[string]any{}
		}
		ruleBased.Metrics["llm_skipped"] = true
		return ruleBased, nil
	}

	llmIssues, err := v.llmPhase(ctx, content, vctx)
	if err != nil {
		log.Warn().Err(err).Msg("truth validator: llm phase degraded, using rule-based result only")
		return ruleBased, nil
	}

	return v.merge(ruleBased, llmIssues), nil
}

// ruleBasedPhase flags fuzzy-matched names TruthIndex already identified
// as near-misses (carried via VContext.FuzzyMatches from Tier 2) as
// confirmed issues with higher confidence, and checks combination
// validity across the whole truth set for this family.
func (v TruthValidator) ruleBasedPhase(content string, vctx VContext) *models.ValidationReport {
	report := newReport()
	if vctx.Truth == nil {
		return report
	}

	for _, rec := range vctx.FuzzyMatches {
		rule, _ := resolveRule(vctx, "truth", "forbidden_pattern")
		report.Issues = append(report.Issues, issueFromRule(rule, "truth_unverified_name",
			Span{StartLine: 1}, "truth",
			"reference to \""+rec.CanonicalName+"\" could not be confirmed against truth data", models.ValidatorTruth))
	}

	names := make([]string, 0, len(vctx.FuzzyMatches))
	for _, rec := range vctx.FuzzyMatches {
		names = append(names, rec.CanonicalName)
	}
	if len(names) >= 2 && !vctx.Truth.ValidCombination(vctx.Family, names) {
		rule, _ := resolveRule(vctx, "truth", "invalid_combination")
		report.Issues = append(report.Issues, issueFromRule(rule, "truth_invalid_combination",
			Span{StartLine: 1}, "truth",
			"document references a combination of names known to be incompatible", models.ValidatorTruth))
	}

	return report
}

// llmPhase asks the configured driver to review content given the
// rule-phase findings as context, returning additional semantic issues.
func (v TruthValidator) llmPhase(ctx context.Context, content string, vctx VContext) ([]models.Issue, error) {
	callCtx, cancel := context.WithTimeout(ctx, defaultLLMTimeout)
	defer cancel()

	req := contracts.CompletionRequest{
		Messages: []contracts.ChatMessage{
			{Role: "system", Content: "You review technical documentation for factual accuracy against known plugin and API names. Respond with one finding per line, or nothing if none."},
			{Role: "user", Content: content},
		},
		MaxTokens: 512,
	}

	result, err := vctx.LLM.Complete(callCtx, req)
	if err != nil {
		return nil, err
	}

	return parseLLMFindings(result.Content), nil
}

// parseLLMFindings turns the model's line-oriented response into issues,
// each with the default LLM-phase confidence so the merge step's
// confidence floor can filter weak findings.
func parseLLMFindings(text string) []models.Issue {
	var issues []models.Issue
	for _, line := range splitNonEmptyLines(text) {
		issues = append(issues, models.Issue{
			ID:            issueID(),
			Code:          "truth_llm_finding",
			Level:         models.IssueWarning,
			SeverityScore: 40,
			Span:          Span{StartLine: 1},
			Category:      "truth",
			Message:       line,
			Source:        models.SourceLLMSemantic,
			Confidence:    0.75,
			ValidatorKind: models.ValidatorTruth,
		})
	}
	return issues
}

func splitNonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// merge combines rule-based and LLM issues: on an equal (category,
// message-prefix) signature the rule-based issue wins per §4.3.1, and any
// surviving LLM issue below the confidence floor is dropped.
func (v TruthValidator) merge(ruleBased *models.ValidationReport, llmIssues []models.Issue) *models.ValidationReport {
	signatures := make(map[string]struct{}, len(ruleBased.Issues))
	for _, iss := range ruleBased.Issues {
		signatures[signature(iss)] = struct{}{}
	}

	merged := newReport()
	merged.Issues = append(merged.Issues, ruleBased.Issues...)
	for _, iss := range llmIssues {
		if iss.Confidence < defaultConfidenceFloor {
			continue
		}
		if _, dup := signatures[signature(iss)]; dup {
			continue
		}
		merged.Issues = append(merged.Issues, iss)
	}

	merged.Metrics = ruleBased.Metrics
	merged.RecomputeConfidence()
	return merged
}

func signature(iss models.Issue) string {
	prefix := iss.Message
	if len(prefix) > 40 {
		prefix = prefix[:40]
	}
	return iss.Category + "|" + prefix
}
