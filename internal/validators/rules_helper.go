package validators

import (
	"github.com/babar-raza/tbcv/pkg/models"
)

// Span is a local alias for readability; identical to models.Span.
type Span = models.Span

// resolveRule looks up the effective rule for (validatorName, ruleID)
// against vctx.Family, returning ok=false when the validator config,
// the rule, or vctx.Rules itself is absent (in which case the caller
// should still apply a sane built-in default level rather than skip the
// check — callers that want "skip when unconfigured" check ok directly).
func resolveRule(vctx VContext, validatorName, ruleID string) (models.Rule, bool) {
	if vctx.Rules == nil {
		return models.Rule{}, false
	}
	return vctx.Rules.ResolveRule(validatorName, ruleID, vctx.Family)
}

// ruleParam fetches a single param value for (validatorName, ruleID),
// or nil if unresolved or unset.
func ruleParam(vctx VContext, validatorName, ruleID, key string) any {
	rule, ok := resolveRule(vctx, validatorName, ruleID)
	if !ok || rule.Params == nil {
		return nil
	}
	return rule.Params[key]
}

// issueFromRule builds an Issue whose level and message default to the
// rule's configuration, falling back to defaultMsg when the rule carries
// no custom message. Used by every rule-based validator so level/message
// overrides from ruleloader take effect uniformly.
func issueFromRule(rule models.Rule, code string, span Span, category, defaultMsg string, kind models.ValidatorKind) models.Issue {
	level := rule.Level
	if level == "" {
		level = models.IssueWarning
	}
	msg := rule.Message
	if msg == "" {
		msg = defaultMsg
	}
	return models.Issue{
		ID:            issueID(),
		Code:          code,
		Level:         models.IssueLevel(level),
		SeverityScore: severityScoreForLevel(models.IssueLevel(level)),
		Span:          span,
		Category:      category,
		Message:       msg,
		Source:        models.SourceRuleBased,
		Confidence:    1.0,
		ValidatorKind: kind,
	}
}

func severityScoreForLevel(level models.IssueLevel) int {
	switch level {
	case models.IssueCritical:
		return 90
	case models.IssueError:
		return 60
	case models.IssueWarning:
		return 30
	default:
		return 10
	}
}
