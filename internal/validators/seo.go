package validators

import (
	"context"
	"strings"

	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/expr-lang/expr"
)

// SEOValidator checks title and description length; heading_count is
// reported in Metrics but has no check of its own. Numeric thresholds
// default in Go but a rule may instead
// supply an "expr" boolean expression (expr-lang/expr) evaluated against
// {title_length, description_length, heading_count}, letting operators
// tune the check without a code change. Tier 2 (content).
type SEOValidator struct{}

func (SEOValidator) Kind() models.ValidatorKind { return models.ValidatorSEO }

func (v SEOValidator) Validate(ctx context.Context, content string, vctx VContext) (*models.ValidationReport, error) {
	report := newReport()
	fm := splitFrontmatter(content)
	body := fm.Body

	title, description := frontmatterSEOFields(fm.Raw)
	headings := extractHeadings(body)

	env := map[string]any{
		"title_length":       len(title),
		"description_length": len(description),
		"heading_count":       len(headings),
	}
	report.Metrics = env

	if rule, ok := resolveRule(vctx, "seo", "title_length"); ok {
		if violatesRule(rule, env, func() bool {
			min, max := intParam(rule, "min", 10), intParam(rule, "max", 70)
			return len(title) < min || len(title) > max
		}) {
			report.Issues = append(report.Issues, issueFromRule(rule, "seo_title_length",
				Span{StartLine: 1}, "seo", "title length is outside the recommended range", models.ValidatorSEO))
		}
	}

	if rule, ok := resolveRule(vctx, "seo", "description_length"); ok {
		if violatesRule(rule, env, func() bool {
			min, max := intParam(rule, "min", 50), intParam(rule, "max", 160)
			return len(description) < min || len(description) > max
		}) {
			report.Issues = append(report.Issues, issueFromRule(rule, "seo_description_length",
				Span{StartLine: 1}, "seo", "description length is outside the recommended range", models.ValidatorSEO))
		}
	}

	return report, nil
}

// violatesRule evaluates rule.Expr against env when present, else falls
// back to the builtin Go predicate.
func violatesRule(rule models.Rule, env map[string]any, builtin func() bool) bool {
	if strings.TrimSpace(rule.Expr) == "" {
		return builtin()
	}
	program, err := expr.Compile(rule.Expr, expr.Env(env))
	if err != nil {
		return builtin()
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return builtin()
	}
	violated, ok := out.(bool)
	if !ok {
		return builtin()
	}
	return violated
}

func intParam(rule models.Rule, key string, def int) int {
	if rule.Params == nil {
		return def
	}
	switch n := rule.Params[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}

// frontmatterSEOFields pulls "title" and "description" scalars out of the
// raw frontmatter YAML without a full structural parse, since SEO only
// needs these two fields and a malformed document is already flagged by
// FrontmatterValidator.
func frontmatterSEOFields(raw string) (title, description string) {
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(trimmed, "title:"); ok {
			title = strings.Trim(strings.TrimSpace(v), `"'`)
		}
		if v, ok := strings.CutPrefix(trimmed, "description:"); ok {
			description = strings.Trim(strings.TrimSpace(v), `"'`)
		}
	}
	return title, description
}
