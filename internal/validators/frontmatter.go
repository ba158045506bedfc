package validators

import (
	"context"
	"strings"

	"github.com/babar-raza/tbcv/pkg/models"
	"gopkg.in/yaml.v3"
)

// FrontmatterValidator checks the leading YAML frontmatter block: that it
// parses, and that rule-configured required fields are present and
// non-empty. Tier 1 (syntax).
type FrontmatterValidator struct{}

func (FrontmatterValidator) Kind() models.ValidatorKind { return models.ValidatorFrontmatter }

func (v FrontmatterValidator) Validate(ctx context.Context, content string, vctx VContext) (*models.ValidationReport, error) {
	report := newReport()
	fm := splitFrontmatter(content)

	if !fm.Present {
		rule, _ := resolveRule(vctx, "frontmatter", "frontmatter_required")
		report.Issues = append(report.Issues, issueFromRule(rule, "frontmatter_missing", Span{StartLine: 1},
			"frontmatter", "document has no leading frontmatter block", models.ValidatorFrontmatter))
		return report, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal([]byte(fm.Raw), &fields); err != nil {
		report.Issues = append(report.Issues, models.Issue{
			ID:            issueID(),
			Code:          "frontmatter_invalid_yaml",
			Level:         models.IssueCritical,
			SeverityScore: 90,
			Span:          Span{StartLine: fm.StartLine, EndLine: fm.EndLine},
			Category:      "frontmatter",
			Message:       "frontmatter block is not valid YAML: " + err.Error(),
			Source:        models.SourceRuleBased,
			Confidence:    1.0,
			ValidatorKind: models.ValidatorFrontmatter,
		})
		return report, nil
	}

	required, _ := ruleParam(vctx, "frontmatter", "frontmatter_required_fields", "fields").([]any)
	for _, raw := range required {
		name, ok := raw.(string)
		if !ok {
			continue
		}
		val, present := fields[name]
		if !present || isBlank(val) {
			rule, _ := resolveRule(vctx, "frontmatter", "frontmatter_required_fields")
			report.Issues = append(report.Issues, issueFromRule(rule, "frontmatter_missing_field", Span{StartLine: 1},
				"frontmatter", "required frontmatter field \""+name+"\" is missing or empty", models.ValidatorFrontmatter))
		}
	}

	return report, nil
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}
