package validators

import (
	"context"
	"strings"

	"github.com/babar-raza/tbcv/pkg/models"
)

// CodeValidator checks fenced code blocks: that every fence declares a
// language (unless the rule explicitly allows bare fences) and is
// non-empty. Tier 2 (content).
type CodeValidator struct{}

func (CodeValidator) Kind() models.ValidatorKind { return models.ValidatorCode }

func (v CodeValidator) Validate(ctx context.Context, content string, vctx VContext) (*models.ValidationReport, error) {
	report := newReport()
	fm := splitFrontmatter(content)
	body := fm.Body
	lineOffset := fm.EndLine

	fences := extractCodeFences(body)
	report.Metrics = map[string]any{"code_fence_count": len(fences)}

	allowBare, _ := ruleParam(vctx, "code", "language_required", "allow_bare").(bool)
	for _, fence := range fences {
		if !fence.Closed {
			continue // already reported by MarkdownValidator
		}
		if fence.Language == "" && !allowBare {
			rule, _ := resolveRule(vctx, "code", "language_required")
			report.Issues = append(report.Issues, issueFromRule(rule, "code_language_missing",
				Span{StartLine: lineOffset + fence.StartLine}, "code",
				"fenced code block does not declare a language", models.ValidatorCode))
		}
		if strings.TrimSpace(fence.Body) == "" {
			rule, _ := resolveRule(vctx, "code", "empty_code_block")
			report.Issues = append(report.Issues, issueFromRule(rule, "code_block_empty",
				Span{StartLine: lineOffset + fence.StartLine, EndLine: lineOffset + fence.EndLine}, "code",
				"fenced code block is empty", models.ValidatorCode))
		}
	}

	return report, nil
}
