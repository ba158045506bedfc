package validators

import (
	"context"
	"strings"

	"github.com/babar-raza/tbcv/pkg/models"
)

// MarkdownValidator checks low-level Markdown syntax: unterminated code
// fences, ragged tables, and unmatched emphasis markers. Tier 1 (syntax).
type MarkdownValidator struct{}

func (MarkdownValidator) Kind() models.ValidatorKind { return models.ValidatorMarkdown }

func (v MarkdownValidator) Validate(ctx context.Context, content string, vctx VContext) (*models.ValidationReport, error) {
	report := newReport()
	fm := splitFrontmatter(content)
	body := fm.Body
	lineOffset := fm.EndLine

	for _, fence := range extractCodeFences(body) {
		if !fence.Closed {
			rule, _ := resolveRule(vctx, "markdown", "unterminated_code_fence")
			report.Issues = append(report.Issues, issueFromRule(rule, "unterminated_code_fence",
				Span{StartLine: lineOffset + fence.StartLine}, "markdown",
				"code fence opened but never closed", models.ValidatorMarkdown))
		}
	}

	for i, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") && strings.Count(trimmed, "|") < 2 {
			rule, _ := resolveRule(vctx, "markdown", "malformed_table_row")
			report.Issues = append(report.Issues, issueFromRule(rule, "malformed_table_row",
				Span{StartLine: lineOffset + i + 1}, "markdown",
				"table row has fewer than two pipe delimiters", models.ValidatorMarkdown))
		}
		if unmatchedEmphasis(trimmed) {
			rule, _ := resolveRule(vctx, "markdown", "unmatched_emphasis")
			report.Issues = append(report.Issues, issueFromRule(rule, "unmatched_emphasis",
				Span{StartLine: lineOffset + i + 1}, "markdown",
				"unmatched emphasis marker (*, _, **, or __)", models.ValidatorMarkdown))
		}
	}

	return report, nil
}

// unmatchedEmphasis reports whether line contains an odd count of any
// single emphasis delimiter, ignoring delimiters already consumed as part
// of a longer run (so "**bold**" does not also trip the "*" check).
func unmatchedEmphasis(line string) bool {
	stripped := strings.ReplaceAll(strings.ReplaceAll(line, "**", ""), "__", "")
	if strings.Count(stripped, "*")%2 != 0 {
		return true
	}
	if strings.Count(stripped, "_")%2 != 0 {
		return true
	}
	return false
}
