package validators

import (
	"context"
	"strconv"
	"strings"

	"github.com/babar-raza/tbcv/pkg/models"
)

// StructureValidator checks basic document structure: presence of a single
// top-level heading, non-empty body, and heading hierarchy that never
// skips a level (h2 -> h4 with no h3 between). Tier 1 (syntax).
type StructureValidator struct{}

func (StructureValidator) Kind() models.ValidatorKind { return models.ValidatorStructure }

func (v StructureValidator) Validate(ctx context.Context, content string, vctx VContext) (*models.ValidationReport, error) {
	report := newReport()
	fm := splitFrontmatter(content)
	body := fm.Body
	lineOffset := fm.EndLine

	if strings.TrimSpace(body) == "" {
		rule, _ := resolveRule(vctx, "structure", "empty_document")
		report.Issues = append(report.Issues, issueFromRule(rule, "empty_document",
			Span{StartLine: 1}, "structure", "document body is empty", models.ValidatorStructure))
		report.Metrics = map[string]any{"heading_count": 0}
		return report, nil
	}

	headings := extractHeadings(body)
	report.Metrics = map[string]any{"heading_count": len(headings)}

	h1Count := 0
	for _, h := range headings {
		if h.Level == 1 {
			h1Count++
		}
	}
	if h1Count == 0 {
		rule, _ := resolveRule(vctx, "structure", "missing_h1")
		report.Issues = append(report.Issues, issueFromRule(rule, "missing_h1",
			Span{StartLine: 1}, "structure", "document has no top-level (h1) heading", models.ValidatorStructure))
	} else if h1Count > 1 {
		rule, _ := resolveRule(vctx, "structure", "multiple_h1")
		report.Issues = append(report.Issues, issueFromRule(rule, "multiple_h1",
			Span{StartLine: lineOffset + headings[0].Line}, "structure",
			"document has more than one top-level (h1) heading", models.ValidatorStructure))
	}

	prevLevel := 0
	for _, h := range headings {
		if prevLevel != 0 && h.Level > prevLevel+1 {
			rule, _ := resolveRule(vctx, "structure", "heading_level_skip")
			report.Issues = append(report.Issues, issueFromRule(rule, "heading_level_skip",
				Span{StartLine: lineOffset + h.Line}, "structure",
				"heading level skips from h"+strconv.Itoa(prevLevel)+" to h"+strconv.Itoa(h.Level), models.ValidatorStructure))
		}
		prevLevel = h.Level
	}

	return report, nil
}
