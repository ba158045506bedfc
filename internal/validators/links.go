package validators

import (
	"context"
	"strings"

	"github.com/babar-raza/tbcv/pkg/models"
)

// LinksValidator checks Markdown inline links for empty targets,
// disallowed URL schemes, and duplicate link text pointing at different
// targets (a common copy-paste error). Tier 2 (content).
type LinksValidator struct{}

func (LinksValidator) Kind() models.ValidatorKind { return models.ValidatorLinks }

func (v LinksValidator) Validate(ctx context.Context, content string, vctx VContext) (*models.ValidationReport, error) {
	report := newReport()
	fm := splitFrontmatter(content)
	body := fm.Body
	lineOffset := fm.EndLine

	links := extractLinks(body)
	report.Metrics = map[string]any{"link_count": len(links)}

	seenText := make(map[string]string)
	for _, link := range links {
		url := strings.TrimSpace(link.URL)
		if url == "" {
			rule, _ := resolveRule(vctx, "links", "empty_link_target")
			report.Issues = append(report.Issues, issueFromRule(rule, "link_empty_target",
				Span{StartLine: lineOffset + link.Line}, "links",
				"link \""+link.Text+"\" has an empty target", models.ValidatorLinks))
			continue
		}
		if strings.HasPrefix(strings.ToLower(url), "javascript:") {
			rule, _ := resolveRule(vctx, "links", "disallowed_scheme")
			report.Issues = append(report.Issues, issueFromRule(rule, "link_disallowed_scheme",
				Span{StartLine: lineOffset + link.Line}, "links",
				"link uses a disallowed scheme", models.ValidatorLinks))
			continue
		}
		if link.Text == "" {
			continue
		}
		if prior, ok := seenText[link.Text]; ok && prior != url {
			rule, _ := resolveRule(vctx, "links", "inconsistent_link_target")
			report.Issues = append(report.Issues, issueFromRule(rule, "link_inconsistent_target",
				Span{StartLine: lineOffset + link.Line}, "links",
				"link text \""+link.Text+"\" points at two different targets elsewhere in the document", models.ValidatorLinks))
		}
		seenText[link.Text] = url
	}

	return report, nil
}
