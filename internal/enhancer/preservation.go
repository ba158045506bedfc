package enhancer

import (
	"strings"

	"github.com/babar-raza/tbcv/pkg/models"
)

// computePreservation checks every invariant from §4.5 step 4 against the
// original and enhanced content.
func computePreservation(original, enhanced string, rules models.PreservationRules, recs []models.Recommendation) models.PreservationReport {
	report := models.PreservationReport{
		KeywordsPreserved:    true,
		FrontmatterPreserved: true,
		CodeFencesPreserved:  true,
		HeadingHierarchyOK:   true,
	}

	for _, kw := range rules.Keywords {
		if !strings.Contains(strings.ToLower(enhanced), strings.ToLower(kw)) {
			report.KeywordsPreserved = false
			report.Violations = append(report.Violations, models.PreservationViolation{
				Kind: "keyword", Severity: "critical",
				Detail: "keyword \"" + kw + "\" is missing from the enhanced content",
			})
		}
	}
	for _, name := range rules.ProductNames {
		if !strings.Contains(enhanced, name) { // case-sensitive per §4.5
			report.KeywordsPreserved = false
			report.Violations = append(report.Violations, models.PreservationViolation{
				Kind: "product_name", Severity: "critical",
				Detail: "product name \"" + name + "\" is missing (case-sensitive) from the enhanced content",
			})
		}
	}
	for _, term := range rules.TechnicalTerms {
		if !strings.Contains(strings.ToLower(enhanced), strings.ToLower(term)) {
			report.KeywordsPreserved = false
			report.Violations = append(report.Violations, models.PreservationViolation{
				Kind: "technical_term", Severity: "warning",
				Detail: "technical term \"" + term + "\" is missing from the enhanced content",
			})
		}
	}

	if rules.PreserveFrontmatter && !targetsSEO(recs) {
		origFM := rawFrontmatter(original)
		newFM := rawFrontmatter(enhanced)
		if origFM != newFM {
			report.FrontmatterPreserved = false
			report.Violations = append(report.Violations, models.PreservationViolation{
				Kind: "frontmatter", Severity: "critical",
				Detail: "frontmatter block changed without an seo-type recommendation targeting it",
			})
		}
	}

	if rules.PreserveCodeBlocks {
		origFences := countFences(original)
		newFences := countFences(enhanced)
		if origFences != newFences {
			report.CodeFencesPreserved = false
			report.Violations = append(report.Violations, models.PreservationViolation{
				Kind: "code_fences", Severity: "critical",
				Detail: "number of fenced code blocks changed",
			})
		}
	}

	if rules.PreserveHeadings {
		if maxHeadingDepth(enhanced) < maxHeadingDepth(original) {
			report.HeadingHierarchyOK = false
			report.Violations = append(report.Violations, models.PreservationViolation{
				Kind: "heading_hierarchy", Severity: "warning",
				Detail: "heading hierarchy depth regressed",
			})
		}
	}

	origLen, newLen := float64(len(original)), float64(len(enhanced))
	if origLen > 0 {
		report.LengthDeltaPct = (newLen - origLen) / origLen
	}
	maxReduction := rules.MaxContentReductionPct
	if maxReduction == 0 {
		maxReduction = 0.20
	}
	if report.LengthDeltaPct < 0 && -report.LengthDeltaPct > maxReduction {
		report.Violations = append(report.Violations, models.PreservationViolation{
			Kind: "content_reduction", Severity: "critical",
			Detail: "enhanced content shrank beyond the configured maximum reduction percentage",
		})
	}
	if report.LengthDeltaPct > 0 && rules.MinContentExpansionPct > 0 && report.LengthDeltaPct < rules.MinContentExpansionPct {
		report.Violations = append(report.Violations, models.PreservationViolation{
			Kind: "content_expansion", Severity: "warning",
			Detail: "enhanced content did not expand by the configured minimum percentage",
		})
	}

	return report
}

func targetsSEO(recs []models.Recommendation) bool {
	for _, rec := range recs {
		if rec.Type == models.RecSEO && rec.Status == models.RecApproved {
			return true
		}
	}
	return false
}

func rawFrontmatter(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return ""
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n")
		}
	}
	return ""
}

func countFences(content string) int {
	count := 0
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			count++
		}
	}
	return count / 2
}

func maxHeadingDepth(content string) int {
	max := 0
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		level := 0
		for level < len(trimmed) && level < 6 && trimmed[level] == '#' {
			level++
		}
		if level > 0 && level < len(trimmed) && trimmed[level] == ' ' && level > max {
			max = level
		}
	}
	return max
}
