package enhancer

import (
	"sort"
	"strings"

	"github.com/babar-raza/tbcv/pkg/models"
)

// priorityOf ranks recommendation types for conflict resolution:
// structural > seo > content > tone (§4.5 step 3).
func priorityOf(t models.RecommendationType) int {
	switch t {
	case models.RecStructural:
		return 4
	case models.RecSEO:
		return 3
	case models.RecTone:
		return 1
	default: // missing_plugin, incorrect_plugin, missing_info, other
		return 2
	}
}

// contextWindow returns the ±N lines of body around targetLine (1-based),
// used to give an edit handler surrounding context (§4.5 step 1). It
// returns the lines before and after the target (excluding the target
// line itself); editFor uses the first line of after to avoid inserting
// duplicate missing_info content.
func contextWindow(lines []string, targetLine, n int) (before, after []string) {
	idx := targetLine - 1
	start := idx - n
	if start < 0 {
		start = 0
	}
	end := idx + n + 1
	if end > len(lines) {
		end = len(lines)
	}
	if idx >= 0 && idx < len(lines) {
		before = lines[start:idx]
		after = lines[idx+1 : end]
	}
	return before, after
}

// editFor returns the replacement text for rec's target line, dispatched
// by type — one small handler per type, following the teacher's
// rag.Pipeline.Query strategy-switch shape. after is the context line
// immediately following the target, used by missing_info to avoid
// inserting a duplicate of content that is already there.
func editFor(rec models.Recommendation, originalLine string, after []string) string {
	switch rec.Type {
	case models.RecStructural:
		return rec.SuggestedChange
	case models.RecSEO:
		return rec.SuggestedChange
	case models.RecMissingPlugin, models.RecIncorrectPlugin:
		return originalLine + " <!-- " + rec.SuggestedChange + " -->"
	case models.RecMissingInfo:
		if len(after) > 0 && strings.TrimSpace(after[0]) == strings.TrimSpace(rec.SuggestedChange) {
			return originalLine // already present on the next line, nothing to insert
		}
		return originalLine + "\n" + rec.SuggestedChange
	case models.RecTone:
		return rec.SuggestedChange
	default:
		if rec.SuggestedChange == "" {
			return originalLine
		}
		return rec.SuggestedChange
	}
}

// applyRecommendations resolves conflicts across recs' target lines and
// rewrites content line by line (§4.5 steps 1-3).
func applyRecommendations(content string, recs []models.Recommendation, rules models.PreservationRules) (string, []string, []models.SkippedRecommendation) {
	lines := strings.Split(content, "\n")
	chosen, skipped := resolveConflicts(recs)

	byLine := make(map[int]models.Recommendation, len(chosen))
	var appliedIDs []string
	for _, rec := range chosen {
		byLine[rec.TargetLocation.Line] = rec
		appliedIDs = append(appliedIDs, rec.ID)
	}

	var out []string
	for i, line := range lines {
		lineNum := i + 1
		if rec, ok := byLine[lineNum]; ok {
			_, after := contextWindow(lines, lineNum, defaultContextWindow)
			out = append(out, editFor(rec, line, after))
			continue
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n"), appliedIDs, skipped
}

// resolveConflicts linearises edits by non-overlapping target line,
// picking the highest-priority recommendation (then earliest target
// column, then lowest id) whenever two or more land on the same line
// (§4.5 step 3).
func resolveConflicts(recs []models.Recommendation) (chosen []models.Recommendation, skipped []models.SkippedRecommendation) {
	sorted := make([]models.Recommendation, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TargetLocation.Line != sorted[j].TargetLocation.Line {
			return sorted[i].TargetLocation.Line < sorted[j].TargetLocation.Line
		}
		if pi, pj := priorityOf(sorted[i].Type), priorityOf(sorted[j].Type); pi != pj {
			return pi > pj
		}
		if sorted[i].TargetLocation.Column != sorted[j].TargetLocation.Column {
			return sorted[i].TargetLocation.Column < sorted[j].TargetLocation.Column
		}
		return sorted[i].ID < sorted[j].ID
	})

	taken := make(map[int]bool)
	for _, rec := range sorted {
		if rec.Status != models.RecApproved {
			continue
		}
		line := rec.TargetLocation.Line
		if taken[line] {
			skipped = append(skipped, models.SkippedRecommendation{
				RecommendationID: rec.ID,
				Reason:           "conflict_with_higher_priority_edit",
			})
			continue
		}
		taken[line] = true
		chosen = append(chosen, rec)
	}
	return chosen, skipped
}
