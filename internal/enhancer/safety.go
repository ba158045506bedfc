package enhancer

import "github.com/babar-raza/tbcv/pkg/models"

// Component weights for the safety score aggregate (§4.5 step 5). These
// sum to 1.0; technical_accuracy reuses the keyword/technical-term signal
// since TBCV has no independent fact-checking signal beyond the truth
// validator's own issues (already reflected upstream in recommendations).
const (
	weightKeyword   = 0.35
	weightStructure = 0.30
	weightStability = 0.20
	weightAccuracy  = 0.15
)

// computeSafetyScore derives the weighted [0,1] aggregate from a
// PreservationReport. A critical violation pins the score to 0
// regardless of weights, per §4.5 step 5.
func computeSafetyScore(report models.PreservationReport) models.SafetyScore {
	score := models.SafetyScore{Violations: report.Violations}

	if report.KeywordsPreserved {
		score.KeywordPreservation = 1.0
	}
	structureOK := report.FrontmatterPreserved && report.CodeFencesPreserved && report.HeadingHierarchyOK
	if structureOK {
		score.StructurePreservation = 1.0
	}

	delta := report.LengthDeltaPct
	if delta < 0 {
		delta = -delta
	}
	score.ContentStability = 1.0 - clamp01(delta)
	score.TechnicalAccuracy = score.KeywordPreservation

	score.Value = weightKeyword*score.KeywordPreservation +
		weightStructure*score.StructurePreservation +
		weightStability*score.ContentStability +
		weightAccuracy*score.TechnicalAccuracy

	if report.HasCritical() {
		score.Value = 0
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
