// Package recommender turns a stored ValidationReport into typed,
// actionable Recommendations (§4.5), following the teacher's
// rag.Pipeline.Query strategy-switch shape: one small function per
// recommendation type, dispatched from a single switch, with a
// self-critique pass that mirrors the teacher's HyDE "use the LLM, fall
// back gracefully on failure" idiom.
package recommender

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/babar-raza/tbcv/internal/accessguard"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/pkg/contracts"
	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const dedupSimilarityThreshold = 0.85

// Recommender generates and rebuilds Recommendations from a Validation's
// stored report.
type Recommender struct {
	store store.Store
	llm   contracts.LLMDriver // nil disables self-critique
}

func New(st store.Store, llm contracts.LLMDriver) *Recommender {
	return &Recommender{store: st, llm: llm}
}

// Generate gathers issues from the validation's stored report, partitions
// them by type, invokes the per-type strategy handler, optionally
// self-critiques, dedups, sorts deterministically, persists, and returns
// the created recommendations.
func (r *Recommender) Generate(ctx context.Context, validationID string) ([]models.Recommendation, error) {
	accessguard.RequireRPC(ctx)
	v, err := r.store.GetValidation(ctx, validationID)
	if err != nil {
		return nil, err
	}
	if v.ValidationResults == nil {
		return nil, nil
	}

	var recs []models.Recommendation
	for _, issue := range v.ValidationResults.Issues {
		rec := r.strategyFor(issue, v)
		if rec == nil {
			continue
		}
		recs = append(recs, *rec)
	}

	if r.llm != nil {
		recs = r.selfCritique(ctx, recs)
	}

	recs = dedup(recs)
	sortDeterministic(recs)

	if len(recs) > 0 {
		if err := r.store.CreateRecommendations(ctx, recs); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// Rebuild deletes existing recommendations for validationID and
// regenerates, reporting counts per §4.5.
func (r *Recommender) Rebuild(ctx context.Context, validationID string) (deleted, created int, err error) {
	accessguard.RequireRPC(ctx)
	existing, err := r.store.ListRecommendationsByValidation(ctx, validationID)
	if err != nil {
		return 0, 0, err
	}
	for _, rec := range existing {
		if delErr := r.deleteOne(ctx, rec.ID); delErr != nil {
			return 0, 0, delErr
		}
	}
	created = 0
	recs, err := r.Generate(ctx, validationID)
	if err != nil {
		return len(existing), 0, err
	}
	return len(existing), len(recs), nil
}

func (r *Recommender) deleteOne(ctx context.Context, id string) error {
	return r.store.DeleteRecommendation(ctx, id)
}

// strategyFor dispatches one issue to its type handler by category,
// following the teacher's switch-per-strategy shape (rag.Pipeline.Query).
func (r *Recommender) strategyFor(issue models.Issue, v *models.Validation) *models.Recommendation {
	switch issue.Category {
	case "fuzzy", "truth":
		return missingOrIncorrectPlugin(issue, v)
	case "frontmatter":
		return missingInfo(issue, v)
	case "structure", "markdown", "code":
		return structural(issue, v)
	case "seo":
		return seo(issue, v)
	case "tone":
		return tone(issue, v)
	default:
		return other(issue, v)
	}
}

func baseRecommendation(issue models.Issue, v *models.Validation, typ models.RecommendationType, change, rationale string) *models.Recommendation {
	return &models.Recommendation{
		ID:           uuid.NewString(),
		ValidationID: v.ID,
		Type:         typ,
		TargetLocation: models.TargetLocation{
			Line: issue.Span.StartLine,
		},
		SuggestedChange: change,
		Rationale:       rationale,
		Status:          models.RecPending,
		CreatedAt:       timeNow(),
		SourceIssueID:   issue.ID,
	}
}

func missingOrIncorrectPlugin(issue models.Issue, v *models.Validation) *models.Recommendation {
	typ := models.RecMissingPlugin
	if strings.Contains(issue.Message, "invalid_combination") || issue.Code == "truth_invalid_combination" {
		typ = models.RecIncorrectPlugin
	}
	return baseRecommendation(issue, v, typ,
		"verify the referenced plugin/API name against the truth index and correct if misspelled",
		issue.Message)
}

func missingInfo(issue models.Issue, v *models.Validation) *models.Recommendation {
	return baseRecommendation(issue, v, models.RecMissingInfo,
		"add the missing frontmatter field identified by the validator", issue.Message)
}

func structural(issue models.Issue, v *models.Validation) *models.Recommendation {
	return baseRecommendation(issue, v, models.RecStructural,
		"restructure the document section to resolve: "+issue.Message, issue.Message)
}

func seo(issue models.Issue, v *models.Validation) *models.Recommendation {
	return baseRecommendation(issue, v, models.RecSEO,
		"adjust title/description length to the recommended SEO range", issue.Message)
}

func tone(issue models.Issue, v *models.Validation) *models.Recommendation {
	return baseRecommendation(issue, v, models.RecTone, issue.Message, issue.Message)
}

func other(issue models.Issue, v *models.Validation) *models.Recommendation {
	if issue.Suggestion == "" {
		return nil
	}
	return baseRecommendation(issue, v, models.RecOther, issue.Suggestion, issue.Message)
}

// selfCritique scores each recommendation in [0,1] via the LLM driver and
// drops any recommendation scoring below 0.4; LLM failures leave the
// recommendation's critique score unset rather than failing generation,
// mirroring the teacher's hydeQuery "fall back on failure" idiom.
func (r *Recommender) selfCritique(ctx context.Context, recs []models.Recommendation) []models.Recommendation {
	out := make([]models.Recommendation, 0, len(recs))
	for _, rec := range recs {
		score, err := r.critiqueOne(ctx, rec)
		if err != nil {
			log.Warn().Err(err).Msg("recommender: self-critique degraded, keeping recommendation unscored")
			out = append(out, rec)
			continue
		}
		rec.CritiqueScore = &score
		if score < 0.4 {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (r *Recommender) critiqueOne(ctx context.Context, rec models.Recommendation) (float64, error) {
	req := contracts.CompletionRequest{
		Messages: []contracts.ChatMessage{
			{Role: "system", Content: "Score how useful this documentation fix suggestion is, from 0 to 1. Respond with only the number."},
			{Role: "user", Content: rec.Rationale + "\n\n" + rec.SuggestedChange},
		},
		MaxTokens: 8,
	}
	result, err := r.llm.Complete(ctx, req)
	if err != nil {
		return 0, err
	}
	return parseScore(result.Content), nil
}

var scorePattern = regexp.MustCompile(`[0-9]*\.?[0-9]+`)

// parseScore extracts the first decimal number in the model's response
// and clamps it to [0,1]; a response with no parseable number scores 0.
func parseScore(text string) float64 {
	match := scorePattern.FindString(text)
	if match == "" {
		return 0
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	if val > 1 {
		val = 1
	}
	if val < 0 {
		val = 0
	}
	return val
}

// dedup merges recommendations whose normalized suggested_change text is
// at or above the Jaccard similarity threshold (§4.5), keeping the first
// of each duplicate group.
func dedup(recs []models.Recommendation) []models.Recommendation {
	var out []models.Recommendation
	for _, rec := range recs {
		dup := false
		for _, kept := range out {
			if jaccard(normalize(rec.SuggestedChange), normalize(kept.SuggestedChange)) >= dedupSimilarityThreshold {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, rec)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		set[t] = struct{}{}
	}
	return set
}

// severityRank orders Severity for the deterministic sort (§4.5):
// severity desc, target_location asc, id asc.
var severityRank = map[models.Severity]int{
	models.SeverityCritical: 4,
	models.SeverityHigh:     3,
	models.SeverityMedium:   2,
	models.SeverityLow:      1,
	models.SeverityInfo:     0,
}

func sortDeterministic(recs []models.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		si, sj := recSeverity(recs[i]), recSeverity(recs[j])
		if si != sj {
			return severityRank[si] > severityRank[sj]
		}
		li, lj := recs[i].TargetLocation.Line, recs[j].TargetLocation.Line
		if li != lj {
			return li < lj
		}
		return recs[i].ID < recs[j].ID
	})
}

// recSeverity derives a Recommendation's severity bucket from its type,
// since recommendations themselves do not carry one directly.
func recSeverity(rec models.Recommendation) models.Severity {
	switch rec.Type {
	case models.RecStructural, models.RecIncorrectPlugin:
		return models.SeverityHigh
	case models.RecMissingPlugin, models.RecMissingInfo:
		return models.SeverityMedium
	case models.RecSEO, models.RecTone:
		return models.SeverityLow
	default:
		return models.SeverityInfo
	}
}

func timeNow() time.Time { return time.Now().UTC() }
