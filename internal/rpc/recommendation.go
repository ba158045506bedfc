package rpc

import (
	"context"

	"github.com/babar-raza/tbcv/internal/rpcerr"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/pkg/models"
)

func registerRecommendationMethods(reg *Registry, d Deps) {
	reg.register("generate_recommendations", CategoryRecommendation, ParamSchema{
		Required: []ParamSpec{{Name: "validation_id", Type: TypeString}},
	}, d.generateRecommendations)

	reg.register("rebuild_recommendations", CategoryRecommendation, ParamSchema{
		Required: []ParamSpec{{Name: "validation_id", Type: TypeString}},
	}, d.rebuildRecommendations)

	reg.register("get_recommendations", CategoryRecommendation, ParamSchema{
		Required: []ParamSpec{{Name: "validation_id", Type: TypeString}},
	}, d.getRecommendations)

	// get_recommendation (singular, by id) rounds out the catalogue
	// alongside get_recommendations (plural, by validation) the same way
	// get_validation/list_validations and get_workflow/list_workflows
	// both offer single- and collection-scoped reads.
	reg.register("get_recommendation", CategoryRecommendation, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
	}, d.getRecommendationRPC)

	reg.register("review_recommendation", CategoryRecommendation, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}, {Name: "decision", Type: TypeString}},
	}, d.reviewRecommendation)

	reg.register("bulk_review_recommendations", CategoryRecommendation, ParamSchema{
		Required: []ParamSpec{{Name: "ids", Type: TypeArray}, {Name: "decision", Type: TypeString}},
	}, d.bulkReviewRecommendations)

	reg.register("apply_recommendations", CategoryRecommendation, ParamSchema{
		Required: []ParamSpec{{Name: "validation_id", Type: TypeString}, {Name: "recommendation_ids", Type: TypeArray}},
		Optional: []ParamSpec{
			{Name: "preservation_rules", Type: TypeObject},
			{Name: "override", Type: TypeBool, Default: false},
		},
	}, d.applyRecommendations)

	reg.register("delete_recommendation", CategoryRecommendation, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
	}, d.deleteRecommendation)

	reg.register("mark_recommendations_applied", CategoryRecommendation, ParamSchema{
		Required: []ParamSpec{{Name: "ids", Type: TypeArray}},
	}, d.markRecommendationsApplied)
}

func (d Deps) generateRecommendations(ctx context.Context, params map[string]any) (any, error) {
	recs, err := d.Recommender.Generate(ctx, paramString(params, "validation_id", ""))
	if err != nil {
		if isNotFound(err) {
			return nil, rpcerr.NotFound("validation", paramString(params, "validation_id", ""))
		}
		return nil, rpcerr.Internal(err)
	}
	return recs, nil
}

func (d Deps) rebuildRecommendations(ctx context.Context, params map[string]any) (any, error) {
	deleted, created, err := d.Recommender.Rebuild(ctx, paramString(params, "validation_id", ""))
	if err != nil {
		return nil, rpcerr.Internal(err)
	}
	return map[string]any{"deleted": deleted, "created": created}, nil
}

func (d Deps) getRecommendations(ctx context.Context, params map[string]any) (any, error) {
	recs, err := d.Store.ListRecommendationsByValidation(ctx, paramString(params, "validation_id", ""))
	if err != nil {
		return nil, rpcerr.Internal(err)
	}
	return recs, nil
}

func (d Deps) getRecommendationRPC(ctx context.Context, params map[string]any) (any, error) {
	return d.getRecommendation(ctx, paramString(params, "id", ""))
}

// transitionRecommendation mirrors transitionValidation's shape for the
// pending -> {approved, rejected} -> applied machine (§4.7), applied to
// the Recommendation entity instead of Validation. The status change is
// delegated to Store.TransitionRecommendation's atomic compare-and-set.
func (d Deps) transitionRecommendation(ctx context.Context, id string, target models.RecommendationStatus) (*models.Recommendation, error) {
	rec, err := d.Store.TransitionRecommendation(ctx, id, models.RecPending, target)
	if err != nil {
		if isNotFound(err) {
			return nil, rpcerr.NotFound("recommendation", id)
		}
		if it, ok := err.(*store.ErrInvalidTransition); ok {
			return nil, rpcerr.Newf(rpcerr.CodeInvalidState, "recommendation %q cannot transition from %q to %q", id, it.Current, it.To).
				WithData(map[string]any{"reason": "invalid_transition"})
		}
		return nil, rpcerr.Internal(err)
	}
	return rec, nil
}

func (d Deps) reviewRecommendation(ctx context.Context, params map[string]any) (any, error) {
	target, err := decisionToStatus(paramString(params, "decision", ""))
	if err != nil {
		return nil, err
	}
	return d.transitionRecommendation(ctx, paramString(params, "id", ""), target)
}

func (d Deps) bulkReviewRecommendations(ctx context.Context, params map[string]any) (any, error) {
	target, err := decisionToStatus(paramString(params, "decision", ""))
	if err != nil {
		return nil, err
	}
	ids := paramStringSlice(params, "ids")
	results := make([]bulkResult, 0, len(ids))
	for _, id := range ids {
		if _, terr := d.transitionRecommendation(ctx, id, target); terr != nil {
			results = append(results, bulkResult{ID: id, OK: false, Error: terr.Error()})
			continue
		}
		results = append(results, bulkResult{ID: id, OK: true})
	}
	return results, nil
}

func decisionToStatus(decision string) (models.RecommendationStatus, error) {
	switch decision {
	case "approve":
		return models.RecApproved, nil
	case "reject":
		return models.RecRejected, nil
	default:
		return "", rpcerr.InvalidParams(`decision must be "approve" or "reject"`)
	}
}

// applyRecommendations is the recommendation-category entry point into the
// same enhancer.Apply path "enhance" uses, scoped to an explicit
// recommendation_ids list rather than "every approved recommendation".
func (d Deps) applyRecommendations(ctx context.Context, params map[string]any) (any, error) {
	validationID := paramString(params, "validation_id", "")
	v, err := d.getValidation(ctx, validationID)
	if err != nil {
		return nil, err
	}
	recs, err := d.recommendationsForValidation(ctx, validationID, paramStringSlice(params, "recommendation_ids"))
	if err != nil {
		return nil, err
	}
	rules := paramPreservationRules(params)
	override := paramBool(params, "override", false)

	record, err := d.Enhancer.Apply(ctx, v, recs, rules, override)
	if err != nil {
		return nil, mapEnhancerErr(err)
	}
	return record, nil
}

func (d Deps) deleteRecommendation(ctx context.Context, params map[string]any) (any, error) {
	id := paramString(params, "id", "")
	if _, err := d.getRecommendation(ctx, id); err != nil {
		return nil, err
	}
	if err := d.Store.DeleteRecommendation(ctx, id); err != nil {
		return nil, rpcerr.Internal(err)
	}
	return map[string]any{"deleted": id}, nil
}

// markRecommendationsApplied is a manual administrative correction for
// recommendations applied outside the normal enhancer path (e.g. a human
// edited the file directly); it sets status=applied without writing to
// disk or creating an EnhancementRecord, unlike apply_recommendations.
func (d Deps) markRecommendationsApplied(ctx context.Context, params map[string]any) (any, error) {
	ids := paramStringSlice(params, "ids")
	results := make([]bulkResult, 0, len(ids))
	for _, id := range ids {
		rec, err := d.getRecommendation(ctx, id)
		if err != nil {
			results = append(results, bulkResult{ID: id, OK: false, Error: err.Error()})
			continue
		}
		rec.Status = models.RecApplied
		if err := d.Store.UpdateRecommendation(ctx, rec); err != nil {
			results = append(results, bulkResult{ID: id, OK: false, Error: err.Error()})
			continue
		}
		results = append(results, bulkResult{ID: id, OK: true})
	}
	return results, nil
}
