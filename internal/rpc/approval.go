package rpc

import (
	"context"

	"github.com/babar-raza/tbcv/internal/rpcerr"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/pkg/models"
)

func registerApprovalMethods(reg *Registry, d Deps) {
	reg.register("approve", CategoryApproval, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
	}, d.approve)

	reg.register("reject", CategoryApproval, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
	}, d.reject)

	reg.register("bulk_approve", CategoryApproval, ParamSchema{
		Required: []ParamSpec{{Name: "ids", Type: TypeArray}},
	}, d.bulkApprove)

	reg.register("bulk_reject", CategoryApproval, ParamSchema{
		Required: []ParamSpec{{Name: "ids", Type: TypeArray}},
	}, d.bulkReject)
}

// transitionValidation enforces §4.7's status machine: pending ->
// {approved, rejected}; approved -> enhanced (done by the enhancer, not
// here); enhanced and rejected are terminal. Re-applying the same target
// state is a no-op (§8 idempotence law), anything else against a
// non-pending validation is an invalid_transition error. The status
// change itself is delegated to Store.TransitionValidation, which
// performs the compare-and-set atomically so two concurrent
// approve/reject calls on the same id can never both succeed.
func (d Deps) transitionValidation(ctx context.Context, id string, target models.ValidationStatus) (*models.Validation, error) {
	v, err := d.Store.TransitionValidation(ctx, id, models.ValidationPending, target)
	if err != nil {
		if isNotFound(err) {
			return nil, rpcerr.NotFound("validation", id)
		}
		if it, ok := err.(*store.ErrInvalidTransition); ok {
			return nil, rpcerr.Newf(rpcerr.CodeInvalidState, "validation %q cannot transition from %q to %q", id, it.Current, it.To).
				WithData(map[string]any{"reason": "invalid_transition"})
		}
		return nil, rpcerr.Internal(err)
	}
	return v, nil
}

func (d Deps) approve(ctx context.Context, params map[string]any) (any, error) {
	return d.transitionValidation(ctx, paramString(params, "id", ""), models.ValidationApproved)
}

func (d Deps) reject(ctx context.Context, params map[string]any) (any, error) {
	return d.transitionValidation(ctx, paramString(params, "id", ""), models.ValidationRejected)
}

// bulkResult is the per-item outcome in bulk_approve/bulk_reject/
// bulk_review_recommendations/bulk_delete_workflows responses: one bad id
// among many never fails the whole batch, it's reported alongside the
// successes.
type bulkResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (d Deps) bulkApprove(ctx context.Context, params map[string]any) (any, error) {
	return d.bulkTransition(ctx, paramStringSlice(params, "ids"), models.ValidationApproved)
}

func (d Deps) bulkReject(ctx context.Context, params map[string]any) (any, error) {
	return d.bulkTransition(ctx, paramStringSlice(params, "ids"), models.ValidationRejected)
}

func (d Deps) bulkTransition(ctx context.Context, ids []string, target models.ValidationStatus) (any, error) {
	results := make([]bulkResult, 0, len(ids))
	for _, id := range ids {
		if _, err := d.transitionValidation(ctx, id, target); err != nil {
			results = append(results, bulkResult{ID: id, OK: false, Error: err.Error()})
			continue
		}
		results = append(results, bulkResult{ID: id, OK: true})
	}
	return results, nil
}
