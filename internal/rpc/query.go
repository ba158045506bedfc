package rpc

import (
	"context"

	"github.com/babar-raza/tbcv/internal/rpcerr"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/internal/tier"
	"github.com/babar-raza/tbcv/internal/validators"
	"github.com/babar-raza/tbcv/pkg/models"
)

func registerQueryMethods(reg *Registry, d Deps) {
	reg.register("get_stats", CategoryQuery, ParamSchema{}, d.getStats)

	reg.register("get_audit_log", CategoryQuery, ParamSchema{
		Optional: []ParamSpec{
			{Name: "method", Type: TypeString, Default: ""},
			{Name: "limit", Type: TypeInt, Default: 0},
		},
	}, d.getAuditLog)

	reg.register("get_performance_report", CategoryQuery, ParamSchema{}, d.getPerformanceReport)
	reg.register("get_health_report", CategoryQuery, ParamSchema{}, d.getHealthReport)

	reg.register("get_validation_history", CategoryQuery, ParamSchema{
		Required: []ParamSpec{{Name: "file_path", Type: TypeString}},
		Optional: []ParamSpec{{Name: "limit", Type: TypeInt, Default: 20}},
	}, d.getValidationHistory)

	reg.register("get_available_validators", CategoryQuery, ParamSchema{}, d.getAvailableValidators)

	// Rounding out the catalogue to 56 (§4.1's count includes these two
	// single/collection enhancement-record reads, the query-category
	// counterpart to get_validation/list_validations and
	// get_workflow/list_workflows).
	reg.register("get_enhancement_record", CategoryQuery, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
	}, d.getEnhancementRecordRPC)

	reg.register("list_enhancement_records", CategoryQuery, ParamSchema{
		Required: []ParamSpec{{Name: "file_path", Type: TypeString}},
		Optional: []ParamSpec{{Name: "limit", Type: TypeInt, Default: 20}},
	}, d.listEnhancementRecords)
}

func (d Deps) getStats(ctx context.Context, _ map[string]any) (any, error) {
	validations, err := d.Store.ListValidations(ctx, store.ValidationFilter{})
	if err != nil {
		return nil, rpcerr.Internal(err)
	}
	byStatus := map[models.ValidationStatus]int{}
	for _, v := range validations {
		byStatus[v.Status]++
	}

	workflows, err := d.Store.ListWorkflows(ctx, "", 0)
	if err != nil {
		return nil, rpcerr.Internal(err)
	}
	byState := map[models.WorkflowState]int{}
	for _, wf := range workflows {
		byState[wf.State]++
	}

	return map[string]any{
		"validations_total":      len(validations),
		"validations_by_status":  byStatus,
		"workflows_total":        len(workflows),
		"workflows_by_state":     byState,
		"cache":                  d.Cache.Stats(),
	}, nil
}

func (d Deps) getAuditLog(ctx context.Context, params map[string]any) (any, error) {
	filter := store.AuditFilter{
		Method: paramString(params, "method", ""),
		Limit:  paramInt(params, "limit", 0),
	}
	events, err := d.Store.ListAuditEvents(ctx, filter)
	if err != nil {
		return nil, rpcerr.Internal(err)
	}
	return events, nil
}

// get_performance_report reports what TBCV can cheaply observe about
// itself in-process; the full time-series view lives in Prometheus via
// the metrics already exported (RPCLatencySeconds, ValidatorDurationSeconds),
// scraped externally rather than re-exposed through RPC.
func (d Deps) getPerformanceReport(_ context.Context, _ map[string]any) (any, error) {
	return map[string]any{
		"cache": d.Cache.Stats(),
		"note":  "detailed latency histograms are exported via /metrics (Prometheus), not this RPC method",
	}, nil
}

func (d Deps) getHealthReport(ctx context.Context, _ map[string]any) (any, error) {
	storeErr := d.Store.Ping(ctx)
	return map[string]any{
		"store_reachable": storeErr == nil,
		"truth_index":     d.Truth.Stats(),
		"cache":           d.Cache.Stats(),
	}, nil
}

func (d Deps) getValidationHistory(ctx context.Context, params map[string]any) (any, error) {
	records, err := d.History.ForFile(ctx, paramString(params, "file_path", ""), paramInt(params, "limit", 20))
	if err != nil {
		return nil, rpcerr.Internal(err)
	}
	return records, nil
}

type validatorInfo struct {
	Kind models.ValidatorKind `json:"kind"`
	Tier int                  `json:"tier"`
}

func (d Deps) getAvailableValidators(_ context.Context, _ map[string]any) (any, error) {
	out := make([]validatorInfo, 0)
	for _, v := range validators.All() {
		out = append(out, validatorInfo{Kind: v.Kind(), Tier: tier.TierFor(v.Kind())})
	}
	return out, nil
}

func (d Deps) getEnhancementRecordRPC(ctx context.Context, params map[string]any) (any, error) {
	return d.getEnhancementRecord(ctx, paramString(params, "id", ""))
}

func (d Deps) listEnhancementRecords(ctx context.Context, params map[string]any) (any, error) {
	records, err := d.Store.ListEnhancementRecords(ctx, paramString(params, "file_path", ""), paramInt(params, "limit", 20))
	if err != nil {
		return nil, rpcerr.Internal(err)
	}
	return records, nil
}
