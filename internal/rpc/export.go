package rpc

import (
	"context"

	"github.com/babar-raza/tbcv/internal/rpcerr"
)

// export_* methods return the entity unmodified under a format envelope;
// "format" is currently always "json" (§6 "`--format json` returns the
// unmodified RPC result"), kept as a parameter so a future format (e.g.
// CSV for export_recommendations) can be added without a new method name.
func registerExportMethods(reg *Registry, d Deps) {
	reg.register("export_validation", CategoryExport, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
		Optional: []ParamSpec{{Name: "format", Type: TypeString, Default: "json"}},
	}, d.exportValidation)

	reg.register("export_recommendations", CategoryExport, ParamSchema{
		Required: []ParamSpec{{Name: "validation_id", Type: TypeString}},
		Optional: []ParamSpec{{Name: "format", Type: TypeString, Default: "json"}},
	}, d.exportRecommendations)

	reg.register("export_workflow", CategoryExport, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
		Optional: []ParamSpec{{Name: "format", Type: TypeString, Default: "json"}},
	}, d.exportWorkflow)
}

func (d Deps) exportValidation(ctx context.Context, params map[string]any) (any, error) {
	v, err := d.getValidation(ctx, paramString(params, "id", ""))
	if err != nil {
		return nil, err
	}
	return exportEnvelope(params, v), nil
}

func (d Deps) exportRecommendations(ctx context.Context, params map[string]any) (any, error) {
	recs, err := d.Store.ListRecommendationsByValidation(ctx, paramString(params, "validation_id", ""))
	if err != nil {
		return nil, rpcerr.Internal(err)
	}
	return exportEnvelope(params, recs), nil
}

func (d Deps) exportWorkflow(ctx context.Context, params map[string]any) (any, error) {
	wf, err := d.getWorkflow(ctx, paramString(params, "id", ""))
	if err != nil {
		return nil, err
	}
	return exportEnvelope(params, wf), nil
}

func exportEnvelope(params map[string]any, data any) any {
	return map[string]any{
		"format": paramString(params, "format", "json"),
		"data":   data,
	}
}
