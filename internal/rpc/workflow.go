package rpc

import (
	"context"

	"github.com/babar-raza/tbcv/internal/rpcerr"
	"github.com/babar-raza/tbcv/pkg/models"
)

func registerWorkflowMethods(reg *Registry, d Deps) {
	reg.register("create_workflow", CategoryWorkflow, ParamSchema{
		Required: []ParamSpec{{Name: "type", Type: TypeString}},
		Optional: []ParamSpec{{Name: "parameters", Type: TypeObject}},
	}, d.createWorkflow)

	reg.register("get_workflow", CategoryWorkflow, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
	}, d.getWorkflowRPC)

	reg.register("list_workflows", CategoryWorkflow, ParamSchema{
		Optional: []ParamSpec{
			{Name: "state", Type: TypeString, Default: ""},
			{Name: "limit", Type: TypeInt, Default: 0},
		},
	}, d.listWorkflows)

	reg.register("control_workflow", CategoryWorkflow, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}, {Name: "action", Type: TypeString}},
	}, d.controlWorkflow)

	reg.register("get_workflow_report", CategoryWorkflow, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
	}, d.getWorkflowReport)

	reg.register("get_workflow_summary", CategoryWorkflow, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
	}, d.getWorkflowSummary)

	reg.register("delete_workflow", CategoryWorkflow, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
	}, d.deleteWorkflow)

	reg.register("bulk_delete_workflows", CategoryWorkflow, ParamSchema{
		Required: []ParamSpec{{Name: "ids", Type: TypeArray}},
	}, d.bulkDeleteWorkflows)
}

func (d Deps) createWorkflow(ctx context.Context, params map[string]any) (any, error) {
	typ := models.WorkflowType(paramString(params, "type", ""))
	parameters := paramObject(params, "parameters")
	if parameters == nil {
		parameters = map[string]any{}
	}
	wf, err := d.Engine.Create(ctx, typ, parameters)
	if err != nil {
		return nil, rpcerr.Internal(err)
	}
	return wf, nil
}

func (d Deps) getWorkflowRPC(ctx context.Context, params map[string]any) (any, error) {
	return d.getWorkflow(ctx, paramString(params, "id", ""))
}

func (d Deps) listWorkflows(ctx context.Context, params map[string]any) (any, error) {
	state := models.WorkflowState(paramString(params, "state", ""))
	limit := paramInt(params, "limit", 0)
	list, err := d.Store.ListWorkflows(ctx, state, limit)
	if err != nil {
		return nil, rpcerr.Internal(err)
	}
	return list, nil
}

func (d Deps) controlWorkflow(ctx context.Context, params map[string]any) (any, error) {
	id := paramString(params, "id", "")
	action := paramString(params, "action", "")
	state, err := d.Engine.Control(ctx, id, action)
	if err != nil {
		if isNotFound(err) {
			return nil, rpcerr.NotFound("workflow", id)
		}
		return nil, rpcerr.Internal(err)
	}
	return map[string]any{"id": id, "state": state}, nil
}

// workflowReport bundles a Workflow with its checkpoint history, for
// get_workflow_report's fuller view than get_workflow alone.
type workflowReport struct {
	Workflow    *models.Workflow     `json:"workflow"`
	Checkpoints []models.Checkpoint `json:"checkpoints"`
}

func (d Deps) getWorkflowReport(ctx context.Context, params map[string]any) (any, error) {
	id := paramString(params, "id", "")
	wf, err := d.getWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	checkpoints, err := d.Store.ListCheckpoints(ctx, id)
	if err != nil {
		return nil, rpcerr.Internal(err)
	}
	return workflowReport{Workflow: wf, Checkpoints: checkpoints}, nil
}

func (d Deps) getWorkflowSummary(ctx context.Context, params map[string]any) (any, error) {
	wf, err := d.getWorkflow(ctx, paramString(params, "id", ""))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":               wf.ID,
		"state":            wf.State,
		"progress_percent": wf.ProgressPercent,
		"summary":          wf.Summary,
		"error_message":    wf.ErrorMessage,
	}, nil
}

func (d Deps) deleteWorkflow(ctx context.Context, params map[string]any) (any, error) {
	id := paramString(params, "id", "")
	wf, err := d.getWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	if !wf.State.Terminal() {
		return nil, rpcerr.Newf(rpcerr.CodeInvalidState, "workflow %q is not in a terminal state", id).
			WithData(map[string]any{"reason": "not_terminal", "state": string(wf.State)})
	}
	if err := d.Store.DeleteWorkflow(ctx, id); err != nil {
		return nil, rpcerr.Internal(err)
	}
	return map[string]any{"deleted": id}, nil
}

func (d Deps) bulkDeleteWorkflows(ctx context.Context, params map[string]any) (any, error) {
	ids := paramStringSlice(params, "ids")
	results := make([]bulkResult, 0, len(ids))
	for _, id := range ids {
		if _, err := d.deleteWorkflow(ctx, map[string]any{"id": id}); err != nil {
			results = append(results, bulkResult{ID: id, OK: false, Error: err.Error()})
			continue
		}
		results = append(results, bulkResult{ID: id, OK: true})
	}
	return results, nil
}
