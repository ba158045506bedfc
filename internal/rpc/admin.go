package rpc

import (
	"context"
	"runtime"

	"github.com/babar-raza/tbcv/internal/rpcerr"
	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/google/uuid"
)

// CacheInvalidationTags names the invalidation tags the rule loader and
// truth index's reload events are published under (cache.SubscribeInvalidation
// is wired to these in pkg/server); rebuild_cache below invalidates the
// same tags on demand.
const (
	TagRules = "rules"
	TagTruth = "truth"
)

func registerAdminMethods(reg *Registry, d Deps) {
	reg.register("get_system_status", CategoryAdmin, ParamSchema{}, d.getSystemStatus)
	reg.register("clear_cache", CategoryAdmin, ParamSchema{}, d.clearCache)
	reg.register("get_cache_stats", CategoryAdmin, ParamSchema{}, d.getCacheStats)
	reg.register("cleanup_cache", CategoryAdmin, ParamSchema{}, d.cleanupCache)
	reg.register("rebuild_cache", CategoryAdmin, ParamSchema{}, d.rebuildCache)
	reg.register("reload_agent", CategoryAdmin, ParamSchema{
		Optional: []ParamSpec{{Name: "name", Type: TypeString, Default: ""}},
	}, d.reloadAgent)
	reg.register("run_gc", CategoryAdmin, ParamSchema{}, d.runGC)
	reg.register("enable_maintenance_mode", CategoryAdmin, ParamSchema{}, d.enableMaintenanceMode)
	reg.register("disable_maintenance_mode", CategoryAdmin, ParamSchema{}, d.disableMaintenanceMode)
	reg.register("create_checkpoint", CategoryAdmin, ParamSchema{
		Required: []ParamSpec{{Name: "workflow_id", Type: TypeString}, {Name: "name", Type: TypeString}},
		Optional: []ParamSpec{{Name: "step_number", Type: TypeInt, Default: 0}},
	}, d.createCheckpoint)
}

func (d Deps) getSystemStatus(ctx context.Context, _ map[string]any) (any, error) {
	status := map[string]any{
		"store_reachable": d.Store.Ping(ctx) == nil,
		"cache":           d.Cache.Stats(),
		"truth_index":     d.Truth.Stats(),
	}
	if d.Bus != nil {
		status["event_subscribers"] = map[string]int{
			"config_change": d.Bus.SubscriberCount("config_change"),
			"truth_change":  d.Bus.SubscriberCount("truth_change"),
		}
	}
	return status, nil
}

// clear_cache wipes L1 only (§4.4's `clear(namespace?)`); L2 holds durable,
// cross-process derived data with no bulk-clear primitive on
// contracts.CacheBackend, and repopulates itself from misses regardless.
func (d Deps) clearCache(_ context.Context, _ map[string]any) (any, error) {
	removed := d.Cache.Clear()
	return map[string]any{"l1_cleaned": removed, "l2_cleaned": 0}, nil
}

func (d Deps) getCacheStats(_ context.Context, _ map[string]any) (any, error) {
	return d.Cache.Stats(), nil
}

// cleanup_cache matches §4.4's `cleanup_expired() -> {l1_cleaned, l2_cleaned}`:
// a proactive sweep of TTL-expired L1 entries, ahead of the next Get that
// would have found them stale anyway.
func (d Deps) cleanupCache(_ context.Context, _ map[string]any) (any, error) {
	removed := d.Cache.CleanupExpired()
	return map[string]any{"l1_cleaned": removed, "l2_cleaned": 0}, nil
}

// rebuild_cache forces every rule- and truth-scoped cache entry to
// repopulate on next read, the same invalidation a live rule/truth file
// reload triggers via cache.SubscribeInvalidation, but on demand.
func (d Deps) rebuildCache(ctx context.Context, _ map[string]any) (any, error) {
	d.Cache.InvalidateTag(ctx, TagRules)
	d.Cache.InvalidateTag(ctx, TagTruth)
	return map[string]any{"ok": true}, nil
}

// reload_agent is a diagnostic no-op (§9 open question): the rule loader
// and truth index already reload themselves on file-mtime change via
// fsnotify, so there is nothing left for an explicit reload to trigger
// beyond acknowledging the request.
func (d Deps) reloadAgent(_ context.Context, params map[string]any) (any, error) {
	return map[string]any{"ok": true, "name": paramString(params, "name", "")}, nil
}

// run_gc is a diagnostic no-op beyond actually invoking the Go garbage
// collector; it exists for operational parity with the rest of the admin
// surface, not because TBCV manages its own heap.
func (d Deps) runGC(_ context.Context, _ map[string]any) (any, error) {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	runtime.GC()
	runtime.ReadMemStats(&after)
	return map[string]any{
		"ok":               true,
		"heap_before_bytes": before.HeapAlloc,
		"heap_after_bytes":  after.HeapAlloc,
	}, nil
}

func (d Deps) enableMaintenanceMode(_ context.Context, _ map[string]any) (any, error) {
	d.Engine.SetMaintenanceMode(true)
	return map[string]any{"maintenance_mode": true}, nil
}

func (d Deps) disableMaintenanceMode(_ context.Context, _ map[string]any) (any, error) {
	d.Engine.SetMaintenanceMode(false)
	return map[string]any{"maintenance_mode": false}, nil
}

// create_checkpoint lets an operator snapshot a workflow's progress
// out-of-band from the engine's own step checkpoints (internal/workflow's
// engine.checkpoint), e.g. before a risky manual intervention.
func (d Deps) createCheckpoint(ctx context.Context, params map[string]any) (any, error) {
	workflowID := paramString(params, "workflow_id", "")
	if _, err := d.getWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}
	cp := &models.Checkpoint{
		ID:            uuid.NewString(),
		WorkflowID:    workflowID,
		StepNumber:    paramInt(params, "step_number", 0),
		Name:          paramString(params, "name", ""),
		CreatedAt:     timeNow(),
		CanResumeFrom: true,
	}
	if err := d.Store.CreateCheckpoint(ctx, cp); err != nil {
		return nil, rpcerr.Internal(err)
	}
	return cp, nil
}
