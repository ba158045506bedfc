// Package workflow implements the long-running batch job state machine
// (§4.6): pending/running/paused/completed/failed/cancelled, checkpoints
// at step boundaries, pause/resume/cancel control signals, and progress
// events on the EventBus. It is directly adapted from the teacher's
// internal/workflow/engine.go: the same runs map[string]context.CancelFunc
// for cancellation, the same gates-shaped per-run coordination map
// (generalized here from human-gate channels into pause/resume control),
// and the same background-goroutine-per-run execution model — but driving
// TBCV's own batch validation/enhancement instead of recipe DAG steps.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/babar-raza/tbcv/internal/accessguard"
	"github.com/babar-raza/tbcv/internal/config"
	"github.com/babar-raza/tbcv/internal/enhancer"
	"github.com/babar-raza/tbcv/internal/eventbus"
	"github.com/babar-raza/tbcv/internal/recommender"
	"github.com/babar-raza/tbcv/internal/ruleloader"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/internal/tier"
	"github.com/babar-raza/tbcv/internal/truthindex"
	"github.com/babar-raza/tbcv/pkg/contracts"
	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TopicProgress is published at every step boundary with a models.ProgressEvent.
const TopicProgress = "workflow_progress"

// ErrMaintenanceMode is the workflow_conflict application error returned
// by Create when maintenance mode is enabled (§4.6 admission control).
var ErrMaintenanceMode = fmt.Errorf("workflow: refused, maintenance mode enabled")

// ErrUnknownAction is returned by Control for an action outside {pause,
// resume, cancel}.
var ErrUnknownAction = fmt.Errorf("workflow: unknown control action")

// workflowControl coordinates pause/resume signaling for one running
// workflow, the generalized analogue of the teacher's per-gate channel.
type workflowControl struct {
	mu       sync.Mutex
	paused   bool
	resumeCh chan struct{}
}

func newWorkflowControl() *workflowControl {
	return &workflowControl{resumeCh: make(chan struct{})}
}

func (c *workflowControl) requestPause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

func (c *workflowControl) requestResume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		c.paused = false
		close(c.resumeCh)
		c.resumeCh = make(chan struct{})
	}
}

func (c *workflowControl) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *workflowControl) waitChan() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumeCh
}

// Engine executes and supervises workflow runs.
type Engine struct {
	store       store.Store
	bus         *eventbus.Bus
	router      *tier.Router
	rules       *ruleloader.Loader
	truth       *truthindex.Index
	llm         contracts.LLMDriver
	recommender *recommender.Recommender
	enhancer    *enhancer.Enhancer
	cfg         config.WorkflowConfig

	runsMu sync.RWMutex
	runs   map[string]context.CancelFunc

	controlsMu sync.RWMutex
	controls   map[string]*workflowControl

	maintenanceMu sync.RWMutex
	maintenance   bool
}

// NewEngine wires the workflow engine to every subsystem a batch job may
// need to drive: the validator tier router, rule/truth reference data,
// the recommender, and the enhancer.
func NewEngine(s store.Store, bus *eventbus.Bus, router *tier.Router, rules *ruleloader.Loader, truth *truthindex.Index, llm contracts.LLMDriver, rec *recommender.Recommender, enh *enhancer.Enhancer, cfg config.WorkflowConfig) *Engine {
	if cfg.BatchValidationWorkers <= 0 {
		cfg.BatchValidationWorkers = 8
	}
	if cfg.BatchEnhancementWorkers <= 0 {
		cfg.BatchEnhancementWorkers = 4
	}
	if cfg.ErrorThresholdPct <= 0 {
		cfg.ErrorThresholdPct = 0.25
	}
	return &Engine{
		store:       s,
		bus:         bus,
		router:      router,
		rules:       rules,
		truth:       truth,
		llm:         llm,
		recommender: rec,
		enhancer:    enh,
		cfg:         cfg,
		runs:        make(map[string]context.CancelFunc),
		controls:    make(map[string]*workflowControl),
	}
}

// SetMaintenanceMode toggles admission control for create_workflow, per
// §4.6's "running workflows continue" rule — only new creates are refused.
func (e *Engine) SetMaintenanceMode(on bool) {
	e.maintenanceMu.Lock()
	e.maintenance = on
	e.maintenanceMu.Unlock()
}

func (e *Engine) maintenanceMode() bool {
	e.maintenanceMu.RLock()
	defer e.maintenanceMu.RUnlock()
	return e.maintenance
}

// Create persists a new workflow and starts it immediately in the
// background, returning the (now running) workflow record.
func (e *Engine) Create(ctx context.Context, typ models.WorkflowType, params map[string]any) (*models.Workflow, error) {
	accessguard.RequireRPC(ctx)
	if e.maintenanceMode() {
		return nil, ErrMaintenanceMode
	}

	now := time.Now().UTC()
	wf := &models.Workflow{
		ID:         uuid.NewString(),
		Type:       typ,
		State:      models.WorkflowRunning,
		Parameters: params,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.store.CreateWorkflow(ctx, wf); err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}

	// Detached from the inbound request context so the batch run outlives
	// the RPC call that started it, but re-stamped with the RPC marker:
	// this engine was itself invoked through rpc.Dispatch, so its
	// background workers are an authorized continuation of that call, not
	// a stray goroutine bypassing it.
	runCtx, cancel := context.WithCancel(context.Background())
	runCtx = accessguard.WithRPCContext(runCtx, "workflow:"+string(typ))
	e.runsMu.Lock()
	e.runs[wf.ID] = cancel
	e.runsMu.Unlock()

	e.controlsMu.Lock()
	e.controls[wf.ID] = newWorkflowControl()
	e.controlsMu.Unlock()

	log.Info().Str("workflow_id", wf.ID).Str("type", string(typ)).Msg("Workflow started")
	go e.run(runCtx, wf)

	return wf, nil
}

// Control applies a pause/resume/cancel action. Idempotent on terminal
// states per §4.6: returns the current state with no error.
func (e *Engine) Control(ctx context.Context, id, action string) (models.WorkflowState, error) {
	accessguard.RequireRPC(ctx)
	wf, err := e.store.GetWorkflow(ctx, id)
	if err != nil {
		return "", err
	}
	if wf.State.Terminal() {
		return wf.State, nil
	}

	switch action {
	case "cancel":
		e.runsMu.Lock()
		cancel, ok := e.runs[id]
		e.runsMu.Unlock()
		if ok {
			cancel()
		} else {
			// Nothing running (e.g. already paused with no live goroutine
			// in a restarted process) — cancel directly.
			e.transition(ctx, wf, models.WorkflowCancelled, "cancelled by control signal")
		}
		return models.WorkflowCancelled, nil

	case "pause":
		e.controlsMu.RLock()
		ctl, ok := e.controls[id]
		e.controlsMu.RUnlock()
		if ok {
			ctl.requestPause()
		}
		return models.WorkflowPaused, nil

	case "resume":
		e.controlsMu.RLock()
		ctl, ok := e.controls[id]
		e.controlsMu.RUnlock()
		if ok {
			ctl.requestResume()
		}
		return models.WorkflowRunning, nil

	default:
		return wf.State, ErrUnknownAction
	}
}

// run dispatches by workflow type, the same dispatch-by-kind shape as the
// teacher's executeStepOnce switch over step.Kind.
func (e *Engine) run(ctx context.Context, wf *models.Workflow) {
	defer e.cleanupRun(wf.ID)

	files, err := filesForWorkflow(wf)
	if err != nil {
		e.transition(ctx, wf, models.WorkflowFailed, err.Error())
		return
	}
	e.execute(ctx, wf, files)
}

// runResumed is run's counterpart for RecoverResumable: it skips file
// resolution (the caller already reduced the list to what the checkpoint
// says is still outstanding) but otherwise drives the same dispatch and
// terminal transition.
func (e *Engine) runResumed(ctx context.Context, wf *models.Workflow, files []string) {
	defer e.cleanupRun(wf.ID)
	e.execute(ctx, wf, files)
}

func (e *Engine) cleanupRun(id string) {
	e.runsMu.Lock()
	delete(e.runs, id)
	e.runsMu.Unlock()
	e.controlsMu.Lock()
	delete(e.controls, id)
	e.controlsMu.Unlock()
}

// execute runs the batch job appropriate to wf.Type over files and applies
// the resulting terminal transition.
func (e *Engine) execute(ctx context.Context, wf *models.Workflow, files []string) {
	var err error
	switch wf.Type {
	case models.WorkflowBatchEnhancement:
		err = e.runBatchEnhancement(ctx, wf, files)
	default:
		err = e.runBatchValidation(ctx, wf, files)
	}

	if err == errCancelled {
		e.transition(ctx, wf, models.WorkflowCancelled, "cancelled")
		return
	}
	if err != nil {
		e.transition(ctx, wf, models.WorkflowFailed, err.Error())
		return
	}
	e.transition(ctx, wf, models.WorkflowCompleted, "")
}

var errCancelled = fmt.Errorf("workflow: cancelled")

// awaitControl checks for a pause/cancel request at a step boundary. It
// blocks while paused and returns errCancelled if the run was cancelled
// either while running or while paused.
func (e *Engine) awaitControl(ctx context.Context, wf *models.Workflow) error {
	if ctx.Err() != nil {
		return errCancelled
	}

	e.controlsMu.RLock()
	ctl, ok := e.controls[wf.ID]
	e.controlsMu.RUnlock()
	if !ok || !ctl.isPaused() {
		return nil
	}

	e.transition(ctx, wf, models.WorkflowPaused, "")
	select {
	case <-ctl.waitChan():
		e.transition(ctx, wf, models.WorkflowRunning, "")
		return nil
	case <-ctx.Done():
		return errCancelled
	}
}

// checkpoint persists a step boundary and publishes progress, per §4.6's
// "checkpoints at step boundaries" and "progress event at every step
// boundary" requirements.
func (e *Engine) checkpoint(ctx context.Context, wf *models.Workflow, stepNumber int, stateData []byte, percent float64, message string) {
	cp := &models.Checkpoint{
		ID:            uuid.NewString(),
		WorkflowID:    wf.ID,
		StepNumber:    stepNumber,
		Name:          fmt.Sprintf("step_%d", stepNumber),
		StateData:     stateData,
		CreatedAt:     time.Now().UTC(),
		CanResumeFrom: true,
	}
	if err := e.store.CreateCheckpoint(ctx, cp); err != nil {
		log.Warn().Err(err).Str("workflow_id", wf.ID).Msg("Failed to persist checkpoint")
	}

	wf.LastCheckpointID = cp.ID
	wf.ProgressPercent = percent
	wf.UpdatedAt = time.Now().UTC()
	if err := e.store.UpdateWorkflow(ctx, wf); err != nil {
		log.Warn().Err(err).Str("workflow_id", wf.ID).Msg("Failed to update workflow progress")
	}

	e.bus.Publish(ctx, TopicProgress, models.ProgressEvent{
		WorkflowID: wf.ID,
		Percent:    percent,
		State:      wf.State,
		Message:    message,
	})
}

// transition moves wf to a new state, persists it, and emits progress.
func (e *Engine) transition(ctx context.Context, wf *models.Workflow, state models.WorkflowState, message string) {
	wf.State = state
	wf.UpdatedAt = time.Now().UTC()
	if state == models.WorkflowFailed {
		wf.ErrorMessage = message
	}
	if state.Terminal() {
		wf.ProgressPercent = 100
	}
	if err := e.store.UpdateWorkflow(ctx, wf); err != nil {
		log.Warn().Err(err).Str("workflow_id", wf.ID).Msg("Failed to persist workflow transition")
	}
	e.bus.Publish(ctx, TopicProgress, models.ProgressEvent{
		WorkflowID: wf.ID,
		Percent:    wf.ProgressPercent,
		State:      state,
		Message:    message,
	})
	log.Info().Str("workflow_id", wf.ID).Str("state", string(state)).Msg("Workflow transitioned")
}

// RecoverResumable reloads workflows left in a non-terminal state by a
// prior process and resumes each one from its last checkpoint (§4.6): the
// checkpoint's StateData lists the files already processed, so the file
// list a fresh run would use (filesForWorkflow) minus that set is exactly
// what's left to do. A workflow with no usable checkpoint, or whose file
// list can no longer be resolved (e.g. a validate_folder root that's gone),
// is marked failed instead — it genuinely cannot be resumed.
func (e *Engine) RecoverResumable(ctx context.Context) error {
	resumable, err := e.store.ListResumable(ctx)
	if err != nil {
		return err
	}
	for i := range resumable {
		wf := resumable[i]
		if e.resume(ctx, &wf) {
			continue
		}
		wf.State = models.WorkflowFailed
		wf.ErrorMessage = "interrupted by process restart"
		wf.UpdatedAt = time.Now().UTC()
		if err := e.store.UpdateWorkflow(ctx, &wf); err != nil {
			log.Warn().Err(err).Str("workflow_id", wf.ID).Msg("Failed to mark interrupted workflow failed")
		}
	}
	return nil
}

// resume attempts to restart wf from its last checkpoint. It returns false
// when wf never reached a checkpoint (nothing to resume from) or its file
// list can no longer be resolved, leaving the caller to fail it instead.
func (e *Engine) resume(ctx context.Context, wf *models.Workflow) bool {
	cp, err := e.store.GetLatestCheckpoint(ctx, wf.ID)
	if err != nil || cp == nil {
		return false
	}

	files, err := filesForWorkflow(wf)
	if err != nil {
		log.Warn().Err(err).Str("workflow_id", wf.ID).Msg("Cannot resolve files for interrupted workflow, failing it")
		return false
	}

	remaining := files
	if len(cp.StateData) > 0 {
		var state batchCheckpointState
		if derr := json.Unmarshal(cp.StateData, &state); derr == nil && len(state.Processed) > 0 {
			done := make(map[string]bool, len(state.Processed))
			for _, p := range state.Processed {
				done[p] = true
			}
			filtered := make([]string, 0, len(files))
			for _, f := range files {
				if !done[f] {
					filtered = append(filtered, f)
				}
			}
			remaining = filtered
		}
	}

	if len(remaining) == 0 {
		e.transition(ctx, wf, models.WorkflowCompleted, "resumed with nothing left to process")
		return true
	}

	wf.State = models.WorkflowRunning
	wf.ErrorMessage = ""
	wf.UpdatedAt = time.Now().UTC()
	if err := e.store.UpdateWorkflow(ctx, wf); err != nil {
		log.Warn().Err(err).Str("workflow_id", wf.ID).Msg("Failed to persist resumed workflow state")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	runCtx = accessguard.WithRPCContext(runCtx, "workflow:"+string(wf.Type))
	e.runsMu.Lock()
	e.runs[wf.ID] = cancel
	e.runsMu.Unlock()
	e.controlsMu.Lock()
	e.controls[wf.ID] = newWorkflowControl()
	e.controlsMu.Unlock()

	log.Info().Str("workflow_id", wf.ID).Int("remaining", len(remaining)).Int("total", len(files)).Msg("Resuming workflow from checkpoint")
	go e.runResumed(runCtx, wf, remaining)
	return true
}
