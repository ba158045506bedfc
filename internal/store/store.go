// Package store provides the storage interface and implementations for the
// TBCV control plane. The default is an in-memory store with file-based
// snapshot persistence; a PostgreSQL-backed implementation is available
// for production deployments that want durability beyond a single process.
package store

import (
	"context"
	"time"

	"github.com/babar-raza/tbcv/pkg/models"
)

// Store is the primary storage interface for the control plane. All RPC
// handlers depend on this interface, never on a concrete implementation,
// so tests can run against MemoryStore and production against Postgres.
type Store interface {
	ValidationStore
	RecommendationStore
	EnhancementStore
	WorkflowStore
	CheckpointStore
	AuditStore

	// Ping checks if the backing store is reachable.
	Ping(ctx context.Context) error
	// Close releases all resources held by the store.
	Close() error
	// Migrate runs any schema migrations the backend requires.
	Migrate(ctx context.Context) error
}

// ── Validation Store ─────────────────────────────────────────

type ValidationFilter struct {
	Family   models.Family
	Status   models.ValidationStatus
	Since    *time.Time
	Limit    int
	Offset   int
}

type ValidationStore interface {
	GetValidation(ctx context.Context, id string) (*models.Validation, error)
	CreateValidation(ctx context.Context, v *models.Validation) error
	UpdateValidation(ctx context.Context, v *models.Validation) error
	// TransitionValidation atomically moves a validation's status from
	// "from" to "to", failing with *ErrInvalidTransition if the current
	// status is neither "from" nor already "to" (in which case the
	// transition is a no-op and the current record is returned). This is
	// the only safe way to apply a status change under concurrent
	// approve/reject calls on the same id; implementations must serialize
	// it against other writers (row lock, compare-and-set, or equivalent).
	TransitionValidation(ctx context.Context, id string, from, to models.ValidationStatus) (*models.Validation, error)
	ListValidations(ctx context.Context, filter ValidationFilter) ([]models.Validation, error)
	DeleteValidation(ctx context.Context, id string) error
}

// ── Recommendation Store ─────────────────────────────────────

type RecommendationStore interface {
	GetRecommendation(ctx context.Context, id string) (*models.Recommendation, error)
	CreateRecommendations(ctx context.Context, recs []models.Recommendation) error
	UpdateRecommendation(ctx context.Context, rec *models.Recommendation) error
	// TransitionRecommendation is TransitionValidation's counterpart for
	// the Recommendation entity's pending -> {approved, rejected} machine.
	TransitionRecommendation(ctx context.Context, id string, from, to models.RecommendationStatus) (*models.Recommendation, error)
	ListRecommendationsByValidation(ctx context.Context, validationID string) ([]models.Recommendation, error)
	DeleteRecommendation(ctx context.Context, id string) error
}

// ── Enhancement Store ────────────────────────────────────────

type EnhancementStore interface {
	GetEnhancementRecord(ctx context.Context, id string) (*models.EnhancementRecord, error)
	CreateEnhancementRecord(ctx context.Context, rec *models.EnhancementRecord) error
	UpdateEnhancementRecord(ctx context.Context, rec *models.EnhancementRecord) error
	ListEnhancementRecords(ctx context.Context, filePath string, limit int) ([]models.EnhancementRecord, error)
	// ListExpiredRollbacks returns records whose rollback window has passed
	// and that have not yet been rolled back, for the history janitor.
	ListExpiredRollbacks(ctx context.Context, asOf time.Time) ([]models.EnhancementRecord, error)
	// ListPendingCommits returns records left in PendingCommit state, for
	// crash-recovery scanning at startup.
	ListPendingCommits(ctx context.Context) ([]models.EnhancementRecord, error)
	DeleteEnhancementRecord(ctx context.Context, id string) error
}

// ── Workflow Store ───────────────────────────────────────────

type WorkflowStore interface {
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	CreateWorkflow(ctx context.Context, wf *models.Workflow) error
	UpdateWorkflow(ctx context.Context, wf *models.Workflow) error
	ListWorkflows(ctx context.Context, state models.WorkflowState, limit int) ([]models.Workflow, error)
	// ListResumable returns workflows left non-terminal, for startup recovery.
	ListResumable(ctx context.Context) ([]models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
}

type CheckpointStore interface {
	CreateCheckpoint(ctx context.Context, cp *models.Checkpoint) error
	GetLatestCheckpoint(ctx context.Context, workflowID string) (*models.Checkpoint, error)
	ListCheckpoints(ctx context.Context, workflowID string) ([]models.Checkpoint, error)
}

// ── Audit Store ──────────────────────────────────────────────

type AuditFilter struct {
	Method string
	Since  *time.Time
	Limit  int
}

type AuditStore interface {
	CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error
	ListAuditEvents(ctx context.Context, filter AuditFilter) ([]models.AuditEvent, error)
}

// ── Errors ───────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// ErrInvalidTransition is returned by Transition* methods when an entity's
// current status is neither the expected "from" status nor already the
// target, so the requested status change cannot be applied.
type ErrInvalidTransition struct {
	Entity  string
	Key     string
	From    string
	To      string
	Current string
}

func (e *ErrInvalidTransition) Error() string {
	return e.Entity + " " + e.Key + " cannot transition from " + e.From + " to " + e.To + " (current status: " + e.Current + ")"
}
