// Package store — PostgreSQL-backed Store implementation, for deployments
// that need durability beyond a single process. Complex nested fields
// (rule results, safety scores, checkpoint state) are stored as JSONB
// columns rather than normalized across tables — the access pattern is
// always "whole record by id", so the extra joins would buy nothing.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS validations (
	id TEXT PRIMARY KEY,
	file_path TEXT NOT NULL,
	family TEXT NOT NULL,
	status TEXT NOT NULL,
	severity TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	data JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_validations_family ON validations(family);
CREATE INDEX IF NOT EXISTS idx_validations_status ON validations(status);

CREATE TABLE IF NOT EXISTS recommendations (
	id TEXT PRIMARY KEY,
	validation_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	data JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recommendations_validation ON recommendations(validation_id);

CREATE TABLE IF NOT EXISTS enhancement_records (
	id TEXT PRIMARY KEY,
	validation_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL,
	rollback_expires_at TIMESTAMPTZ NOT NULL,
	rolled_back BOOLEAN NOT NULL,
	pending_commit BOOLEAN NOT NULL,
	data JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_enhancements_file_path ON enhancement_records(file_path);

CREATE TABLE IF NOT EXISTS workflows (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	state TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	data JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workflows_state ON workflows(state);

CREATE TABLE IF NOT EXISTS checkpoints (
	id TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	step_number INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	data JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_workflow ON checkpoints(workflow_id, step_number);

CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	method TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
	data JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_method ON audit_events(method);
CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
`

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a connection pool against url. Callers must call
// Migrate before using the store against a fresh database.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres store: connect: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("postgres store: migrate: %w", err)
	}
	log.Info().Msg("postgres schema migrated")
	return nil
}

// ── Validation Store ─────────────────────────────────────────

func (p *PostgresStore) GetValidation(ctx context.Context, id string) (*models.Validation, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM validations WHERE id = $1`, id).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, &ErrNotFound{Entity: "validation", Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get validation: %w", err)
	}
	var v models.Validation
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("get validation: decode: %w", err)
	}
	return &v, nil
}

func (p *PostgresStore) CreateValidation(ctx context.Context, v *models.Validation) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("create validation: encode: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO validations (id, file_path, family, status, severity, created_at, updated_at, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET file_path = $2, family = $3, status = $4, severity = $5, updated_at = $7, data = $8
	`, v.ID, v.FilePath, v.Family, v.Status, v.Severity, v.CreatedAt, v.UpdatedAt, raw)
	if err != nil {
		return fmt.Errorf("create validation: %w", err)
	}
	return nil
}

func (p *PostgresStore) UpdateValidation(ctx context.Context, v *models.Validation) error {
	return p.CreateValidation(ctx, v)
}

// TransitionValidation locks the row with SELECT ... FOR UPDATE inside a
// transaction so two concurrent approve/reject calls on the same id
// serialize on the lock rather than racing a blind read-then-write: the
// second transaction blocks until the first commits, then observes the
// already-updated status and returns *ErrInvalidTransition instead of
// overwriting it.
func (p *PostgresStore) TransitionValidation(ctx context.Context, id string, from, to models.ValidationStatus) (*models.Validation, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("transition validation: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	var status string
	err = tx.QueryRow(ctx, `SELECT data, status FROM validations WHERE id = $1 FOR UPDATE`, id).Scan(&raw, &status)
	if err == pgx.ErrNoRows {
		return nil, &ErrNotFound{Entity: "validation", Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("transition validation: select: %w", err)
	}

	var v models.Validation
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("transition validation: decode: %w", err)
	}
	if v.Status == to {
		return &v, nil
	}
	if v.Status != from {
		return nil, &ErrInvalidTransition{Entity: "validation", Key: id, From: string(from), To: string(to), Current: string(v.Status)}
	}

	v.Status = to
	v.UpdatedAt = time.Now().UTC()
	next, err := json.Marshal(&v)
	if err != nil {
		return nil, fmt.Errorf("transition validation: encode: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE validations SET status = $2, updated_at = $3, data = $4 WHERE id = $1`,
		id, v.Status, v.UpdatedAt, next); err != nil {
		return nil, fmt.Errorf("transition validation: update: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("transition validation: commit: %w", err)
	}
	return &v, nil
}

func (p *PostgresStore) ListValidations(ctx context.Context, filter ValidationFilter) ([]models.Validation, error) {
	query := `SELECT data FROM validations WHERE ($1 = '' OR family = $1) AND ($2 = '' OR status = $2) AND ($3::timestamptz IS NULL OR created_at >= $3)
		ORDER BY created_at DESC`
	args := []any{string(filter.Family), string(filter.Status), filter.Since}
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list validations: %w", err)
	}
	defer rows.Close()
	var result []models.Validation
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list validations: scan: %w", err)
		}
		var v models.Validation
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("list validations: decode: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (p *PostgresStore) DeleteValidation(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM validations WHERE id = $1`, id)
	return err
}

// ── Recommendation Store ─────────────────────────────────────

func (p *PostgresStore) GetRecommendation(ctx context.Context, id string) (*models.Recommendation, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM recommendations WHERE id = $1`, id).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, &ErrNotFound{Entity: "recommendation", Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}
	var r models.Recommendation
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("get recommendation: decode: %w", err)
	}
	return &r, nil
}

func (p *PostgresStore) CreateRecommendations(ctx context.Context, recs []models.Recommendation) error {
	batch := &pgx.Batch{}
	for _, r := range recs {
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("create recommendations: encode: %w", err)
		}
		batch.Queue(`
			INSERT INTO recommendations (id, validation_id, created_at, data)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET data = $4
		`, r.ID, r.ValidationID, r.CreatedAt, raw)
	}
	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range recs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("create recommendations: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) UpdateRecommendation(ctx context.Context, rec *models.Recommendation) error {
	return p.CreateRecommendations(ctx, []models.Recommendation{*rec})
}

// TransitionRecommendation is TransitionValidation's counterpart for the
// recommendations table.
func (p *PostgresStore) TransitionRecommendation(ctx context.Context, id string, from, to models.RecommendationStatus) (*models.Recommendation, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("transition recommendation: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	err = tx.QueryRow(ctx, `SELECT data FROM recommendations WHERE id = $1 FOR UPDATE`, id).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, &ErrNotFound{Entity: "recommendation", Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("transition recommendation: select: %w", err)
	}

	var r models.Recommendation
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("transition recommendation: decode: %w", err)
	}
	if r.Status == to {
		return &r, nil
	}
	if r.Status != from {
		return nil, &ErrInvalidTransition{Entity: "recommendation", Key: id, From: string(from), To: string(to), Current: string(r.Status)}
	}

	r.Status = to
	next, err := json.Marshal(&r)
	if err != nil {
		return nil, fmt.Errorf("transition recommendation: encode: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE recommendations SET data = $2 WHERE id = $1`, id, next); err != nil {
		return nil, fmt.Errorf("transition recommendation: update: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("transition recommendation: commit: %w", err)
	}
	return &r, nil
}

func (p *PostgresStore) ListRecommendationsByValidation(ctx context.Context, validationID string) ([]models.Recommendation, error) {
	rows, err := p.pool.Query(ctx, `SELECT data FROM recommendations WHERE validation_id = $1 ORDER BY created_at ASC`, validationID)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()
	var result []models.Recommendation
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list recommendations: scan: %w", err)
		}
		var r models.Recommendation
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("list recommendations: decode: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (p *PostgresStore) DeleteRecommendation(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM recommendations WHERE id = $1`, id)
	return err
}

// ── Enhancement Store ────────────────────────────────────────

func (p *PostgresStore) GetEnhancementRecord(ctx context.Context, id string) (*models.EnhancementRecord, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM enhancement_records WHERE id = $1`, id).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, &ErrNotFound{Entity: "enhancement_record", Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get enhancement record: %w", err)
	}
	var r models.EnhancementRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("get enhancement record: decode: %w", err)
	}
	return &r, nil
}

func (p *PostgresStore) upsertEnhancementRecord(ctx context.Context, rec *models.EnhancementRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("enhancement record: encode: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO enhancement_records (id, validation_id, file_path, applied_at, rollback_expires_at, rolled_back, pending_commit, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET rolled_back = $6, pending_commit = $7, data = $8
	`, rec.ID, rec.ValidationID, rec.FilePath, rec.AppliedAt, rec.RollbackExpiresAt, rec.RolledBack, rec.PendingCommit, raw)
	if err != nil {
		return fmt.Errorf("enhancement record: %w", err)
	}
	return nil
}

func (p *PostgresStore) CreateEnhancementRecord(ctx context.Context, rec *models.EnhancementRecord) error {
	return p.upsertEnhancementRecord(ctx, rec)
}

func (p *PostgresStore) UpdateEnhancementRecord(ctx context.Context, rec *models.EnhancementRecord) error {
	return p.upsertEnhancementRecord(ctx, rec)
}

func (p *PostgresStore) ListEnhancementRecords(ctx context.Context, filePath string, limit int) ([]models.EnhancementRecord, error) {
	query := `SELECT data FROM enhancement_records WHERE ($1 = '' OR file_path = $1) ORDER BY applied_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := p.pool.Query(ctx, query, filePath)
	if err != nil {
		return nil, fmt.Errorf("list enhancement records: %w", err)
	}
	defer rows.Close()
	return scanEnhancementRows(rows)
}

func (p *PostgresStore) ListExpiredRollbacks(ctx context.Context, asOf time.Time) ([]models.EnhancementRecord, error) {
	rows, err := p.pool.Query(ctx, `SELECT data FROM enhancement_records WHERE rolled_back = false AND rollback_expires_at < $1`, asOf)
	if err != nil {
		return nil, fmt.Errorf("list expired rollbacks: %w", err)
	}
	defer rows.Close()
	return scanEnhancementRows(rows)
}

func (p *PostgresStore) ListPendingCommits(ctx context.Context) ([]models.EnhancementRecord, error) {
	rows, err := p.pool.Query(ctx, `SELECT data FROM enhancement_records WHERE pending_commit = true`)
	if err != nil {
		return nil, fmt.Errorf("list pending commits: %w", err)
	}
	defer rows.Close()
	return scanEnhancementRows(rows)
}

func scanEnhancementRows(rows pgx.Rows) ([]models.EnhancementRecord, error) {
	var result []models.EnhancementRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan enhancement record: %w", err)
		}
		var r models.EnhancementRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode enhancement record: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (p *PostgresStore) DeleteEnhancementRecord(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM enhancement_records WHERE id = $1`, id)
	return err
}

// ── Workflow Store ───────────────────────────────────────────

func (p *PostgresStore) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM workflows WHERE id = $1`, id).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, &ErrNotFound{Entity: "workflow", Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	var w models.Workflow
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("get workflow: decode: %w", err)
	}
	return &w, nil
}

func (p *PostgresStore) upsertWorkflow(ctx context.Context, wf *models.Workflow) error {
	raw, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("workflow: encode: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO workflows (id, type, state, created_at, updated_at, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET state = $3, updated_at = $5, data = $6
	`, wf.ID, wf.Type, wf.State, wf.CreatedAt, wf.UpdatedAt, raw)
	if err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	return nil
}

func (p *PostgresStore) CreateWorkflow(ctx context.Context, wf *models.Workflow) error {
	return p.upsertWorkflow(ctx, wf)
}

func (p *PostgresStore) UpdateWorkflow(ctx context.Context, wf *models.Workflow) error {
	return p.upsertWorkflow(ctx, wf)
}

func (p *PostgresStore) ListWorkflows(ctx context.Context, state models.WorkflowState, limit int) ([]models.Workflow, error) {
	query := `SELECT data FROM workflows WHERE ($1 = '' OR state = $1) ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := p.pool.Query(ctx, query, string(state))
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()
	return scanWorkflowRows(rows)
}

func (p *PostgresStore) ListResumable(ctx context.Context) ([]models.Workflow, error) {
	rows, err := p.pool.Query(ctx, `SELECT data FROM workflows WHERE state NOT IN ('completed','failed','cancelled')`)
	if err != nil {
		return nil, fmt.Errorf("list resumable workflows: %w", err)
	}
	defer rows.Close()
	return scanWorkflowRows(rows)
}

func (p *PostgresStore) DeleteWorkflow(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM checkpoints WHERE workflow_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow checkpoints: %w", err)
	}
	_, err = p.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	return err
}

func scanWorkflowRows(rows pgx.Rows) ([]models.Workflow, error) {
	var result []models.Workflow
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		var w models.Workflow
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("decode workflow: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// ── Checkpoint Store ─────────────────────────────────────────

func (p *PostgresStore) CreateCheckpoint(ctx context.Context, cp *models.Checkpoint) error {
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("create checkpoint: encode: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO checkpoints (id, workflow_id, step_number, created_at, data)
		VALUES ($1, $2, $3, $4, $5)
	`, cp.ID, cp.WorkflowID, cp.StepNumber, cp.CreatedAt, raw)
	if err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetLatestCheckpoint(ctx context.Context, workflowID string) (*models.Checkpoint, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM checkpoints WHERE workflow_id = $1 ORDER BY step_number DESC LIMIT 1`, workflowID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, &ErrNotFound{Entity: "checkpoint", Key: workflowID}
	}
	if err != nil {
		return nil, fmt.Errorf("get latest checkpoint: %w", err)
	}
	var cp models.Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("get latest checkpoint: decode: %w", err)
	}
	return &cp, nil
}

func (p *PostgresStore) ListCheckpoints(ctx context.Context, workflowID string) ([]models.Checkpoint, error) {
	rows, err := p.pool.Query(ctx, `SELECT data FROM checkpoints WHERE workflow_id = $1 ORDER BY step_number ASC`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()
	var result []models.Checkpoint
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list checkpoints: scan: %w", err)
		}
		var cp models.Checkpoint
		if err := json.Unmarshal(raw, &cp); err != nil {
			return nil, fmt.Errorf("list checkpoints: decode: %w", err)
		}
		result = append(result, cp)
	}
	return result, rows.Err()
}

// ── Audit Store ──────────────────────────────────────────────

func (p *PostgresStore) CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("create audit event: encode: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO audit_events (id, method, timestamp, data) VALUES ($1, $2, $3, $4)
	`, event.ID, event.Method, event.Timestamp, raw)
	if err != nil {
		return fmt.Errorf("create audit event: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListAuditEvents(ctx context.Context, filter AuditFilter) ([]models.AuditEvent, error) {
	query := `SELECT data FROM audit_events WHERE ($1 = '' OR method = $1) AND ($2::timestamptz IS NULL OR timestamp >= $2) ORDER BY timestamp DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	rows, err := p.pool.Query(ctx, query, filter.Method, filter.Since)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	var result []models.AuditEvent
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list audit events: scan: %w", err)
		}
		var e models.AuditEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("list audit events: decode: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
