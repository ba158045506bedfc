// Package models defines the entity and value types shared across the
// TBCV control plane: validations, issues, recommendations, enhancement
// records, workflows, checkpoints, cache entries, and truth records.
//
// These are plain data structures — no behaviour lives here. Components
// that operate on them (validators, the recommender, the enhancer, the
// workflow engine) live in their own packages under internal/.
package models

import "time"

// ── Validation ───────────────────────────────────────────────

// ValidationStatus is the lifecycle state of a Validation (§4.7).
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending"
	ValidationApproved  ValidationStatus = "approved"
	ValidationRejected  ValidationStatus = "rejected"
	ValidationEnhanced  ValidationStatus = "enhanced"
)

// Severity is the aggregate severity bucket of a Validation.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Family selects which rule profile and truth data a document is checked against.
type Family string

const (
	FamilyWords  Family = "words"
	FamilyPDF    Family = "pdf"
	FamilyCells  Family = "cells"
	FamilySlides Family = "slides"
)

// Validation is the record created by a validate_* RPC method.
type Validation struct {
	ID                string                    `json:"id"`
	FilePath          string                    `json:"file_path"`
	Family            Family                    `json:"family"`
	ContentHash       string                    `json:"content_hash"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
	Status            ValidationStatus          `json:"status"`
	Severity          Severity                  `json:"severity"`
	RulesApplied      map[string]RuleResult     `json:"rules_applied"`
	ValidationResults *ValidationReport         `json:"validation_results"`
	OriginalContent   string                    `json:"original_content"`
	EnhancedContent   *string                   `json:"enhanced_content,omitempty"`
}

// RuleResult records the outcome of a single rule evaluation, keyed by rule_id
// in Validation.RulesApplied.
type RuleResult struct {
	Passed    bool   `json:"passed"`
	IssueIDs  []string `json:"issue_ids,omitempty"`
	SkippedBy string `json:"skipped_by,omitempty"` // e.g. "disabled", "early_termination"
}

// ── Issue & ValidationReport ────────────────────────────────

type IssueLevel string

const (
	IssueInfo     IssueLevel = "info"
	IssueWarning  IssueLevel = "warning"
	IssueError    IssueLevel = "error"
	IssueCritical IssueLevel = "critical"
)

type IssueSource string

const (
	SourceRuleBased    IssueSource = "rule_based"
	SourceLLMSemantic  IssueSource = "llm_semantic"
	SourceValidatorRun IssueSource = "validator_runtime"
)

// Span is a line/column range within a document.
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col,omitempty"`
	EndLine   int `json:"end_line,omitempty"`
	EndCol    int `json:"end_col,omitempty"`
}

// Issue is a single finding produced by a validator (§3).
type Issue struct {
	ID              string      `json:"id"`
	Code            string      `json:"code"`
	Level           IssueLevel  `json:"level"`
	SeverityScore   int         `json:"severity_score"`
	Span            Span        `json:"span"`
	Category        string      `json:"category"`
	Subcategory     string      `json:"subcategory,omitempty"`
	Message         string      `json:"message"`
	Suggestion      string      `json:"suggestion,omitempty"`
	ContextSnippet  string      `json:"context_snippet,omitempty"`
	FixExample      string      `json:"fix_example,omitempty"`
	AutoFixable     bool        `json:"auto_fixable"`
	Source          IssueSource `json:"source"`
	Confidence      float64     `json:"confidence"`
	ValidatorKind   ValidatorKind `json:"validator_kind"`
}

// ValidatorKind discriminates validator implementations without relying on
// type hierarchies — tiers are derived from a declarative table keyed by
// this value (internal/tier).
type ValidatorKind string

const (
	ValidatorFrontmatter ValidatorKind = "frontmatter"
	ValidatorMarkdown    ValidatorKind = "markdown"
	ValidatorStructure   ValidatorKind = "structure"
	ValidatorCode        ValidatorKind = "code"
	ValidatorLinks       ValidatorKind = "links"
	ValidatorSEO         ValidatorKind = "seo"
	ValidatorFuzzy       ValidatorKind = "fuzzy"
	ValidatorTruth       ValidatorKind = "truth"
	ValidatorLLM         ValidatorKind = "llm"
)

// ValidatorTiming records how long a single validator took within a tier run.
type ValidatorTiming struct {
	Kind     ValidatorKind `json:"kind"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// TierBreakdown reports what happened for one tier of the router run.
type TierBreakdown struct {
	Tier       int               `json:"tier"`
	Validators []ValidatorTiming `json:"validators"`
	Terminated bool              `json:"terminated"` // true if this tier triggered early termination
}

// ValidationReport is the merged output of running one or more validators
// over a document (§4.3). A single validator also returns one of these
// (with empty Tiers and Timings) before the router merges them.
type ValidationReport struct {
	Issues          []Issue         `json:"issues"`
	Confidence      float64         `json:"confidence"`
	AutoFixableCount int            `json:"auto_fixable_count"`
	Metrics         map[string]any  `json:"metrics,omitempty"`
	Timings         []ValidatorTiming `json:"timings,omitempty"`
	Tiers           []TierBreakdown `json:"tiers,omitempty"`
	TiersExecuted   int             `json:"tiers_executed"`
}

// Merge folds another report's issues/timings into r, recomputing
// aggregate confidence and auto-fixable count. Used by the tier router to
// combine per-validator reports into the final merged report.
func (r *ValidationReport) Merge(other *ValidationReport) {
	r.Issues = append(r.Issues, other.Issues...)
	r.Timings = append(r.Timings, other.Timings...)
	for _, iss := range other.Issues {
		if iss.AutoFixable {
			r.AutoFixableCount++
		}
	}
	r.recomputeConfidence()
}

// RecomputeConfidence recalculates Confidence from the current Issues
// slice. Exported for validators (e.g. the truth validator's rule/LLM
// merge step) that build a report's Issues directly rather than through
// Merge.
func (r *ValidationReport) RecomputeConfidence() {
	r.recomputeConfidence()
}

func (r *ValidationReport) recomputeConfidence() {
	if len(r.Issues) == 0 {
		r.Confidence = 1.0
		return
	}
	sum := 0.0
	for _, iss := range r.Issues {
		c := iss.Confidence
		if c == 0 {
			c = 1.0
		}
		sum += c
	}
	r.Confidence = sum / float64(len(r.Issues))
}

// ── Recommendation ──────────────────────────────────────────

type RecommendationType string

const (
	RecMissingPlugin   RecommendationType = "missing_plugin"
	RecIncorrectPlugin RecommendationType = "incorrect_plugin"
	RecMissingInfo     RecommendationType = "missing_info"
	RecStructural      RecommendationType = "structural"
	RecSEO             RecommendationType = "seo"
	RecTone            RecommendationType = "tone"
	RecOther           RecommendationType = "other"
)

type RecommendationStatus string

const (
	RecPending  RecommendationStatus = "pending"
	RecApproved RecommendationStatus = "approved"
	RecRejected RecommendationStatus = "rejected"
	RecApplied  RecommendationStatus = "applied"
)

// TargetLocation anchors a recommendation to a place in the document.
type TargetLocation struct {
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Selector string `json:"selector,omitempty"`
}

// Recommendation is a typed, context-scoped suggestion generated from a
// ValidationReport (§4.5).
type Recommendation struct {
	ID             string                `json:"id"`
	ValidationID   string                `json:"validation_id"`
	Type           RecommendationType    `json:"type"`
	TargetLocation TargetLocation        `json:"target_location"`
	SuggestedChange string               `json:"suggested_change"`
	Rationale      string                `json:"rationale"`
	Status         RecommendationStatus  `json:"status"`
	CritiqueScore  *float64              `json:"critique_score,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	SourceIssueID  string                `json:"source_issue_id,omitempty"`
}

// ── Preservation rules & reports ────────────────────────────

// PreservationRules is a value type (not persisted alone) carried alongside
// an enhancement request.
type PreservationRules struct {
	Keywords               []string `json:"keywords"`
	ProductNames           []string `json:"product_names"`
	TechnicalTerms         []string `json:"technical_terms"`
	PreserveCodeBlocks     bool     `json:"preserve_code_blocks"`
	PreserveFrontmatter    bool     `json:"preserve_frontmatter"`
	PreserveHeadings       bool     `json:"preserve_headings"`
	PreserveInternalLinks  bool     `json:"preserve_internal_links"`
	PreserveTables         bool     `json:"preserve_tables"`
	PreserveNumberedLists  bool     `json:"preserve_numbered_lists"`
	MaxContentReductionPct float64  `json:"max_content_reduction_pct"`
	MinContentExpansionPct float64  `json:"min_content_expansion_pct"`
}

// DefaultPreservationRules returns sane defaults used when a caller omits
// preservation_rules entirely.
func DefaultPreservationRules() PreservationRules {
	return PreservationRules{
		PreserveCodeBlocks:     true,
		PreserveFrontmatter:    true,
		PreserveHeadings:       true,
		PreserveInternalLinks:  true,
		MaxContentReductionPct: 0.20,
		MinContentExpansionPct: 0.0,
	}
}

// PreservationViolation is a single broken preservation invariant.
type PreservationViolation struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"` // "warning" | "critical"
	Detail   string `json:"detail"`
}

// PreservationReport is computed post-merge by the enhancer (§4.5 step 4).
type PreservationReport struct {
	KeywordsPreserved     bool                   `json:"keywords_preserved"`
	FrontmatterPreserved  bool                   `json:"frontmatter_preserved"`
	CodeFencesPreserved   bool                   `json:"code_fences_preserved"`
	HeadingHierarchyOK    bool                   `json:"heading_hierarchy_ok"`
	LengthDeltaPct        float64                `json:"length_delta_pct"`
	Violations            []PreservationViolation `json:"violations"`
}

// HasCritical reports whether any violation is of critical severity.
func (p *PreservationReport) HasCritical() bool {
	for _, v := range p.Violations {
		if v.Severity == "critical" {
			return true
		}
	}
	return false
}

// SafetyScore is the weighted [0,1] aggregate computed in enhancer step 5.
type SafetyScore struct {
	Value                  float64                  `json:"value"`
	KeywordPreservation    float64                  `json:"keyword_preservation"`
	StructurePreservation  float64                  `json:"structure_preservation"`
	ContentStability       float64                  `json:"content_stability"`
	TechnicalAccuracy      float64                  `json:"technical_accuracy"`
	Violations             []PreservationViolation  `json:"violations"`
}

// ── EnhancementRecord ────────────────────────────────────────

// RollbackPoint owns the pre-edit bytes exclusively (§3 Ownership note).
type RollbackPoint struct {
	OriginalBytes []byte            `json:"original_bytes"`
	FileMode      uint32            `json:"file_mode"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// EnhancementRecord is the append-only audit record of an applied enhancement.
type EnhancementRecord struct {
	ID                      string              `json:"id"`
	ValidationID            string              `json:"validation_id"`
	FilePath                string              `json:"file_path"`
	OriginalHash            string              `json:"original_hash"`
	EnhancedHash            string              `json:"enhanced_hash"`
	AppliedRecommendationIDs []string           `json:"applied_recommendation_ids"`
	SkippedRecommendationIDs []string           `json:"skipped_recommendation_ids,omitempty"`
	SafetyScore             SafetyScore         `json:"safety_score"`
	PreservationReport      PreservationReport  `json:"preservation_report"`
	AppliedBy               string              `json:"applied_by"`
	AppliedAt               time.Time           `json:"applied_at"`
	RollbackPoint           RollbackPoint       `json:"rollback_point"`
	RolledBack              bool                `json:"rolled_back"`
	RolledBackAt            *time.Time          `json:"rolled_back_at,omitempty"`
	RollbackExpiresAt       time.Time           `json:"rollback_expires_at"`
	// PendingCommit marks a record written before the file-write/store-write
	// transaction finished; power-loss recovery scans for these (§4.5 step 7).
	PendingCommit bool `json:"pending_commit"`
}

// EnhancementPreview is the read-only artefact returned by enhance_preview;
// it never touches the file system.
type EnhancementPreview struct {
	PreviewID              string                `json:"preview_id"`
	ValidationID           string                `json:"validation_id"`
	Original               string                `json:"original"`
	Enhanced               string                `json:"enhanced"`
	UnifiedDiff            string                `json:"unified_diff"`
	AppliedRecommendations []string              `json:"applied_recommendations"`
	SkippedRecommendations []SkippedRecommendation `json:"skipped_recommendations"`
	SafetyScore            SafetyScore           `json:"safety_score"`
	PreservationReport     PreservationReport    `json:"preservation_report"`
	CreatedAt               time.Time            `json:"created_at"`
	ExpiresAt               time.Time            `json:"expires_at"`
}

// SkippedRecommendation explains why a recommendation's edit was not applied.
type SkippedRecommendation struct {
	RecommendationID string `json:"recommendation_id"`
	Reason           string `json:"reason"`
}

// ── Workflow ─────────────────────────────────────────────────

type WorkflowType string

const (
	WorkflowValidateFile       WorkflowType = "validate_file"
	WorkflowValidateFolder     WorkflowType = "validate_folder"
	WorkflowBatchValidation    WorkflowType = "batch_validation"
	WorkflowBatchEnhancement   WorkflowType = "batch_enhancement"
)

type WorkflowState string

const (
	WorkflowPending   WorkflowState = "pending"
	WorkflowRunning   WorkflowState = "running"
	WorkflowPaused    WorkflowState = "paused"
	WorkflowCompleted WorkflowState = "completed"
	WorkflowFailed    WorkflowState = "failed"
	WorkflowCancelled WorkflowState = "cancelled"
)

// Terminal reports whether a workflow state is absorbing (§4.6).
func (s WorkflowState) Terminal() bool {
	switch s {
	case WorkflowCompleted, WorkflowFailed, WorkflowCancelled:
		return true
	default:
		return false
	}
}

// Workflow is a long-running batch job (§3, §4.6).
type Workflow struct {
	ID               string         `json:"id"`
	Type             WorkflowType   `json:"type"`
	State            WorkflowState  `json:"state"`
	ProgressPercent  float64        `json:"progress_percent"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Parameters       map[string]any `json:"parameters"`
	Summary          map[string]any `json:"summary,omitempty"`
	LastCheckpointID string         `json:"last_checkpoint_id,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty"`
}

// Checkpoint captures enough state for a restarted engine to resume a
// non-terminal workflow (§4.6).
type Checkpoint struct {
	ID            string    `json:"id"`
	WorkflowID    string    `json:"workflow_id"`
	StepNumber    int       `json:"step_number"`
	Name          string    `json:"name"`
	StateData     []byte    `json:"state_data"`
	CreatedAt     time.Time `json:"created_at"`
	CanResumeFrom bool      `json:"can_resume_from"`
}

// ProgressEvent is published on the EventBus at every step boundary (§4.6).
type ProgressEvent struct {
	WorkflowID string  `json:"workflow_id"`
	Percent    float64 `json:"percent"`
	State      WorkflowState `json:"state"`
	Message    string  `json:"message"`
}

// ── Cache ────────────────────────────────────────────────────

type CacheTier string

const (
	TierL1 CacheTier = "L1"
	TierL2 CacheTier = "L2"
)

// CacheEntry is a single cache slot (§3, §4.4).
type CacheEntry struct {
	Key             string    `json:"key"`
	Value           []byte    `json:"value"`
	Tier            CacheTier `json:"tier"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	InvalidationTags []string `json:"invalidation_tags,omitempty"`
}

// CacheStats is returned by Cache.Stats() / the get_cache_stats RPC method.
type CacheStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	L1Size    int     `json:"l1_size"`
	L2Size    int     `json:"l2_size"`
}

// ── TruthRecord ──────────────────────────────────────────────

// TruthRecord is a curated, family-scoped fact used by the truth validator
// and the recommender (§4.8, GLOSSARY).
type TruthRecord struct {
	ID                string    `json:"id"`
	Family            Family    `json:"family"`
	Kind              string    `json:"kind"` // e.g. "plugin"
	CanonicalName     string    `json:"canonical_name"`
	Aliases           []string  `json:"aliases,omitempty"`
	Patterns          []string  `json:"patterns,omitempty"`
	Combinations      [][]string `json:"combinations,omitempty"`
	ForbiddenPatterns []string  `json:"forbidden_patterns,omitempty"`
	Embedding         []float64 `json:"embedding,omitempty"`
}

// TruthLookupResult wraps a semantic/alias lookup result with metadata
// about whether the lookup fell back to a degraded mode (§4.8).
type TruthLookupResult struct {
	Records  []TruthRecord `json:"records"`
	Fallback bool          `json:"fallback"`
}

// ── Audit ────────────────────────────────────────────────────

// AuditEvent is an append-only record of an RPC-mediated mutation, used by
// get_audit_log.
type AuditEvent struct {
	ID        string         `json:"id"`
	Method    string         `json:"method"`
	Params    map[string]any `json:"params,omitempty"`
	Result    string         `json:"result"` // "ok" | "error"
	ErrorCode int            `json:"error_code,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ── Validator configuration (RuleLoader, §4.3 / §6) ─────────

type RuleLevel string

const (
	RuleLevelInfo     RuleLevel = "info"
	RuleLevelWarning  RuleLevel = "warning"
	RuleLevelError    RuleLevel = "error"
	RuleLevelCritical RuleLevel = "critical"
)

// Rule is one declarative check within a validator's configuration file.
type Rule struct {
	Enabled bool           `json:"enabled" yaml:"enabled"`
	Level   RuleLevel      `json:"level" yaml:"level"`
	Message string         `json:"message" yaml:"message"`
	// Expr is an optional boolean expression (expr-lang/expr) evaluated
	// against the rule-evaluation context; when absent, the rule's builtin
	// Go predicate is used. See internal/ruleloader.
	Expr   string         `json:"expr,omitempty" yaml:"expr,omitempty"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Profile is a named bundle of enabled rule ids plus overrides.
type Profile struct {
	Rules     []string                  `yaml:"rules"`
	Overrides map[string]map[string]any `yaml:"overrides,omitempty"`
}

// FamilyOverride selects a profile or overrides specific rules per family.
type FamilyOverride struct {
	Profile string          `yaml:"profile,omitempty"`
	Rules   map[string]Rule `yaml:"rules,omitempty"`
}

// ValidatorConfig is the parsed shape of one validator's configuration file
// (§6 "File format — configuration").
type ValidatorConfig struct {
	Name            string                    `yaml:"-"`
	Enabled         bool                      `yaml:"enabled"`
	Profile         string                    `yaml:"profile"`
	Rules           map[string]Rule           `yaml:"rules"`
	Profiles        map[string]Profile        `yaml:"profiles"`
	FamilyOverrides map[Family]FamilyOverride `yaml:"family_overrides"`
}
