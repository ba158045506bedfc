// Package validators implements TBCV's per-kind content checks: frontmatter,
// markdown syntax, structure, code blocks, links, SEO, fuzzy-plugin
// detection, the truth validator, and the LLM validator. Each type
// implements Validator and a Kind() discriminant; no inheritance, no shared
// base type, matching the teacher's evaluateOne-style dispatch-by-kind
// (internal/guardrails.evaluateOne) generalized from a switch over one enum
// to one struct per kind.
package validators

import (
	"context"

	"github.com/babar-raza/tbcv/internal/ruleloader"
	"github.com/babar-raza/tbcv/internal/truthindex"
	"github.com/babar-raza/tbcv/pkg/contracts"
	"github.com/babar-raza/tbcv/pkg/models"
)

// Validator is implemented by every validator kind. Validate must not
// mutate content and must never return a nil report on success.
type Validator interface {
	Kind() models.ValidatorKind
	Validate(ctx context.Context, content string, vctx VContext) (*models.ValidationReport, error)
}

// VContext carries the shared dependencies and per-run state a validator
// needs: which family's rules/truth data apply, the resolved rule
// configuration, and (for Tier 3) the fuzzy-detection output Tier 2
// produced, since the truth validator depends on it (§4.3).
type VContext struct {
	FilePath string
	Family   models.Family

	Rules *ruleloader.Loader
	Truth *truthindex.Index
	LLM   contracts.LLMDriver

	// FuzzyMatches is populated by the Tier 2 fuzzy validator and read by
	// the Tier 3 truth validator; nil until Tier 2 has run.
	FuzzyMatches []models.TruthRecord
}

// newReport returns an empty, well-formed report; callers append issues
// and the tier router merges per-validator reports into the final one.
func newReport() *models.ValidationReport {
	return &models.ValidationReport{Confidence: 1.0}
}

// Issue is a local alias kept for readability in validator code; it is
// identical to models.Issue.
type Issue = models.Issue

// All returns one instance of every validator kind, in no particular
// order; tier.Router groups them by tier internally. Callers that want a
// subset (e.g. a rule profile that disables the LLM validator) filter
// the result by Kind().
func All() []Validator {
	return []Validator{
		FrontmatterValidator{},
		MarkdownValidator{},
		StructureValidator{},
		CodeValidator{},
		LinksValidator{},
		SEOValidator{},
		FuzzyValidator{},
		TruthValidator{},
		LLMValidator{},
	}
}
