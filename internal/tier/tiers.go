// Package tier holds the declarative kind -> tier table and the Router
// that runs validators tier by tier, merging their reports and applying
// the early-termination policy (§4.3).
package tier

import "github.com/babar-raza/tbcv/pkg/models"

const (
	TierSyntax   = 1
	TierContent  = 2
	TierSemantic = 3
)

// tierOf maps each ValidatorKind to its scheduling tier. This is the one
// place tier membership is declared; adding a validator kind means adding
// one line here, not a new type hierarchy.
var tierOf = map[models.ValidatorKind]int{
	models.ValidatorFrontmatter: TierSyntax,
	models.ValidatorMarkdown:    TierSyntax,
	models.ValidatorStructure:   TierSyntax,

	models.ValidatorCode:  TierContent,
	models.ValidatorLinks: TierContent,
	models.ValidatorSEO:   TierContent,
	models.ValidatorFuzzy: TierContent,

	models.ValidatorTruth: TierSemantic,
	models.ValidatorLLM:   TierSemantic,
}

// TierFor returns the scheduling tier for kind, or 0 if unregistered.
func TierFor(kind models.ValidatorKind) int {
	return tierOf[kind]
}

// defaultEarlyTerminationLevels is the configurable set of issue levels
// that, when present in a completed tier, skip all subsequent tiers.
var defaultEarlyTerminationLevels = map[models.IssueLevel]struct{}{
	models.IssueCritical: {},
}
