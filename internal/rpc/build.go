package rpc

import (
	"github.com/babar-raza/tbcv/internal/cache"
	"github.com/babar-raza/tbcv/internal/enhancer"
	"github.com/babar-raza/tbcv/internal/eventbus"
	"github.com/babar-raza/tbcv/internal/history"
	"github.com/babar-raza/tbcv/internal/recommender"
	"github.com/babar-raza/tbcv/internal/ruleloader"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/internal/tier"
	"github.com/babar-raza/tbcv/internal/truthindex"
	"github.com/babar-raza/tbcv/internal/workflow"
	"github.com/babar-raza/tbcv/pkg/contracts"
)

// Deps collects every subsystem the 56 registered methods dispatch into.
// pkg/server builds one of these once at startup and passes it to Build.
type Deps struct {
	Store       store.Store
	Cache       *cache.Cache
	Rules       *ruleloader.Loader
	Truth       *truthindex.Index
	Router      *tier.Router
	Recommender *recommender.Recommender
	Enhancer    *enhancer.Enhancer
	Engine      *workflow.Engine
	History     *history.Reader
	Janitor     *history.Janitor
	Bus         *eventbus.Bus
	LLM         contracts.LLMDriver
}

// Build constructs a Registry with every method in the catalogue (§4.1)
// registered, and a Dispatcher wired to it plus the audit store.
func Build(deps Deps) (*Registry, *Dispatcher) {
	reg := NewRegistry()

	registerValidationMethods(reg, deps)
	registerApprovalMethods(reg, deps)
	registerEnhancementMethods(reg, deps)
	registerRecommendationMethods(reg, deps)
	registerWorkflowMethods(reg, deps)
	registerAdminMethods(reg, deps)
	registerQueryMethods(reg, deps)
	registerExportMethods(reg, deps)

	return reg, NewDispatcher(reg, deps.Store)
}
