// Package server wires every TBCV subsystem into a single process: store,
// cache, rule loader, truth index, tier router, recommender, enhancer,
// workflow engine, history reader/janitor, and the RPC dispatch registry
// built on top of them. It exists in pkg/ (not internal/) so cmd/tbcv and
// cmd/tbcvctl both import the same construction path — a single server.New
// call is the only way TBCV gets assembled.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/babar-raza/tbcv/internal/cache"
	"github.com/babar-raza/tbcv/internal/config"
	"github.com/babar-raza/tbcv/internal/enhancer"
	"github.com/babar-raza/tbcv/internal/eventbus"
	"github.com/babar-raza/tbcv/internal/history"
	"github.com/babar-raza/tbcv/internal/httpgw"
	"github.com/babar-raza/tbcv/internal/llm"
	"github.com/babar-raza/tbcv/internal/recommender"
	"github.com/babar-raza/tbcv/internal/rpc"
	"github.com/babar-raza/tbcv/internal/ruleloader"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/internal/telemetry"
	"github.com/babar-raza/tbcv/internal/tier"
	"github.com/babar-raza/tbcv/internal/truthindex"
	"github.com/babar-raza/tbcv/internal/workflow"
	"github.com/babar-raza/tbcv/pkg/contracts"

	"github.com/rs/zerolog/log"
)

// Server holds every initialized component, exposed (not hidden behind the
// Handler alone) the way the teacher's Server does, so a caller embedding
// TBCV in a larger process can reach into any subsystem directly.
type Server struct {
	Handler http.Handler

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

	Registry   *rpc.Registry
	Dispatcher *rpc.Dispatcher

	Config *config.Config
	Port   int

	ShutdownFunc func(context.Context) error
}

// New initializes every subsystem from environment-derived configuration
// and returns a ready Server. Background goroutines (rule/truth file
// watchers, the history janitor) are started but not stopped here — call
// Shutdown (or cancel ctx) to unwind them.
func New(ctx context.Context) (*Server, error) {
	cfg := config.Load()

	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	log.Info().Str("backend", cfg.Store.Backend).Msg("store initialized")

	l2, err := buildCacheBackend(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("init cache backend: %w", err)
	}
	c := cache.New(cfg.Cache.L1MaxEntries, cfg.Cache.L1TTL, l2)
	log.Info().Str("l2_backend", cfg.Cache.L2Backend).Msg("cache initialized")

	bus := eventbus.New(256)

	rules := ruleloader.New(cfg.RuleLoader.RulesDir, bus)
	if err := rules.Start(ctx, cfg.RuleLoader.WatchReload); err != nil {
		return nil, fmt.Errorf("start rule loader: %w", err)
	}
	log.Info().Str("dir", cfg.RuleLoader.RulesDir).Msg("rule loader initialized")

	truthOpts := buildTruthOptions(ctx, cfg.TruthIndex, cfg.Store, cfg.LLM)
	truth := truthindex.New(cfg.TruthIndex.DataDir, bus, truthOpts...)
	if err := truth.Start(ctx, true); err != nil {
		return nil, fmt.Errorf("start truth index: %w", err)
	}
	log.Info().Str("dir", cfg.TruthIndex.DataDir).Msg("truth index initialized")

	// Cache entries keyed off rules or truth data invalidate the instant
	// either reloads, rather than living out their TTL stale.
	c.SubscribeInvalidation(bus, ruleloader.TopicConfigChange, rpc.TagRules)
	c.SubscribeInvalidation(bus, truthindex.TopicTruthChange, rpc.TagTruth)

	llmDriver := buildLLMDriver(cfg.LLM)

	router := tier.NewRouter()
	rec := recommender.New(dataStore, llmDriver)
	enh := enhancer.New(dataStore, bus)
	engine := workflow.NewEngine(dataStore, bus, router, rules, truth, llmDriver, rec, enh, cfg.Workflow)

	historyReader := history.NewReader(dataStore)
	janitor := history.NewJanitor(dataStore, bus, cfg.History.JanitorInterval)
	go janitor.Start(ctx)

	// Crash recovery: anything left mid-commit or mid-run when the
	// previous process died gets resolved before the server accepts
	// new requests.
	if err := enh.RecoverPending(ctx); err != nil {
		log.Warn().Err(err).Msg("enhancer pending-commit recovery reported errors")
	}
	if err := engine.RecoverResumable(ctx); err != nil {
		log.Warn().Err(err).Msg("workflow resumable recovery reported errors")
	}

	deps := rpc.Deps{
		Store:       dataStore,
		Cache:       c,
		Rules:       rules,
		Truth:       truth,
		Router:      router,
		Recommender: rec,
		Enhancer:    enh,
		Engine:      engine,
		History:     historyReader,
		Janitor:     janitor,
		Bus:         bus,
		LLM:         llmDriver,
	}
	registry, dispatcher := rpc.Build(deps)
	log.Info().Int("methods", len(registry.List())).Msg("rpc registry built")

	handler := httpgw.NewRouter(dispatcher, registry)

	return &Server{
		Handler:      handler,
		Store:        dataStore,
		Cache:        c,
		Rules:        rules,
		Truth:        truth,
		Router:       router,
		Recommender:  rec,
		Enhancer:     enh,
		Engine:       engine,
		History:      historyReader,
		Janitor:      janitor,
		Bus:          bus,
		LLM:          llmDriver,
		Registry:     registry,
		Dispatcher:   dispatcher,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// Shutdown stops the rule loader and truth index watchers, and flushes
// telemetry. The store is left to the caller (main closes it after the
// HTTP server itself has drained).
func (s *Server) Shutdown(ctx context.Context) error {
	s.Rules.Stop()
	s.Truth.Stop()
	if s.ShutdownFunc != nil {
		return s.ShutdownFunc(ctx)
	}
	return nil
}

func buildStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "postgres":
		pg, err := store.NewPostgresStore(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate postgres store: %w", err)
		}
		return pg, nil
	default:
		return store.NewMemoryStore("./data/store"), nil
	}
}

func buildCacheBackend(cfg config.CacheConfig) (contracts.CacheBackend, error) {
	switch cfg.L2Backend {
	case "redis":
		return cache.NewRedisBackend(cfg.L2URL, "tbcv")
	case "none":
		return nil, nil
	default:
		return cache.NewFileBackend(cfg.L2Dir)
	}
}

// buildTruthOptions wires an optional embedding driver and vector store
// backend onto the truth index. pgvector reuses the main store's Postgres
// connection (the pgvector extension lives alongside TBCV's own tables),
// since truth-index config has no URL of its own to configure separately.
func buildTruthOptions(ctx context.Context, cfg config.TruthIndexConfig, storeCfg config.StoreConfig, llmCfg config.LLMConfig) []truthindex.Option {
	opts := []truthindex.Option{truthindex.WithThresholds(cfg.AliasThreshold, cfg.SemanticThreshold)}
	if cfg.VectorStore == "pgvector" {
		vs, err := truthindex.NewPGVectorStore(ctx, storeCfg.URL, 1536)
		if err != nil {
			log.Warn().Err(err).Msg("pgvector store init failed, falling back to embedded vector store")
		} else {
			opts = append(opts, truthindex.WithVectorStore(vs))
		}
	}
	if emb := buildEmbeddingDriver(llmCfg); emb != nil {
		opts = append(opts, truthindex.WithEmbeddingDriver(emb))
	}
	return opts
}

// buildEmbeddingDriver wires the semantic-lookup embedding provider (§4.8);
// a nil return leaves the truth index on alias/exact matching only, which
// truthindex.Index already treats as a valid, if less precise, mode.
func buildEmbeddingDriver(cfg config.LLMConfig) contracts.EmbeddingDriver {
	switch cfg.EmbeddingProvider {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil
		}
		return llm.NewOpenAIEmbeddingDriver(apiKey, cfg.EmbeddingModel, 1536)
	case "ollama":
		return llm.NewOllamaEmbeddingDriver("http://localhost:11434", cfg.EmbeddingModel, 768)
	default:
		return nil
	}
}

// buildLLMDriver wires the completion driver behind a circuit breaker; a
// "none" provider leaves it nil, which every caller (validators.VContext,
// recommender.Recommender) already treats as "skip the LLM-backed step".
func buildLLMDriver(cfg config.LLMConfig) contracts.LLMDriver {
	if cfg.Provider != "anthropic" || cfg.AnthropicAPIKey == "" {
		return nil
	}
	driver := llm.NewAnthropicDriver(cfg.AnthropicAPIKey, "claude-3-5-sonnet-latest")
	return llm.NewRouter(cfg.CircuitBreakerName, cfg.RequestTimeout, driver)
}
