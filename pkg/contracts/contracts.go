// Package contracts defines the swappable service interfaces the rest of
// the module programs against: LLM and embedding drivers, the vector
// store used by the truth index, the L2 cache backend, and an archive
// backend interface. Concrete implementations live under internal/llm,
// internal/truthindex and internal/cache; callers should only ever depend
// on these interfaces, never on a concrete driver type.
package contracts

import (
	"context"
	"time"

	"github.com/babar-raza/tbcv/pkg/models"
)

// ChatMessage is a single turn in an LLMDriver completion request.
type ChatMessage struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// CompletionRequest is the provider-agnostic shape passed to LLMDriver.
type CompletionRequest struct {
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	// JSONSchema, when non-nil, asks the driver to constrain output to the
	// given schema where the underlying provider supports it.
	JSONSchema map[string]any
}

// CompletionResult is the normalized response from any LLMDriver.
type CompletionResult struct {
	Content      string
	FinishReason string
	InputTokens  int
	OutputTokens int
}

// LLMDriver abstracts a chat-completion capable model provider. Used by the
// semantic validator (§4.3 tier 3) and the recommender's self-critique
// pass.
type LLMDriver interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
	// Name identifies the driver for logging and circuit-breaker naming.
	Name() string
}

// EmbeddingDriver produces dense vectors for semantic truth-index lookups
// (§4.8). A nil EmbeddingDriver is valid: callers fall back to alias/exact
// lookup only.
type EmbeddingDriver interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Dimensions() int
}

// VectorMatch is a single nearest-neighbour result from a VectorStoreDriver.
type VectorMatch struct {
	RecordID string
	Score    float64
}

// VectorStoreDriver abstracts nearest-neighbour lookup over embedded truth
// records. internal/truthindex ships an in-memory implementation and a
// pgvector-backed one; both satisfy this interface.
type VectorStoreDriver interface {
	Upsert(ctx context.Context, id string, vec []float64) error
	Query(ctx context.Context, vec []float64, topK int) ([]VectorMatch, error)
	Delete(ctx context.Context, id string) error
}

// ArchiveDriver persists an expired EnhancementRecord rollback point. No
// implementation ships in this module, and the history janitor does not
// take one: it only reports expired records and never deletes them.
type ArchiveDriver interface {
	Archive(ctx context.Context, rec models.EnhancementRecord) error
}

// EventPublisher is the narrow slice of internal/eventbus.Bus that
// producers call. Producers in this module, internal/workflow included,
// take the concrete *eventbus.Bus; nothing here depends on EventPublisher.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

// ChangeNotifier describes a component that reloads from disk and tells
// callers something changed. No type in this module implements it:
// internal/ruleloader and internal/truthindex announce reloads by
// publishing on the event bus instead.
type ChangeNotifier interface {
	Subscribe() <-chan struct{}
}

// CacheBackend abstracts the L2 (persistent) cache tier. OSS ships a
// JSON-snapshot file backend; a Redis-backed implementation is available
// for multi-process deployments.
type CacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteByTag removes every entry carrying the given invalidation tag,
	// used when the rule loader or truth index reloads.
	DeleteByTag(ctx context.Context, tag string) error
}

// Clock exists purely to make time-dependent code (TTL expiry, rollback
// windows) deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
