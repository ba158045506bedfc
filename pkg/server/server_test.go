package server

import (
	"context"
	"testing"
	"time"

	"github.com/babar-raza/tbcv/internal/config"
)

func TestBuildStoreDefaultsToMemory(t *testing.T) {
	t.Chdir(t.TempDir())
	s, err := buildStore(context.Background(), config.StoreConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("buildStore() error = %v", err)
	}
	defer s.Close()
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() on memory store error = %v", err)
	}
}

func TestBuildCacheBackendNone(t *testing.T) {
	backend, err := buildCacheBackend(config.CacheConfig{L2Backend: "none"})
	if err != nil {
		t.Fatalf("buildCacheBackend(none) error = %v", err)
	}
	if backend != nil {
		t.Errorf("buildCacheBackend(none) = %v, want nil", backend)
	}
}

func TestBuildCacheBackendFileDefault(t *testing.T) {
	backend, err := buildCacheBackend(config.CacheConfig{L2Backend: "file", L2Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("buildCacheBackend(file) error = %v", err)
	}
	if backend == nil {
		t.Fatal("buildCacheBackend(file) = nil, want a FileBackend")
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		defer closer.Close()
	}
}

func TestBuildLLMDriverNoProviderIsNil(t *testing.T) {
	driver := buildLLMDriver(config.LLMConfig{Provider: "none"})
	if driver != nil {
		t.Errorf("buildLLMDriver(none) = %v, want nil", driver)
	}
}

func TestBuildLLMDriverAnthropicWithoutKeyIsNil(t *testing.T) {
	driver := buildLLMDriver(config.LLMConfig{Provider: "anthropic", AnthropicAPIKey: ""})
	if driver != nil {
		t.Errorf("buildLLMDriver(anthropic, no key) = %v, want nil", driver)
	}
}

func TestBuildLLMDriverAnthropicWithKey(t *testing.T) {
	driver := buildLLMDriver(config.LLMConfig{
		Provider:           "anthropic",
		AnthropicAPIKey:    "test-key",
		CircuitBreakerName: "llm",
		RequestTimeout:     5 * time.Second,
	})
	if driver == nil {
		t.Error("buildLLMDriver(anthropic, with key) = nil, want a driver")
	}
}

func TestBuildEmbeddingDriverDefaultIsNil(t *testing.T) {
	driver := buildEmbeddingDriver(config.LLMConfig{EmbeddingProvider: "none"})
	if driver != nil {
		t.Errorf("buildEmbeddingDriver(none) = %v, want nil", driver)
	}
}

func TestBuildEmbeddingDriverOllama(t *testing.T) {
	driver := buildEmbeddingDriver(config.LLMConfig{EmbeddingProvider: "ollama", EmbeddingModel: "nomic-embed-text"})
	if driver == nil {
		t.Error("buildEmbeddingDriver(ollama) = nil, want a driver (no API key required)")
	}
}

func TestBuildTruthOptionsEmbeddedDefault(t *testing.T) {
	opts := buildTruthOptions(context.Background(),
		config.TruthIndexConfig{VectorStore: "embedded", AliasThreshold: 0.8, SemanticThreshold: 0.75},
		config.StoreConfig{Backend: "memory"},
		config.LLMConfig{EmbeddingProvider: "none"},
	)
	if len(opts) != 1 {
		t.Errorf("buildTruthOptions() returned %d options, want 1 (thresholds only, no vector store/embedding)", len(opts))
	}
}
