// Package truthindex loads curated, family-scoped truth records and
// offers exact, alias (Jaccard-trigram), and semantic (embedding +
// cosine similarity) lookup over them, falling back gracefully when no
// embedding provider is configured (§4.8).
package truthindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/babar-raza/tbcv/pkg/contracts"
)

// DefaultMaxVectors is the maxSize recorded on a new EmbeddedVectorStore.
// Upsert does not check it, so the store keeps accepting vectors past
// this size.
const DefaultMaxVectors = 50_000

// EmbeddedVectorStore is a lightweight in-memory vector store using
// brute-force cosine similarity search, suitable for the handful of
// thousand truth records a typical TBCV deployment curates. For larger
// corpora, use PGVectorStore.
type EmbeddedVectorStore struct {
	mu      sync.RWMutex
	vectors map[string][]float64
	maxSize int
}

func NewEmbeddedVectorStore() *EmbeddedVectorStore {
	return &EmbeddedVectorStore{
		vectors: make(map[string][]float64),
		maxSize: DefaultMaxVectors,
	}
}

var _ contracts.VectorStoreDriver = (*EmbeddedVectorStore)(nil)

func (s *EmbeddedVectorStore) Upsert(_ context.Context, id string, vec []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[id] = vec
	return nil
}

func (s *EmbeddedVectorStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vectors, id)
	return nil
}

func (s *EmbeddedVectorStore) Query(_ context.Context, vec []float64, topK int) ([]contracts.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		id    string
		score float64
	}
	var candidates []scored
	for id, v := range s.vectors {
		if len(v) != len(vec) {
			continue
		}
		candidates = append(candidates, scored{id: id, score: cosineSimilarity(vec, v)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	if topK > len(candidates) {
		topK = len(candidates)
	}
	matches := make([]contracts.VectorMatch, topK)
	for i := 0; i < topK; i++ {
		matches[i] = contracts.VectorMatch{RecordID: candidates[i].id, Score: candidates[i].score}
	}
	return matches, nil
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
