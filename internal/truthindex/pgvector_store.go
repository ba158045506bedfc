package truthindex

import (
	"context"
	"fmt"

	"github.com/babar-raza/tbcv/pkg/contracts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PGVectorStore implements contracts.VectorStoreDriver using PostgreSQL
// with the pgvector extension, for truth-record corpora too large for
// EmbeddedVectorStore's brute-force search.
type PGVectorStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewPGVectorStore connects to connURL and ensures the backing table exists.
func NewPGVectorStore(ctx context.Context, connURL string, dimensions int) (*PGVectorStore, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("pgvector: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector: ping: %w", err)
	}
	s := &PGVectorStore{pool: pool, dimensions: dimensions}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector: migrate: %w", err)
	}
	log.Info().Int("dims", dimensions).Msg("pgvector truth index store initialized")
	return s, nil
}

var _ contracts.VectorStoreDriver = (*PGVectorStore)(nil)

func (s *PGVectorStore) migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS tbcv_truth_vectors (
			id TEXT PRIMARY KEY,
			vector vector(%d) NOT NULL
		);
	`, s.dimensions)
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

func (s *PGVectorStore) Upsert(ctx context.Context, id string, vec []float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tbcv_truth_vectors (id, vector) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET vector = $2
	`, id, vecLiteral(vec))
	return err
}

func (s *PGVectorStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tbcv_truth_vectors WHERE id = $1`, id)
	return err
}

func (s *PGVectorStore) Query(ctx context.Context, vec []float64, topK int) ([]contracts.VectorMatch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, 1 - (vector <=> $1) AS score
		FROM tbcv_truth_vectors
		ORDER BY vector <=> $1
		LIMIT $2
	`, vecLiteral(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("pgvector: query: %w", err)
	}
	defer rows.Close()

	var matches []contracts.VectorMatch
	for rows.Next() {
		var m contracts.VectorMatch
		if err := rows.Scan(&m.RecordID, &m.Score); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PGVectorStore) Close() error {
	s.pool.Close()
	return nil
}

// vecLiteral renders a []float64 as the pgvector text input format, e.g. "[0.1,0.2,0.3]".
func vecLiteral(vec []float64) string {
	out := make([]byte, 0, len(vec)*8+2)
	out = append(out, '[')
	for i, v := range vec {
		if i > 0 {
			out = append(out, ',')
		}
		out = fmt.Appendf(out, "%g", v)
	}
	out = append(out, ']')
	return string(out)
}
