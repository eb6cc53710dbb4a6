// Package postgres implements ragged.VectorIndex using PostgreSQL with
// pgvector for native vector similarity search.
//
// Index accepts an externally-owned *pgxpool.Pool via constructor injection.
// The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	ragged "github.com/raggedlab/ragged"
)

// Index implements ragged.VectorIndex backed by PostgreSQL with pgvector.
// Vector search uses HNSW indexes with cosine distance.
type Index struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

// pgConfig holds index configuration set via Option functions.
type pgConfig struct {
	embeddingDimension int // 0 = untyped vector
	hnswM              int // 0 = pgvector default (16)
	hnswEFConstruction int // 0 = pgvector default (64)
	hnswEFSearch       int // 0 = pgvector default (40)
}

// Option configures a PostgreSQL Index.
type Option func(*pgConfig)

// WithEmbeddingDimension sets the vector column dimension (e.g. 1536, 768).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, enabling
// better index optimization and catching dimension mismatches at insert time.
// Only affects new table creation (no ALTER on existing tables).
func WithEmbeddingDimension(dim int) Option {
	return func(c *pgConfig) { c.embeddingDimension = dim }
}

// WithHNSWM sets the HNSW m parameter (max connections per node).
// Higher values improve recall at the cost of memory. Default: pgvector's 16.
// Only affects index creation (CREATE INDEX IF NOT EXISTS).
func WithHNSWM(m int) Option {
	return func(c *pgConfig) { c.hnswM = m }
}

// WithEFConstruction sets the HNSW ef_construction parameter (build-time
// candidate list size). Higher values improve index quality at the cost of
// slower builds. Default: pgvector's 64.
// Only affects index creation (CREATE INDEX IF NOT EXISTS).
func WithEFConstruction(ef int) Option {
	return func(c *pgConfig) { c.hnswEFConstruction = ef }
}

// WithEFSearch sets the HNSW ef_search parameter (query-time candidate list
// size). Higher values improve recall at the cost of latency. Default:
// pgvector's 40. Applied via SET during Init().
func WithEFSearch(ef int) Option {
	return func(c *pgConfig) { c.hnswEFSearch = ef }
}

var _ ragged.VectorIndex = (*Index)(nil)

// New creates an Index using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Index {
	var cfg pgConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Index{pool: pool, cfg: cfg}
}

// vectorType returns "vector" or "vector(N)" depending on config.
func (s *Index) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

// hnswWithClause returns the WITH (...) clause for HNSW index creation,
// or an empty string if no tuning params are set.
func (s *Index) hnswWithClause() string {
	var parts []string
	if s.cfg.hnswM > 0 {
		parts = append(parts, fmt.Sprintf("m = %d", s.cfg.hnswM))
	}
	if s.cfg.hnswEFConstruction > 0 {
		parts = append(parts, fmt.Sprintf("ef_construction = %d", s.cfg.hnswEFConstruction))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}

// Init creates the pgvector extension, all required tables, and indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Index) Init(ctx context.Context) error {
	vtype := s.vectorType()
	hnswWith := s.hnswWithClause()

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL,
			created_at BIGINT NOT NULL
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS points (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			embedding %s NOT NULL,
			payload JSONB,
			PRIMARY KEY (collection, id)
		)`, vtype),
		`CREATE INDEX IF NOT EXISTS points_collection_idx ON points(collection)`,
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS points_embedding_idx ON points USING hnsw (embedding vector_cosine_ops)%s`, hnswWith),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}

	if s.cfg.hnswEFSearch > 0 {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf("SET hnsw.ef_search = %d", s.cfg.hnswEFSearch)); err != nil {
			return fmt.Errorf("postgres: set ef_search: %w", err)
		}
	}

	return nil
}

// EnsureCollection registers the collection if it does not exist.
func (s *Index) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO collections (name, dimensions, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO NOTHING`,
		collection, dimensions, ragged.NowUnix())
	if err != nil {
		return fmt.Errorf("postgres: ensure collection: %w", err)
	}
	return nil
}

// Upsert inserts or replaces a point in a collection.
func (s *Index) Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]any) error {
	var payloadJSON *string
	if len(payload) > 0 {
		data, _ := json.Marshal(payload)
		v := string(data)
		payloadJSON = &v
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO points (collection, id, embedding, payload)
		 VALUES ($1, $2, $3::vector, $4)
		 ON CONFLICT (collection, id) DO UPDATE SET
		   embedding = EXCLUDED.embedding,
		   payload = EXCLUDED.payload`,
		collection, id, serializeEmbedding(vector), payloadJSON)
	if err != nil {
		return fmt.Errorf("postgres: upsert point: %w", err)
	}
	return nil
}

// Search performs vector similarity search over a collection using
// pgvector's cosine distance operator with HNSW index.
func (s *Index) Search(ctx context.Context, collection string, vector []float32, topK int) ([]ragged.SearchHit, error) {
	embStr := serializeEmbedding(vector)
	rows, err := s.pool.Query(ctx,
		`SELECT id, payload,
		        1 - (embedding <=> $1::vector) AS score
		 FROM points
		 WHERE collection = $2
		 ORDER BY embedding <=> $1::vector
		 LIMIT $3`,
		embStr, collection, topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search points: %w", err)
	}
	defer rows.Close()

	var results []ragged.SearchHit
	for rows.Next() {
		var hit ragged.SearchHit
		var payloadJSON []byte
		if err := rows.Scan(&hit.ID, &payloadJSON, &hit.Score); err != nil {
			return nil, fmt.Errorf("postgres: scan point: %w", err)
		}
		if len(payloadJSON) > 0 {
			_ = json.Unmarshal(payloadJSON, &hit.Payload)
		}
		results = append(results, hit)
	}
	return results, rows.Err()
}

// Close is a no-op; the caller owns the pool.
func (s *Index) Close() error { return nil }

// serializeEmbedding converts []float32 to pgvector's text format
// (a JSON-style array literal).
func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}
