// Package sqlite implements ragged.VectorIndex and ragged.ObjectStore using
// pure-Go SQLite with in-process brute-force vector search. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	ragged "github.com/raggedlab/ragged"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// IndexOption configures a SQLite Index.
type IndexOption func(*Index)

// WithLogger sets a structured logger for the index.
// When set, the index emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) IndexOption {
	return func(s *Index) { s.logger = l }
}

// Index implements ragged.VectorIndex and ragged.ObjectStore backed by a
// local SQLite file. Embeddings are stored as JSON text and vector search is
// done in-process using brute-force cosine similarity.
type Index struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ ragged.VectorIndex = (*Index)(nil)
var _ ragged.ObjectStore = (*Index)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates an Index using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...IndexOption) *Index {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Index{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: index opened", "path", dbPath)
	return s
}

// Init creates all required tables.
func (s *Index) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	tables := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS points (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			embedding TEXT NOT NULL,
			payload TEXT,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE TABLE IF NOT EXISTS blobs (
			key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			content_type TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}

	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_points_collection ON points(collection)`)

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// EnsureCollection registers the collection if it does not exist. Dimensions
// are recorded for validation on upsert.
func (s *Index) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	start := time.Now()
	s.logger.Debug("sqlite: ensure collection", "collection", collection, "dimensions", dimensions)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dimensions, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		collection, dimensions, ragged.NowUnix(),
	)
	if err != nil {
		s.logger.Error("sqlite: ensure collection failed", "collection", collection, "error", err, "duration", time.Since(start))
		return fmt.Errorf("ensure collection: %w", err)
	}
	s.logger.Debug("sqlite: ensure collection ok", "collection", collection, "duration", time.Since(start))
	return nil
}

// Upsert inserts or replaces a point in a collection.
func (s *Index) Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]any) error {
	start := time.Now()
	s.logger.Debug("sqlite: upsert point", "collection", collection, "id", id, "dim", len(vector))

	var payloadJSON *string
	if len(payload) > 0 {
		data, _ := json.Marshal(payload)
		v := string(data)
		payloadJSON = &v
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO points (collection, id, embedding, payload)
		 VALUES (?, ?, ?, ?)`,
		collection, id, serializeEmbedding(vector), payloadJSON,
	)
	if err != nil {
		s.logger.Error("sqlite: upsert point failed", "collection", collection, "id", id, "error", err, "duration", time.Since(start))
		return fmt.Errorf("upsert point: %w", err)
	}
	s.logger.Debug("sqlite: upsert point ok", "collection", collection, "id", id, "duration", time.Since(start))
	return nil
}

// Search performs brute-force cosine similarity search over a collection.
func (s *Index) Search(ctx context.Context, collection string, vector []float32, topK int) ([]ragged.SearchHit, error) {
	start := time.Now()
	s.logger.Debug("sqlite: search", "collection", collection, "top_k", topK, "embedding_dim", len(vector))

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding, payload FROM points WHERE collection = ?`,
		collection,
	)
	if err != nil {
		s.logger.Error("sqlite: search failed", "collection", collection, "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("search points: %w", err)
	}
	defer rows.Close()

	var results []ragged.SearchHit
	scanned := 0

	for rows.Next() {
		var hit ragged.SearchHit
		var embJSON string
		var payloadJSON sql.NullString
		if err := rows.Scan(&hit.ID, &embJSON, &payloadJSON); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		scanned++
		if payloadJSON.Valid {
			_ = json.Unmarshal([]byte(payloadJSON.String), &hit.Payload)
		}
		stored, err := deserializeEmbedding(embJSON)
		if err != nil {
			continue
		}
		hit.Score = cosineSimilarity(vector, stored)
		results = append(results, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate points: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	s.logger.Debug("sqlite: search ok", "collection", collection, "scanned", scanned, "returned", len(results), "duration", time.Since(start))
	return results, nil
}

// Put stores a blob under key, replacing any previous value.
func (s *Index) Put(ctx context.Context, key string, data []byte, contentType string) error {
	start := time.Now()
	s.logger.Debug("sqlite: put blob", "key", key, "bytes", len(data))

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO blobs (key, data, content_type, created_at) VALUES (?, ?, ?, ?)`,
		key, data, contentType, ragged.NowUnix(),
	)
	if err != nil {
		s.logger.Error("sqlite: put blob failed", "key", key, "error", err, "duration", time.Since(start))
		return fmt.Errorf("put blob: %w", err)
	}
	s.logger.Debug("sqlite: put blob ok", "key", key, "duration", time.Since(start))
	return nil
}

// Get returns the blob stored under key.
func (s *Index) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	s.logger.Debug("sqlite: get blob", "key", key)

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, &ragged.ErrData{Source: key, Reason: "not found"}
	}
	if err != nil {
		s.logger.Error("sqlite: get blob failed", "key", key, "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("get blob: %w", err)
	}
	s.logger.Debug("sqlite: get blob ok", "key", key, "bytes", len(data), "duration", time.Since(start))
	return data, nil
}

// List returns all blob keys with the given prefix, sorted.
func (s *Index) List(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	s.logger.Debug("sqlite: list blobs", "prefix", prefix)

	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM blobs WHERE key LIKE ? ORDER BY key`,
		prefix+"%",
	)
	if err != nil {
		s.logger.Error("sqlite: list blobs failed", "prefix", prefix, "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan blob key: %w", err)
		}
		keys = append(keys, k)
	}
	s.logger.Debug("sqlite: list blobs ok", "prefix", prefix, "count", len(keys), "duration", time.Since(start))
	return keys, rows.Err()
}

// Delete removes the blob stored under key. Deleting a missing key is not an
// error.
func (s *Index) Delete(ctx context.Context, key string) error {
	start := time.Now()
	s.logger.Debug("sqlite: delete blob", "key", key)

	_, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key)
	if err != nil {
		s.logger.Error("sqlite: delete blob failed", "key", key, "error", err, "duration", time.Since(start))
		return fmt.Errorf("delete blob: %w", err)
	}
	s.logger.Debug("sqlite: delete blob ok", "key", key, "duration", time.Since(start))
	return nil
}

// DB returns the underlying *sql.DB.
func (s *Index) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Index) Close() error {
	s.logger.Debug("sqlite: closing index")
	err := s.db.Close()
	if err != nil {
		s.logger.Error("sqlite: close failed", "error", err)
	}
	return err
}

// --- Vector math ---

// cosineSimilarity computes the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// serializeEmbedding converts []float32 to a JSON array string.
func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

// deserializeEmbedding parses a JSON array string back to []float32.
func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
