package eval

import (
	"context"
	"log/slog"

	ragged "github.com/raggedlab/ragged"
)

// Evaluator scores a gold set against a vector search backend: each question
// is embedded, searched, and the rank of its gold chunk recorded.
type Evaluator struct {
	embedding ragged.EmbeddingProvider
	index     ragged.VectorIndex
	topK      int
	logger    *slog.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithEvaluatorLogger sets the logger used to report per-question failures.
func WithEvaluatorLogger(l *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEvaluator creates an Evaluator searching the top topK hits per question.
func NewEvaluator(embedding ragged.EmbeddingProvider, index ragged.VectorIndex, topK int, opts ...EvaluatorOption) (*Evaluator, error) {
	if topK <= 0 {
		return nil, &ragged.ErrInvalidConfig{Field: "retrieval_top_k", Reason: "must be positive"}
	}
	e := &Evaluator{
		embedding: embedding,
		index:     index,
		topK:      topK,
		logger:    nopLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate runs every gold label against collection and returns finalized
// metrics. Labels are processed strictly in order so the rank distribution is
// deterministic. A failed embedding or search call counts toward Failures,
// never toward the recall denominator, and the run continues with the next
// label.
func (e *Evaluator) Evaluate(ctx context.Context, collection string, labels []ragged.GoldLabel) (ragged.EvaluationMetrics, error) {
	m := ragged.EvaluationMetrics{
		Model:            e.embedding.Name(),
		TopK:             e.topK,
		RankDistribution: make(map[int]int),
	}
	if len(labels) > 0 {
		m.Strategy = labels[0].Strategy
	}

	for _, label := range labels {
		if err := ctx.Err(); err != nil {
			return m, &ragged.ErrCollaborator{Op: "evaluate", Err: err}
		}

		vectors, err := e.embedding.Embed(ctx, []string{label.Question})
		if err != nil || len(vectors) == 0 {
			m.Failures++
			e.logger.Warn("embedding failed, excluding question",
				"question", label.Question, "error", err)
			continue
		}

		hits, err := e.index.Search(ctx, collection, vectors[0], e.topK)
		if err != nil {
			m.Failures++
			e.logger.Warn("search failed, excluding question",
				"question", label.Question, "error", err)
			continue
		}

		m.TotalQuestions++
		for i, hit := range hits {
			if hitChunkID(hit) != label.GoldChunkID {
				continue
			}
			rank := i + 1
			m.FoundInTopK++
			m.RankDistribution[rank]++
			m.MeanReciprocalRank += 1 / float64(rank)
			accumulatePayload(&m, hit.Payload)
			break
		}
	}

	m.Finalize()
	return m, nil
}

// hitChunkID reads the chunk id a hit refers to, preferring the payload's
// chunk_id over the point id (point ids are derived UUIDs, not chunk ids).
func hitChunkID(hit ragged.SearchHit) string {
	if id, ok := hit.Payload["chunk_id"].(string); ok && id != "" {
		return id
	}
	return hit.ID
}

// accumulatePayload folds latency and cost metadata carried on a hit's
// payload into the running totals. Absent or non-numeric fields are ignored.
func accumulatePayload(m *ragged.EvaluationMetrics, payload map[string]any) {
	if v, ok := toFloat(payload["latency_ms"]); ok {
		m.TotalLatencyMS += v
	}
	if v, ok := toFloat(payload["cost"]); ok {
		m.TotalCost += v
	}
}

// toFloat handles the numeric types JSON decoding and in-memory payloads
// produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
