package eval

import (
	"context"
	"errors"
	"testing"

	ragged "github.com/raggedlab/ragged"
)

type stubEmbedding struct {
	err   error
	calls int
}

func (s *stubEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (s *stubEmbedding) Dimensions() int { return 3 }
func (s *stubEmbedding) Name() string    { return "stub-model" }

type stubIndex struct {
	hits map[string][]ragged.SearchHit // question is not visible here; keyed by collection
	err  error
}

func (s *stubIndex) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	return nil
}

func (s *stubIndex) Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]any) error {
	return nil
}

func (s *stubIndex) Search(ctx context.Context, collection string, vector []float32, topK int) ([]ragged.SearchHit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits[collection], nil
}

func (s *stubIndex) Close() error { return nil }

func hit(chunkID string, score float32) ragged.SearchHit {
	return ragged.SearchHit{
		ID:    "point-" + chunkID,
		Score: score,
		Payload: map[string]any{
			"chunk_id":   chunkID,
			"latency_ms": 10.0,
			"cost":       0.001,
		},
	}
}

func TestEvaluateRanksGoldChunk(t *testing.T) {
	idx := &stubIndex{hits: map[string][]ragged.SearchHit{
		"col": {hit("doc_ft_2", 0.9), hit("doc_ft_1", 0.8), hit("doc_ft_3", 0.7)},
	}}
	e, err := NewEvaluator(&stubEmbedding{}, idx, 5)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}

	labels := []ragged.GoldLabel{
		{Question: "q1", GoldChunkID: "doc_ft_1", Strategy: ragged.StrategyFixedToken},
		{Question: "q2", GoldChunkID: "doc_ft_2", Strategy: ragged.StrategyFixedToken},
	}
	m, err := e.Evaluate(context.Background(), "col", labels)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if m.TotalQuestions != 2 || m.Failures != 0 {
		t.Errorf("TotalQuestions=%d Failures=%d, want 2 and 0", m.TotalQuestions, m.Failures)
	}
	if m.FoundInTopK != 2 {
		t.Errorf("FoundInTopK = %d, want 2", m.FoundInTopK)
	}
	// q1's gold chunk lands at rank 2, q2's at rank 1.
	if m.RankDistribution[1] != 1 || m.RankDistribution[2] != 1 {
		t.Errorf("RankDistribution = %v, want {1:1, 2:1}", m.RankDistribution)
	}
	if m.RecallAtK != 1.0 {
		t.Errorf("RecallAtK = %v, want 1.0", m.RecallAtK)
	}
	wantMRR := (1.0 + 0.5) / 2
	if diff := m.MeanReciprocalRank - wantMRR; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("MeanReciprocalRank = %v, want %v", m.MeanReciprocalRank, wantMRR)
	}
	if m.TotalLatencyMS != 20.0 {
		t.Errorf("TotalLatencyMS = %v, want 20", m.TotalLatencyMS)
	}
	if m.TotalCost != 0.002 {
		t.Errorf("TotalCost = %v, want 0.002", m.TotalCost)
	}
	if m.Model != "stub-model" || m.TopK != 5 || m.Strategy != ragged.StrategyFixedToken {
		t.Errorf("metadata = %+v", m)
	}
}

func TestEvaluateGoldChunkMissed(t *testing.T) {
	idx := &stubIndex{hits: map[string][]ragged.SearchHit{
		"col": {hit("doc_ft_8", 0.9)},
	}}
	e, _ := NewEvaluator(&stubEmbedding{}, idx, 5)

	m, err := e.Evaluate(context.Background(), "col", []ragged.GoldLabel{
		{Question: "q", GoldChunkID: "doc_ft_1"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if m.TotalQuestions != 1 || m.FoundInTopK != 0 {
		t.Errorf("TotalQuestions=%d FoundInTopK=%d, want 1 and 0", m.TotalQuestions, m.FoundInTopK)
	}
	if m.RecallAtK != 0 || m.MeanReciprocalRank != 0 {
		t.Errorf("RecallAtK=%v MRR=%v, want both 0", m.RecallAtK, m.MeanReciprocalRank)
	}
}

func TestEvaluateEmptyGoldSet(t *testing.T) {
	e, _ := NewEvaluator(&stubEmbedding{}, &stubIndex{}, 5)

	m, err := e.Evaluate(context.Background(), "col", nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if m.RecallAtK != 0.0 || m.MeanReciprocalRank != 0.0 {
		t.Errorf("RecallAtK=%v MRR=%v, want defined zeros", m.RecallAtK, m.MeanReciprocalRank)
	}
	if m.TotalQuestions != 0 {
		t.Errorf("TotalQuestions = %d, want 0", m.TotalQuestions)
	}
}

func TestEvaluateEmbeddingFailureExcluded(t *testing.T) {
	idx := &stubIndex{hits: map[string][]ragged.SearchHit{}}
	e, _ := NewEvaluator(&stubEmbedding{err: errors.New("quota exceeded")}, idx, 5)

	m, err := e.Evaluate(context.Background(), "col", []ragged.GoldLabel{
		{Question: "q", GoldChunkID: "doc_ft_1"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if m.Failures != 1 || m.TotalQuestions != 0 {
		t.Errorf("Failures=%d TotalQuestions=%d, want 1 and 0", m.Failures, m.TotalQuestions)
	}
	if m.RecallAtK != 0.0 {
		t.Errorf("RecallAtK = %v, want 0", m.RecallAtK)
	}
}

func TestEvaluateSearchFailureExcluded(t *testing.T) {
	idx := &stubIndex{err: errors.New("backend down")}
	e, _ := NewEvaluator(&stubEmbedding{}, idx, 5)

	m, err := e.Evaluate(context.Background(), "col", []ragged.GoldLabel{
		{Question: "q1", GoldChunkID: "doc_ft_1"},
		{Question: "q2", GoldChunkID: "doc_ft_2"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if m.Failures != 2 || m.TotalQuestions != 0 {
		t.Errorf("Failures=%d TotalQuestions=%d, want 2 and 0", m.Failures, m.TotalQuestions)
	}
}

func TestEvaluateContextCancellation(t *testing.T) {
	e, _ := NewEvaluator(&stubEmbedding{}, &stubIndex{}, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Evaluate(ctx, "col", []ragged.GoldLabel{
		{Question: "q", GoldChunkID: "doc_ft_1"},
	})
	var collab *ragged.ErrCollaborator
	if !errors.As(err, &collab) {
		t.Fatalf("got %v, want *ragged.ErrCollaborator", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want wrapped context.Canceled", err)
	}
}

func TestNewEvaluatorRejectsNonPositiveTopK(t *testing.T) {
	for _, k := range []int{0, -1} {
		_, err := NewEvaluator(&stubEmbedding{}, &stubIndex{}, k)
		var invalid *ragged.ErrInvalidConfig
		if !errors.As(err, &invalid) {
			t.Errorf("topK=%d: got %v, want *ragged.ErrInvalidConfig", k, err)
		}
	}
}

func TestEvaluateFallsBackToHitID(t *testing.T) {
	idx := &stubIndex{hits: map[string][]ragged.SearchHit{
		"col": {{ID: "doc_ft_1", Score: 0.9, Payload: map[string]any{}}},
	}}
	e, _ := NewEvaluator(&stubEmbedding{}, idx, 5)

	m, err := e.Evaluate(context.Background(), "col", []ragged.GoldLabel{
		{Question: "q", GoldChunkID: "doc_ft_1"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if m.FoundInTopK != 1 {
		t.Errorf("FoundInTopK = %d, want 1 (matched on hit ID)", m.FoundInTopK)
	}
}
