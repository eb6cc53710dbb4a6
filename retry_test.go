package ragged

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubEmbedding is a test EmbeddingProvider that returns pre-configured
// results in order.
type stubEmbedding struct {
	calls   int
	results []stubEmbedResult
}

type stubEmbedResult struct {
	vectors [][]float32
	err     error
}

func (s *stubEmbedding) Name() string    { return "stub" }
func (s *stubEmbedding) Dimensions() int { return 2 }

func (s *stubEmbedding) Embed(_ context.Context, _ []string) ([][]float32, error) {
	i := s.calls
	s.calls++
	if i < len(s.results) {
		return s.results[i].vectors, s.results[i].err
	}
	return nil, nil
}

var _ EmbeddingProvider = (*stubEmbedding)(nil)

// stubGenerator is a test QuestionGenerator with the same result queue shape.
type stubGenerator struct {
	calls   int
	results []stubGenResult
}

type stubGenResult struct {
	pairs []QAPair
	err   error
}

func (s *stubGenerator) Generate(_ context.Context, _ string, _ int) ([]QAPair, error) {
	i := s.calls
	s.calls++
	if i < len(s.results) {
		return s.results[i].pairs, s.results[i].err
	}
	return nil, nil
}

var _ QuestionGenerator = (*stubGenerator)(nil)

func TestWithEmbeddingRetry_SucceedsFirstAttempt(t *testing.T) {
	stub := &stubEmbedding{results: []stubEmbedResult{
		{vectors: [][]float32{{1, 2}}},
	}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0))

	out, err := p.Embed(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0][0] != 1 {
		t.Errorf("got %v, want [[1 2]]", out)
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1", stub.calls)
	}
}

func TestWithEmbeddingRetry_RetriesOn503(t *testing.T) {
	stub := &stubEmbedding{results: []stubEmbedResult{
		{err: &ErrHTTP{Status: 503, Body: "unavailable"}},
		{vectors: [][]float32{{1, 2}}},
	}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0))

	out, err := p.Embed(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("got %v, want one vector", out)
	}
	if stub.calls != 2 {
		t.Errorf("got %d calls, want 2", stub.calls)
	}
}

func TestWithEmbeddingRetry_RetriesOn429(t *testing.T) {
	stub := &stubEmbedding{results: []stubEmbedResult{
		{err: &ErrHTTP{Status: 429, Body: "rate limited"}},
		{vectors: [][]float32{{1, 2}}},
	}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0))

	if _, err := p.Embed(context.Background(), []string{"hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("got %d calls, want 2", stub.calls)
	}
}

func TestWithEmbeddingRetry_NoRetryOnPermanentError(t *testing.T) {
	stub := &stubEmbedding{results: []stubEmbedResult{
		{err: &ErrHTTP{Status: 401, Body: "unauthorized"}},
	}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0))

	if _, err := p.Embed(context.Background(), []string{"hello"}); err == nil {
		t.Fatal("expected error")
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1 (401 must not retry)", stub.calls)
	}
}

func TestWithEmbeddingRetry_NoRetryOnNonHTTPError(t *testing.T) {
	stub := &stubEmbedding{results: []stubEmbedResult{
		{err: errors.New("connection refused")},
	}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0))

	if _, err := p.Embed(context.Background(), []string{"hello"}); err == nil {
		t.Fatal("expected error")
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1", stub.calls)
	}
}

func TestWithEmbeddingRetry_ExhaustsAttempts(t *testing.T) {
	stub := &stubEmbedding{results: []stubEmbedResult{
		{err: &ErrHTTP{Status: 503}},
		{err: &ErrHTTP{Status: 503}},
		{err: &ErrHTTP{Status: 503}},
	}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0), RetryMaxAttempts(3))

	_, err := p.Embed(context.Background(), []string{"hello"})
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) || httpErr.Status != 503 {
		t.Fatalf("expected final 503, got %v", err)
	}
	if stub.calls != 3 {
		t.Errorf("got %d calls, want 3", stub.calls)
	}
}

func TestWithEmbeddingRetry_RespectsRetryAfter(t *testing.T) {
	stub := &stubEmbedding{results: []stubEmbedResult{
		{err: &ErrHTTP{Status: 429, Body: "rate limited", RetryAfter: 100 * time.Millisecond}},
		{vectors: [][]float32{{1, 2}}},
	}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(time.Millisecond))

	start := time.Now()
	if _, err := p.Embed(context.Background(), []string{"hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("retried after %v, want at least the Retry-After of 100ms", elapsed)
	}
}

func TestWithEmbeddingRetry_ContextCancelDuringBackoff(t *testing.T) {
	stub := &stubEmbedding{results: []stubEmbedResult{
		{err: &ErrHTTP{Status: 503}},
		{vectors: [][]float32{{1, 2}}},
	}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Embed(ctx, []string{"hello"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1", stub.calls)
	}
}

func TestWithEmbeddingRetry_DelegatesMetadata(t *testing.T) {
	p := WithEmbeddingRetry(&stubEmbedding{})
	if p.Name() != "stub" {
		t.Errorf("Name() = %q, want %q", p.Name(), "stub")
	}
	if p.Dimensions() != 2 {
		t.Errorf("Dimensions() = %d, want 2", p.Dimensions())
	}
}

func TestWithGenerateRetry_RetriesOn429(t *testing.T) {
	stub := &stubGenerator{results: []stubGenResult{
		{err: &ErrHTTP{Status: 429, Body: "rate limited"}},
		{pairs: []QAPair{{Question: "q", Answer: "a"}}},
	}}
	g := WithGenerateRetry(stub, RetryBaseDelay(0))

	pairs, err := g.Generate(context.Background(), "doc text", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 1 || pairs[0].Question != "q" {
		t.Errorf("got %v", pairs)
	}
	if stub.calls != 2 {
		t.Errorf("got %d calls, want 2", stub.calls)
	}
}

func TestWithGenerateRetry_NoRetryOnMalformedResponse(t *testing.T) {
	stub := &stubGenerator{results: []stubGenResult{
		{err: &ErrCollaborator{Op: "parse qa response", Err: errors.New("bad json")}},
	}}
	g := WithGenerateRetry(stub, RetryBaseDelay(0))

	if _, err := g.Generate(context.Background(), "doc text", 1); err == nil {
		t.Fatal("expected error")
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1", stub.calls)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"-1", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := ParseRetryAfter(tt.in); got != tt.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	future := time.Now().Add(30 * time.Second).UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
	if got := ParseRetryAfter(future); got <= 0 || got > 30*time.Second {
		t.Errorf("ParseRetryAfter(http-date) = %v, want within (0, 30s]", got)
	}
	past := time.Now().Add(-time.Hour).UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
	if got := ParseRetryAfter(past); got != 0 {
		t.Errorf("ParseRetryAfter(past date) = %v, want 0", got)
	}
}
