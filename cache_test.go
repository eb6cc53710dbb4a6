package ragged

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type countingEmbedder struct {
	calls int
	texts [][]string
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.texts = append(c.texts, texts)
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int { return 1 }
func (c *countingEmbedder) Name() string    { return "counting" }

func TestEmbeddingCacheMemoizes(t *testing.T) {
	inner := &countingEmbedder{}
	cache := NewEmbeddingCache(inner, "m1")

	first, err := cache.Embed(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := cache.Embed(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached vectors differ: %v vs %v", first, second)
	}
	if cache.Len() != 2 {
		t.Errorf("Len = %d, want 2", cache.Len())
	}
}

func TestEmbeddingCacheFetchesOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	cache := NewEmbeddingCache(inner, "m1")

	if _, err := cache.Embed(context.Background(), []string{"alpha"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	out, err := cache.Embed(context.Background(), []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(out) != 3 {
		t.Fatalf("got %d vectors, want 3", len(out))
	}
	if inner.calls != 2 {
		t.Fatalf("inner called %d times, want 2", inner.calls)
	}
	if !reflect.DeepEqual(inner.texts[1], []string{"beta", "gamma"}) {
		t.Errorf("second batch = %v, want only the misses", inner.texts[1])
	}
	// Vector positions must match input positions regardless of cache hits.
	if out[0][0] != 5 || out[1][0] != 4 || out[2][0] != 5 {
		t.Errorf("vectors misaligned with inputs: %v", out)
	}
}

func TestEmbeddingCachePropagatesError(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("offline")}
	cache := NewEmbeddingCache(inner, "m1")

	if _, err := cache.Embed(context.Background(), []string{"alpha"}); err == nil {
		t.Fatal("expected error from inner provider")
	}
	if cache.Len() != 0 {
		t.Errorf("failed fetch cached %d vectors, want 0", cache.Len())
	}
}

func TestEmbeddingCacheDelegatesMetadata(t *testing.T) {
	cache := NewEmbeddingCache(&countingEmbedder{}, "m1")
	if cache.Name() != "counting" {
		t.Errorf("Name = %q", cache.Name())
	}
	if cache.Dimensions() != 1 {
		t.Errorf("Dimensions = %d", cache.Dimensions())
	}
}
