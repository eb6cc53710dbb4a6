package ragged

import (
	"context"
	"fmt"
	"sync"
)

// EmbeddingCache memoizes embedding vectors keyed by model and text. It is an
// explicit component scoped to one process run: construct a fresh cache per
// run, inject it where an EmbeddingProvider is expected, and let it go out of
// scope when the run ends. There is no eviction.
type EmbeddingCache struct {
	inner EmbeddingProvider
	model string

	mu      sync.Mutex
	vectors map[string][]float32
}

var _ EmbeddingProvider = (*EmbeddingCache)(nil)

// NewEmbeddingCache wraps inner with a memo keyed by model+text.
func NewEmbeddingCache(inner EmbeddingProvider, model string) *EmbeddingCache {
	return &EmbeddingCache{
		inner:   inner,
		model:   model,
		vectors: make(map[string][]float32),
	}
}

func (c *EmbeddingCache) Name() string    { return c.inner.Name() }
func (c *EmbeddingCache) Dimensions() int { return c.inner.Dimensions() }

// Len returns the number of cached vectors.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.vectors)
}

// Embed returns cached vectors where available and fetches the rest from the
// wrapped provider in a single batch.
func (c *EmbeddingCache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	c.mu.Lock()
	for i, text := range texts {
		if v, ok := c.vectors[c.key(text)]; ok {
			out[i] = v
		} else {
			missing = append(missing, text)
			missingIdx = append(missingIdx, i)
		}
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(missing) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(fetched), len(missing))
	}

	c.mu.Lock()
	for j, v := range fetched {
		c.vectors[c.key(missing[j])] = v
		out[missingIdx[j]] = v
	}
	c.mu.Unlock()

	return out, nil
}

// key separates model and text with a NUL byte, which cannot appear in a
// model identifier.
func (c *EmbeddingCache) key(text string) string {
	return c.model + "\x00" + text
}
