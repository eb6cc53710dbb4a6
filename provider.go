package ragged

import "context"

// Tokenizer encodes, decodes, and counts tokens for one (model, provider)
// pair. Provider-specific special-token handling (e.g. stripping control
// tokens on decode) is hidden behind this interface; see the tokenizer
// package for the adapter that resolves (model, provider) pairs to codecs.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
	Count(text string) (int, error)
}

// SentenceSegmenter splits text into ordered sentences whose Start/End byte
// offsets are exact against the source text.
type SentenceSegmenter interface {
	Segment(text string) []Sentence
}

// EmbeddingProvider abstracts text embedding.
type EmbeddingProvider interface {
	// Embed returns embedding vectors for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the provider name.
	Name() string
}

// VectorIndex abstracts nearest-neighbor search over named collections.
type VectorIndex interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, collection string, dimensions int) error
	// Upsert inserts or replaces one point.
	Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]any) error
	// Search returns up to topK hits ordered by descending similarity.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchHit, error)
	// Close releases the underlying connection.
	Close() error
}

// ObjectStore persists pipeline artifacts (chunk sets, QA pairs, gold labels,
// metrics) as opaque bytes keyed by user and pipeline stage.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// QuestionGenerator produces question/answer pairs from a document's full
// text. Answers are expected to be exact spans of the document.
type QuestionGenerator interface {
	Generate(ctx context.Context, text string, n int) ([]QAPair, error)
}
