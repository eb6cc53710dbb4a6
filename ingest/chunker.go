// Package ingest turns raw documents into chunk records ready for embedding:
// extraction (plain text, Markdown, HTML, PDF), sentence segmentation, and
// the three chunking strategies behind a name-based router.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	ragged "github.com/raggedlab/ragged"
)

// Chunker converts a document's text into token-bounded chunks under one
// packing policy.
type Chunker interface {
	Strategy() ragged.Strategy
	Chunk(text, docID string) ([]ragged.Chunk, error)
}

// TokenCounters maps a model identifier to the codec used to count that
// model's tokens. Every emitted chunk carries a count per model so several
// embedding models can be evaluated side by side.
type TokenCounters map[string]ragged.Tokenizer

// chunkID formats {doc}_{code}_{seq}, stripping the doc id's file extension.
func chunkID(docID string, s ragged.Strategy, seq int) string {
	doc := strings.TrimSuffix(docID, filepath.Ext(docID))
	return fmt.Sprintf("%s_%s_%d", doc, s.Code(), seq)
}

// countTokens returns per-model token counts for text. When the window
// length for primaryModel is already known (the token-based strategies cut
// windows in that model's id space), pass it via known to avoid re-encoding.
func countTokens(counters TokenCounters, primaryModel string, known int, text string) (map[string]int, error) {
	tokens := make(map[string]int, len(counters)+1)
	if primaryModel != "" {
		tokens[primaryModel] = known
	}
	for model, codec := range counters {
		if model == primaryModel {
			continue
		}
		n, err := codec.Count(text)
		if err != nil {
			return nil, &ragged.ErrCollaborator{Op: "count tokens (" + model + ")", Err: err}
		}
		tokens[model] = n
	}
	return tokens, nil
}
