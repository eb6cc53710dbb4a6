package ingest

import (
	ragged "github.com/raggedlab/ragged"
)

// SlidingWindowChunker produces overlapping windows over the encoded id
// sequence: each window is maxTokens ids long (clamped at the end of the
// sequence) and consecutive windows start stride = maxTokens - overlap ids
// apart, so every token index is covered by at least one window.
type SlidingWindowChunker struct {
	codec     ragged.Tokenizer
	model     string
	counters  TokenCounters
	maxTokens int
	overlap   int
}

var _ Chunker = (*SlidingWindowChunker)(nil)

// NewSlidingWindowChunker creates a sliding-window chunker. overlap must be
// non-negative and strictly smaller than maxTokens, otherwise the stride
// would be non-positive.
func NewSlidingWindowChunker(codec ragged.Tokenizer, model string, maxTokens, overlap int, counters TokenCounters) (*SlidingWindowChunker, error) {
	if maxTokens <= 0 {
		return nil, &ragged.ErrInvalidConfig{Field: "fixed_chunk_size", Reason: "must be positive"}
	}
	if overlap < 0 {
		return nil, &ragged.ErrInvalidConfig{Field: "overlap", Reason: "must be non-negative"}
	}
	if overlap >= maxTokens {
		return nil, &ragged.ErrInvalidConfig{Field: "overlap", Reason: "must be smaller than fixed_chunk_size"}
	}
	return &SlidingWindowChunker{
		codec:     codec,
		model:     model,
		counters:  counters,
		maxTokens: maxTokens,
		overlap:   overlap,
	}, nil
}

func (c *SlidingWindowChunker) Strategy() ragged.Strategy { return ragged.StrategySlidingWindow }

// Chunk splits text into overlapping windows. Empty text yields no chunks.
func (c *SlidingWindowChunker) Chunk(text, docID string) ([]ragged.Chunk, error) {
	ids, err := c.codec.Encode(text)
	if err != nil {
		return nil, &ragged.ErrCollaborator{Op: "encode", Err: err}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	stride := c.maxTokens - c.overlap

	var chunks []ragged.Chunk
	charStart := 0
	seq := 1
	for start := 0; start < len(ids); start += stride {
		end := min(start+c.maxTokens, len(ids))
		window := ids[start:end]

		decoded, err := c.codec.Decode(window)
		if err != nil {
			return nil, &ragged.ErrCollaborator{Op: "decode", Err: err}
		}

		// Same reconstructed-offset caveat as the fixed-token strategy; with
		// overlapping windows the ranges additionally overlap in decoded-text
		// space, not in source space.
		charEnd := charStart + len(decoded)

		tokens, err := countTokens(c.counters, c.model, len(window), decoded)
		if err != nil {
			return nil, err
		}

		chunks = append(chunks, ragged.Chunk{
			ChunkID:   chunkID(docID, ragged.StrategySlidingWindow, seq),
			Text:      decoded,
			CharStart: charStart,
			CharEnd:   charEnd,
			Strategy:  ragged.StrategySlidingWindow,
			Source:    docID,
			Tokens:    tokens,
		})
		charStart = charEnd + 1
		seq++
	}
	return chunks, nil
}
