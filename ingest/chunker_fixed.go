package ingest

import (
	ragged "github.com/raggedlab/ragged"
)

// FixedTokenChunker encodes the whole document once and partitions the id
// sequence into consecutive, non-overlapping windows of exactly maxTokens
// ids; the final window may be shorter. Each window is decoded back to text
// independently.
type FixedTokenChunker struct {
	codec     ragged.Tokenizer
	model     string
	counters  TokenCounters
	maxTokens int
}

var _ Chunker = (*FixedTokenChunker)(nil)

// NewFixedTokenChunker creates a fixed-token chunker. codec is the tokenizer
// whose id space defines the windows; model names it in the per-chunk token
// counts. counters may add further models to count (it may include model).
func NewFixedTokenChunker(codec ragged.Tokenizer, model string, maxTokens int, counters TokenCounters) (*FixedTokenChunker, error) {
	if maxTokens <= 0 {
		return nil, &ragged.ErrInvalidConfig{Field: "fixed_chunk_size", Reason: "must be positive"}
	}
	return &FixedTokenChunker{
		codec:     codec,
		model:     model,
		counters:  counters,
		maxTokens: maxTokens,
	}, nil
}

func (c *FixedTokenChunker) Strategy() ragged.Strategy { return ragged.StrategyFixedToken }

// Chunk splits text into fixed-token chunks. Empty text yields no chunks.
func (c *FixedTokenChunker) Chunk(text, docID string) ([]ragged.Chunk, error) {
	ids, err := c.codec.Encode(text)
	if err != nil {
		return nil, &ragged.ErrCollaborator{Op: "encode", Err: err}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var chunks []ragged.Chunk
	charStart := 0
	for start, seq := 0, 1; start < len(ids); start, seq = start+c.maxTokens, seq+1 {
		end := min(start+c.maxTokens, len(ids))
		window := ids[start:end]

		decoded, err := c.codec.Decode(window)
		if err != nil {
			return nil, &ragged.ErrCollaborator{Op: "decode", Err: err}
		}

		// Offsets are reconstructed from decoded lengths with a one-byte
		// separator between consecutive chunks. They can drift from the true
		// source offsets when encode→decode is not exactly invertible.
		charEnd := charStart + len(decoded)

		tokens, err := countTokens(c.counters, c.model, len(window), decoded)
		if err != nil {
			return nil, err
		}

		chunks = append(chunks, ragged.Chunk{
			ChunkID:   chunkID(docID, ragged.StrategyFixedToken, seq),
			Text:      decoded,
			CharStart: charStart,
			CharEnd:   charEnd,
			Strategy:  ragged.StrategyFixedToken,
			Source:    docID,
			Tokens:    tokens,
		})
		charStart = charEnd + 1
	}
	return chunks, nil
}
