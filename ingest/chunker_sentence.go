package ingest

import (
	"strings"

	ragged "github.com/raggedlab/ragged"
)

// SentenceAwareChunker segments text into sentences and greedily packs them
// into chunks under a token budget. Sentences are never split: a single
// sentence whose own count exceeds the budget is emitted alone in its own
// chunk. That is a deliberate policy, not a bug.
//
// Unlike the token-based strategies, chunk offsets here are exact byte
// offsets into the source text: CharStart is the first packed sentence's
// start and CharEnd the last packed sentence's end.
type SentenceAwareChunker struct {
	segmenter ragged.SentenceSegmenter
	counters  TokenCounters
	maxTokens int
}

var _ Chunker = (*SentenceAwareChunker)(nil)

// NewSentenceAwareChunker creates a sentence-aware chunker. When counters
// holds several models, packing uses the maximum count across them so the
// chunk respects the tightest model's budget.
func NewSentenceAwareChunker(segmenter ragged.SentenceSegmenter, maxTokens int, counters TokenCounters) (*SentenceAwareChunker, error) {
	if maxTokens <= 0 {
		return nil, &ragged.ErrInvalidConfig{Field: "sentence_max_tokens", Reason: "must be positive"}
	}
	if len(counters) == 0 {
		return nil, &ragged.ErrInvalidConfig{Field: "tokenizer", Reason: "at least one token counter is required"}
	}
	return &SentenceAwareChunker{
		segmenter: segmenter,
		counters:  counters,
		maxTokens: maxTokens,
	}, nil
}

func (c *SentenceAwareChunker) Strategy() ragged.Strategy { return ragged.StrategySentenceAware }

// Chunk packs sentences greedily: when adding the next sentence to a
// non-empty buffer would exceed the budget, the buffer is flushed as a chunk
// and the sentence starts a new buffer. A trailing buffer is flushed after
// the loop. One pass over sentences; empty text yields no chunks.
func (c *SentenceAwareChunker) Chunk(text, docID string) ([]ragged.Chunk, error) {
	sentences := c.segmenter.Segment(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []ragged.Chunk
	var buffer []ragged.Sentence
	bufferTokens := 0
	seq := 0

	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		seq++
		parts := make([]string, len(buffer))
		for i, s := range buffer {
			parts[i] = s.Text
		}
		joined := strings.Join(parts, " ")

		tokens, err := countTokens(c.counters, "", 0, joined)
		if err != nil {
			return err
		}

		chunks = append(chunks, ragged.Chunk{
			ChunkID:   chunkID(docID, ragged.StrategySentenceAware, seq),
			Text:      joined,
			CharStart: buffer[0].Start,
			CharEnd:   buffer[len(buffer)-1].End,
			Strategy:  ragged.StrategySentenceAware,
			Source:    docID,
			Tokens:    tokens,
		})
		return nil
	}

	for _, sent := range sentences {
		sentTokens, err := c.maxCount(sent.Text)
		if err != nil {
			return nil, err
		}

		if len(buffer) > 0 && bufferTokens+sentTokens > c.maxTokens {
			if err := flush(); err != nil {
				return nil, err
			}
			buffer = buffer[:0]
			bufferTokens = 0
		}
		buffer = append(buffer, sent)
		bufferTokens += sentTokens
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// maxCount returns the largest token count for text across all configured
// models.
func (c *SentenceAwareChunker) maxCount(text string) (int, error) {
	maxTokens := 0
	for model, codec := range c.counters {
		n, err := codec.Count(text)
		if err != nil {
			return 0, &ragged.ErrCollaborator{Op: "count tokens (" + model + ")", Err: err}
		}
		if n > maxTokens {
			maxTokens = n
		}
	}
	return maxTokens, nil
}
