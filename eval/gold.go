// Package eval maps generated question/answer pairs onto chunk ground truth
// and scores retrieval quality against a vector search backend.
package eval

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	ragged "github.com/raggedlab/ragged"
)

// normalizer lower-cases and strips punctuation so answer spans and chunk
// texts compare on content alone.
var normalizer = transform.Chain(
	cases.Lower(language.Und),
	runes.Remove(runes.In(unicode.Punct)),
)

// Normalize returns text lower-cased with punctuation removed and surrounding
// whitespace trimmed. Interior whitespace is preserved so word boundaries
// survive substring matching.
func Normalize(text string) string {
	out, _, err := transform.String(normalizer, text)
	if err != nil {
		// The chain cannot fail on valid UTF-8; fall back to the
		// lower-cased input rather than dropping the span.
		return strings.TrimSpace(strings.ToLower(text))
	}
	return strings.TrimSpace(out)
}

// Mapper turns QA pairs into gold labels by locating each answer span inside
// the chunk set of the same document.
type Mapper struct {
	logger *slog.Logger
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithMapperLogger sets the logger used to report dropped QA pairs.
func WithMapperLogger(l *slog.Logger) MapperOption {
	return func(m *Mapper) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMapper creates a Mapper. Without options it logs nowhere.
func NewMapper(opts ...MapperOption) *Mapper {
	m := &Mapper{logger: nopLogger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// nopLogger is a logger that discards all output. Used when no logger is set.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Map scans chunks in emission order and labels each QA pair with the first
// chunk whose normalized text contains the normalized answer. Pairs whose
// answer matches no chunk are dropped from the gold set; that signals a
// generated span that straddles a chunk boundary, not an error.
func (m *Mapper) Map(pairs []ragged.QAPair, chunks []ragged.Chunk) []ragged.GoldLabel {
	if len(pairs) == 0 || len(chunks) == 0 {
		return nil
	}

	normalized := make([]string, len(chunks))
	for i, ch := range chunks {
		normalized[i] = Normalize(ch.Text)
	}

	labels := make([]ragged.GoldLabel, 0, len(pairs))
	for _, qa := range pairs {
		answer := Normalize(qa.Answer)
		if answer == "" {
			m.logger.Debug("dropping qa pair with empty normalized answer", "question", qa.Question)
			continue
		}

		matched := false
		for i, chunkText := range normalized {
			if strings.Contains(chunkText, answer) {
				labels = append(labels, ragged.GoldLabel{
					Question:    qa.Question,
					GoldChunkID: chunks[i].ChunkID,
					Strategy:    chunks[i].Strategy,
					Source:      chunks[i].Source,
				})
				matched = true
				break
			}
		}
		if !matched {
			m.logger.Debug("answer not found in any chunk, dropping qa pair",
				"question", qa.Question,
				"answer", qa.Answer)
		}
	}
	return labels
}
