package ragged

// Strategy identifies one of the chunk-production policies.
type Strategy string

const (
	StrategyFixedToken    Strategy = "fixed_token"
	StrategySlidingWindow Strategy = "sliding_window"
	StrategySentenceAware Strategy = "sentence_aware"
)

// Code returns the short strategy code embedded in chunk ids.
func (s Strategy) Code() string {
	switch s {
	case StrategyFixedToken:
		return "ft"
	case StrategySlidingWindow:
		return "sw"
	case StrategySentenceAware:
		return "sa"
	}
	return ""
}

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyFixedToken, StrategySlidingWindow, StrategySentenceAware:
		return true
	}
	return false
}

// ParseStrategy converts a strategy name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(name)
	if !s.Valid() {
		return "", &ErrInvalidStrategy{Strategy: name}
	}
	return s, nil
}

// Document is a source document ready for chunking.
type Document struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

// Chunk is the atomic retrieval unit: a bounded span of a document's text.
//
// ChunkID is unique within a document+strategy and has the form
// {doc}_{strategy_code}_{n} with n starting at 1 in emission order.
// CharStart/CharEnd are a half-open byte range. For the sentence-aware
// strategy they are exact offsets into the source text; for the token-based
// strategies they are reconstructed from decoded chunk lengths and may drift
// from the true source offsets when encode→decode is not exactly invertible.
// Tokens maps a model identifier to that model's token count for the chunk,
// so several embedding models can be evaluated side by side.
type Chunk struct {
	ChunkID   string         `json:"chunk_id"`
	Text      string         `json:"text"`
	CharStart int            `json:"char_start"`
	CharEnd   int            `json:"char_end"`
	Strategy  Strategy       `json:"strategy"`
	Source    string         `json:"source"`
	Tokens    map[string]int `json:"tokens"`
}

// Sentence is a segmented sentence with exact byte offsets into its source.
type Sentence struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// QAPair is a question with its answer span, produced by a question
// generator from a document's full text.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// GoldLabel designates the chunk that contains the answer to a question.
// It is the ground truth for retrieval evaluation.
type GoldLabel struct {
	Question    string   `json:"question"`
	GoldChunkID string   `json:"gold_chunk_id"`
	Strategy    Strategy `json:"strategy"`
	Source      string   `json:"source"`
}

// SearchHit is one ranked result from a vector index. Payload carries at
// least "chunk_id" plus any latency/cost metadata recorded at upsert time.
type SearchHit struct {
	ID      string         `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}
