// Package qagen generates question/answer pairs from document text using an
// OpenAI-compatible chat completions API. Answers are requested as exact
// spans of the document so they can be mapped back onto chunks.
package qagen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	ragged "github.com/raggedlab/ragged"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Generator implements ragged.QuestionGenerator against any OpenAI-compatible
// chat completions endpoint.
type Generator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ ragged.QuestionGenerator = (*Generator)(nil)

// Option configures a Generator.
type Option func(*Generator)

// WithBaseURL overrides the API base (e.g. "http://localhost:11434/v1").
// The /chat/completions path is appended automatically.
func WithBaseURL(url string) Option {
	return func(g *Generator) { g.baseURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Generator) {
		if c != nil {
			g.client = c
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Generator calling model on the OpenAI API (or a compatible
// endpoint configured via WithBaseURL).
func New(apiKey, model string, opts ...Option) *Generator {
	g := &Generator{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{},
		logger:  nopLogger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for n concise factual question/answer pairs over
// text. It fails with *ragged.ErrCollaborator on transport, HTTP, or parse
// errors; it never retries.
func (g *Generator) Generate(ctx context.Context, text string, n int) ([]ragged.QAPair, error) {
	if n <= 0 {
		return nil, &ragged.ErrInvalidConfig{Field: "num_questions", Reason: "must be positive"}
	}

	body := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "user", Content: buildPrompt(text, n)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ragged.ErrCollaborator{Op: "qagen marshal request", Err: err}
	}

	url := g.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &ragged.ErrCollaborator{Op: "qagen create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	g.logger.Debug("generating qa pairs", "model", g.model, "count", n)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &ragged.ErrCollaborator{Op: "qagen request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, &ragged.ErrCollaborator{
			Op: "qagen request",
			Err: &ragged.ErrHTTP{
				Status:     resp.StatusCode,
				Body:       string(errBody),
				RetryAfter: ragged.ParseRetryAfter(resp.Header.Get("Retry-After")),
			},
		}
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, &ragged.ErrCollaborator{Op: "qagen decode response", Err: err}
	}
	if len(chatResp.Choices) == 0 {
		return nil, &ragged.ErrCollaborator{Op: "qagen decode response", Err: fmt.Errorf("no choices in response")}
	}

	pairs, err := parsePairs(chatResp.Choices[0].Message.Content)
	if err != nil {
		return nil, &ragged.ErrCollaborator{Op: "qagen parse pairs", Err: err}
	}
	return pairs, nil
}

func buildPrompt(text string, n int) string {
	return fmt.Sprintf(`Here is the text of a document:
%s

Please generate %d concise, factual question-answer pairs based on this document.
IMPORTANT: You must respond with a JSON array containing exactly %d objects.
Each object must have exactly these two keys:
- "question": string
- "answer": string (exact span from the document)

Example format:
[
    {"question": "What is X?", "answer": "X is..."},
    {"question": "How does Y work?", "answer": "Y works by..."},
    {"question": "When did Z happen?", "answer": "Z happened in..."}
]

Ensure the response is a valid JSON array and nothing else is included.`, text, n, n)
}

// parsePairs accepts either a bare JSON array of pairs or an object wrapping
// one ({"questions": [...]}, {"qa_pairs": [...]}), since json_object mode
// makes some models wrap the array even when asked not to.
func parsePairs(content string) ([]ragged.QAPair, error) {
	content = strings.TrimSpace(content)

	var pairs []ragged.QAPair
	if err := json.Unmarshal([]byte(content), &pairs); err == nil {
		return pairs, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, fmt.Errorf("content is neither a pair array nor an object: %w", err)
	}
	for _, raw := range wrapped {
		if err := json.Unmarshal(raw, &pairs); err == nil && len(pairs) > 0 {
			return pairs, nil
		}
	}
	return nil, fmt.Errorf("no pair array found in response object")
}

// nopLogger is a logger that discards all output. Used when WithLogger is not set.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
