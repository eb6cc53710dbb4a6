// Package openai provides an embedding client for the OpenAI embeddings API
// and compatible endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	ragged "github.com/raggedlab/ragged"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Embedding implements ragged.EmbeddingProvider against the OpenAI
// embeddings endpoint (or a compatible one configured via WithBaseURL).
type Embedding struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	client     *http.Client
	logger     *slog.Logger
}

var _ ragged.EmbeddingProvider = (*Embedding)(nil)

// Option configures an Embedding.
type Option func(*Embedding)

// WithBaseURL overrides the API base. The /embeddings path is appended
// automatically.
func WithBaseURL(url string) Option {
	return func(e *Embedding) { e.baseURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Embedding) {
		if c != nil {
			e.client = c
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Embedding) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEmbedding creates an embedding client for model producing vectors of
// the given dimensionality.
func NewEmbedding(apiKey, model string, dimensions int, opts ...Option) (*Embedding, error) {
	if dimensions <= 0 {
		return nil, &ragged.ErrInvalidConfig{Field: "embedding.dimensions", Reason: "must be positive"}
	}
	e := &Embedding{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		dimensions: dimensions,
		client:     &http.Client{},
		logger:     nopLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name returns the embedding model identifier.
func (e *Embedding) Name() string { return e.model }

// Dimensions returns the embedding vector size.
func (e *Embedding) Dimensions() int { return e.dimensions }

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, in input order. It fails with
// *ragged.ErrCollaborator on transport or HTTP errors and never retries.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(embeddingRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, &ragged.ErrCollaborator{Op: "embed marshal request", Err: err}
	}

	url := e.baseURL + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &ragged.ErrCollaborator{Op: "embed create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	e.logger.Debug("embedding texts", "model", e.model, "count", len(texts))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &ragged.ErrCollaborator{Op: "embed request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, &ragged.ErrCollaborator{
			Op: "embed request",
			Err: &ragged.ErrHTTP{
				Status:     resp.StatusCode,
				Body:       string(errBody),
				RetryAfter: ragged.ParseRetryAfter(resp.Header.Get("Retry-After")),
			},
		}
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, &ragged.ErrCollaborator{Op: "embed decode response", Err: err}
	}
	if len(embResp.Data) != len(texts) {
		return nil, &ragged.ErrCollaborator{
			Op:  "embed decode response",
			Err: fmt.Errorf("got %d vectors for %d inputs", len(embResp.Data), len(texts)),
		}
	}

	// The index field, not response order, says which input a vector belongs to.
	sort.Slice(embResp.Data, func(i, j int) bool { return embResp.Data[i].Index < embResp.Data[j].Index })

	vectors := make([][]float32, len(embResp.Data))
	for i, d := range embResp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// nopLogger is a logger that discards all output. Used when WithLogger is not set.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
