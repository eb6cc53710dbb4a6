// Package gemini implements the Google Gemini embedding provider.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ragged "github.com/raggedlab/ragged"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Embedding implements ragged.EmbeddingProvider for Gemini embedding models
// (text-embedding-004 and gemini-embedding-001).
type Embedding struct {
	apiKey     string
	model      string
	dimensions int
	baseURL    string
	client     *http.Client
	logger     *slog.Logger
}

var _ ragged.EmbeddingProvider = (*Embedding)(nil)

// Option configures an Embedding.
type Option func(*Embedding)

// WithBaseURL overrides the API endpoint, e.g. for a test server.
func WithBaseURL(url string) Option {
	return func(e *Embedding) { e.baseURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient sets the HTTP client. Defaults to http.DefaultClient.
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

// NewEmbedding creates a Gemini embedding provider. dimensions must match
// the outputDimensionality the model supports.
func NewEmbedding(apiKey, model string, dimensions int, opts ...Option) (*Embedding, error) {
	if dimensions <= 0 {
		return nil, &ragged.ErrInvalidConfig{Field: "embedding.dimensions", Reason: "must be positive"}
	}
	e := &Embedding{
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		baseURL:    defaultBaseURL,
		client:     http.DefaultClient,
		logger:     nopLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name returns the model identifier.
func (e *Embedding) Name() string { return e.model }

// Dimensions returns the embedding vector size.
func (e *Embedding) Dimensions() int { return e.dimensions }

type embedRequest struct {
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
	OutputDimensionality int `json:"outputDimensionality"`
}

type embedResponse struct {
	Embedding *struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// Embed embeds each text with a separate embedContent call; the API takes
// one content per request. Fails with *ragged.ErrCollaborator wrapping
// *ragged.ErrHTTP on non-success responses.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	start := time.Now()
	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", e.baseURL, e.model, e.apiKey)

	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		var req embedRequest
		req.Content.Parts = []struct {
			Text string `json:"text"`
		}{{Text: text}}
		req.OutputDimensionality = e.dimensions

		vec, err := e.embedOne(ctx, url, req)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}

	e.logger.Debug("embed ok",
		"model", e.model,
		"texts", len(texts),
		"duration", time.Since(start))
	return out, nil
}

func (e *Embedding) embedOne(ctx context.Context, url string, req embedRequest) ([]float32, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ragged.ErrCollaborator{Op: "embed marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ragged.ErrCollaborator{Op: "embed create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &ragged.ErrCollaborator{Op: "embed request", Err: err}
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, &ragged.ErrCollaborator{Op: "embed read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ragged.ErrCollaborator{Op: "embed request", Err: httpErr(resp, string(respBody))}
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ragged.ErrCollaborator{Op: "embed decode response", Err: err}
	}
	if parsed.Embedding == nil {
		return nil, &ragged.ErrCollaborator{Op: "embed decode response", Err: fmt.Errorf("missing embedding.values in response")}
	}

	vec := make([]float32, len(parsed.Embedding.Values))
	for i, v := range parsed.Embedding.Values {
		vec[i] = float32(v)
	}
	return vec, nil
}

// httpErr builds an ErrHTTP, preferring the Retry-After header and falling
// back to the google.rpc.RetryInfo detail some Gemini error bodies carry.
func httpErr(resp *http.Response, body string) *ragged.ErrHTTP {
	ra := ragged.ParseRetryAfter(resp.Header.Get("Retry-After"))
	if ra == 0 {
		ra = parseRetryInfo(body)
	}
	return &ragged.ErrHTTP{
		Status:     resp.StatusCode,
		Body:       body,
		RetryAfter: ra,
	}
}

// parseRetryInfo extracts the retryDelay from a Gemini error body containing
// a google.rpc.RetryInfo detail. Returns 0 if not found or unparseable.
func parseRetryInfo(body string) time.Duration {
	var envelope struct {
		Error struct {
			Details []json.RawMessage `json:"details"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(body), &envelope) != nil {
		return 0
	}
	for _, raw := range envelope.Error.Details {
		var detail struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		}
		if json.Unmarshal(raw, &detail) != nil {
			continue
		}
		if detail.Type == "type.googleapis.com/google.rpc.RetryInfo" && detail.RetryDelay != "" {
			if d, err := time.ParseDuration(detail.RetryDelay); err == nil {
				return d
			}
		}
	}
	return 0
}

// nopLogger is a logger that discards all output. Used when WithLogger is not set.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
