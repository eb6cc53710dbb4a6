package ragged

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrInvalidConfig reports a configuration value that fails validation
// (bad chunk size, overlap not smaller than chunk size, and so on).
// Always fatal to the caller; never retried.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// ErrInvalidStrategy reports an unrecognized chunking strategy name.
type ErrInvalidStrategy struct {
	Strategy string
}

func (e *ErrInvalidStrategy) Error() string {
	return fmt.Sprintf("invalid chunking strategy: %q", e.Strategy)
}

// ErrUnsupportedProvider reports a tokenizer or embedding provider name
// with no registered implementation.
type ErrUnsupportedProvider struct {
	Provider string
}

func (e *ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("unsupported provider: %q", e.Provider)
}

// ErrData reports a document that fails validation before chunking begins
// (missing fields, empty text).
type ErrData struct {
	Source string
	Reason string
}

func (e *ErrData) Error() string {
	return fmt.Sprintf("document %s: %s", e.Source, e.Reason)
}

// ErrCollaborator wraps a failure from an external collaborator (tokenizer,
// sentence segmenter, embedding, or vector search backend). Fatal to the
// single document or question being processed; the harness logs and moves on.
type ErrCollaborator struct {
	Op  string
	Err error
}

func (e *ErrCollaborator) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ErrCollaborator) Unwrap() error { return e.Err }

// ErrHTTP reports a non-success HTTP response from an embedding or QA
// backend. RetryAfter carries the server's Retry-After hint when present,
// zero otherwise.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseRetryAfter parses a Retry-After header value, either delay-seconds or
// an HTTP-date. Returns 0 for empty, malformed, or past values.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
