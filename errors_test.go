package ragged

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrInvalidConfigError(t *testing.T) {
	tests := []struct {
		field  string
		reason string
		want   string
	}{
		{"fixed_chunk_size", "must be positive", "invalid config fixed_chunk_size: must be positive"},
		{"overlap", "must be less than fixed_chunk_size (256)", "invalid config overlap: must be less than fixed_chunk_size (256)"},
	}
	for _, tt := range tests {
		e := &ErrInvalidConfig{Field: tt.field, Reason: tt.reason}
		if got := e.Error(); got != tt.want {
			t.Errorf("ErrInvalidConfig{%q, %q}.Error() = %q, want %q", tt.field, tt.reason, got, tt.want)
		}
	}
}

func TestErrInvalidStrategyError(t *testing.T) {
	e := &ErrInvalidStrategy{Strategy: "semantic"}
	want := `invalid chunking strategy: "semantic"`
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrUnsupportedProviderError(t *testing.T) {
	e := &ErrUnsupportedProvider{Provider: "cohere"}
	want := `unsupported provider: "cohere"`
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrDataError(t *testing.T) {
	e := &ErrData{Source: "notes.txt", Reason: "document text cannot be empty"}
	want := "document notes.txt: document text cannot be empty"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrCollaboratorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	e := &ErrCollaborator{Op: "vector search", Err: cause}

	if got, want := e.Error(), "vector search: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(e, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}

	wrapped := fmt.Errorf("evaluate: %w", e)
	var collab *ErrCollaborator
	if !errors.As(wrapped, &collab) {
		t.Error("errors.As should find ErrCollaborator through wrapping")
	}
}
