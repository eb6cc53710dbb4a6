package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	ragged "github.com/raggedlab/ragged"
)

func TestEmbedReturnsVectorsInInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q, want /embeddings", r.URL.Path)
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "text-embedding-3-small" {
			t.Errorf("model = %q", req.Model)
		}
		// Reply out of order; Embed must reorder by index.
		resp := map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode reply: %v", err)
		}
	}))
	defer srv.Close()

	e, err := NewEmbedding("key", "text-embedding-3-small", 2, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewEmbedding: %v", err)
	}

	vectors, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	want := [][]float32{{1, 0}, {0, 1}}
	if !reflect.DeepEqual(vectors, want) {
		t.Errorf("vectors = %v, want %v", vectors, want)
	}
}

func TestEmbedHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	e, _ := NewEmbedding("bad", "m", 4, WithBaseURL(srv.URL))
	_, err := e.Embed(context.Background(), []string{"text"})

	var collab *ragged.ErrCollaborator
	if !errors.As(err, &collab) {
		t.Fatalf("got %v, want *ragged.ErrCollaborator", err)
	}
}

func TestEmbedVectorCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"data": []map[string]any{{"index": 0, "embedding": []float32{1}}}}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode reply: %v", err)
		}
	}))
	defer srv.Close()

	e, _ := NewEmbedding("k", "m", 1, WithBaseURL(srv.URL))
	_, err := e.Embed(context.Background(), []string{"a", "b"})

	var collab *ragged.ErrCollaborator
	if !errors.As(err, &collab) {
		t.Fatalf("got %v, want *ragged.ErrCollaborator", err)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	e, _ := NewEmbedding("k", "m", 4)
	vectors, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vectors != nil {
		t.Errorf("got %v, want nil", vectors)
	}
}

func TestNewEmbeddingValidatesDimensions(t *testing.T) {
	for _, d := range []int{0, -5} {
		_, err := NewEmbedding("k", "m", d)
		var invalid *ragged.ErrInvalidConfig
		if !errors.As(err, &invalid) {
			t.Errorf("dimensions=%d: got %v, want *ragged.ErrInvalidConfig", d, err)
		}
	}
}

func TestEmbeddingMetadata(t *testing.T) {
	e, err := NewEmbedding("k", "text-embedding-3-large", 3072)
	if err != nil {
		t.Fatalf("NewEmbedding: %v", err)
	}
	if e.Name() != "text-embedding-3-large" {
		t.Errorf("Name() = %q", e.Name())
	}
	if e.Dimensions() != 3072 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}
}
