package ingest

import (
	"sort"

	ragged "github.com/raggedlab/ragged"
)

// Router dispatches chunking by strategy name, normalizing the call
// signature across strategies. Pure delegation, no side effects.
type Router struct {
	chunkers map[ragged.Strategy]Chunker
}

// NewRouter builds a router over the given chunkers, keyed by their
// strategies. A later chunker with the same strategy replaces an earlier one.
func NewRouter(chunkers ...Chunker) *Router {
	m := make(map[ragged.Strategy]Chunker, len(chunkers))
	for _, c := range chunkers {
		m[c.Strategy()] = c
	}
	return &Router{chunkers: m}
}

// Chunk runs the named strategy over text. Unrecognized names fail with
// *ragged.ErrInvalidStrategy.
func (r *Router) Chunk(strategy, text, docID string) ([]ragged.Chunk, error) {
	c, ok := r.chunkers[ragged.Strategy(strategy)]
	if !ok {
		return nil, &ragged.ErrInvalidStrategy{Strategy: strategy}
	}
	return c.Chunk(text, docID)
}

// Strategies returns the registered strategy names in sorted order.
func (r *Router) Strategies() []string {
	names := make([]string, 0, len(r.chunkers))
	for s := range r.chunkers {
		names = append(names, string(s))
	}
	sort.Strings(names)
	return names
}
