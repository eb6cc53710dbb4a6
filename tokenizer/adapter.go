// Package tokenizer adapts model-specific tokenizers behind a single
// encode/decode/count interface, keyed by (model, provider).
//
// Two provider families are built in: "openai" (tiktoken BPE tables) and
// "huggingface" (tokenizer.json files loaded from a local directory). The
// families differ in special-token handling: the huggingface codec encodes
// without special tokens and strips them on decode, while tiktoken encodings
// round-trip exactly. The adapter hides that difference from callers.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	ragged "github.com/raggedlab/ragged"
)

// Factory builds a codec for one model of a provider family.
type Factory func(model string) (ragged.Tokenizer, error)

// Adapter resolves (model, provider) pairs to codecs. Constructed codecs are
// cached for the lifetime of the adapter: loading BPE tables and
// tokenizer.json files is expensive and codecs are stateless after load.
type Adapter struct {
	mu        sync.Mutex
	factories map[string]Factory
	codecs    map[string]ragged.Tokenizer
}

// New returns an Adapter with the built-in provider families registered.
// hfDir is the directory holding HuggingFace tokenizer files, laid out as
// {hfDir}/{model}/tokenizer.json.
func New(hfDir string) *Adapter {
	a := &Adapter{
		factories: make(map[string]Factory),
		codecs:    make(map[string]ragged.Tokenizer),
	}
	a.Register("openai", newTiktokenCodec)
	a.Register("huggingface", func(model string) (ragged.Tokenizer, error) {
		return newHuggingFaceCodec(hfDir, model)
	})
	return a
}

// Register adds or replaces a provider family. Provider names are
// case-insensitive.
func (a *Adapter) Register(provider string, f Factory) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.factories[strings.ToLower(provider)] = f
}

// Codec returns the codec for a (model, provider) pair, building it on first
// use. Unrecognized providers fail with *ragged.ErrUnsupportedProvider.
func (a *Adapter) Codec(model, provider string) (ragged.Tokenizer, error) {
	p := strings.ToLower(provider)
	key := p + "/" + model

	a.mu.Lock()
	defer a.mu.Unlock()

	if c, ok := a.codecs[key]; ok {
		return c, nil
	}
	f, ok := a.factories[p]
	if !ok {
		return nil, &ragged.ErrUnsupportedProvider{Provider: provider}
	}
	c, err := f(model)
	if err != nil {
		return nil, fmt.Errorf("build %s tokenizer for %s: %w", p, model, err)
	}
	a.codecs[key] = c
	return c, nil
}
