// Package config loads the benchmark configuration from TOML with
// environment-variable overrides. Invariants across fields (chunk size vs
// overlap, known strategies) are validated once at load time.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	ragged "github.com/raggedlab/ragged"
)

type Config struct {
	Chunking  ChunkingConfig    `toml:"chunking"`
	Tokenizer TokenizerConfig   `toml:"tokenizer"`
	Embedding []EmbeddingConfig `toml:"embedding"`
	Retrieval RetrievalConfig   `toml:"retrieval"`
	QAGen     QAGenConfig       `toml:"qagen"`
	Database  DatabaseConfig    `toml:"database"`
	Observer  ObserverConfig    `toml:"observer"`
}

type ChunkingConfig struct {
	Strategies        []string `toml:"strategies"`
	FixedChunkSize    int      `toml:"fixed_chunk_size"`
	Overlap           int      `toml:"overlap"`
	SentenceMaxTokens int      `toml:"sentence_max_tokens"`
}

type TokenizerConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	// HFDir is the directory holding HuggingFace tokenizer.json files,
	// one subdirectory per model.
	HFDir string `toml:"hf_dir"`
}

type EmbeddingConfig struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
}

type RetrievalConfig struct {
	TopK int `toml:"top_k"`
	// RPM and TPM are proactive embedding rate limits per minute.
	// Zero disables the respective limit.
	RPM int `toml:"rpm"`
	TPM int `toml:"tpm"`
}

type QAGenConfig struct {
	Model        string `toml:"model"`
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	NumQuestions int    `toml:"num_questions"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver      string `toml:"driver"`
	Path        string `toml:"path"`
	PostgresURL string `toml:"postgres_url"`
}

type ObserverConfig struct {
	Enabled bool                       `toml:"enabled"`
	Pricing map[string]ObserverPricing `toml:"pricing"`
}

type ObserverPricing struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Chunking: ChunkingConfig{
			Strategies:        []string{"fixed_token", "sliding_window", "sentence_aware"},
			FixedChunkSize:    256,
			Overlap:           64,
			SentenceMaxTokens: 256,
		},
		Tokenizer: TokenizerConfig{Provider: "openai", Model: "text-embedding-3-small", HFDir: "tokenizers"},
		Embedding: []EmbeddingConfig{
			{Provider: "openai", Model: "text-embedding-3-small", Dimensions: 1536},
		},
		Retrieval: RetrievalConfig{TopK: 5},
		QAGen:     QAGenConfig{Model: "gpt-4-turbo-preview", NumQuestions: 5},
		Database:  DatabaseConfig{Driver: "sqlite", Path: "ragged.db"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "ragged.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("RAGGED_OPENAI_API_KEY"); v != "" {
		for i := range cfg.Embedding {
			if cfg.Embedding[i].Provider == "openai" && cfg.Embedding[i].APIKey == "" {
				cfg.Embedding[i].APIKey = v
			}
		}
		if cfg.QAGen.APIKey == "" {
			cfg.QAGen.APIKey = v
		}
	}
	if v := os.Getenv("RAGGED_POSTGRES_URL"); v != "" {
		cfg.Database.PostgresURL = v
	}
	if v := os.Getenv("RAGGED_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("RAGGED_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.TopK = k
		}
	}
	if os.Getenv("RAGGED_OBSERVER_ENABLED") == "true" || os.Getenv("RAGGED_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	return cfg
}

// Validate checks cross-field invariants. It returns a
// *ragged.ErrInvalidConfig naming the first offending field.
func (c Config) Validate() error {
	if c.Chunking.FixedChunkSize <= 0 {
		return &ragged.ErrInvalidConfig{Field: "fixed_chunk_size", Reason: "must be positive"}
	}
	if c.Chunking.Overlap < 0 {
		return &ragged.ErrInvalidConfig{Field: "overlap", Reason: "must be non-negative"}
	}
	if c.Chunking.Overlap >= c.Chunking.FixedChunkSize {
		return &ragged.ErrInvalidConfig{
			Field:  "overlap",
			Reason: fmt.Sprintf("must be less than fixed_chunk_size (%d)", c.Chunking.FixedChunkSize),
		}
	}
	if c.Chunking.SentenceMaxTokens <= 0 {
		return &ragged.ErrInvalidConfig{Field: "sentence_max_tokens", Reason: "must be positive"}
	}
	if len(c.Chunking.Strategies) == 0 {
		return &ragged.ErrInvalidConfig{Field: "strategies", Reason: "at least one strategy required"}
	}
	for _, s := range c.Chunking.Strategies {
		if _, err := ragged.ParseStrategy(s); err != nil {
			return &ragged.ErrInvalidConfig{Field: "strategies", Reason: fmt.Sprintf("unknown strategy %q", s)}
		}
	}
	if c.Retrieval.TopK <= 0 {
		return &ragged.ErrInvalidConfig{Field: "retrieval.top_k", Reason: "must be positive"}
	}
	if c.Retrieval.RPM < 0 {
		return &ragged.ErrInvalidConfig{Field: "retrieval.rpm", Reason: "must not be negative"}
	}
	if c.Retrieval.TPM < 0 {
		return &ragged.ErrInvalidConfig{Field: "retrieval.tpm", Reason: "must not be negative"}
	}
	if len(c.Embedding) == 0 {
		return &ragged.ErrInvalidConfig{Field: "embedding", Reason: "at least one embedding model required"}
	}
	for _, e := range c.Embedding {
		if e.Model == "" {
			return &ragged.ErrInvalidConfig{Field: "embedding.model", Reason: "must not be empty"}
		}
		if e.Dimensions <= 0 {
			return &ragged.ErrInvalidConfig{Field: "embedding.dimensions", Reason: "must be positive"}
		}
		switch e.Provider {
		case "openai", "gemini":
		default:
			return &ragged.ErrInvalidConfig{Field: "embedding.provider", Reason: fmt.Sprintf("unknown provider %q", e.Provider)}
		}
	}
	if c.QAGen.NumQuestions <= 0 {
		return &ragged.ErrInvalidConfig{Field: "qagen.num_questions", Reason: "must be positive"}
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return &ragged.ErrInvalidConfig{Field: "database.driver", Reason: fmt.Sprintf("unknown driver %q", c.Database.Driver)}
	}
	return nil
}
