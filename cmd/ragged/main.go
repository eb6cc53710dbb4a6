// Command ragged runs the chunking-strategy benchmark pipeline.
//
// Usage:
//
//	ragged <chunk|embed|qa|eval|run> -user <id> -file <path> [-config <path>]
//
// chunk ingests and chunks a document, embed additionally indexes the
// chunks, qa generates question/answer pairs, eval scores a previously
// persisted gold set, and run executes the full pipeline end to end.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	ragged "github.com/raggedlab/ragged"
	"github.com/raggedlab/ragged/ingest"
	"github.com/raggedlab/ragged/internal/config"
	"github.com/raggedlab/ragged/observer"
	"github.com/raggedlab/ragged/pipeline"
	"github.com/raggedlab/ragged/provider/gemini"
	"github.com/raggedlab/ragged/provider/openai"
	"github.com/raggedlab/ragged/qagen"
	pgstore "github.com/raggedlab/ragged/store/postgres"
	"github.com/raggedlab/ragged/store/sqlite"
	"github.com/raggedlab/ragged/tokenizer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("RAGGED_CONFIG"), "path to TOML config file")
	userID := fs.String("user", "default", "user id scoping collections and artifacts")
	file := fs.String("file", "", "path to the source document")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatal(err)
	}

	// 1. Load config
	cfg := config.Load(*configPath)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	// 2. Wire stores, providers, and the pipeline
	p, store, cleanup := buildPipeline(ctx, cfg, logger)
	defer cleanup()

	switch command {
	case "chunk":
		doc := mustIngest(ctx, p, *userID, *file)
		chunkSets, err := p.ChunkDocument(ctx, *userID, doc, cfg.Chunking.Strategies)
		if err != nil {
			log.Fatalf("chunk: %v", err)
		}
		for strategy, chunks := range chunkSets {
			fmt.Printf("%s: %d chunks\n", strategy, len(chunks))
		}

	case "embed":
		doc := mustIngest(ctx, p, *userID, *file)
		chunkSets, err := p.ChunkDocument(ctx, *userID, doc, cfg.Chunking.Strategies)
		if err != nil {
			log.Fatalf("chunk: %v", err)
		}
		for strategy, chunks := range chunkSets {
			if err := p.EmbedChunks(ctx, *userID, chunks); err != nil {
				log.Fatalf("embed %s: %v", strategy, err)
			}
			fmt.Printf("%s: %d chunks indexed\n", strategy, len(chunks))
		}

	case "qa":
		doc := mustIngest(ctx, p, *userID, *file)
		pairs, err := p.GenerateQA(ctx, *userID, doc)
		if err != nil {
			log.Fatalf("qa: %v", err)
		}
		printJSON(pairs)

	case "eval":
		if *file == "" {
			log.Fatal("eval requires -file naming the document whose gold set to score")
		}
		docID := strings.TrimSuffix(filepath.Base(*file), filepath.Ext(*file))
		key := fmt.Sprintf("gold/%s/%s_gold.json", *userID, docID)
		data, err := store.Get(ctx, key)
		if err != nil {
			log.Fatalf("load gold set %s: %v", key, err)
		}
		var labels []ragged.GoldLabel
		if err := json.Unmarshal(data, &labels); err != nil {
			log.Fatalf("decode gold set %s: %v", key, err)
		}
		results, err := p.Evaluate(ctx, *userID, labels)
		if err != nil {
			log.Fatalf("eval: %v", err)
		}
		printJSON(results)

	case "run":
		content := mustRead(*file)
		results, err := p.Run(ctx, *userID, filepath.Base(*file), content, cfg.Chunking.Strategies)
		if err != nil {
			log.Fatalf("run: %v", err)
		}
		printJSON(results)

	default:
		usage()
		os.Exit(2)
	}
}

// buildPipeline wires config into a ready Pipeline. The returned object
// store serves artifact reads for the eval subcommand; cleanup closes
// every store and flushes telemetry.
func buildPipeline(ctx context.Context, cfg config.Config, logger *slog.Logger) (*pipeline.Pipeline, ragged.ObjectStore, func()) {
	// Tokenizers
	adapter := tokenizer.New(cfg.Tokenizer.HFDir)
	codec, err := adapter.Codec(cfg.Tokenizer.Model, cfg.Tokenizer.Provider)
	if err != nil {
		log.Fatalf("tokenizer %s/%s: %v", cfg.Tokenizer.Provider, cfg.Tokenizer.Model, err)
	}
	counters := ingest.TokenCounters{cfg.Tokenizer.Model: codec}
	for _, e := range cfg.Embedding {
		c, err := adapter.Codec(e.Model, e.Provider)
		if err != nil {
			logger.Warn("no tokenizer for embedding model, token counts will be estimated",
				"model", e.Model, "provider", e.Provider, "error", err)
			continue
		}
		counters[e.Model] = c
	}

	// Chunkers
	fixed, err := ingest.NewFixedTokenChunker(codec, cfg.Tokenizer.Model, cfg.Chunking.FixedChunkSize, counters)
	if err != nil {
		log.Fatalf("fixed chunker: %v", err)
	}
	sliding, err := ingest.NewSlidingWindowChunker(codec, cfg.Tokenizer.Model, cfg.Chunking.FixedChunkSize, cfg.Chunking.Overlap, counters)
	if err != nil {
		log.Fatalf("sliding chunker: %v", err)
	}
	sentence, err := ingest.NewSentenceAwareChunker(ingest.NewSegmenter(), cfg.Chunking.SentenceMaxTokens, counters)
	if err != nil {
		log.Fatalf("sentence chunker: %v", err)
	}
	router := ingest.NewRouter(fixed, sliding, sentence)

	// Stores. SQLite always holds pipeline artifacts; the vector index is
	// either the same SQLite database or pgvector per config.
	blobs := sqlite.New(cfg.Database.Path, sqlite.WithLogger(logger))
	if err := blobs.Init(ctx); err != nil {
		log.Fatalf("init sqlite store: %v", err)
	}
	cleanups := []func(){func() { blobs.Close() }}

	var index ragged.VectorIndex = blobs
	if cfg.Database.Driver == "postgres" {
		pool, err := pgxpool.New(ctx, cfg.Database.PostgresURL)
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		pg := pgstore.New(pool, pgstore.WithEmbeddingDimension(cfg.Embedding[0].Dimensions))
		if err := pg.Init(ctx); err != nil {
			log.Fatalf("init postgres store: %v", err)
		}
		index = pg
		cleanups = append(cleanups, pool.Close)
	}

	// Embedding providers, each with transient-error retry.
	embedders := make([]ragged.EmbeddingProvider, 0, len(cfg.Embedding))
	for _, e := range cfg.Embedding {
		var emb ragged.EmbeddingProvider
		switch e.Provider {
		case "openai":
			opts := []openai.Option{openai.WithLogger(logger)}
			if e.BaseURL != "" {
				opts = append(opts, openai.WithBaseURL(e.BaseURL))
			}
			oe, err := openai.NewEmbedding(e.APIKey, e.Model, e.Dimensions, opts...)
			if err != nil {
				log.Fatalf("embedding %s: %v", e.Model, err)
			}
			emb = oe
		case "gemini":
			opts := []gemini.Option{gemini.WithLogger(logger)}
			if e.BaseURL != "" {
				opts = append(opts, gemini.WithBaseURL(e.BaseURL))
			}
			ge, err := gemini.NewEmbedding(e.APIKey, e.Model, e.Dimensions, opts...)
			if err != nil {
				log.Fatalf("embedding %s: %v", e.Model, err)
			}
			emb = ge
		default:
			log.Fatalf("embedding provider %q not supported", e.Provider)
		}
		emb = ragged.WithEmbeddingRetry(emb, ragged.RetryLogger(logger))
		if cfg.Retrieval.RPM > 0 || cfg.Retrieval.TPM > 0 {
			emb = ragged.WithEmbeddingRateLimit(emb,
				ragged.RPM(cfg.Retrieval.RPM), ragged.TPM(cfg.Retrieval.TPM))
		}
		embedders = append(embedders, emb)
	}

	// Telemetry
	pricing := make(map[string]observer.ModelPricing, len(cfg.Observer.Pricing))
	for model, pr := range cfg.Observer.Pricing {
		pricing[model] = observer.ModelPricing{InputPerMillion: pr.Input, OutputPerMillion: pr.Output}
	}
	var coster pipeline.Coster = observer.NewCostCalculator(pricing)
	if cfg.Observer.Enabled {
		inst, shutdown, err := observer.Init(ctx, pricing)
		if err != nil {
			log.Fatalf("init telemetry: %v", err)
		}
		cleanups = append(cleanups, func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("telemetry shutdown", "error", err)
			}
		})
		coster = inst.Cost
		index = observer.WrapIndex(index, inst)
		for i, emb := range embedders {
			embedders[i] = observer.WrapEmbedding(emb, inst)
		}
	}

	// QA generation
	qaOpts := []qagen.Option{qagen.WithLogger(logger)}
	if cfg.QAGen.BaseURL != "" {
		qaOpts = append(qaOpts, qagen.WithBaseURL(cfg.QAGen.BaseURL))
	}
	questions := ragged.WithGenerateRetry(
		qagen.New(cfg.QAGen.APIKey, cfg.QAGen.Model, qaOpts...),
		ragged.RetryLogger(logger))

	p, err := pipeline.New(router, embedders, index, blobs, questions,
		cfg.Retrieval.TopK, cfg.QAGen.NumQuestions,
		pipeline.WithLogger(logger), pipeline.WithCoster(coster))
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	return p, blobs, cleanup
}

func mustIngest(ctx context.Context, p *pipeline.Pipeline, userID, file string) ragged.Document {
	content := mustRead(file)
	doc, err := p.IngestDocument(ctx, userID, filepath.Base(file), content)
	if err != nil {
		log.Fatalf("ingest %s: %v", file, err)
	}
	return doc
}

func mustRead(file string) []byte {
	if file == "" {
		log.Fatal("missing -file")
	}
	content, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("read %s: %v", file, err)
	}
	return content
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encode output: %v", err)
	}
	fmt.Println(string(out))
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: ragged <command> [flags]

commands:
  chunk   ingest a document and chunk it with every configured strategy
  embed   chunk a document and index the embedded chunks
  qa      generate question/answer pairs from a document
  eval    score a previously persisted gold set against the index
  run     execute the full pipeline end to end

flags:
  -config  path to TOML config (default $RAGGED_CONFIG)
  -user    user id scoping collections and artifacts (default "default")
  -file    path to the source document`)
}
