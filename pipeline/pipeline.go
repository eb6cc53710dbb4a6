// Package pipeline orchestrates the benchmark stages: ingest a document,
// chunk it per strategy, embed and index the chunks, generate QA pairs, map
// gold labels, and evaluate retrieval. Every stage persists its JSON artifact
// in the object store keyed by user and stage, so stages can be re-run
// independently.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ragged "github.com/raggedlab/ragged"
	"github.com/raggedlab/ragged/eval"
	"github.com/raggedlab/ragged/ingest"
)

// Coster computes the USD cost of embedding a number of tokens with a model.
// *observer.CostCalculator satisfies it.
type Coster interface {
	Calculate(model string, inputTokens, outputTokens int) float64
}

// zeroCost is the fallback when no Coster is configured.
type zeroCost struct{}

func (zeroCost) Calculate(string, int, int) float64 { return 0 }

// Pipeline wires the chunk router, embedding providers, vector index, object
// store, and question generator into an end-to-end benchmark run.
type Pipeline struct {
	router     *ingest.Router
	extractors map[ingest.ContentType]ingest.Extractor
	embedders  []ragged.EmbeddingProvider
	index      ragged.VectorIndex
	store      ragged.ObjectStore
	questions  ragged.QuestionGenerator
	mapper     *eval.Mapper
	topK       int
	numQs      int
	cost       Coster
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithExtractors replaces the default extractor set.
func WithExtractors(m map[ingest.ContentType]ingest.Extractor) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.extractors = m
		}
	}
}

// WithCoster sets the cost calculator used to price embedding calls.
func WithCoster(c Coster) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.cost = c
		}
	}
}

// New creates a Pipeline.
func New(
	router *ingest.Router,
	embedders []ragged.EmbeddingProvider,
	index ragged.VectorIndex,
	store ragged.ObjectStore,
	questions ragged.QuestionGenerator,
	topK, numQuestions int,
	opts ...Option,
) (*Pipeline, error) {
	if topK <= 0 {
		return nil, &ragged.ErrInvalidConfig{Field: "retrieval_top_k", Reason: "must be positive"}
	}
	if numQuestions <= 0 {
		return nil, &ragged.ErrInvalidConfig{Field: "num_questions", Reason: "must be positive"}
	}
	if len(embedders) == 0 {
		return nil, &ragged.ErrInvalidConfig{Field: "embedding", Reason: "at least one embedding model required"}
	}
	p := &Pipeline{
		router:     router,
		extractors: ingest.DefaultExtractors(),
		embedders:  embedders,
		index:      index,
		store:      store,
		questions:  questions,
		topK:       topK,
		numQs:      numQuestions,
		cost:       zeroCost{},
		logger:     nopLogger,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.mapper = eval.NewMapper(eval.WithMapperLogger(p.logger))
	return p, nil
}

// IngestDocument extracts plain text from raw file content and persists the
// processed document at processed/{user}/{doc}.json. Empty extracted text is
// rejected with *ragged.ErrData before any chunking happens.
func (p *Pipeline) IngestDocument(ctx context.Context, userID, filename string, content []byte) (ragged.Document, error) {
	ext := filepath.Ext(filename)
	contentType := ingest.ContentTypeFromExtension(ext)
	extractor, ok := p.extractors[contentType]
	if !ok {
		extractor = ingest.PlainTextExtractor{}
	}

	text, err := extractor.Extract(content)
	if err != nil {
		return ragged.Document{}, &ragged.ErrCollaborator{Op: "extract " + filename, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return ragged.Document{}, &ragged.ErrData{Source: filename, Reason: "document text cannot be empty"}
	}

	doc := ragged.Document{
		ID:        strings.TrimSuffix(filepath.Base(filename), ext),
		Source:    filename,
		Text:      text,
		CreatedAt: ragged.NowUnix(),
	}

	key := fmt.Sprintf("processed/%s/%s.json", userID, doc.ID)
	if err := p.putJSON(ctx, key, doc); err != nil {
		return ragged.Document{}, err
	}
	p.logger.Info("document ingested", "user_id", userID, "doc_id", doc.ID, "bytes", len(text))
	return doc, nil
}

// ChunkDocument runs every configured strategy over the document and
// persists each chunk set at chunks/{user}/{doc}_{strategy}.json.
func (p *Pipeline) ChunkDocument(ctx context.Context, userID string, doc ragged.Document, strategies []string) (map[ragged.Strategy][]ragged.Chunk, error) {
	out := make(map[ragged.Strategy][]ragged.Chunk, len(strategies))
	for _, name := range strategies {
		strategy, err := ragged.ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		chunks, err := p.router.Chunk(name, doc.Text, doc.Source)
		if err != nil {
			return nil, fmt.Errorf("chunk %s with %s: %w", doc.ID, name, err)
		}
		out[strategy] = chunks

		key := fmt.Sprintf("chunks/%s/%s_%s.json", userID, doc.ID, name)
		if err := p.putJSON(ctx, key, chunks); err != nil {
			return nil, err
		}
		p.logger.Info("document chunked", "user_id", userID, "doc_id", doc.ID, "strategy", name, "chunks", len(chunks))
	}
	return out, nil
}

// Collection returns the vector collection name for a user and embedding
// model. Models are sanitized for use in identifiers.
func Collection(userID, model string) string {
	return "ragged_chunks_" + userID + "_" + sanitizeModel(model)
}

func sanitizeModel(model string) string {
	return strings.ReplaceAll(model, "/", "_")
}

// EmbedChunks embeds every chunk with every configured embedding provider
// and upserts the vectors. The payload carries chunk_id, strategy, source,
// user_id, token_count, latency_ms, and cost so the evaluator can accumulate
// them from hits. A failed embedding call fails the whole stage; partial
// indexes would bias evaluation.
func (p *Pipeline) EmbedChunks(ctx context.Context, userID string, chunks []ragged.Chunk) error {
	for _, embedder := range p.embedders {
		model := embedder.Name()
		collection := Collection(userID, model)
		if err := p.index.EnsureCollection(ctx, collection, embedder.Dimensions()); err != nil {
			return fmt.Errorf("ensure collection %s: %w", collection, err)
		}

		for _, chunk := range chunks {
			start := time.Now()
			vectors, err := embedder.Embed(ctx, []string{chunk.Text})
			if err != nil {
				return &ragged.ErrCollaborator{Op: "embed chunk " + chunk.ChunkID, Err: err}
			}
			if len(vectors) == 0 {
				return &ragged.ErrData{Source: chunk.ChunkID, Reason: "embedding model returned no vector"}
			}
			latencyMS := float64(time.Since(start).Milliseconds())

			tokens := chunk.Tokens[model]
			if tokens == 0 {
				// Rough estimate when the chunker did not count for this model.
				tokens = int(float64(len(strings.Fields(chunk.Text))) * 1.3)
			}

			payload := map[string]any{
				"chunk_id":    chunk.ChunkID,
				"strategy":    string(chunk.Strategy),
				"source":      chunk.Source,
				"user_id":     userID,
				"token_count": tokens,
				"latency_ms":  latencyMS,
				"cost":        p.cost.Calculate(model, tokens, 0),
			}
			if err := p.index.Upsert(ctx, collection, ragged.PointID(chunk.ChunkID), vectors[0], payload); err != nil {
				return fmt.Errorf("upsert chunk %s: %w", chunk.ChunkID, err)
			}
		}
		p.logger.Info("chunks embedded", "user_id", userID, "model", model, "chunks", len(chunks))
	}
	return nil
}

// GenerateQA produces QA pairs from the document's full text and persists
// them at qa_pairs/{user}/{doc}_qa.json.
func (p *Pipeline) GenerateQA(ctx context.Context, userID string, doc ragged.Document) ([]ragged.QAPair, error) {
	pairs, err := p.questions.Generate(ctx, doc.Text, p.numQs)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("qa_pairs/%s/%s_qa.json", userID, doc.ID)
	if err := p.putJSON(ctx, key, pairs); err != nil {
		return nil, err
	}
	p.logger.Info("qa pairs generated", "user_id", userID, "doc_id", doc.ID, "pairs", len(pairs))
	return pairs, nil
}

// MapGold maps QA pairs onto each strategy's chunk set and persists the
// combined gold set at gold/{user}/{doc}_gold.json.
func (p *Pipeline) MapGold(ctx context.Context, userID string, doc ragged.Document, pairs []ragged.QAPair, chunkSets map[ragged.Strategy][]ragged.Chunk) ([]ragged.GoldLabel, error) {
	var labels []ragged.GoldLabel
	for _, strategy := range orderedStrategies(chunkSets) {
		mapped := p.mapper.Map(pairs, chunkSets[strategy])
		labels = append(labels, mapped...)
		p.logger.Info("gold labels mapped", "user_id", userID, "doc_id", doc.ID,
			"strategy", string(strategy), "labels", len(mapped), "pairs", len(pairs))
	}

	key := fmt.Sprintf("gold/%s/%s_gold.json", userID, doc.ID)
	if err := p.putJSON(ctx, key, labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// Evaluate scores the gold set per (strategy, embedding model) pair and
// persists each result at logs/{user}/{strategy}_{model}_log.json.
func (p *Pipeline) Evaluate(ctx context.Context, userID string, labels []ragged.GoldLabel) ([]ragged.EvaluationMetrics, error) {
	byStrategy := make(map[ragged.Strategy][]ragged.GoldLabel)
	for _, label := range labels {
		byStrategy[label.Strategy] = append(byStrategy[label.Strategy], label)
	}

	var results []ragged.EvaluationMetrics
	for _, embedder := range p.embedders {
		model := embedder.Name()
		evaluator, err := eval.NewEvaluator(embedder, p.index, p.topK, eval.WithEvaluatorLogger(p.logger))
		if err != nil {
			return nil, err
		}
		collection := Collection(userID, model)

		for _, strategy := range orderedLabelStrategies(byStrategy) {
			m, err := evaluator.Evaluate(ctx, collection, byStrategy[strategy])
			if err != nil {
				return nil, err
			}
			m.Strategy = strategy
			results = append(results, m)

			key := fmt.Sprintf("logs/%s/%s_%s_log.json", userID, strategy, sanitizeModel(model))
			if err := p.putJSON(ctx, key, m); err != nil {
				return nil, err
			}
			p.logger.Info("evaluation completed", "user_id", userID,
				"strategy", string(strategy), "model", model,
				"recall_at_k", m.RecallAtK, "mrr", m.MeanReciprocalRank,
				"questions", m.TotalQuestions, "failures", m.Failures)
		}
	}
	return results, nil
}

// Run executes the full pipeline over one raw document.
func (p *Pipeline) Run(ctx context.Context, userID, filename string, content []byte, strategies []string) ([]ragged.EvaluationMetrics, error) {
	doc, err := p.IngestDocument(ctx, userID, filename, content)
	if err != nil {
		return nil, err
	}
	chunkSets, err := p.ChunkDocument(ctx, userID, doc, strategies)
	if err != nil {
		return nil, err
	}
	for _, strategy := range orderedStrategies(chunkSets) {
		if err := p.EmbedChunks(ctx, userID, chunkSets[strategy]); err != nil {
			return nil, err
		}
	}
	pairs, err := p.GenerateQA(ctx, userID, doc)
	if err != nil {
		return nil, err
	}
	labels, err := p.MapGold(ctx, userID, doc, pairs, chunkSets)
	if err != nil {
		return nil, err
	}
	return p.Evaluate(ctx, userID, labels)
}

func (p *Pipeline) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := p.store.Put(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// orderedStrategies returns map keys in stable (lexicographic) order so runs
// are deterministic.
func orderedStrategies(m map[ragged.Strategy][]ragged.Chunk) []ragged.Strategy {
	keys := make([]ragged.Strategy, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrategies(keys)
	return keys
}

func orderedLabelStrategies(m map[ragged.Strategy][]ragged.GoldLabel) []ragged.Strategy {
	keys := make([]ragged.Strategy, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrategies(keys)
	return keys
}

func sortStrategies(keys []ragged.Strategy) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}

// nopLogger is a logger that discards all output. Used when WithLogger is not set.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
