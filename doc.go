// Package ragged benchmarks document chunking strategies for semantic search.
//
// Documents are split into token-bounded chunks under three packing policies
// (fixed-token, sliding-window, sentence-aware), embedded and indexed, and
// then scored: held-out question/answer pairs are mapped back to the chunk
// that contains each answer, and a retrieval evaluator measures recall@k and
// mean reciprocal rank of those gold chunks against a vector index.
//
// # Core Interfaces
//
// The root package defines the data model and the contracts that all
// components implement:
//
//   - [Tokenizer]: encode/decode/count for one (model, provider) pair
//   - [SentenceSegmenter]: sentence boundaries with exact source offsets
//   - [EmbeddingProvider]: text-to-vector embedding
//   - [VectorIndex]: nearest-neighbor search and upsert
//   - [ObjectStore]: byte-in/byte-out artifact persistence
//   - [QuestionGenerator]: QA pairs from a document's full text
//
// # Included Implementations
//
// Tokenizers: tokenizer (tiktoken BPE, HuggingFace tokenizer.json).
// Chunking: ingest (extractors, sentence segmenter, the three chunkers,
// and a strategy router).
// Evaluation: eval (gold-answer mapper, retrieval evaluator).
// Storage: store/sqlite (local, brute-force cosine), store/postgres (pgvector).
// Providers: provider/openai (OpenAI-compatible embeddings), provider/gemini
// (Gemini embeddings), qagen (OpenAI-compatible question generation).
// Composable wrappers: [EmbeddingCache], [WithEmbeddingRetry],
// [WithEmbeddingRateLimit], [WithGenerateRetry].
//
// The pipeline package ties the stages together; cmd/ragged is the CLI.
package ragged
