// Package engine provides the knowledge base retrieval engine: ingestion,
// hybrid search, confidence scoring, and administrative reset, behind a small
// dependency-injected facade with an explicit lifecycle.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kiban/internal/config"
	"github.com/hyperjump/kiban/internal/embedding"
	"github.com/hyperjump/kiban/internal/ingest"
	"github.com/hyperjump/kiban/internal/models"
	"github.com/hyperjump/kiban/internal/retrieval"
	"github.com/hyperjump/kiban/internal/store"
)

// Engine is the knowledge base retrieval engine. Public operations never
// propagate internal errors: ingestion failures surface as false, search
// failures as empty result sets, confidence failures as the floor value.
type Engine struct {
	cfg       *config.Config
	store     *store.KnowledgeStore
	embedder  embedding.Embedder // nil in lexical-only mode
	retriever *retrieval.Retriever
	scorer    *retrieval.ConfidenceScorer
	chunker   *ingest.Chunker
	logger    *zap.Logger
}

// New creates an engine. embedder may be nil; the engine then runs in
// lexical-only mode. A non-nil embedder is wrapped in a bounded worker pool
// so slow inference calls never exhaust the goroutines serving requests.
func New(cfg *config.Config, st *store.KnowledgeStore, embedder embedding.Embedder, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if embedder != nil {
		embedder = newPooledEmbedder(embedder, cfg.Embedding.Workers)
	}
	return &Engine{
		cfg:       cfg,
		store:     st,
		embedder:  embedder,
		retriever: retrieval.NewRetriever(embedder, &cfg.Search, logger),
		scorer:    retrieval.NewConfidenceScorer(&cfg.Confidence),
		chunker:   ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		logger:    logger,
	}
}

// Close releases the embedder, if any.
func (e *Engine) Close() error {
	if e.embedder != nil {
		return e.embedder.Close()
	}
	return nil
}

// Ingest normalizes, chunks, embeds (best effort), and stores text as a new
// document, replacing any prior document with the same filename. It returns
// false for rejected input (empty or too short) and for any internal failure;
// it never panics or raises to the caller.
func (e *Engine) Ingest(ctx context.Context, text string, metadata map[string]interface{}) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("ingest panicked", zap.Any("panic", r))
			ok = false
		}
	}()

	meta := copyMetadata(metadata)
	filename, _ := meta[models.MetaKeyFilename].(string)
	if filename == "" {
		meta[models.MetaKeyFilename] = "unknown"
		filename = "unknown"
	}

	normalized := ingest.Normalize(text, e.cfg.Ingest.MinLineLength)
	if len(normalized) < e.cfg.Ingest.MinTextLength {
		e.logger.Warn("rejecting document with insufficient content",
			zap.String("filename", filename), zap.Int("length", len(normalized)))
		return false
	}

	chunks := e.chunker.Chunk(normalized)
	doc := &models.Document{
		Text:      normalized,
		Chunks:    make([]models.Chunk, len(chunks)),
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	for i, text := range chunks {
		doc.Chunks[i] = models.Chunk{Text: text, Index: i}
	}

	// Embedding is best effort: on failure the document is stored without
	// vectors and remains reachable through lexical search.
	if e.embedder != nil {
		vectors, err := e.embedder.EmbedBatch(ctx, chunks)
		if err != nil {
			e.logger.Warn("embedding failed, storing document without vectors",
				zap.String("filename", filename), zap.Error(err))
		} else {
			for i := range vectors {
				doc.Chunks[i].Vector = vectors[i]
			}
		}
	}

	meta[models.MetaKeyWordCount] = ingest.WordCount(normalized)
	meta[models.MetaKeyCharCount] = len(normalized)
	meta[models.MetaKeyChunkCount] = len(doc.Chunks)
	meta[models.MetaKeyProcessedAt] = doc.CreatedAt.Format(time.RFC3339)

	if err := e.store.AddOrReplace(doc); err != nil {
		e.logger.Error("failed to persist document", zap.String("filename", filename), zap.Error(err))
		return false
	}
	e.logger.Info("document ingested",
		zap.String("filename", filename),
		zap.Int("chunks", len(doc.Chunks)),
		zap.Int("words", meta[models.MetaKeyWordCount].(int)),
		zap.Bool("embedded", doc.VectorCount() > 0))
	return true
}

// Search returns the top-k chunks matching query with a confidence value.
// An empty store, a blank query, or any internal fault yields an empty,
// floor-confidence envelope rather than an error.
func (e *Engine) Search(ctx context.Context, query string, topK int) (resp *models.SearchResponse) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("search panicked", zap.Any("panic", r))
			resp = &models.SearchResponse{
				Query:      query,
				Results:    []*models.RetrievalResult{},
				Confidence: e.cfg.Confidence.Floor,
				Mode:       retrieval.ModeLexical,
			}
		}
	}()

	q := &models.SearchQuery{Query: query, TopK: topK}
	if err := q.Validate(e.cfg.Search.DefaultTopK, e.cfg.Search.MaxTopK); err != nil {
		return &models.SearchResponse{
			Query:      query,
			Results:    []*models.RetrievalResult{},
			Confidence: e.cfg.Confidence.Floor,
			Mode:       retrieval.ModeLexical,
		}
	}

	docs := e.store.Documents()
	results, mode := e.retriever.Search(ctx, docs, q.Query, q.TopK)
	if results == nil {
		results = []*models.RetrievalResult{}
	}
	return &models.SearchResponse{
		Query:      q.Query,
		Results:    results,
		Confidence: e.scorer.Score(q.Query, results),
		Mode:       mode,
		QueryTime:  time.Since(start).Milliseconds(),
	}
}

// Confidence scores how well-grounded a result set is for query.
func (e *Engine) Confidence(query string, results []*models.RetrievalResult) float64 {
	return e.scorer.Score(query, results)
}

// Ask runs a search and composes a grounded extractive answer envelope from
// the top passages. Generation by a language model is a collaborator concern;
// this is the built-in fallback response.
func (e *Engine) Ask(ctx context.Context, query string) *models.Answer {
	resp := e.Search(ctx, query, e.cfg.Search.DefaultTopK)
	return &models.Answer{
		Response:   composeResponse(query, resp.Results),
		Confidence: resp.Confidence,
		Sources:    resp.Results,
	}
}

// Clear empties the knowledge store and removes its persisted snapshot,
// returning the removed counts. Errors removing the snapshot are logged; the
// in-memory store is cleared regardless.
func (e *Engine) Clear() *models.ClearStats {
	stats, err := e.store.Clear()
	if err != nil {
		e.logger.Error("clear: failed to remove snapshot", zap.Error(err))
	}
	return stats
}

// Documents returns a read-only snapshot of the stored documents.
func (e *Engine) Documents() []*models.Document {
	return e.store.Documents()
}

// Status describes the engine's current state.
type Status struct {
	Documents          int    `json:"documents"`
	Chunks             int    `json:"chunks"`
	Mode               string `json:"mode"`
	EmbeddingAvailable bool   `json:"embedding_available"`
	StoreSizeBytes     int64  `json:"store_size_bytes"`
}

// Status returns document and chunk counts, the active retrieval mode, and
// the persisted snapshot size.
func (e *Engine) Status() *Status {
	mode := retrieval.ModeLexical
	if e.embedder != nil {
		mode = retrieval.ModeSemantic
	}
	return &Status{
		Documents:          e.store.Len(),
		Chunks:             e.store.ChunkCount(),
		Mode:               mode,
		EmbeddingAvailable: e.embedder != nil,
		StoreSizeBytes:     e.store.SizeBytes(),
	}
}

func copyMetadata(metadata map[string]interface{}) map[string]interface{} {
	meta := make(map[string]interface{}, len(metadata)+4)
	for k, v := range metadata {
		meta[k] = v
	}
	return meta
}
