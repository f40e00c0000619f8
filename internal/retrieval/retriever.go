// Package retrieval implements hybrid chunk retrieval: vector similarity when
// an embedder is available, lexical overlap scoring otherwise, plus the
// confidence scorer that summarizes how well-grounded a result set is.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kiban/internal/config"
	"github.com/hyperjump/kiban/internal/embedding"
	"github.com/hyperjump/kiban/internal/models"
)

// Retrieval modes reported in the search envelope.
const (
	ModeSemantic = "semantic"
	ModeLexical  = "lexical"
)

// Retriever ranks chunks from a document snapshot against a query. It never
// returns an error to the caller: any fault on the vector path (embedder
// failure, dimension mismatch, timeout) falls back to the lexical path.
type Retriever struct {
	embedder embedding.Embedder // nil when the capability is absent
	cfg      *config.SearchConfig
	logger   *zap.Logger
}

// NewRetriever creates a retriever. embedder may be nil for lexical-only mode.
func NewRetriever(embedder embedding.Embedder, cfg *config.SearchConfig, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{embedder: embedder, cfg: cfg, logger: logger}
}

// Search returns the top-k chunks across docs ranked by relevance to query,
// and the mode that produced them. An empty snapshot or blank query yields an
// empty result set, not an error.
func (r *Retriever) Search(ctx context.Context, docs []*models.Document, query string, topK int) ([]*models.RetrievalResult, string) {
	if len(docs) == 0 || strings.TrimSpace(query) == "" || topK <= 0 {
		return nil, ModeLexical
	}

	if r.embedder != nil && anyVectors(docs) {
		results, err := r.vectorSearch(ctx, docs, query, topK)
		if err == nil {
			return results, ModeSemantic
		}
		r.logger.Warn("vector search failed, falling back to lexical", zap.Error(err))
	}
	return r.lexicalSearch(docs, query, topK), ModeLexical
}

// vectorSearch embeds the query once and ranks chunks by cosine similarity.
// Documents whose vector count disagrees with their chunk count are skipped
// wholesale: a partial mismatch signals write-path corruption and none of the
// document's vectors can be trusted.
func (r *Retriever) vectorSearch(ctx context.Context, docs []*models.Document, query string, topK int) ([]*models.RetrievalResult, error) {
	queryVec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	var results []*models.RetrievalResult
	for _, doc := range docs {
		vc := doc.VectorCount()
		if vc == 0 {
			continue
		}
		if vc != len(doc.Chunks) {
			r.logger.Warn("document vector/chunk count mismatch, skipping for vector search",
				zap.Int("document_id", doc.ID), zap.Int("chunks", len(doc.Chunks)), zap.Int("vectors", vc))
			continue
		}
		for i := range doc.Chunks {
			chunk := &doc.Chunks[i]
			if len(chunk.Vector) != len(queryVec) {
				continue
			}
			sim := Cosine(queryVec, chunk.Vector)
			if sim > r.cfg.SimilarityThreshold {
				results = append(results, &models.RetrievalResult{
					Text:       chunk.Text,
					Score:      sim,
					Metadata:   doc.Metadata,
					DocumentID: doc.ID,
					ChunkIndex: chunk.Index,
				})
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// embedQuery runs the embedder off the calling goroutine so a caller-supplied
// deadline can cut a hung embedding call short and trigger lexical fallback.
func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	type embedded struct {
		vec []float32
		err error
	}
	ch := make(chan embedded, 1)
	go func() {
		vec, err := r.embedder.Embed(ctx, query)
		ch <- embedded{vec: vec, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("query embedding: %w", ctx.Err())
	case out := <-ch:
		if out.err != nil {
			return nil, fmt.Errorf("query embedding: %w", out.err)
		}
		return out.vec, nil
	}
}

// anyVectors reports whether at least one chunk in the snapshot carries a vector.
func anyVectors(docs []*models.Document) bool {
	for _, doc := range docs {
		if doc.VectorCount() > 0 {
			return true
		}
	}
	return false
}

// Cosine returns the cosine similarity of a and b, or 0 when either has zero
// norm or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
