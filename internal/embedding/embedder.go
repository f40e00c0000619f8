// Package embedding provides the pluggable vectorizer capability: text to
// fixed-length vector, via ONNX when built with CGO, with a deterministic mock
// for tests. The capability may be absent; callers must tolerate a nil
// Embedder and fall back to lexical retrieval.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations are pure
// functions of their input but may be slow; callers should treat Embed and
// EmbedBatch as blocking and keep them off latency-sensitive paths.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
