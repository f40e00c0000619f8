package engine

import (
	"context"

	"github.com/hyperjump/kiban/internal/embedding"
)

// pooledEmbedder bounds concurrent embedding calls with a slot semaphore.
// Inference is CPU-bound and slow; without the bound a burst of ingestions
// or searches would stack inference calls and starve lightweight requests.
type pooledEmbedder struct {
	inner embedding.Embedder
	slots chan struct{}
}

func newPooledEmbedder(inner embedding.Embedder, workers int) *pooledEmbedder {
	if workers <= 0 {
		workers = 1
	}
	return &pooledEmbedder{
		inner: inner,
		slots: make(chan struct{}, workers),
	}
}

// acquire blocks until a slot is free or ctx is done.
func (p *pooledEmbedder) acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pooledEmbedder) release() {
	<-p.slots
}

// Embed runs the wrapped embedder within a worker slot.
func (p *pooledEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.release()
	return p.inner.Embed(ctx, text)
}

// EmbedBatch runs the wrapped embedder within a worker slot.
func (p *pooledEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.release()
	return p.inner.EmbedBatch(ctx, texts)
}

// Dimensions returns the wrapped embedder's dimension.
func (p *pooledEmbedder) Dimensions() int {
	return p.inner.Dimensions()
}

// Close closes the wrapped embedder.
func (p *pooledEmbedder) Close() error {
	return p.inner.Close()
}
