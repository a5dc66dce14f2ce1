package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/domain/paper"
	"github.com/kailas-cloud/paperdex/internal/domain/similarity"
)

// PaperEmbedder computes the combined embedding of a paper: the element-wise
// mean of its title and abstract vectors.
type PaperEmbedder struct {
	inner domain.Embedder
	dim   int
}

// NewPaperEmbedder creates a PaperEmbedder. dim is the required
// dimensionality; zero accepts any.
func NewPaperEmbedder(inner domain.Embedder, dim int) *PaperEmbedder {
	return &PaperEmbedder{inner: inner, dim: dim}
}

// EmbedPaper embeds title and abstract concurrently. Any failure is reported
// as domain.ErrEmbeddingUnavailable.
func (e *PaperEmbedder) EmbedPaper(ctx context.Context, title, abstract string) ([]float32, error) {
	var titleVec, abstractVec []float32

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := e.inner.Embed(gctx, title)
		if err != nil {
			return fmt.Errorf("title: %w", err)
		}
		titleVec = res.Embedding
		return nil
	})
	g.Go(func() error {
		res, err := e.inner.Embed(gctx, abstract)
		if err != nil {
			return fmt.Errorf("abstract: %w", err)
		}
		abstractVec = res.Embedding
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	mean, ok := similarity.Mean(titleVec, abstractVec)
	if !ok {
		return nil, fmt.Errorf("%w: title has %d dims, abstract %d",
			domain.ErrEmbeddingUnavailable, len(titleVec), len(abstractVec))
	}
	if err := paper.CheckDim(mean, e.dim); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return mean, nil
}

// EmbedText embeds free text and checks its dimensionality.
func (e *PaperEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	res, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if err := paper.CheckDim(res.Embedding, e.dim); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return res.Embedding, nil
}
