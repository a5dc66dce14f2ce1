package similar

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/domain/paper"
	"github.com/kailas-cloud/paperdex/internal/domain/similarity"
)

// DefaultLimit is used when the caller passes a non-positive limit.
const DefaultLimit = 10

// MaxLimit caps one similarity request.
const MaxLimit = 100

// Service finds papers closest to a query vector.
type Service struct {
	store        Store
	interactions Interactions
	embed        TextEmbedder
}

// New creates a similarity service. interactions and embed may be nil.
func New(store Store, interactions Interactions, embed TextEmbedder) *Service {
	return &Service{store: store, interactions: interactions, embed: embed}
}

// SimilaritySearch returns the limit records most similar to vector, skipping
// excluded ids and records without an embedding.
func (s *Service) SimilaritySearch(
	ctx context.Context, vector []float32, exclude *paper.IDSet, limit int,
) ([]similarity.Match, error) {
	candidates, err := s.store.ListEmbedded(ctx)
	if err != nil {
		return nil, fmt.Errorf("list embedded: %w", err)
	}
	return similarity.TopK(vector, candidates, exclude, limit), nil
}

// ByPaper returns papers similar to a stored paper. The paper itself and
// anything userID interacted with are excluded.
func (s *Service) ByPaper(ctx context.Context, id int64, userID string, limit int) ([]similarity.Match, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get paper %d: %w", id, err)
	}
	if !p.HasEmbedding() {
		return nil, fmt.Errorf("paper %d: %w", id, domain.ErrEmbeddingUnavailable)
	}

	exclude, err := s.exclusions(ctx, userID)
	if err != nil {
		return nil, err
	}
	exclude.Add(p.ID)

	return s.SimilaritySearch(ctx, p.Embedding, exclude, clampLimit(limit))
}

// ByText embeds text and returns the most similar papers.
func (s *Service) ByText(ctx context.Context, text, userID string, limit int) ([]similarity.Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required: %w", domain.ErrInvalidRequest)
	}
	if s.embed == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	vec, err := s.embed.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	exclude, err := s.exclusions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.SimilaritySearch(ctx, vec, exclude, clampLimit(limit))
}

func (s *Service) exclusions(ctx context.Context, userID string) (*paper.IDSet, error) {
	if userID == "" || s.interactions == nil {
		return paper.NewIDSet(), nil
	}
	ids, err := s.interactions.InteractedContentIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("interactions for %s: %w", userID, err)
	}
	if ids == nil {
		return paper.NewIDSet(), nil
	}
	return ids, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}
