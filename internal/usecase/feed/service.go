package feed

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/paperdex/internal/domain/paper"
)

const (
	// DefaultPageSize is used when the caller passes a non-positive size.
	DefaultPageSize = 10
	// MaxPageSize caps the caller's page size.
	MaxPageSize = 100
)

// Service composes the paginated, per-user content feed.
type Service struct {
	store        Store
	interactions Interactions
	defSize      int
	maxSize      int
}

// New creates a feed service. interactions may be nil, which makes every
// feed anonymous.
func New(store Store, interactions Interactions) *Service {
	return &Service{
		store:        store,
		interactions: interactions,
		defSize:      DefaultPageSize,
		maxSize:      MaxPageSize,
	}
}

// WithPagination configures default and maximum page sizes.
func (s *Service) WithPagination(defaultSize, maxSize int) *Service {
	if defaultSize > 0 {
		s.defSize = defaultSize
	}
	if maxSize > 0 {
		s.maxSize = maxSize
	}
	return s
}

// Feed returns the newest papers userID has not interacted with. An empty
// userID gets the unfiltered feed.
func (s *Service) Feed(ctx context.Context, userID string, page, pageSize int) (paper.Page, error) {
	w := paper.NewWindow(page, pageSize, s.defSize, s.maxSize)

	var exclude *paper.IDSet
	if userID != "" && s.interactions != nil {
		ids, err := s.interactions.InteractedContentIDs(ctx, userID)
		if err != nil {
			return paper.Page{}, fmt.Errorf("interactions for %s: %w", userID, err)
		}
		exclude = ids
	}

	items, total, err := s.store.QueryOrderedByDate(ctx, exclude, w.Offset(), w.PageSize)
	if err != nil {
		return paper.Page{}, fmt.Errorf("query feed: %w", err)
	}
	if items == nil {
		items = []paper.Paper{}
	}
	return paper.Page{Items: items, Total: total, HasMore: w.HasMore(total)}, nil
}
