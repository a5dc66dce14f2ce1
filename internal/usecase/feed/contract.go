package feed

import (
	"context"

	"github.com/kailas-cloud/paperdex/internal/domain/paper"
)

// Store returns one window of records ordered by recency, minus exclusions.
type Store interface {
	QueryOrderedByDate(ctx context.Context, exclude *paper.IDSet, offset, limit int) ([]paper.Paper, int, error)
}

// Interactions returns the ids a user has already interacted with.
type Interactions interface {
	InteractedContentIDs(ctx context.Context, userID string) (*paper.IDSet, error)
}
