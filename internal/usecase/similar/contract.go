package similar

import (
	"context"

	"github.com/kailas-cloud/paperdex/internal/domain/paper"
)

// Store exposes the records needed for a brute-force scan.
type Store interface {
	Get(ctx context.Context, id int64) (paper.Paper, error)
	ListEmbedded(ctx context.Context) ([]paper.Paper, error)
}

// Interactions returns the ids a user has already interacted with.
type Interactions interface {
	InteractedContentIDs(ctx context.Context, userID string) (*paper.IDSet, error)
}

// TextEmbedder embeds free text.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
