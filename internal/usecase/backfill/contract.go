package backfill

import (
	"context"

	"github.com/kailas-cloud/paperdex/internal/domain/paper"
)

// Store lists incomplete records and updates them in place.
type Store interface {
	ListMissingEmbedding(ctx context.Context, afterID int64, limit int) ([]paper.Paper, error)
	ListMissingMetadata(ctx context.Context, afterID int64, limit int) ([]paper.Paper, error)
	AttachEmbedding(ctx context.Context, id int64, vec []float32) error
	UpdateMetadata(ctx context.Context, id int64, md paper.Metadata) error
}

// PaperEmbedder computes the combined title/abstract embedding.
type PaperEmbedder interface {
	EmbedPaper(ctx context.Context, title, abstract string) ([]float32, error)
}

// Source fetches entries by remote id.
type Source interface {
	Fetch(ctx context.Context, req paper.FetchRequest) ([]paper.RawEntry, error)
}
