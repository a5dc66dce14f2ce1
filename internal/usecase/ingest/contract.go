package ingest

import (
	"context"

	"github.com/kailas-cloud/paperdex/internal/domain/paper"
)

// Store is the record store contract used by ingestion.
type Store interface {
	FindByExternalID(ctx context.Context, externalID string) (paper.Paper, error)
	InsertIfAbsent(ctx context.Context, p paper.Paper) (paper.Paper, bool, error)
}

// Source fetches raw entries from the remote catalogue. Entries parsed before
// a failure are returned together with the error.
type Source interface {
	Fetch(ctx context.Context, req paper.FetchRequest) ([]paper.RawEntry, error)
}

// PaperEmbedder computes the combined title/abstract embedding.
type PaperEmbedder interface {
	EmbedPaper(ctx context.Context, title, abstract string) ([]float32, error)
}
