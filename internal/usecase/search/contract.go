package search

import (
	"context"

	"github.com/kailas-cloud/paperdex/internal/domain/paper"
	"github.com/kailas-cloud/paperdex/internal/usecase/ingest"
)

// Store answers local keyword queries.
type Store interface {
	QueryBySubstring(ctx context.Context, terms []string) ([]paper.Paper, error)
}

// Ingester pulls matching papers from the remote source into the store.
type Ingester interface {
	IngestRemote(ctx context.Context, req paper.FetchRequest) (ingest.Result, error)
}
