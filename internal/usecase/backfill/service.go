package backfill

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/domain/paper"
)

// DefaultBatchSize is used when the caller passes a non-positive batch size.
const DefaultBatchSize = 50

// Stats counts one backfill run.
type Stats struct {
	Processed int
	Updated   int
	Failed    int
}

// Service completes records stored without an embedding or metadata.
type Service struct {
	store  Store
	embed  PaperEmbedder
	source Source
	logger *zap.Logger
}

// New creates a backfill service. embed or source may be nil when the
// matching operation is not used.
func New(store Store, embed PaperEmbedder, source Source, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, embed: embed, source: source, logger: logger}
}

// EmbedMissing computes embeddings for every record without one. Records that
// cannot be embedded are counted and left as they are.
func (s *Service) EmbedMissing(ctx context.Context, batchSize int) (Stats, error) {
	if s.embed == nil {
		return Stats{}, fmt.Errorf("embed missing: no embedder configured")
	}
	return s.walk(ctx, batchSize, s.store.ListMissingEmbedding, func(ctx context.Context, batch []paper.Paper) (int, int) {
		var updated, failed int
		for _, p := range batch {
			vec, err := s.embed.EmbedPaper(ctx, p.Title, p.Abstract)
			if err == nil {
				err = s.store.AttachEmbedding(ctx, p.ID, vec)
			}
			if err != nil {
				failed++
				s.logger.Warn("Embedding backfill failed", zap.Int64("id", p.ID), zap.Error(err))
				continue
			}
			updated++
		}
		return updated, failed
	})
}

// EnrichMetadata refetches records whose metadata lacks authors and writes
// the remote authors, categories and dates back.
func (s *Service) EnrichMetadata(ctx context.Context, batchSize int) (Stats, error) {
	if s.source == nil {
		return Stats{}, fmt.Errorf("enrich metadata: no remote source configured")
	}
	return s.walk(ctx, batchSize, s.store.ListMissingMetadata, func(ctx context.Context, batch []paper.Paper) (int, int) {
		byArxiv := make(map[string]paper.Paper, len(batch))
		ids := make([]string, 0, len(batch))
		for _, p := range batch {
			id := paper.ArxivID(p.ExternalID)
			byArxiv[id] = p
			ids = append(ids, id)
		}

		entries, err := s.source.Fetch(ctx, paper.FetchRequest{IDs: ids, MaxResults: len(ids)})
		if err != nil {
			s.logger.Warn("Metadata fetch failed", zap.Int("batch", len(batch)), zap.Error(err))
		}

		var updated int
		for _, e := range entries {
			if e.Err != nil {
				continue
			}
			p, ok := byArxiv[paper.ArxivID(e.ExternalID)]
			if !ok {
				continue
			}
			delete(byArxiv, paper.ArxivID(e.ExternalID))
			if err := s.store.UpdateMetadata(ctx, p.ID, enriched(p, e)); err != nil {
				s.logger.Warn("Metadata update failed", zap.Int64("id", p.ID), zap.Error(err))
				continue
			}
			updated++
		}
		return updated, len(batch) - updated
	})
}

type lister func(ctx context.Context, afterID int64, limit int) ([]paper.Paper, error)

// walk pages through the lister by ascending id until it runs dry.
func (s *Service) walk(
	ctx context.Context, batchSize int, list lister,
	apply func(context.Context, []paper.Paper) (updated, failed int),
) (Stats, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	var (
		stats Stats
		after int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("backfill interrupted: %w", err)
		}
		batch, err := list(ctx, after, batchSize)
		if err != nil {
			return stats, fmt.Errorf("list after %d: %w", after, err)
		}
		if len(batch) == 0 {
			return stats, nil
		}

		updated, failed := apply(ctx, batch)
		stats.Processed += len(batch)
		stats.Updated += updated
		stats.Failed += failed
		after = batch[len(batch)-1].ID

		s.logger.Info("Backfill batch done",
			zap.Int("processed", stats.Processed),
			zap.Int("updated", stats.Updated),
			zap.Int("failed", stats.Failed),
		)
	}
}

func enriched(p paper.Paper, e paper.RawEntry) paper.Metadata {
	md := p.Metadata
	md.Authors = e.Authors
	if len(e.Categories) > 0 {
		md.Categories = e.Categories
	}
	if md.PaperID == "" {
		md.PaperID = paper.ArxivID(p.ExternalID)
	}
	if e.PublishedAt != nil {
		md.PublishedDate = e.PublishedAt.UTC().Format(time.RFC3339)
	}
	return md
}
