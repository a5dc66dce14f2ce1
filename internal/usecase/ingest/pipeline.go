package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/domain/paper"
	"github.com/kailas-cloud/paperdex/internal/metrics"
)

// Result summarizes one ingestion call. Created holds only records this call
// inserted, in entry order.
type Result struct {
	Created []paper.Paper
	Skipped int
	Failed  int
}

// Pipeline turns raw remote entries into stored papers, at most once per
// external id.
type Pipeline struct {
	store  Store
	source Source
	embed  PaperEmbedder
	logger *zap.Logger
}

// New creates an ingestion pipeline. embed may be nil, in which case papers
// are stored without embeddings.
func New(store Store, source Source, embed PaperEmbedder, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{store: store, source: source, embed: embed, logger: logger}
}

// Ingest stores every valid entry not seen before. Failures on one entry are
// counted and never abort the batch.
func (p *Pipeline) Ingest(ctx context.Context, entries []paper.RawEntry) Result {
	var res Result
	for i := range entries {
		if ctx.Err() != nil {
			p.logger.Warn("Ingestion cancelled",
				zap.Int("processed", i),
				zap.Int("remaining", len(entries)-i),
			)
			break
		}
		created, ok, err := p.ingestOne(ctx, entries[i])
		switch {
		case err != nil:
			res.Failed++
			metrics.IngestEntriesTotal.WithLabelValues("failed").Inc()
			p.logger.Warn("Entry not ingested",
				zap.String("external_id", entries[i].ExternalID),
				zap.Error(err),
			)
		case ok:
			res.Created = append(res.Created, created)
			metrics.IngestEntriesTotal.WithLabelValues("created").Inc()
		default:
			res.Skipped++
			metrics.IngestEntriesTotal.WithLabelValues("skipped").Inc()
		}
	}
	return res
}

// IngestRemote fetches entries and ingests whatever was parsed. A fetch error
// is returned after ingestion; committed inserts stay.
func (p *Pipeline) IngestRemote(ctx context.Context, req paper.FetchRequest) (Result, error) {
	entries, fetchErr := p.source.Fetch(ctx, req)
	res := p.Ingest(ctx, entries)

	p.logger.Info("Remote ingestion finished",
		zap.String("query", req.Query),
		zap.String("category", req.Category),
		zap.Int("ids", len(req.IDs)),
		zap.Int("entries", len(entries)),
		zap.Int("created", len(res.Created)),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)

	if fetchErr != nil {
		return res, fmt.Errorf("fetch: %w", fetchErr)
	}
	return res, nil
}

// ingestOne reports (record, true, nil) when it created a record and
// (_, false, nil) when the external id already existed.
func (p *Pipeline) ingestOne(ctx context.Context, e paper.RawEntry) (paper.Paper, bool, error) {
	if e.Err != nil {
		return paper.Paper{}, false, e.Err
	}
	extID := strings.TrimSpace(e.ExternalID)
	if extID == "" || strings.TrimSpace(e.Title) == "" {
		return paper.Paper{}, false, fmt.Errorf("%w: entry without id or title", domain.ErrParse)
	}

	_, err := p.store.FindByExternalID(ctx, extID)
	switch {
	case err == nil:
		return paper.Paper{}, false, nil
	case !errors.Is(err, domain.ErrPaperNotFound):
		return paper.Paper{}, false, fmt.Errorf("find %s: %w", extID, err)
	}

	rec, err := paper.New(extID, e.Title, e.Abstract, e.Source, e.URL, e.PublishedAt, metadataOf(extID, e))
	if err != nil {
		return paper.Paper{}, false, err
	}
	rec.Embedding = p.embedding(ctx, rec)

	stored, created, err := p.store.InsertIfAbsent(ctx, rec)
	if err != nil {
		return paper.Paper{}, false, fmt.Errorf("insert %s: %w", extID, err)
	}
	return stored, created, nil
}

// embedding returns nil when no embedding could be computed.
func (p *Pipeline) embedding(ctx context.Context, rec paper.Paper) []float32 {
	if p.embed == nil {
		return nil
	}
	vec, err := p.embed.EmbedPaper(ctx, rec.Title, rec.Abstract)
	if err != nil {
		metrics.EmbeddingUnavailableTotal.Inc()
		p.logger.Warn("Storing paper without embedding",
			zap.String("external_id", rec.ExternalID),
			zap.Error(err),
		)
		return nil
	}
	return vec
}

func metadataOf(extID string, e paper.RawEntry) paper.Metadata {
	md := paper.Metadata{
		Authors:    e.Authors,
		Categories: e.Categories,
		PaperID:    paper.ArxivID(extID),
	}
	if e.PublishedAt != nil {
		md.PublishedDate = e.PublishedAt.UTC().Format(time.RFC3339)
	}
	return md
}
