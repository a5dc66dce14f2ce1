package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/paperdex/internal/domain/paper"
	"github.com/kailas-cloud/paperdex/internal/domain/relevance"
	"github.com/kailas-cloud/paperdex/internal/metrics"
)

const (
	// DefaultPageSize is used when the caller passes a non-positive size.
	DefaultPageSize = 10
	// MaxPageSize caps the caller's page size.
	MaxPageSize = 100
	// DefaultFallbackMaxResults bounds one remote fallback fetch.
	DefaultFallbackMaxResults = 50
	// DefaultFallbackTimeout bounds one shared fallback, fetch and ingest included.
	DefaultFallbackTimeout = 45 * time.Second
)

// Service runs local-first keyword search with a single remote fallback.
type Service struct {
	store     Store
	ingester  Ingester
	logger    *zap.Logger
	group     singleflight.Group
	defSize   int
	maxSize   int
	remoteMax int
	timeout   time.Duration
}

// New creates a search service. ingester may be nil to disable the fallback.
func New(store Store, ingester Ingester, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		ingester:  ingester,
		logger:    logger,
		defSize:   DefaultPageSize,
		maxSize:   MaxPageSize,
		remoteMax: DefaultFallbackMaxResults,
		timeout:   DefaultFallbackTimeout,
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

// WithFallbackMaxResults configures how many entries one fallback fetch asks for.
func (s *Service) WithFallbackMaxResults(n int) *Service {
	if n > 0 {
		s.remoteMax = n
	}
	return s
}

// WithFallbackTimeout configures the deadline of one shared fallback.
func (s *Service) WithFallbackTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Search ranks local matches for query and returns one page of them. When
// nothing matches locally it ingests from the remote source once and re-runs
// the identical query.
func (s *Service) Search(ctx context.Context, query string, page, pageSize int) (paper.Page, error) {
	w := paper.NewWindow(page, pageSize, s.defSize, s.maxSize)

	terms := relevance.Tokenize(query)
	if len(terms) == 0 {
		return emptyPage(), nil
	}

	ranked, err := s.rank(ctx, terms)
	if err != nil {
		return paper.Page{}, err
	}

	if len(ranked) == 0 && s.ingester != nil {
		if err := s.fallback(ctx, query); err != nil {
			return paper.Page{}, err
		}
		if ranked, err = s.rank(ctx, terms); err != nil {
			return paper.Page{}, err
		}
		result := "hit"
		if len(ranked) == 0 {
			result = "empty"
		}
		metrics.SearchFallbackTotal.WithLabelValues(result).Inc()
	}

	if len(ranked) == 0 {
		return emptyPage(), nil
	}
	return w.Slice(ranked), nil
}

func (s *Service) rank(ctx context.Context, terms []string) ([]paper.Paper, error) {
	matches, err := s.store.QueryBySubstring(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}
	return relevance.Papers(relevance.Rank(matches, terms)), nil
}

// fallback ingests remote matches. Concurrent callers with the same
// normalized query share one remote call, which outlives any single caller
// but not the fallback timeout. Ingestion errors are logged and dropped; the
// only error returned is the caller's own context error.
func (s *Service) fallback(ctx context.Context, query string) error {
	key := strings.ToLower(strings.TrimSpace(query))
	ch := s.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		res, err := s.ingester.IngestRemote(fctx, paper.FetchRequest{
			Query:      strings.TrimSpace(query),
			MaxResults: s.remoteMax,
		})
		s.logger.Info("Search fallback ingested",
			zap.String("query", key),
			zap.Int("created", len(res.Created)),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
		)
		return nil, err
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			metrics.SearchFallbackTotal.WithLabelValues("error").Inc()
			s.logger.Warn("Search fallback failed",
				zap.String("query", key),
				zap.Bool("shared", r.Shared),
				zap.Error(r.Err),
			)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("search fallback: %w", ctx.Err())
	}
}

func emptyPage() paper.Page {
	return paper.Page{Items: []paper.Paper{}}
}
