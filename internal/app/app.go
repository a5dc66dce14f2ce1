// Package app wires the record store, embedding chain, remote source and use
// cases from configuration. Both binaries build on it.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/config"
	dbRedis "github.com/kailas-cloud/paperdex/internal/db/redis"
	"github.com/kailas-cloud/paperdex/internal/domain"
	dompaper "github.com/kailas-cloud/paperdex/internal/domain/paper"
	"github.com/kailas-cloud/paperdex/internal/metrics"
	"github.com/kailas-cloud/paperdex/internal/repository/embcache"
	"github.com/kailas-cloud/paperdex/internal/repository/interaction"
	"github.com/kailas-cloud/paperdex/internal/repository/mempaper"
	paperrepo "github.com/kailas-cloud/paperdex/internal/repository/paper"
	"github.com/kailas-cloud/paperdex/internal/repository/pgpaper"
	"github.com/kailas-cloud/paperdex/internal/transport/arxiv"
	openaiEmb "github.com/kailas-cloud/paperdex/internal/transport/openai"
	"github.com/kailas-cloud/paperdex/internal/version"
	backfilluc "github.com/kailas-cloud/paperdex/internal/usecase/backfill"
	embeddinguc "github.com/kailas-cloud/paperdex/internal/usecase/embedding"
	feeduc "github.com/kailas-cloud/paperdex/internal/usecase/feed"
	healthuc "github.com/kailas-cloud/paperdex/internal/usecase/health"
	"github.com/kailas-cloud/paperdex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/paperdex/internal/usecase/search"
	similaruc "github.com/kailas-cloud/paperdex/internal/usecase/similar"
)

// Papers is the full record store contract; each use case takes a subset.
type Papers interface {
	ingest.Store
	searchuc.Store
	feeduc.Store
	similaruc.Store
	backfilluc.Store
	Count(ctx context.Context) (int, error)
}

// Interactions resolves per-user exclusion sets.
type Interactions interface {
	InteractedContentIDs(ctx context.Context, userID string) (*dompaper.IDSet, error)
}

// kv backs the embedding cache.
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// backend is one configured storage driver.
type backend struct {
	papers       Papers
	interactions Interactions
	cache        kv
	pinger       pinger
	close        func()
}

// App holds the wired components.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Papers   Papers
	Arxiv    *arxiv.Client
	Ingest   *ingest.Pipeline
	Search   *searchuc.Service
	Feed     *feeduc.Service
	Similar  *similaruc.Service
	Backfill *backfilluc.Service
	Health   *healthuc.Service

	// PaperEmbedder is nil when no embedding provider is configured.
	PaperEmbedder *embeddinguc.PaperEmbedder

	close func()
}

// New connects to the configured backend and builds every use case.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Papers: be.papers, close: be.close}

	a.Arxiv = arxiv.NewClient(arxiv.Config{
		BaseURL:           cfg.Arxiv.BaseURL,
		Timeout:           time.Duration(cfg.Arxiv.TimeoutSec) * time.Second,
		RequestsPerSecond: cfg.Arxiv.RequestsPerSecond,
		Burst:             cfg.Arxiv.Burst,
		UserAgent:         userAgent(cfg.Arxiv.UserAgent),
		Logger:            logger,
	})

	// Typed nil pointers must not leak into interface fields below.
	var (
		paperEmb   ingest.PaperEmbedder
		backEmb    backfilluc.PaperEmbedder
		textEmb    similaruc.TextEmbedder
		embChecker healthuc.EmbeddingChecker
	)
	if cfg.Embedding.Enabled() {
		chain := buildEmbedder(cfg.Embedding, be.cache, cfg.Storage.KeyPrefix, logger)
		a.PaperEmbedder = embeddinguc.NewPaperEmbedder(chain, cfg.Embedding.Dimensions)
		paperEmb, backEmb, textEmb, embChecker = a.PaperEmbedder, a.PaperEmbedder, a.PaperEmbedder, chain
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	} else {
		logger.Warn("No embedding provider configured; papers are stored without embeddings")
	}

	a.Ingest = ingest.New(be.papers, a.Arxiv, paperEmb, logger)
	a.Search = searchuc.New(be.papers, a.Ingest, logger).
		WithPagination(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize).
		WithFallbackMaxResults(cfg.Search.FallbackMaxResults).
		WithFallbackTimeout(time.Duration(cfg.Search.FallbackTimeoutSec) * time.Second)
	a.Feed = feeduc.New(be.papers, be.interactions).
		WithPagination(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)
	a.Similar = similaruc.New(be.papers, be.interactions, textEmb)
	a.Backfill = backfilluc.New(be.papers, backEmb, a.Arxiv, logger)
	a.Health = healthuc.New(be.pinger, embChecker)

	return a, nil
}

// Close releases backend connections.
func (a *App) Close() {
	if a.close != nil {
		a.close()
	}
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, error) {
	dim := cfg.Embedding.Dimensions
	switch cfg.Database.Driver {
	case config.DriverRedis, config.DriverValkey:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return backend{}, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return backend{}, fmt.Errorf("database not ready: %w", err)
		}
		logger.Info("Connected to database",
			zap.String("driver", cfg.Database.Driver),
			zap.Strings("addrs", cfg.Database.Addrs),
		)
		return backend{
			papers:       paperrepo.New(store, cfg.Storage.KeyPrefix, dim),
			interactions: interaction.New(store, cfg.Storage.KeyPrefix),
			cache:        store,
			pinger:       store,
			close:        store.Close,
		}, nil

	case config.DriverPostgres:
		readyCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second)
		defer cancel()
		conn, err := pgpaper.Open(readyCtx, cfg.Database.DSN)
		if err != nil {
			return backend{}, err
		}
		if err := pgpaper.Migrate(readyCtx, conn, dim); err != nil {
			_ = conn.Close()
			return backend{}, err
		}
		logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))
		repo := pgpaper.New(conn, dim)
		return backend{
			papers:       repo,
			interactions: pgpaper.NewInteractions(conn),
			cache:        pgpaper.NewKV(conn),
			pinger:       repo,
			close:        func() { _ = conn.Close() },
		}, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory store; records are lost on exit")
		repo := mempaper.New(dim)
		return backend{
			papers:       repo,
			interactions: mempaper.NewInteractions(),
			cache:        mempaper.NewKV(),
			pinger:       repo,
			close:        func() {},
		}, nil
	}
	return backend{}, fmt.Errorf("%w: unknown database driver %q", domain.ErrInvalidRequest, cfg.Database.Driver)
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(
	cfg config.EmbeddingConfig, cache kv, keyPrefix string, logger *zap.Logger,
) *embeddinguc.InstrumentedEmbedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cache != nil {
		// vectors from different models must not share keys
		embedder = embcache.New(base, cache, keyPrefix+cfg.Model+":", metrics.EmbeddingCacheTotal, logger)
	}
	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)
}

func userAgent(configured string) string {
	if configured != "" {
		return configured
	}
	return "paperdex/" + version.Version
}
