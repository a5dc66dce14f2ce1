package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/app"
	"github.com/kailas-cloud/paperdex/internal/config"
	"github.com/kailas-cloud/paperdex/internal/domain/paper"
	logpkg "github.com/kailas-cloud/paperdex/internal/logger"
	"github.com/kailas-cloud/paperdex/internal/usecase/backfill"
	"github.com/kailas-cloud/paperdex/internal/usecase/ingest"
	"github.com/kailas-cloud/paperdex/internal/version"
)

// remoteIngester is the slice of the ingest pipeline a crawl needs.
type remoteIngester interface {
	IngestRemote(ctx context.Context, req paper.FetchRequest) (ingest.Result, error)
}

func newRootCmd() *cobra.Command {
	var env string

	rootCmd := &cobra.Command{
		Use:           "paperctl",
		Short:         "Maintenance jobs for the paperdex store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Config environment (defaults to $ENV or local)")

	withApp := func(run func(ctx context.Context, a *app.App, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			if env == "" {
				env = config.GetEnv()
			}
			cfg, err := config.Load(env)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(ctx, a, cmd.OutOrStdout())
		}
	}

	crawlCmd := &cobra.Command{
		Use:   "crawl",
		Short: "Ingest the latest papers of every configured category",
		RunE: withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
			return crawl(ctx, a.Ingest, a.Config.Crawl, a.Logger, out)
		}),
	}

	var batchSize int
	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Complete records stored without embeddings or metadata",
	}
	backfillCmd.PersistentFlags().IntVar(&batchSize, "batch-size", backfill.DefaultBatchSize, "Records per page")

	embeddingsCmd := &cobra.Command{
		Use:   "embeddings",
		Short: "Compute embeddings for records that have none",
		RunE: withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
			st, err := a.Backfill.EmbedMissing(ctx, batchSize)
			printStats(out, "embeddings", st)
			return err
		}),
	}
	metadataCmd := &cobra.Command{
		Use:   "metadata",
		Short: "Fetch authors, categories and dates for records missing them",
		RunE: withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
			st, err := a.Backfill.EnrichMetadata(ctx, batchSize)
			printStats(out, "metadata", st)
			return err
		}),
	}
	backfillCmd.AddCommand(embeddingsCmd, metadataCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "paperctl", version.String())
		},
	}

	rootCmd.AddCommand(crawlCmd, backfillCmd, versionCmd)
	return rootCmd
}

// crawl ingests each category in turn. A failing category is logged and the
// crawl moves on; the run fails only if every category failed.
func crawl(ctx context.Context, ing remoteIngester, cfg config.CrawlConfig, logger *zap.Logger, out io.Writer) error {
	var created, skipped, invalid, failed int
	for _, cat := range cfg.Categories {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := ing.IngestRemote(ctx, paper.FetchRequest{Category: cat, MaxResults: cfg.MaxResults})
		created += len(res.Created)
		skipped += res.Skipped
		invalid += res.Failed
		if err != nil {
			failed++
			logger.Warn("Crawl category failed", zap.String("category", cat), zap.Error(err))
			continue
		}
		logger.Info("Crawled category",
			zap.String("category", cat),
			zap.Int("created", len(res.Created)),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
		)
	}
	fmt.Fprintf(out, "crawl: created=%d skipped=%d failed=%d\n", created, skipped, invalid)
	if len(cfg.Categories) > 0 && failed == len(cfg.Categories) {
		return fmt.Errorf("all %d categories failed", failed)
	}
	return nil
}

func printStats(out io.Writer, job string, st backfill.Stats) {
	fmt.Fprintf(out, "%s: processed=%d updated=%d failed=%d\n", job, st.Processed, st.Updated, st.Failed)
}
