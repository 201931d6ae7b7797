package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/bounty-scope-crawler/internal/api"
	"github.com/JakeFAU/bounty-scope-crawler/internal/config"
	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
	"github.com/JakeFAU/bounty-scope-crawler/internal/extract"
	"github.com/JakeFAU/bounty-scope-crawler/internal/id/uuid"
	"github.com/JakeFAU/bounty-scope-crawler/internal/logging"
	"github.com/JakeFAU/bounty-scope-crawler/internal/metrics"
	csvstore "github.com/JakeFAU/bounty-scope-crawler/internal/storage/csv"
	gcsstore "github.com/JakeFAU/bounty-scope-crawler/internal/storage/gcs"
	"github.com/JakeFAU/bounty-scope-crawler/internal/storage/postgres"
)

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs one full scope crawl",
		Long: `Walks every listing page, visits each program, and writes the collected
domains to the output CSV. A checkpoint is written next to the output every
few programs and is picked up again by the next run.`,

		RunE: runCrawlCommand,
	}
	cmd.Flags().String("output", "", "output CSV path (overrides crawler.output)")
	cmd.Flags().Int("max-retries", 0, "attempts per backend (overrides crawler.max_retries)")
	cmd.Flags().Int("progress-interval", 0, "programs between checkpoints (overrides crawler.progress_interval)")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCrawlConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if cfg.Server.Port > 0 {
		srv := api.NewServer(rt.engine, logging.Component(logger, "api"))
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			if serveErr := srv.ListenAndServe(ctx, addr); serveErr != nil {
				logger.Error("Status server stopped", zap.Error(serveErr))
			}
		}()
	}

	err = rt.engine.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logger.Warn("Crawl interrupted; partial results were saved", zap.String("output", cfg.Crawler.Output))
	default:
		return fmt.Errorf("run crawler: %w", err)
	}

	logger.Info("Crawl command finished.",
		zap.Int("domains", rt.engine.Table().Len()),
		zap.String("output", cfg.Crawler.Output),
	)
	return nil
}

// loadCrawlConfig loads the config file and applies explicitly set flags.
func loadCrawlConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Crawler.Output, _ = flags.GetString("output")
	}
	if flags.Changed("max-retries") {
		cfg.Crawler.MaxRetries, _ = flags.GetInt("max-retries")
	}
	if flags.Changed("progress-interval") {
		cfg.Crawler.ProgressInterval, _ = flags.GetInt("progress-interval")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// crawlRuntime owns everything built for one crawl and releases it on Close.
type crawlRuntime struct {
	engine  *crawler.Engine
	closers []func()
}

func (r *crawlRuntime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func buildRuntime(ctx context.Context, cfg config.Config, logger *zap.Logger) (*crawlRuntime, error) {
	rt := &crawlRuntime{}

	fetchers, closeBackends, err := buildBackends(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, closeBackends)

	chain, err := crawler.NewChain(logging.Component(logger, "chain"), fetchers...)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("init fetch chain: %w", err)
	}
	logger.Info("Fetch chain ready", zap.Strings("backends", chain.Names()))

	extractor, err := extract.New(extract.Config{BaseURL: cfg.Site.BaseURL}, logging.Component(logger, "extract"))
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("init extractor: %w", err)
	}

	exporters, err := buildExporters(ctx, cfg, rt, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.engine = crawler.NewEngine(
		cfg.EngineConfig(),
		chain,
		extractor,
		csvstore.New(),
		exporters,
		uuid.New(),
		crawler.SystemClock{},
		logging.Component(logger, "engine"),
	)
	return rt, nil
}

func buildExporters(
	ctx context.Context,
	cfg config.Config,
	rt *crawlRuntime,
	logger *zap.Logger,
) ([]crawler.Exporter, error) {
	var exporters []crawler.Exporter

	if cfg.DB.DSN != "" {
		mirror, err := postgres.NewDomainMirror(ctx, postgres.MirrorConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
		}, crawler.SystemClock{})
		if err != nil {
			return nil, fmt.Errorf("init postgres mirror: %w", err)
		}
		rt.closers = append(rt.closers, mirror.Close)
		if err := mirror.EnsureTable(ctx); err != nil {
			return nil, fmt.Errorf("ensure mirror table: %w", err)
		}
		exporters = append(exporters, mirror)
		logger.Info("Postgres mirror enabled", zap.String("table", cfg.DB.Table))
	}

	if cfg.Storage.GCSBucket != "" {
		blobs, client, err := gcsstore.Dial(ctx, gcsstore.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs upload: %w", err)
		}
		rt.closers = append(rt.closers, func() {
			if cerr := client.Close(); cerr != nil {
				logger.Warn("Failed to close gcs client", zap.Error(cerr))
			}
		})
		uploader, err := csvstore.NewUploader("gcs", blobs, cfg.Storage.GCSPrefix)
		if err != nil {
			return nil, fmt.Errorf("init gcs upload: %w", err)
		}
		exporters = append(exporters, uploader)
		logger.Info("GCS upload enabled", zap.String("bucket", cfg.Storage.GCSBucket))
	}

	return exporters, nil
}
