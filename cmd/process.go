package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/internal/books"
	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/enrich"
	"github.com/shelfmark/shelfmark/internal/ingest"
	"github.com/shelfmark/shelfmark/internal/output"
	"github.com/shelfmark/shelfmark/internal/progress"
	"github.com/shelfmark/shelfmark/internal/progress/sinks"
)

func newProcessCmd() *cobra.Command {
	var (
		outPath  string
		noCovers bool
	)

	cmd := &cobra.Command{
		Use:   "process <export.csv>",
		Short: "Parse a reading-history export and enrich it with cover URLs",
		Long: `Parses the CSV export, keeps the finished books, resolves a cover
image for each one against the catalog, and writes the result as a
JSON artifact for the annotation UI.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath != "" {
				cfg.Output.BooksPath = outPath
			}
			if noCovers {
				cfg.Enrich.Skip = true
			}
			return runProcess(cmd.Context(), args[0])
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path for the books artifact (default from config)")
	cmd.Flags().BoolVar(&noCovers, "no-covers", false, "skip cover resolution; records pass through unchanged")

	return cmd
}

func runProcess(parent context.Context, csvPath string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	logger.Info("parsing export", zap.String("path", csvPath))
	batch, err := ingest.NewReader(logger).Read(f)
	if err != nil {
		return fmt.Errorf("parse export: %w", err)
	}
	logger.Info("export parsed", zap.Int("books", len(batch)))

	store := books.NewStore(batch)
	counters, err := enrichCovers(ctx, store)
	if err != nil {
		return err
	}
	if counters.Total() > 0 {
		logger.Info("covers resolved",
			zap.Int("resolved", counters.Resolved),
			zap.Int("absent", counters.Absent),
		)
	}

	if err := output.WriteBooks(cfg.Output.BooksPath, store.List()); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	logger.Info("artifact written",
		zap.String("path", cfg.Output.BooksPath),
		zap.Int("books", store.Len()),
		zap.Int("with_covers", store.CountWithCovers()),
	)
	return nil
}

func enrichCovers(ctx context.Context, store *books.Store) (books.RunCounters, error) {
	fetcher, err := catalog.NewCollyFetcher(catalog.FetcherConfig{
		UserAgent:   cfg.Catalog.UserAgent,
		Delay:       cfg.Catalog.RequestDelay(),
		MaxParallel: cfg.Enrich.Concurrency,
	}, logger)
	if err != nil {
		return books.RunCounters{}, fmt.Errorf("init catalog fetcher: %w", err)
	}

	client := catalog.NewClient(
		fetcher,
		catalog.NewBackoffPolicy(cfg.Catalog.BackoffUnit()),
		catalog.Config{
			APIBase:        cfg.Catalog.APIBase,
			CoversBase:     cfg.Catalog.CoversBase,
			VerifyTimeout:  cfg.Catalog.VerifyTimeout(),
			SearchTimeout:  cfg.Catalog.SearchTimeout(),
			VerifyAttempts: cfg.Catalog.VerifyAttempts,
			SearchAttempts: cfg.Catalog.SearchAttempts,
			MinCoverBytes:  cfg.Catalog.MinCoverBytes,
		},
		logger,
	)

	promSink, err := sinks.NewPrometheusSink(prometheus.NewRegistry())
	if err != nil {
		return books.RunCounters{}, fmt.Errorf("init metrics sink: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger}, sinks.NewLogSink(logger.Named("progress")), promSink)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("progress hub close failed", zap.Error(err))
		}
	}()

	scheduler := enrich.NewScheduler(
		enrich.NewResolver(client, logger),
		enrich.Config{
			Concurrency: cfg.Enrich.Concurrency,
			ReportEvery: cfg.Enrich.ReportEvery,
			Skip:        cfg.Enrich.Skip,
		},
		hub,
		logger,
	)

	counters, err := scheduler.Run(ctx, store)
	if err != nil {
		return counters, fmt.Errorf("enrich covers: %w", err)
	}
	return counters, nil
}
