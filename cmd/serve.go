package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/internal/api"
	"github.com/shelfmark/shelfmark/internal/output"
	"github.com/shelfmark/shelfmark/internal/ratings"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the annotation UI and ratings API",
		Long: `Serves the static annotation UI alongside the ratings API. Each
rating is persisted immediately, so the process can be stopped and
resumed at any point.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openRatingsStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if batch, err := output.ReadBooks(cfg.Output.BooksPath); err != nil {
		logger.Warn("books artifact not readable; run `shelfmark process` first",
			zap.String("path", cfg.Output.BooksPath),
			zap.Error(err),
		)
	} else {
		logger.Info("books artifact loaded",
			zap.String("path", cfg.Output.BooksPath),
			zap.Int("books", len(batch)),
		)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server := api.NewServer(store, api.Config{
		WebDir:    cfg.Server.WebDir,
		BooksPath: cfg.Output.BooksPath,
		Registry:  registry,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("web_dir", cfg.Server.WebDir),
			zap.String("ratings_provider", cfg.Ratings.Provider),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func openRatingsStore(ctx context.Context) (ratings.Store, error) {
	switch cfg.Ratings.Provider {
	case "postgres":
		store, err := ratings.NewPostgresStore(ctx, cfg.Ratings.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres ratings store: %w", err)
		}
		return store, nil
	default:
		store, err := ratings.NewFileStore(cfg.Ratings.Path)
		if err != nil {
			return nil, fmt.Errorf("open ratings file: %w", err)
		}
		return store, nil
	}
}
