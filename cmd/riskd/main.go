package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/ianastafeva/quake-parametric-risk/internal/adapter/http"
	kafkaadapter "github.com/ianastafeva/quake-parametric-risk/internal/adapter/kafka"
	"github.com/ianastafeva/quake-parametric-risk/internal/adapter/usgs"
	"github.com/ianastafeva/quake-parametric-risk/internal/catalogue"
	"github.com/ianastafeva/quake-parametric-risk/internal/config"
	"github.com/ianastafeva/quake-parametric-risk/internal/observability"
	"github.com/ianastafeva/quake-parametric-risk/internal/pipeline"
)

func main() {
	// Local development convenience; production sets real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := usgs.NewClient(cfg.USGSBaseURL, cfg.USGSTimeout, logger, metrics)
	fetcher := usgs.NewCachedFetcher(client, cfg.CatalogueCacheSize, metrics)
	provider := catalogue.NewProvider(fetcher, logger)
	logger.Info("usgs catalogue client ready",
		"base_url", cfg.USGSBaseURL, "cache_size", cfg.CatalogueCacheSize, "timeout", cfg.USGSTimeout)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(provider, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, transformer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
