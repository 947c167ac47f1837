package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/adcirc-compoundness-service/internal/adapter/kafka"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/adapter/netcdf"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/config"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/ingest"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/observability"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	loader := ingest.NewCachedLoader(
		ingest.NewFileLoader(netcdf.WithParallelism(cfg.Parallelism)),
		cfg.DatasetCacheSize,
		metrics,
	)
	analyzer := pipeline.NewAnalyzer(loader, pipeline.Defaults{
		StrictIngest:  cfg.StrictIngest,
		StrictCompute: cfg.StrictCompute,
		Elevation:     cfg.Elevation,
		Chunks:        cfg.Chunks,
		DataRoot:      cfg.DataRoot,
	}, logger, metrics)
	logger.Info("analyzer configured",
		"strict_ingest", cfg.StrictIngest,
		"strict_compute", cfg.StrictCompute,
		"elevation", cfg.Elevation,
		"data_root", cfg.DataRoot,
		"cache_size", cfg.DatasetCacheSize,
	)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(reader, analyzer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, analyzer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

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
