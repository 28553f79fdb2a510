package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/prevailing-winds/internal/adapter/graphql"
	httpadapter "github.com/couchcryptid/prevailing-winds/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/prevailing-winds/internal/adapter/kafka"
	"github.com/couchcryptid/prevailing-winds/internal/config"
	"github.com/couchcryptid/prevailing-winds/internal/observability"
	"github.com/couchcryptid/prevailing-winds/internal/pipeline"
	"github.com/couchcryptid/prevailing-winds/internal/scheduler"
	"github.com/couchcryptid/prevailing-winds/internal/selection"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	area, err := config.LoadArea(cfg.BinCatalogPath, cfg.SuppressCalm)
	if err != nil {
		logger.Error("failed to load bin catalogs", "error", err)
		os.Exit(1)
	}
	state, err := selection.New(area.Selector, cfg.InitialZoom, nil)
	if err != nil {
		logger.Error("failed to create selection state", "error", err)
		os.Exit(1)
	}

	client := graphql.NewClient(cfg.DataAPIURL, cfg.DataAPITimeout, logger, metrics)
	source := graphql.NewCachedSource(client, cfg.WeatherCacheSize, cfg.MetadataTTL, nil, metrics)
	logger.Info("data api configured", "url", cfg.DataAPIURL, "cache_size", cfg.WeatherCacheSize, "timeout", cfg.DataAPITimeout)

	// Summary publishing is feature-flagged via KAFKA_ENABLED.
	var (
		publisher pipeline.SummaryPublisher
		writer    *kafkaadapter.Publisher
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewPublisher(cfg, logger)
		publisher = writer
		logger.Info("summary publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSummaryTopic)
	} else {
		logger.Info("summary publishing disabled")
	}

	p := pipeline.New(source, state, publisher, area.Catalogs, cfg.MaxQueryCells, logger, metrics)
	sched := scheduler.New(p, cfg.MetadataRefreshInterval, 2*cfg.DataAPITimeout, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start selection pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	if err := sched.Start(); err != nil {
		logger.Error("failed to schedule metadata refresh", "error", err)
		stop()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
