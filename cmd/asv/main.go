package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/asv-water-quality-service/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/asv-water-quality-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/asv-water-quality-service/internal/adapter/kafka"
	"github.com/couchcryptid/asv-water-quality-service/internal/adapter/memstore"
	"github.com/couchcryptid/asv-water-quality-service/internal/analytics"
	"github.com/couchcryptid/asv-water-quality-service/internal/config"
	"github.com/couchcryptid/asv-water-quality-service/internal/domain"
	"github.com/couchcryptid/asv-water-quality-service/internal/observability"
	"github.com/couchcryptid/asv-water-quality-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store := memstore.New()

	// Cleaned copies go to CLEANED_DIR and, when enabled, to Kafka.
	var sinks []pipeline.Sink
	if cfg.CleanedDir != "" {
		sinks = append(sinks, csvfile.NewWriter(cfg.CleanedDir, logger))
		logger.Info("cleaned csv export enabled", "dir", cfg.CleanedDir)
	}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, writer)
		logger.Info("kafka export enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(
		csvfile.NewReader(),
		domain.NewCleaner(cfg.ZScoreThreshold),
		store,
		sinks,
		logger,
		metrics,
		pipeline.Options{
			ContinueOnError: cfg.LoadPolicy == config.LoadPolicyContinue,
			Workers:         cfg.LoadWorkers,
			SinkMaxAttempts: cfg.SinkMaxAttempts,
		},
	)

	svc := analytics.NewService(store, logger, metrics, cfg.CacheSize)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sources := make([]domain.Source, len(cfg.SourceFiles))
	for i, path := range cfg.SourceFiles {
		sources[i] = domain.NewSource(path)
	}
	if _, err := p.Load(ctx, sources); err != nil {
		logger.Error("startup load failed", "error", err, "policy", cfg.LoadPolicy)
		closeWriter(writer, logger)
		os.Exit(1)
	}
	// Sinks are only used during the startup load.
	closeWriter(writer, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func closeWriter(w *kafkaadapter.Writer, logger *slog.Logger) {
	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
}
