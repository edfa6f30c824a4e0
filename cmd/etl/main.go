package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/rainfall-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/rainfall-etl/internal/adapter/kafka"
	"github.com/couchcryptid/rainfall-etl/internal/adapter/sheets"
	"github.com/couchcryptid/rainfall-etl/internal/config"
	"github.com/couchcryptid/rainfall-etl/internal/observability"
	"github.com/couchcryptid/rainfall-etl/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(cfg.Rules, cfg.Location, logger)

	loaders := pipeline.Fanout{writer}
	if cfg.SheetsEnabled() {
		opts, err := sheets.CredentialsOptions(cfg.CredentialsFile)
		if err != nil {
			logger.Error("failed to load sheets credentials", "error", err)
			os.Exit(1)
		}
		sheetsWriter, err := sheets.NewWriter(ctx, sheets.Options{
			SpreadsheetID: cfg.SpreadsheetID,
			EventsSheet:   cfg.EventsSheet,
			DailySheet:    cfg.DailySheet,
		}, logger, opts...)
		if err != nil {
			logger.Error("failed to create sheets writer", "error", err)
			os.Exit(1)
		}
		loaders = append(loaders, sheetsWriter)
		logger.Info("google sheets sink enabled", "spreadsheet_id", cfg.SpreadsheetID)
	} else {
		logger.Info("google sheets sink disabled")
	}

	p := pipeline.New(reader, transformer, loaders, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, transformer, logger)

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
