package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ledgerlens/internal/analytics"
	"ledgerlens/internal/backend"
	_ "ledgerlens/internal/backend/anthropic"
	_ "ledgerlens/internal/backend/ollama"
	_ "ledgerlens/internal/backend/openai"
	"ledgerlens/internal/config"
	"ledgerlens/internal/contract"
	"ledgerlens/internal/decoder"
	"ledgerlens/internal/extractor"
	"ledgerlens/internal/handler"
	"ledgerlens/internal/repository/postgres"
	"ledgerlens/internal/review"
	"ledgerlens/internal/router"
	"ledgerlens/internal/service"
)

const shutdownGrace = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Model backends, in fallback priority order.
	backends, err := backend.NewFallbackList(cfg.Backends.Fallback, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize model backends: %w", err)
	}

	// Repositories
	invoiceRepo := postgres.NewInvoiceRepo(db)
	queryExec := postgres.NewQueryExecutor(db, cfg.Analytics)

	// Core pipeline
	contracts := contract.NewRegistry()
	decoders := decoder.NewRegistry()
	orch := extractor.New(backends, contracts, logger)

	var reviewer service.Reviewer
	if cfg.Review.Enabled {
		reviewer = review.New(backend.NewFallback(backends, logger), invoiceRepo, cfg.Review, logger)
	}

	metrics := service.NewMetrics()
	invoiceSvc := service.NewInvoiceService(decoders, orch, reviewer, invoiceRepo, metrics, *cfg, logger)
	analyticsSvc := analytics.NewService(backend.NewFallback(backends, logger), queryExec, logger)

	// Handlers
	invoiceH := handler.NewInvoiceHandler(invoiceSvc, logger)
	analyticsH := handler.NewAnalyticsHandler(invoiceRepo, analyticsSvc, logger)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(logger, cfg.Server.AllowedOrigins, invoiceH, analyticsH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
