// Command backfill runs the risk review pipeline over stored invoices that
// have no risk assessment yet, typically because review was disabled or a
// backend was down when they were submitted.
// Usage: go run ./cmd/backfill
package main

import (
	"context"
	"fmt"
	"os"

	"ledgerlens/internal/backend"
	_ "ledgerlens/internal/backend/anthropic"
	_ "ledgerlens/internal/backend/ollama"
	_ "ledgerlens/internal/backend/openai"
	"ledgerlens/internal/config"
	"ledgerlens/internal/repository/postgres"
	"ledgerlens/internal/review"
)

const batchSize = 100

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar().Named("backfill")

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	backends, err := backend.NewFallbackList(cfg.Backends.Fallback, logger)
	if err != nil {
		return fmt.Errorf("initializing model backends: %w", err)
	}

	repo := postgres.NewInvoiceRepo(db)
	pipeline := review.New(backend.NewFallback(backends, logger), repo, cfg.Review, logger)

	ctx := context.Background()
	offset := 0
	total := 0
	failed := 0

	for {
		var keys []struct {
			DocumentNumber string `db:"document_number"`
			VendorName     string `db:"vendor_name"`
		}
		err := db.SelectContext(ctx, &keys,
			`SELECT document_number, vendor_name
			 FROM invoices
			 WHERE risk_level IS NULL
			 ORDER BY created_at
			 LIMIT $1 OFFSET $2`, batchSize, offset)
		if err != nil {
			return fmt.Errorf("querying unscored invoices at offset %d: %w", offset, err)
		}
		if len(keys) == 0 {
			break
		}

		for _, k := range keys {
			rec, err := repo.GetByNaturalKey(ctx, k.DocumentNumber, k.VendorName)
			if err != nil {
				log.Warnw("skipping invoice",
					"document_number", k.DocumentNumber, "vendor", k.VendorName, "error", err)
				failed++
				continue
			}

			risk, err := pipeline.Run(ctx, rec)
			if err != nil {
				log.Warnw("review failed",
					"document_number", k.DocumentNumber, "vendor", k.VendorName, "error", err)
				failed++
				continue
			}
			rec.Risk = risk

			if _, err := repo.Upsert(ctx, rec); err != nil {
				return fmt.Errorf("persisting review for %s / %s: %w", k.DocumentNumber, k.VendorName, err)
			}
			total++
		}

		// Reviewed rows drop out of the unscored set; only rows that failed
		// and stayed unscored need skipping on the next pass.
		offset = failed
	}

	log.Infow("backfill complete", "reviewed", total, "skipped", failed)
	return nil
}
