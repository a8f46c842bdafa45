// Package service coordinates the document flow: decode, classify, extract,
// review, persist.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ledgerlens/internal/config"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/extractor"
	"ledgerlens/internal/port"
	"ledgerlens/internal/review"
)

// Extractor is the orchestration surface the service consumes.
type Extractor interface {
	Extract(ctx context.Context, contractName, documentText string) (*extractor.Result, error)
	Classify(ctx context.Context, documentText string) string
}

// Reviewer runs the risk pipeline over an extracted record.
type Reviewer interface {
	Run(ctx context.Context, rec *domain.InvoiceRecord) (*domain.RiskAssessment, error)
}

// SubmitInput is the DTO for one document submission.
type SubmitInput struct {
	Data         []byte
	ContentType  string
	ContractName string // empty = classify first
	ProcessedBy  string
	SkipReview   bool
}

// SubmitResult is the outcome of one submission. ReviewErr is set when the
// review pipeline failed and the record was persisted unscored.
type SubmitResult struct {
	Record    *domain.InvoiceRecord `json:"record"`
	Outcome   domain.UpsertOutcome  `json:"outcome"`
	Attempts  []extractor.Attempt   `json:"attempts,omitempty"`
	ReviewErr string                `json:"review_error,omitempty"`
}

// BatchItemResult pairs one batch entry with its outcome.
type BatchItemResult struct {
	Index  int           `json:"index"`
	Result *SubmitResult `json:"result,omitempty"`
	Err    error         `json:"-"`
	Error  string        `json:"error,omitempty"`
}

// InvoiceService is the submission entry point.
type InvoiceService struct {
	decoder   port.DocumentDecoder
	extractor Extractor
	reviewer  Reviewer
	repo      port.InvoiceRepository
	metrics   *Metrics
	cfg       config.Config
	logger    *zap.Logger
}

// NewInvoiceService wires the submission flow.
func NewInvoiceService(
	decoder port.DocumentDecoder,
	ext Extractor,
	reviewer Reviewer,
	repo port.InvoiceRepository,
	metrics *Metrics,
	cfg config.Config,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		decoder:   decoder,
		extractor: ext,
		reviewer:  reviewer,
		repo:      repo,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger.Named("invoice_service"),
	}
}

// Submit runs one document end to end. Review failure does not block
// persistence: the record is stored unscored and the failure is reported in
// the result.
func (s *InvoiceService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	doc, err := s.decoder.Decode(ctx, in.Data, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}

	contractName := in.ContractName
	if contractName == "" {
		contractName = s.extractor.Classify(ctx, doc.Text)
	}

	extractStart := time.Now()
	res, err := s.extractor.Extract(ctx, contractName, doc.Text)
	if err != nil {
		s.metrics.Record(false, time.Since(extractStart).Seconds(), "", contractName)
		return nil, err
	}

	rec := res.Payload.ToRecord(contractName)
	rec.ModelUsed = res.ModelUsed
	rec.ProcessedBy = in.ProcessedBy
	rec.ExtractionSeconds = res.Elapsed.Seconds()

	result := &SubmitResult{Attempts: res.Attempts}

	if s.cfg.Review.Enabled && !in.SkipReview && s.reviewer != nil {
		reviewStart := time.Now()
		risk, rerr := s.reviewer.Run(ctx, rec)
		rec.AnalysisSeconds = time.Since(reviewStart).Seconds()
		if rerr != nil {
			var serr *review.StageError
			stage := "unknown"
			if errors.As(rerr, &serr) {
				stage = serr.Stage
			}
			s.logger.Warn("review failed, persisting unscored record",
				zap.String("document_number", rec.DocumentNumber),
				zap.String("vendor", rec.VendorName),
				zap.String("stage", stage),
				zap.Error(rerr))
			result.ReviewErr = rerr.Error()
		} else {
			rec.Risk = risk
		}
	}

	outcome, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		s.metrics.Record(false, rec.ExtractionSeconds+rec.AnalysisSeconds, rec.ModelUsed, rec.DocumentType)
		return nil, fmt.Errorf("persisting record: %w", err)
	}

	s.metrics.Record(true, rec.ExtractionSeconds+rec.AnalysisSeconds, rec.ModelUsed, rec.DocumentType)
	s.logger.Info("document processed",
		zap.String("document_number", rec.DocumentNumber),
		zap.String("vendor", rec.VendorName),
		zap.String("document_type", rec.DocumentType),
		zap.String("model", rec.ModelUsed),
		zap.String("outcome", string(outcome)))

	result.Record = rec
	result.Outcome = outcome
	return result, nil
}

// SubmitBatch processes submissions concurrently with a bounded worker count.
// One failed item never aborts the rest; each slot carries its own outcome.
func (s *InvoiceService) SubmitBatch(ctx context.Context, items []SubmitInput) []BatchItemResult {
	results := make([]BatchItemResult, len(items))

	g, ctx := errgroup.WithContext(ctx)
	limit := s.cfg.Batch.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			res, err := s.Submit(ctx, item)
			results[i] = BatchItemResult{Index: i, Result: res, Err: err}
			if err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	return results
}

// ClassifyDocument decodes the document and returns its best-guess contract
// name without running extraction.
func (s *InvoiceService) ClassifyDocument(ctx context.Context, data []byte, contentType string) (string, error) {
	doc, err := s.decoder.Decode(ctx, data, contentType)
	if err != nil {
		return "", fmt.Errorf("decoding document: %w", err)
	}
	return s.extractor.Classify(ctx, doc.Text), nil
}

// Metrics exposes the collector for the metrics endpoint.
func (s *InvoiceService) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}
