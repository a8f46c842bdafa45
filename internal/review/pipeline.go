// Package review runs persisted-ready invoice records through a sequential
// validate, assess, report pipeline and produces a risk assessment. The
// assessed level is monotone: no later stage can lower what an earlier stage
// established.
package review

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ledgerlens/internal/config"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

// Stage names, in execution order.
const (
	StageValidating = "validating"
	StageAssessing  = "assessing"
	StageReporting  = "reporting"
)

// StageError wraps a stage failure so callers can tell which stage broke and
// decide whether to persist the record unscored.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("review stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Pipeline executes the three review stages. The backend is consulted once
// per stage; the repository supplies vendor history for the assessment
// heuristics.
type Pipeline struct {
	backend port.ModelBackend
	repo    port.InvoiceRepository
	cfg     config.ReviewConfig
	logger  *zap.Logger
}

// New creates a review pipeline.
func New(backend port.ModelBackend, repo port.InvoiceRepository, cfg config.ReviewConfig, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		backend: backend,
		repo:    repo,
		cfg:     cfg,
		logger:  logger.Named("review"),
	}
}

// Run reviews one record and returns its risk assessment. The record's
// financial fields are never mutated. On stage failure the returned error is
// a *StageError and no assessment is produced.
func (p *Pipeline) Run(ctx context.Context, rec *domain.InvoiceRecord) (*domain.RiskAssessment, error) {
	validation, err := p.validate(ctx, rec)
	if err != nil {
		return nil, &StageError{Stage: StageValidating, Err: err}
	}

	assessment, err := p.assess(ctx, rec, validation)
	if err != nil {
		return nil, &StageError{Stage: StageAssessing, Err: err}
	}

	narrative, err := p.report(ctx, rec, validation, assessment)
	if err != nil {
		return nil, &StageError{Stage: StageReporting, Err: err}
	}

	p.logger.Info("review complete",
		zap.String("document_number", rec.DocumentNumber),
		zap.String("vendor", rec.VendorName),
		zap.String("risk_level", string(assessment.level)),
		zap.Int("risk_score", assessment.score))

	return &domain.RiskAssessment{
		Level:             assessment.level,
		Score:             assessment.score,
		Factors:           assessment.factors,
		Issues:            validation.issues,
		CompletenessScore: validation.completeness,
		Narrative:         narrative,
		AssessedAt:        time.Now().UTC(),
	}, nil
}
