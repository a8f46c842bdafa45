package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ledgerlens/internal/config"
	"ledgerlens/internal/contract"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/extractor"
	"ledgerlens/internal/port"
	"ledgerlens/internal/review"
	"ledgerlens/internal/service"
	"ledgerlens/mocks"
)

func serviceConfig() config.Config {
	return config.Config{
		Review: config.ReviewConfig{Enabled: true},
		Batch:  config.BatchConfig{Concurrency: 2},
	}
}

func extractionResult() *extractor.Result {
	return &extractor.Result{
		Payload: &contract.Payload{
			DocumentNumber: "INV-001",
			VendorName:     "Acme Corp",
			Subtotal:       decimal.NewFromInt(100),
			TaxAmount:      decimal.NewFromInt(19),
			Total:          decimal.NewFromInt(119),
			InvoiceDate:    time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		Contract:  domain.DocTypeStandardInvoice,
		ModelUsed: "anthropic",
		Attempts:  []extractor.Attempt{{Provider: "anthropic"}},
		Elapsed:   120 * time.Millisecond,
	}
}

func textDecoder() *mocks.MockDocumentDecoder {
	d := new(mocks.MockDocumentDecoder)
	d.On("Decode", mock.Anything, mock.Anything, mock.Anything).
		Return(&port.DecodedDocument{Text: "invoice text", PageCount: 1}, nil)
	return d
}

func lowRisk() *domain.RiskAssessment {
	return &domain.RiskAssessment{Level: domain.RiskLow, AssessedAt: time.Now().UTC()}
}

func TestSubmit_HappyPath(t *testing.T) {
	ext := new(mocks.MockExtractor)
	ext.On("Extract", mock.Anything, domain.DocTypeStandardInvoice, "invoice text").
		Return(extractionResult(), nil)

	rev := new(mocks.MockReviewer)
	rev.On("Run", mock.Anything, mock.Anything).Return(lowRisk(), nil)

	repo := new(mocks.MockInvoiceRepository)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(domain.OutcomeInserted, nil)

	svc := service.NewInvoiceService(textDecoder(), ext, rev, repo, service.NewMetrics(), serviceConfig(), zap.NewNop())

	res, err := svc.Submit(context.Background(), service.SubmitInput{
		Data:         []byte("raw"),
		ContentType:  "text/plain",
		ContractName: domain.DocTypeStandardInvoice,
		ProcessedBy:  "api",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInserted, res.Outcome)
	assert.Equal(t, "anthropic", res.Record.ModelUsed)
	assert.Equal(t, "api", res.Record.ProcessedBy)
	assert.NotNil(t, res.Record.Risk)
	assert.Empty(t, res.ReviewErr)
	assert.Greater(t, res.Record.ExtractionSeconds, 0.0)
}

func TestSubmit_ClassifiesWhenContractNotGiven(t *testing.T) {
	ext := new(mocks.MockExtractor)
	ext.On("Classify", mock.Anything, "invoice text").Return(domain.DocTypeReceipt)
	ext.On("Extract", mock.Anything, domain.DocTypeReceipt, "invoice text").
		Return(extractionResult(), nil)

	rev := new(mocks.MockReviewer)
	rev.On("Run", mock.Anything, mock.Anything).Return(lowRisk(), nil)

	repo := new(mocks.MockInvoiceRepository)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(domain.OutcomeInserted, nil)

	svc := service.NewInvoiceService(textDecoder(), ext, rev, repo, service.NewMetrics(), serviceConfig(), zap.NewNop())

	res, err := svc.Submit(context.Background(), service.SubmitInput{Data: []byte("raw"), ContentType: "text/plain"})

	require.NoError(t, err)
	assert.Equal(t, domain.DocTypeReceipt, res.Record.DocumentType)
	ext.AssertCalled(t, "Classify", mock.Anything, "invoice text")
}

func TestSubmit_ResubmissionMerges(t *testing.T) {
	ext := new(mocks.MockExtractor)
	ext.On("Extract", mock.Anything, domain.DocTypeStandardInvoice, "invoice text").
		Return(extractionResult(), nil)

	rev := new(mocks.MockReviewer)
	rev.On("Run", mock.Anything, mock.Anything).Return(lowRisk(), nil)

	// The repository contract: a merge adopts the stored row's identity.
	var storedID uuid.UUID
	storedCreatedAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := new(mocks.MockInvoiceRepository)
	repo.On("Upsert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			rec := args.Get(1).(*domain.InvoiceRecord)
			rec.ID = uuid.New()
			storedID = rec.ID
		}).
		Return(domain.OutcomeInserted, nil).Once()
	repo.On("Upsert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			rec := args.Get(1).(*domain.InvoiceRecord)
			rec.ID = storedID
			rec.CreatedAt = storedCreatedAt
		}).
		Return(domain.OutcomeMerged, nil).Once()

	svc := service.NewInvoiceService(textDecoder(), ext, rev, repo, service.NewMetrics(), serviceConfig(), zap.NewNop())

	in := service.SubmitInput{Data: []byte("raw"), ContentType: "text/plain", ContractName: domain.DocTypeStandardInvoice}

	first, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeInserted, first.Outcome)
	assert.Equal(t, domain.OutcomeMerged, second.Outcome)
	num1, vendor1 := first.Record.NaturalKey()
	num2, vendor2 := second.Record.NaturalKey()
	assert.Equal(t, num1, num2)
	assert.Equal(t, vendor1, vendor2)

	// The response for the resubmission carries the stored row's identity,
	// not a freshly generated one.
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Equal(t, storedCreatedAt, second.Record.CreatedAt)
}

func TestSubmit_ReviewFailurePersistsUnscored(t *testing.T) {
	ext := new(mocks.MockExtractor)
	ext.On("Extract", mock.Anything, mock.Anything, mock.Anything).Return(extractionResult(), nil)

	rev := new(mocks.MockReviewer)
	rev.On("Run", mock.Anything, mock.Anything).
		Return(nil, &review.StageError{Stage: review.StageAssessing, Err: errors.New("backend down")})

	repo := new(mocks.MockInvoiceRepository)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(rec *domain.InvoiceRecord) bool {
		return rec.Risk == nil
	})).Return(domain.OutcomeInserted, nil)

	svc := service.NewInvoiceService(textDecoder(), ext, rev, repo, service.NewMetrics(), serviceConfig(), zap.NewNop())

	res, err := svc.Submit(context.Background(), service.SubmitInput{
		Data: []byte("raw"), ContentType: "text/plain", ContractName: domain.DocTypeStandardInvoice,
	})

	require.NoError(t, err)
	assert.Nil(t, res.Record.Risk)
	assert.Contains(t, res.ReviewErr, "assessing")
	repo.AssertExpectations(t)
}

func TestSubmit_ExtractionExhaustionPropagates(t *testing.T) {
	ext := new(mocks.MockExtractor)
	ext.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &extractor.ExhaustedError{Contract: domain.DocTypeStandardInvoice})

	repo := new(mocks.MockInvoiceRepository)

	svc := service.NewInvoiceService(textDecoder(), ext, new(mocks.MockReviewer), repo, service.NewMetrics(), serviceConfig(), zap.NewNop())

	_, err := svc.Submit(context.Background(), service.SubmitInput{
		Data: []byte("raw"), ContentType: "text/plain", ContractName: domain.DocTypeStandardInvoice,
	})

	var exhausted *extractor.ExhaustedError
	assert.True(t, errors.As(err, &exhausted))
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSubmitBatch_OneFailureDoesNotAbortOthers(t *testing.T) {
	ext := new(mocks.MockExtractor)
	ext.On("Extract", mock.Anything, mock.Anything, "invoice text").
		Return(extractionResult(), nil)

	rev := new(mocks.MockReviewer)
	rev.On("Run", mock.Anything, mock.Anything).Return(lowRisk(), nil)

	repo := new(mocks.MockInvoiceRepository)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(domain.OutcomeInserted, nil)

	decoder := new(mocks.MockDocumentDecoder)
	decoder.On("Decode", mock.Anything, []byte("bad"), mock.Anything).
		Return(nil, domain.ErrUnsupportedMime)
	decoder.On("Decode", mock.Anything, mock.Anything, mock.Anything).
		Return(&port.DecodedDocument{Text: "invoice text", PageCount: 1}, nil)

	svc := service.NewInvoiceService(decoder, ext, rev, repo, service.NewMetrics(), serviceConfig(), zap.NewNop())

	results := svc.SubmitBatch(context.Background(), []service.SubmitInput{
		{Data: []byte("good-1"), ContentType: "text/plain", ContractName: domain.DocTypeStandardInvoice},
		{Data: []byte("bad"), ContentType: "application/pdf", ContractName: domain.DocTypeStandardInvoice},
		{Data: []byte("good-2"), ContentType: "text/plain", ContractName: domain.DocTypeStandardInvoice},
	})

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.NotNil(t, results[0].Result)
	assert.Nil(t, results[1].Result)
}

func TestMetrics_SnapshotCounts(t *testing.T) {
	m := service.NewMetrics()
	m.Record(true, 1.0, "anthropic", domain.DocTypeStandardInvoice)
	m.Record(true, 3.0, "openai", domain.DocTypeReceipt)
	m.Record(false, 2.0, "", domain.DocTypeStandardInvoice)

	snap := m.Snapshot()

	assert.Equal(t, 3, snap.Last24Hours.TotalProcessed)
	assert.InDelta(t, 2.0, snap.Last24Hours.AverageSeconds, 0.001)
	assert.InDelta(t, 66.6, snap.Last24Hours.SuccessRatePct, 0.1)
	assert.Equal(t, 3, snap.AllTime.TotalProcessed)
	assert.Equal(t, 2, snap.AllTime.DocumentTypes[domain.DocTypeStandardInvoice])
	assert.Equal(t, 1, snap.Last24Hours.ModelsUsed["anthropic"])
}
