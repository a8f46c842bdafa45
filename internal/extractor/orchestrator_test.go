package extractor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ledgerlens/internal/backend"
	"ledgerlens/internal/contract"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/extractor"
	"ledgerlens/internal/port"
	"ledgerlens/mocks"
)

const validInvoiceJSON = `{
	"invoice_number": "INV-001",
	"invoice_date": "2025-03-14",
	"vendor_name": "Acme Corp",
	"subtotal": 100,
	"total_amount": 119
}`

func newBackend(name string) *mocks.MockModelBackend {
	b := new(mocks.MockModelBackend)
	b.On("Name").Return(name)
	return b
}

func TestOrchestrator_FirstBackendWins(t *testing.T) {
	b1 := newBackend("anthropic")
	b2 := newBackend("openai")
	b1.On("Complete", mock.Anything, mock.Anything).Return(validInvoiceJSON, nil)

	o := extractor.New(
		[]port.ModelBackend{b1, b2},
		contract.NewRegistry(),
		zap.NewNop(),
	)

	res, err := o.Extract(context.Background(), domain.DocTypeStandardInvoice, "some document text")

	require.NoError(t, err)
	assert.Equal(t, "anthropic", res.ModelUsed)
	assert.Equal(t, "INV-001", res.Payload.DocumentNumber)
	assert.Len(t, res.Attempts, 1)
	b2.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestOrchestrator_MalformedOutputFallsThrough(t *testing.T) {
	b1 := newBackend("anthropic")
	b2 := newBackend("openai")
	b1.On("Complete", mock.Anything, mock.Anything).Return("not json at all", nil)
	b2.On("Complete", mock.Anything, mock.Anything).Return("```json\n"+validInvoiceJSON+"\n```", nil)

	o := extractor.New(
		[]port.ModelBackend{b1, b2},
		contract.NewRegistry(),
		zap.NewNop(),
	)

	res, err := o.Extract(context.Background(), domain.DocTypeStandardInvoice, "doc")

	require.NoError(t, err)
	assert.Equal(t, "openai", res.ModelUsed)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, backend.KindMalformed, res.Attempts[0].Kind)
}

func TestOrchestrator_AllBackendsExhausted(t *testing.T) {
	b1 := newBackend("anthropic")
	b2 := newBackend("openai")
	b3 := newBackend("ollama")
	timeout := backend.NewError("backend", backend.KindTimeout, context.DeadlineExceeded)
	b1.On("Complete", mock.Anything, mock.Anything).Return("", timeout)
	b2.On("Complete", mock.Anything, mock.Anything).Return("", timeout)
	b3.On("Complete", mock.Anything, mock.Anything).Return("", timeout)

	o := extractor.New(
		[]port.ModelBackend{b1, b2, b3},
		contract.NewRegistry(),
		zap.NewNop(),
	)

	_, err := o.Extract(context.Background(), domain.DocTypeStandardInvoice, "doc")

	var exhausted *extractor.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.Len(t, exhausted.Attempts, 3)
	for _, a := range exhausted.Attempts {
		assert.Equal(t, backend.KindTimeout, a.Kind)
	}
}

func TestOrchestrator_RateLimitedBackendSkippedOnNextRun(t *testing.T) {
	b1 := newBackend("anthropic")
	b2 := newBackend("openai")
	b1.On("Complete", mock.Anything, mock.Anything).
		Return("", backend.NewRateLimitError("anthropic", errors.New("429"), 60)).Once()
	b2.On("Complete", mock.Anything, mock.Anything).Return(validInvoiceJSON, nil)

	o := extractor.New(
		[]port.ModelBackend{b1, b2},
		contract.NewRegistry(),
		zap.NewNop(),
	)

	res, err := o.Extract(context.Background(), domain.DocTypeStandardInvoice, "doc")
	require.NoError(t, err)
	assert.Equal(t, "openai", res.ModelUsed)

	// Second run within the backoff window must not touch the limited backend.
	res, err = o.Extract(context.Background(), domain.DocTypeStandardInvoice, "doc")
	require.NoError(t, err)
	assert.Equal(t, "openai", res.ModelUsed)
	b1.AssertNumberOfCalls(t, "Complete", 1)
}

func TestOrchestrator_UnknownContract(t *testing.T) {
	o := extractor.New(nil, contract.NewRegistry(), zap.NewNop())

	_, err := o.Extract(context.Background(), "purchase_order", "doc")

	assert.ErrorIs(t, err, domain.ErrUnknownContract)
}

func TestOrchestrator_ClassifyMatchesContract(t *testing.T) {
	b1 := newBackend("anthropic")
	b1.On("Complete", mock.Anything, mock.Anything).Return("credit_note", nil)

	o := extractor.New(
		[]port.ModelBackend{b1},
		contract.NewRegistry(),
		zap.NewNop(),
	)

	assert.Equal(t, domain.DocTypeCreditNote, o.Classify(context.Background(), "doc"))
}

func TestOrchestrator_ClassifyFallsBackToStandardInvoice(t *testing.T) {
	b1 := newBackend("anthropic")
	b1.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("boom"))

	o := extractor.New(
		[]port.ModelBackend{b1},
		contract.NewRegistry(),
		zap.NewNop(),
	)

	assert.Equal(t, domain.DocTypeStandardInvoice, o.Classify(context.Background(), "doc"))
}
