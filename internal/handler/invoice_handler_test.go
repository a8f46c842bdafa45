package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"ledgerlens/internal/config"
	"ledgerlens/internal/contract"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/extractor"
	"ledgerlens/internal/handler"
	"ledgerlens/internal/port"
	"ledgerlens/internal/service"
	"ledgerlens/mocks"
)

func invoiceRouter(ext *mocks.MockExtractor, repo *mocks.MockInvoiceRepository) *gin.Engine {
	dec := new(mocks.MockDocumentDecoder)
	dec.On("Decode", mock.Anything, mock.Anything, mock.Anything).
		Return(&port.DecodedDocument{Text: "invoice text", PageCount: 1}, nil)

	svc := service.NewInvoiceService(dec, ext, nil, repo, service.NewMetrics(),
		config.Config{Batch: config.BatchConfig{Concurrency: 2}}, zap.NewNop())
	h := handler.NewInvoiceHandler(svc, zap.NewNop())

	r := gin.New()
	r.POST("/documents", h.Submit)
	r.POST("/documents/classify", h.Classify)
	r.GET("/metrics", h.Metrics)
	return r
}

func submittedResult() *extractor.Result {
	return &extractor.Result{
		Payload: &contract.Payload{
			DocumentNumber: "INV-001",
			VendorName:     "Acme Corp",
			Subtotal:       decimal.NewFromInt(100),
			Total:          decimal.NewFromInt(100),
			InvoiceDate:    time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		Contract:  domain.DocTypeStandardInvoice,
		ModelUsed: "anthropic",
	}
}

func TestInvoiceHandler_Submit(t *testing.T) {
	ext := new(mocks.MockExtractor)
	ext.On("Extract", mock.Anything, domain.DocTypeStandardInvoice, "invoice text").
		Return(submittedResult(), nil)
	repo := new(mocks.MockInvoiceRepository)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(domain.OutcomeInserted, nil)

	r := invoiceRouter(ext, repo)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost,
		"/documents?document_type=standard_invoice", bytes.NewBufferString("some invoice"))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp handler.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	repo.AssertExpectations(t)
}

func TestInvoiceHandler_Submit_ExhaustedMapsTo502(t *testing.T) {
	ext := new(mocks.MockExtractor)
	ext.On("Extract", mock.Anything, domain.DocTypeStandardInvoice, "invoice text").
		Return((*extractor.Result)(nil), &extractor.ExhaustedError{Contract: domain.DocTypeStandardInvoice})
	repo := new(mocks.MockInvoiceRepository)

	r := invoiceRouter(ext, repo)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost,
		"/documents?document_type=standard_invoice", bytes.NewBufferString("some invoice"))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "ALL_BACKENDS_EXHAUSTED")
	repo.AssertNotCalled(t, "Upsert")
}

func TestInvoiceHandler_Classify(t *testing.T) {
	ext := new(mocks.MockExtractor)
	ext.On("Classify", mock.Anything, "invoice text").Return(domain.DocTypeCreditNote)

	r := invoiceRouter(ext, new(mocks.MockInvoiceRepository))
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/documents/classify", bytes.NewBufferString("credit note text"))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), domain.DocTypeCreditNote)
}

func TestInvoiceHandler_Metrics(t *testing.T) {
	r := invoiceRouter(new(mocks.MockExtractor), new(mocks.MockInvoiceRepository))
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "all_time")
}
