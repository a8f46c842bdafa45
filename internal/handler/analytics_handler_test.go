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

	"ledgerlens/internal/analytics"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/handler"
	"ledgerlens/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func analyticsRouter(repo *mocks.MockInvoiceRepository, asker *analytics.Service) *gin.Engine {
	h := handler.NewAnalyticsHandler(repo, asker, zap.NewNop())
	r := gin.New()
	r.GET("/analytics/vendors/:vendor/invoices", h.VendorInvoices)
	r.GET("/analytics/vendors/:vendor/aggregate", h.VendorAggregate)
	r.GET("/analytics/high-risk", h.HighRisk)
	r.GET("/analytics/stats", h.Stats)
	r.POST("/chat", h.Chat)
	return r
}

func TestAnalyticsHandler_VendorInvoices(t *testing.T) {
	repo := new(mocks.MockInvoiceRepository)
	repo.On("ListByVendor", mock.Anything, "Acme Corp", mock.Anything, mock.Anything).
		Return([]domain.InvoiceRecord{
			{DocumentNumber: "INV-001", VendorName: "Acme Corp", Total: decimal.NewFromInt(500)},
		}, nil)

	r := analyticsRouter(repo, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/analytics/vendors/Acme%20Corp/invoices", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp handler.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	repo.AssertExpectations(t)
}

func TestAnalyticsHandler_VendorInvoices_DateRange(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := new(mocks.MockInvoiceRepository)
	repo.On("ListByVendor", mock.Anything, "Acme", &from, (*time.Time)(nil)).
		Return([]domain.InvoiceRecord{}, nil)

	r := analyticsRouter(repo, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/analytics/vendors/Acme/invoices?from=2026-01-01", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestAnalyticsHandler_VendorInvoices_BadDate(t *testing.T) {
	repo := new(mocks.MockInvoiceRepository)

	r := analyticsRouter(repo, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/analytics/vendors/Acme/invoices?from=01-01-2026", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "ListByVendor")
}

func TestAnalyticsHandler_VendorAggregate_Year(t *testing.T) {
	year := 2026
	repo := new(mocks.MockInvoiceRepository)
	repo.On("AggregateByVendor", mock.Anything, "Acme", &year).
		Return([]domain.VendorAggregate{
			{Currency: domain.CurrencyUSD, InvoiceCount: 3, TotalSum: decimal.NewFromInt(900)},
		}, nil)

	r := analyticsRouter(repo, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/analytics/vendors/Acme/aggregate?year=2026", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestAnalyticsHandler_HighRisk_BadLimit(t *testing.T) {
	repo := new(mocks.MockInvoiceRepository)

	r := analyticsRouter(repo, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/analytics/high-risk?limit=zero", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "ListByRiskLevels")
}

func TestAnalyticsHandler_HighRisk_OnlyHigh(t *testing.T) {
	repo := new(mocks.MockInvoiceRepository)
	repo.On("ListByRiskLevels", mock.Anything, []domain.RiskLevel{domain.RiskHigh}, 10).
		Return([]domain.InvoiceRecord{}, nil)

	r := analyticsRouter(repo, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/analytics/high-risk?only=high&limit=10", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestAnalyticsHandler_Stats(t *testing.T) {
	repo := new(mocks.MockInvoiceRepository)
	repo.On("Stats", mock.Anything).Return(&domain.Stats{
		TotalInvoices: 42,
		UniqueVendors: 7,
		HighRiskCount: 3,
	}, nil)

	r := analyticsRouter(repo, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/analytics/stats", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_invoices":42`)
	repo.AssertExpectations(t)
}

func TestAnalyticsHandler_Chat_MissingQuestion(t *testing.T) {
	r := analyticsRouter(new(mocks.MockInvoiceRepository), nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsHandler_Chat_UnsafeQueryMapsTo400(t *testing.T) {
	backend := new(mocks.MockModelBackend)
	backend.On("Name").Return("mock").Maybe()
	backend.On("Complete", mock.Anything, mock.Anything).
		Return("DROP TABLE invoices", nil).Once()
	exec := new(mocks.MockReadOnlyQueryExecutor)

	asker := analytics.NewService(backend, exec, zap.NewNop())
	r := analyticsRouter(new(mocks.MockInvoiceRepository), asker)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"question":"wipe everything"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UNSAFE_QUERY")
	exec.AssertNotCalled(t, "RunReadOnly")
}
