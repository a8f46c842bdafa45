package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ledgerlens/internal/analytics"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/export"
	"ledgerlens/internal/port"
)

const defaultRiskListLimit = 50

// AnalyticsHandler handles the reporting and question endpoints.
type AnalyticsHandler struct {
	repo   port.InvoiceRepository
	asker  *analytics.Service
	logger *zap.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(repo port.InvoiceRepository, asker *analytics.Service, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{repo: repo, asker: asker, logger: logger.Named("analytics_handler")}
}

func parseDateParam(c *gin.Context, name string) (*time.Time, bool) {
	val := c.Query(name)
	if val == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", name+" must be YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

// VendorInvoices handles GET /api/v1/analytics/vendors/:vendor/invoices
func (h *AnalyticsHandler) VendorInvoices(c *gin.Context) {
	from, ok := parseDateParam(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(c, "to")
	if !ok {
		return
	}

	invoices, err := h.repo.ListByVendor(c.Request.Context(), c.Param("vendor"), from, to)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	RespondOK(c, invoices)
}

// VendorAggregate handles GET /api/v1/analytics/vendors/:vendor/aggregate
func (h *AnalyticsHandler) VendorAggregate(c *gin.Context) {
	var year *int
	if val := c.Query("year"); val != "" {
		y, err := strconv.Atoi(val)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "year must be an integer")
			return
		}
		year = &y
	}

	aggs, err := h.repo.AggregateByVendor(c.Request.Context(), c.Param("vendor"), year)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	RespondOK(c, aggs)
}

// VendorExport handles GET /api/v1/analytics/vendors/:vendor/export
// and streams an XLSX workbook.
func (h *AnalyticsHandler) VendorExport(c *gin.Context) {
	vendor := c.Param("vendor")
	ctx := c.Request.Context()

	invoices, err := h.repo.ListByVendor(ctx, vendor, nil, nil)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	aggs, err := h.repo.AggregateByVendor(ctx, vendor, nil)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", vendor+"-invoices.xlsx"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := export.WriteVendorReport(c.Writer, vendor, invoices, aggs); err != nil {
		h.logger.Error("export failed", zap.String("vendor", vendor), zap.Error(err))
	}
}

// HighRisk handles GET /api/v1/analytics/high-risk
func (h *AnalyticsHandler) HighRisk(c *gin.Context) {
	limit := defaultRiskListLimit
	if val := c.Query("limit"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer")
			return
		}
		limit = n
	}

	levels := []domain.RiskLevel{domain.RiskHigh, domain.RiskMedium}
	if c.Query("only") == "high" {
		levels = []domain.RiskLevel{domain.RiskHigh}
	}

	invoices, err := h.repo.ListByRiskLevels(c.Request.Context(), levels, limit)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	RespondOK(c, invoices)
}

// Stats handles GET /api/v1/analytics/stats
func (h *AnalyticsHandler) Stats(c *gin.Context) {
	stats, err := h.repo.Stats(c.Request.Context())
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	RespondOK(c, stats)
}

// Chat handles POST /api/v1/chat
func (h *AnalyticsHandler) Chat(c *gin.Context) {
	var req struct {
		Question string `json:"question" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "question is required")
		return
	}

	answer, err := h.asker.Ask(c.Request.Context(), req.Question)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	RespondOK(c, answer)
}
