package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ledgerlens/internal/handler"
	"ledgerlens/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	logger *zap.Logger,
	allowedOrigins []string,
	invoiceH *handler.InvoiceHandler,
	analyticsH *handler.AnalyticsHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Document ingestion
	docs := v1.Group("/documents")
	docs.POST("", invoiceH.Submit)
	docs.POST("/batch", invoiceH.SubmitBatch)
	docs.POST("/classify", invoiceH.Classify)

	// Reporting
	an := v1.Group("/analytics")
	an.GET("/vendors/:vendor/invoices", analyticsH.VendorInvoices)
	an.GET("/vendors/:vendor/aggregate", analyticsH.VendorAggregate)
	an.GET("/vendors/:vendor/export", analyticsH.VendorExport)
	an.GET("/high-risk", analyticsH.HighRisk)
	an.GET("/stats", analyticsH.Stats)

	// Natural-language questions over stored invoices
	v1.POST("/chat", analyticsH.Chat)

	// Processing metrics
	v1.GET("/metrics", invoiceH.Metrics)

	return r
}
