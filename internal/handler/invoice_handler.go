package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ledgerlens/internal/service"
)

// maxDocumentBytes caps one uploaded document body.
const maxDocumentBytes = 10 << 20

// InvoiceHandler handles document submission endpoints.
type InvoiceHandler struct {
	svc    *service.InvoiceService
	logger *zap.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(svc *service.InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, logger: logger.Named("invoice_handler")}
}

func readDocument(c *gin.Context) ([]byte, string, bool) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentBytes+1))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "READ_FAILED", "could not read request body")
		return nil, "", false
	}
	if len(data) > maxDocumentBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "DOCUMENT_TOO_LARGE", "document exceeds the 10 MiB limit")
		return nil, "", false
	}
	return data, c.ContentType(), true
}

// Submit handles POST /api/v1/documents
// The raw document is the request body; document_type and skip_review come in
// as query parameters.
func (h *InvoiceHandler) Submit(c *gin.Context) {
	data, contentType, ok := readDocument(c)
	if !ok {
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), service.SubmitInput{
		Data:         data,
		ContentType:  contentType,
		ContractName: c.Query("document_type"),
		ProcessedBy:  c.GetHeader("X-Processed-By"),
		SkipReview:   c.Query("skip_review") == "true",
	})
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	RespondCreated(c, res)
}

// SubmitBatch handles POST /api/v1/documents/batch with a multipart form of
// files.
func (h *InvoiceHandler) SubmitBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "expected a multipart form with files")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "no files in form field 'files'")
		return
	}

	items := make([]service.SubmitInput, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "READ_FAILED", "could not open uploaded file "+fh.Filename)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, maxDocumentBytes))
		f.Close()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "READ_FAILED", "could not read uploaded file "+fh.Filename)
			return
		}
		items = append(items, service.SubmitInput{
			Data:         data,
			ContentType:  fh.Header.Get("Content-Type"),
			ContractName: c.Query("document_type"),
			ProcessedBy:  c.GetHeader("X-Processed-By"),
			SkipReview:   c.Query("skip_review") == "true",
		})
	}

	results := h.svc.SubmitBatch(c.Request.Context(), items)
	RespondOK(c, results)
}

// Classify handles POST /api/v1/documents/classify
func (h *InvoiceHandler) Classify(c *gin.Context) {
	data, contentType, ok := readDocument(c)
	if !ok {
		return
	}

	docType, err := h.svc.ClassifyDocument(c.Request.Context(), data, contentType)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	RespondOK(c, gin.H{"document_type": docType})
}

// Metrics handles GET /metrics
func (h *InvoiceHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Metrics())
}
