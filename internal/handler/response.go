package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ledgerlens/internal/analytics"
	"ledgerlens/internal/contract"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/extractor"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates processing errors to HTTP status codes and error
// codes.
func MapDomainError(err error) (status int, code, msg string) {
	var (
		verr      *contract.ValidationError
		exhausted *extractor.ExhaustedError
		gerr      *analytics.GuardError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnsupportedMime):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "document content type is not supported"
	case errors.Is(err, domain.ErrEmptyDocument):
		return http.StatusBadRequest, "EMPTY_DOCUMENT", "document body is empty"
	case errors.Is(err, domain.ErrDecode):
		return http.StatusBadRequest, "DECODE_FAILED", "document could not be decoded"
	case errors.Is(err, domain.ErrUnknownContract):
		return http.StatusBadRequest, "UNKNOWN_CONTRACT", "unknown document type"
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "CONTRACT_VIOLATION", verr.Error()
	case errors.As(err, &exhausted):
		return http.StatusBadGateway, "ALL_BACKENDS_EXHAUSTED", "every model backend failed for this document"
	case errors.As(err, &gerr):
		if gerr.Kind == analytics.KindUnsafeQuery {
			return http.StatusBadRequest, "UNSAFE_QUERY", "the generated query was rejected"
		}
		return http.StatusBadGateway, "QUERY_FAILED", "the query could not be executed"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a processing error and sends the appropriate error
// response.
func HandleError(c *gin.Context, logger *zap.Logger, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		logger.Error("request failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	RespondError(c, status, code, msg)
}
