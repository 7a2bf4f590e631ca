package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/attrlens/backend/internal/domain"
	"github.com/attrlens/backend/internal/usecase"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Extractor is the use case behind the parse endpoint
type Extractor interface {
	Extract(ctx context.Context, description string) (*usecase.ExtractionResult, error)
	Schema() *domain.Schema
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	extractor Extractor
}

// NewHandler creates a new HTTP handler
func NewHandler(extractor Extractor) *Handler {
	return &Handler{extractor: extractor}
}

// ParseRequest is the body of POST /api/v1/parse
type ParseRequest struct {
	Description string `json:"description"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "attrlens",
		"version": Version,
	})
}

// ParseDescription extracts a normalized record from a product description
func (h *Handler) ParseDescription(c *gin.Context) {
	if h.extractor == nil {
		h.abortWithError(c, http.StatusServiceUnavailable, "unavailable", "extraction service is not configured")
		return
	}

	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abortWithError(c, http.StatusBadRequest, "invalid_request", "request body must be JSON with a description field")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		h.abortWithError(c, http.StatusBadRequest, "invalid_request", "Description cannot be empty")
		return
	}

	result, err := h.extractor.Extract(c.Request.Context(), req.Description)
	if err != nil {
		status, code := statusForError(err)
		_ = c.Error(err)
		h.abortWithError(c, status, code, err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSchema returns the taxonomy the service validates against
func (h *Handler) GetSchema(c *gin.Context) {
	if h.extractor == nil {
		h.abortWithError(c, http.StatusServiceUnavailable, "unavailable", "extraction service is not configured")
		return
	}
	c.JSON(http.StatusOK, h.extractor.Schema().Definition())
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrExtraction):
		return http.StatusUnprocessableEntity, "extraction_failed"
	case domain.IsTimeout(err):
		return http.StatusGatewayTimeout, "completion_timeout"
	case errors.Is(err, domain.ErrCompletionFailed):
		return http.StatusBadGateway, "completion_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

func (h *Handler) abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: c.GetString(requestIDKey),
	})
}
