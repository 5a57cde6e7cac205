package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"doctriage/internal/domain"
	"doctriage/internal/engine"
	"doctriage/internal/service"
	"doctriage/internal/warm"
)

// ExtractHandler exposes the extraction pipeline over HTTP. Thin ingress
// only: no auth, no sessions, no persistence.
type ExtractHandler struct {
	svc    *service.ExtractionService
	warmer *warm.Warmer
}

// NewExtractHandler creates an ExtractHandler.
func NewExtractHandler(svc *service.ExtractionService, warmer *warm.Warmer) *ExtractHandler {
	return &ExtractHandler{svc: svc, warmer: warmer}
}

// Extract handles POST /v1/extract. Multipart form: "file" (required),
// "industry" (optional), "mode" (optional, cascade|race).
func (h *ExtractHandler) Extract(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "multipart field 'file' is required")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not open uploaded file")
		return
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file")
		return
	}

	mode := domain.ExtractionMode(c.DefaultPostForm("mode", string(domain.ModeCascade)))
	industry := c.PostForm("industry")
	declared := fileHeader.Header.Get("Content-Type")

	result, err := h.svc.ProcessBytes(c.Request.Context(), fileHeader.Filename, data, declared, industry, mode)
	if err != nil {
		var exhausted *engine.ExhaustedError
		if errors.As(err, &exhausted) {
			// Surface the full attempt log so the caller can decide on
			// user-facing messaging.
			c.JSON(http.StatusBadGateway, APIResponse{
				Success: false,
				Error:   &APIError{Code: "ALL_PROVIDERS_EXHAUSTED", Message: exhausted.Error()},
				Data:    gin.H{"attempt_log": exhausted.Attempts},
			})
			return
		}
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// Providers handles GET /v1/providers: per-provider warm state.
func (h *ExtractHandler) Providers(c *gin.Context) {
	RespondOK(c, h.warmer.States())
}

// Health handles GET /healthz.
func (h *ExtractHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := mapDomainError(err)
	if status >= 500 {
		log.Printf("handler: internal error: %v", err)
	}
	RespondError(c, status, code, msg)
}

func mapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, jpg, png"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrInvalidMode):
		return http.StatusBadRequest, "INVALID_MODE", "mode must be cascade or race"
	case errors.Is(err, domain.ErrUnreadableSource):
		return http.StatusBadRequest, "UNREADABLE_SOURCE", "document source is not readable"
	case errors.Is(err, domain.ErrNoProvidersConfigured):
		return http.StatusServiceUnavailable, "NO_PROVIDERS", "no extraction providers configured"
	case errors.Is(err, domain.ErrAllProvidersExhausted):
		return http.StatusBadGateway, "ALL_PROVIDERS_EXHAUSTED", "every extraction provider failed for this document"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}
