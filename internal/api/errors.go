package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest       = "invalid_request"
	CodeNotFound             = "not_found"
	CodeNoPlatformIdentifier = "no_platform_identifier"
	CodeCredentialMissing    = "credential_missing"
	CodeConcurrentGeneration = "concurrent_generation_in_progress"
	CodeTimeout              = "timeout"
	CodePersistence          = "persistence_error"
	CodeInternal             = "internal_error"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	ProductID int64  `json:"product_id,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// describe maps an error to its status and body.
func describe(err error) (ErrorResponse, int) {
	resp := ErrorResponse{Error: err.Error(), Code: CodeInternal}
	status := http.StatusInternalServerError

	var linkErr *domain.LinkError
	if errors.As(err, &linkErr) {
		resp.ProductID = linkErr.ProductID
		resp.Platform = string(linkErr.Platform)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidPlatform), errors.Is(err, domain.ErrInvalidAdType):
		resp.Code, status = CodeInvalidRequest, http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		resp.Code, status = CodeNotFound, http.StatusNotFound
	case errors.Is(err, domain.ErrNoPlatformIdentifier):
		resp.Code, status = CodeNoPlatformIdentifier, http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrCredentialMissing):
		resp.Code, status = CodeCredentialMissing, http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConcurrentGeneration):
		resp.Code, status = CodeConcurrentGeneration, http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		resp.Code, status = CodeTimeout, http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrPersistence):
		resp.Code = CodePersistence
	}
	resp.Retryable = domain.IsRetryable(err)
	return resp, status
}

func (h *Handler) respondError(c *gin.Context, err error) {
	resp, status := describe(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed",
			logger.String("path", c.FullPath()),
			logger.String("code", resp.Code),
			logger.Error(err),
		)
		if resp.Code == CodePersistence || resp.Code == CodeInternal {
			resp.Error = "internal server error"
		}
	}
	c.AbortWithStatusJSON(status, resp)
}

func respondBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: CodeInvalidRequest})
}
