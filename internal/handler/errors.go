package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

// Типы ошибок в поле error_type ответа
const (
	errorTypeValidation = "validation_error"
	errorTypeAuth       = "auth_error"
	errorTypeForbidden  = "forbidden"
	errorTypeNotFound   = "not_found"
	errorTypeConflict   = "conflict"
	errorTypeRateLimit  = "rate_limit"
	errorTypeProvider   = "provider_error"
	errorTypeInternal   = "internal_error"
)

// providerMessages are the client-facing texts for provider rejections.
// The upstream detail is logged only.
var providerMessages = map[string]string{
	apperrors.CodeWeakPassword:        "Password does not meet the requirements",
	apperrors.CodeUserAlreadyExists:   "A user with this email already exists",
	apperrors.CodeProviderUnavailable: "Authentication service is temporarily unavailable",
}

// respondError maps an application error onto the HTTP error envelope
// {error, error_type, code?}.
func respondError(c *gin.Context, err error) {
	var authErr *apperrors.AuthError
	if errors.As(err, &authErr) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Message, "error_type": errorTypeAuth, "code": authErr.Code})
		return
	}

	var provErr *apperrors.ProviderError
	if errors.As(err, &provErr) {
		status := http.StatusBadRequest
		if provErr.Code == apperrors.CodeProviderUnavailable {
			status = http.StatusBadGateway
		}
		msg, ok := providerMessages[provErr.Code]
		if !ok {
			msg = "Request rejected by authentication service"
		}
		log.Ctx(c.Request.Context()).Warn().Str("code", provErr.Code).Str("detail", provErr.Detail).
			Msg("[Handler] Identity provider rejected request")
		c.JSON(status, gin.H{"error": msg, "error_type": errorTypeProvider, "code": provErr.Code})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": errorTypeValidation})
	case errors.Is(err, apperrors.ErrExpiredToken), errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "error_type": errorTypeAuth})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "error_type": errorTypeForbidden})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "error_type": errorTypeNotFound})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": errorTypeConflict})
	case errors.Is(err, apperrors.ErrTooManyRequests):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "error_type": errorTypeRateLimit})
	default:
		log.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("[Handler] Unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": errorTypeInternal})
	}
}

// badRequest is the response for a body or query that could not be bound.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": errorTypeValidation, "details": err.Error()})
}
