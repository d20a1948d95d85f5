package controller

import (
	"errors"
	"net/http"

	"jirabridge/internal/service"

	"github.com/gin-gonic/gin"
)

// handleServiceError maps the service error taxonomy onto HTTP responses.
// Provider payloads only ever cross this boundary as diagnostic strings.
func handleServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotConfigured):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrReauthorizationRequired):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrUpstreamTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, service.ErrTokenExchangeFailed):
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{
		"status":  status,
		"message": err.Error(),
	})
}
