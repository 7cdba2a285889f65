package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vibeify/types"
)

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrScanInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Details stay in the logs
		msg = types.ErrInternal.Error()
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
