package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vibeify/services"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	index *services.MediaIndex
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(index *services.MediaIndex) *HealthHandler {
	return &HealthHandler{index: index}
}

// HealthCheck returns the health status of the service
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Vibeify API is healthy!",
		"date":    time.Now().UTC().Format(time.RFC3339),
		"ready":   h.index.Ready(),
		"indexed": h.index.Len(),
	})
}
