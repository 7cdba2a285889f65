package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vibeify/services"
	"vibeify/websocket"
)

// ScanHandler exposes on-demand rescans and their progress
type ScanHandler struct {
	runner *services.ScanRunner
	hub    websocket.Hub
	log    *zap.SugaredLogger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(runner *services.ScanRunner, hub websocket.Hub, log *zap.SugaredLogger) *ScanHandler {
	return &ScanHandler{
		runner: runner,
		hub:    hub,
		log:    log,
	}
}

// TriggerScan starts a background synchronizer pass
func (h *ScanHandler) TriggerScan(c *gin.Context) {
	force := false
	if raw := c.Query("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "force must be a boolean"})
			return
		}
		force = parsed
	}

	scanID, err := h.runner.Start(force, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	h.log.Infow("scan requested", "scanId", scanID, "force", force, "client", c.ClientIP())
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Scan started",
		"scanId":  scanID,
	})
}

// LastScan returns the summary of the most recent completed pass
func (h *ScanHandler) LastScan(c *gin.Context) {
	summary, err := h.runner.Last()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// HandleWebSocketConnection streams progress of every scan, or of the scan
// named by the scanId query parameter
func (h *ScanHandler) HandleWebSocketConnection(c *gin.Context) {
	conn, err := websocket.Upgrade(c.Writer, c.Request)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, c.Query("scanId"))
	h.hub.RegisterClient(client)

	// Start client pumps
	client.StartPumps()
}
