package handlers

import (
	"net/http"

	"presence_monitor/internal/engine"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// ThresholdsRequest is the settings payload for updating limits.
type ThresholdsRequest struct {
	// Seconds of confirmed absence before the absence alert trips
	AbsenceLimitSeconds float64 `json:"absence_limit_seconds" example:"300"`
	// Seconds of confirmed device use before the device-use alert trips
	DeviceUseLimitSeconds float64 `json:"device_use_limit_seconds" example:"1800"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": statusOK}
	if h.services.Monitor != nil && h.services.Degraded() {
		resp["status"] = "degraded"
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Current status summary
// @Description  Level view: durations plus over-threshold flags, independent of cooldown suppression.
// @Tags         status
// @Produce      json
// @Success      200  {object}  presence_monitor.StatusSummary
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Status())
}

// @Summary      Get alert thresholds
// @Tags         settings
// @Produce      json
// @Success      200  {object}  engine.ThresholdConfig
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/settings/thresholds [get]
// @Security     BearerAuth
func (h *Handler) getThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Thresholds())
}

// @Summary      Update alert thresholds
// @Description  Atomically swaps the limits; a rejected config keeps the previous one.
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body   ThresholdsRequest  true  "New limits"
// @Success      200   {object}  engine.ThresholdConfig
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/settings/thresholds [put]
// @Security     BearerAuth
func (h *Handler) putThresholds(c *gin.Context) {
	var req ThresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	cfg := engine.ThresholdConfig{
		AbsenceLimitSeconds:   req.AbsenceLimitSeconds,
		DeviceUseLimitSeconds: req.DeviceUseLimitSeconds,
	}
	if err := h.services.SetThresholds(cfg); err != nil {
		if h.log != nil {
			h.log.Errorw("thresholds_update_rejected", "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.services.Thresholds())
}
