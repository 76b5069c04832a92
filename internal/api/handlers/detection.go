package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/backend"
)

type DetectionHandler struct {
	client *backend.Client
}

func NewDetectionHandler(client *backend.Client) *DetectionHandler {
	return &DetectionHandler{client: client}
}

// ResetTracker clears the backend's tracking state for a camera
// @Summary Reset the vehicle tracker
// @Description Clear backend track ids and violation timers for the camera
// @Tags detection
// @Produce json
// @Param id path string true "Camera ID"
// @Success 200 {object} SuccessResponse
// @Failure 502 {object} ErrorResponse
// @Router /cameras/{id}/tracker/reset [post]
func (h *DetectionHandler) ResetTracker(c *gin.Context) {
	cameraID := c.Param("id")
	if err := h.client.ResetTracker(c.Request.Context(), cameraID); err != nil {
		log.Error().Err(err).Str("camera_id", cameraID).Msg("Tracker reset failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	log.Info().Str("camera_id", cameraID).Msg("Tracker reset")
	c.JSON(http.StatusOK, gin.H{"message": "Tracker reset"})
}

// GetStats passes through the backend's per-camera traffic statistics
// @Summary Get traffic statistics
// @Tags detection
// @Produce json
// @Param id path string true "Camera ID"
// @Param image_url query string false "Snapshot to analyze"
// @Success 200 {object} models.TrafficStats
// @Failure 502 {object} ErrorResponse
// @Router /cameras/{id}/stats [get]
func (h *DetectionHandler) GetStats(c *gin.Context) {
	cameraID := c.Param("id")
	stats, err := h.client.GetStats(c.Request.Context(), cameraID, c.Query("image_url"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
