package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	WorkerID string
	Version  string

	natsConnected func() bool
}

func NewHealthHandler(workerID, version string, natsConnected func() bool) *HealthHandler {
	return &HealthHandler{WorkerID: workerID, Version: version, natsConnected: natsConnected}
}

type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	WorkerID string `json:"worker_id" example:"dashboard-1"`
	Nats     bool   `json:"nats_connected"`
}

type DashboardInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"dashboard-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the dashboard worker is healthy and responsive
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		WorkerID: h.WorkerID,
		Nats:     h.natsConnected != nil && h.natsConnected(),
	})
}

// @Summary Dashboard information
// @Description Get basic dashboard worker information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} DashboardInfoResponse
// @Router / [get]
func (h *HealthHandler) DashboardInfo(c *gin.Context) {
	c.JSON(http.StatusOK, DashboardInfoResponse{
		WorkerID: h.WorkerID,
		Status:   "running",
		Version:  h.Version,
		Capabilities: []string{
			"snapshot_polling",
			"hls_streaming",
			"stream_detection",
			"zone_editing",
			"mjpeg_output",
		},
	})
}
