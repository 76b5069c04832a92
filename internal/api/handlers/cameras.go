package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/dashboard"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/selection"
)

// ErrorResponse is the common error envelope
type ErrorResponse struct {
	Error string `json:"error" example:"camera not found"`
}

// SuccessResponse is the common acknowledgement envelope
type SuccessResponse struct {
	Message string `json:"message" example:"ok"`
}

type CameraHandler struct {
	manager   *dashboard.Manager
	selection *selection.Store
}

func NewCameraHandler(manager *dashboard.Manager, sel *selection.Store) *CameraHandler {
	return &CameraHandler{manager: manager, selection: sel}
}

// SelectionRequest replaces the persisted camera selection
type SelectionRequest struct {
	IDs []string `json:"ids"`
}

// ListCameras lists backend cameras merged with local state
// @Summary List cameras
// @Description List backend cameras merged with selection and open-view flags
// @Tags cameras
// @Produce json
// @Param limit query int false "Page size"
// @Param skip query int false "Page offset"
// @Success 200 {array} models.CameraView
// @Failure 502 {object} ErrorResponse
// @Router /cameras [get]
func (h *CameraHandler) ListCameras(c *gin.Context) {
	limit := parsePositiveInt(c, "limit", 0)
	skip := parsePositiveInt(c, "skip", 0)
	cams, err := h.manager.Cameras(c.Request.Context(), limit, skip)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list cameras")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cams)
}

// GetSelection returns the persisted selected camera ids
// @Summary Get selected cameras
// @Tags cameras
// @Produce json
// @Success 200 {object} SelectionRequest
// @Router /cameras/selected [get]
func (h *CameraHandler) GetSelection(c *gin.Context) {
	c.JSON(http.StatusOK, SelectionRequest{IDs: h.selection.IDs()})
}

// ReplaceSelection overwrites the persisted selection
// @Summary Replace selected cameras
// @Tags cameras
// @Accept json
// @Produce json
// @Param request body SelectionRequest true "Camera ids to select"
// @Success 200 {object} SelectionRequest
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /cameras/selected [put]
func (h *CameraHandler) ReplaceSelection(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.selection.Replace(req.IDs)
	c.JSON(http.StatusOK, SelectionRequest{IDs: h.selection.IDs()})
}

// ToggleSelection flips one camera's selected flag
// @Summary Toggle a camera's selection
// @Tags cameras
// @Produce json
// @Param id path string true "Camera ID"
// @Success 200 {object} SelectionRequest
// @Router /cameras/{id}/select [post]
func (h *CameraHandler) ToggleSelection(c *gin.Context) {
	cameraID := c.Param("id")
	selected := h.selection.Toggle(cameraID)
	log.Info().Str("camera_id", cameraID).Bool("selected", selected).Msg("Camera selection toggled")
	c.JSON(http.StatusOK, SelectionRequest{IDs: h.selection.IDs()})
}

// parsePositiveInt reads a query int, falling back on absent or junk values
func parsePositiveInt(c *gin.Context, key string, def int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return def
}
