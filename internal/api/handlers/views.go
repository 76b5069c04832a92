package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/dashboard"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/publisher/mjpeg"
)

type ViewHandler struct {
	manager   *dashboard.Manager
	publisher *mjpeg.Publisher
}

func NewViewHandler(manager *dashboard.Manager, pub *mjpeg.Publisher) *ViewHandler {
	return &ViewHandler{manager: manager, publisher: pub}
}

// viewErrorStatus maps manager errors onto HTTP statuses
func viewErrorStatus(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrViewNotFound), errors.Is(err, dashboard.ErrCameraNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrViewExists), errors.Is(err, dashboard.ErrEditingActive):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrTooManyViews):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

// OpenView opens a camera view
// @Summary Open a camera view
// @Description Start a feed for the camera and begin compositing its MJPEG output
// @Tags views
// @Accept json
// @Produce json
// @Param id path string true "Camera ID"
// @Param request body models.ViewRequest false "Initial viewport and toggles"
// @Success 200 {object} models.ViewState
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /cameras/{id}/view [post]
func (h *ViewHandler) OpenView(c *gin.Context) {
	cameraID := c.Param("id")

	var req models.ViewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	state, err := h.manager.OpenView(c.Request.Context(), cameraID, req)
	if err != nil {
		log.Error().Err(err).Str("camera_id", cameraID).Msg("Failed to open view")
		c.JSON(viewErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetView returns the view's observable state
// @Summary Get view state
// @Tags views
// @Produce json
// @Param id path string true "Camera ID"
// @Success 200 {object} models.ViewState
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{id}/view [get]
func (h *ViewHandler) GetView(c *gin.Context) {
	state, err := h.manager.ViewState(c.Param("id"))
	if err != nil {
		c.JSON(viewErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

// UpdateView reconfigures an open view
// @Summary Update view settings
// @Description Resize the viewport, flip display toggles or the detection toggle. Detection changes are refused with 409 while a zone draft is open.
// @Tags views
// @Accept json
// @Produce json
// @Param id path string true "Camera ID"
// @Param request body models.ViewRequest true "Settings to change"
// @Success 200 {object} models.ViewState
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /cameras/{id}/view [patch]
func (h *ViewHandler) UpdateView(c *gin.Context) {
	cameraID := c.Param("id")

	var req models.ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.manager.UpdateView(cameraID, req)
	if err != nil {
		c.JSON(viewErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

// CloseView tears the view down
// @Summary Close a camera view
// @Tags views
// @Produce json
// @Param id path string true "Camera ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{id}/view [delete]
func (h *ViewHandler) CloseView(c *gin.Context) {
	cameraID := c.Param("id")
	if err := h.manager.CloseView(cameraID); err != nil {
		c.JSON(viewErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "View closed"})
}

// StreamView serves the composited MJPEG stream
// @Summary Stream the composited view
// @Description Multipart MJPEG stream of the camera's composited frames
// @Tags views
// @Produce mpfd
// @Param id path string true "Camera ID"
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{id}/stream [get]
func (h *ViewHandler) StreamView(c *gin.Context) {
	cameraID := c.Param("id")
	if !h.manager.HasView(cameraID) {
		c.JSON(http.StatusNotFound, gin.H{"error": dashboard.ErrViewNotFound.Error()})
		return
	}
	h.publisher.StreamMJPEGHTTP(c.Writer, c.Request, cameraID)
}
