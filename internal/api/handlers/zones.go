package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/dashboard"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/zones"
)

type ZoneHandler struct {
	manager *dashboard.Manager
	zones   *zones.Service
}

func NewZoneHandler(manager *dashboard.Manager, zoneSvc *zones.Service) *ZoneHandler {
	return &ZoneHandler{manager: manager, zones: zoneSvc}
}

// EditorRequest opens a zone draft
type EditorRequest struct {
	Name                 string          `json:"name" binding:"required"`
	Role                 models.ZoneRole `json:"role"`
	LinkedTrafficLightID string          `json:"linked_traffic_light_id,omitempty"`
	Color                string          `json:"color,omitempty"`
}

// PointRequest is one viewport-space editor click
type PointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointCountResponse reports the draft's vertex count after a change
type PointCountResponse struct {
	Points int `json:"points"`
}

// ReplaceZonesRequest overwrites a camera's whole zone set
type ReplaceZonesRequest struct {
	Zones []models.ZonePolygon `json:"zones"`
}

func zoneErrorStatus(err error) int {
	switch {
	case errors.Is(err, zones.ErrTooFewPoints),
		errors.Is(err, zones.ErrMissingLink),
		errors.Is(err, zones.ErrLinkNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, zones.ErrNotEditing):
		return http.StatusNotFound
	case errors.Is(err, zones.ErrAlreadyEditing):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// ListZones returns the camera's zones
// @Summary List zones
// @Tags zones
// @Produce json
// @Param id path string true "Camera ID"
// @Success 200 {array} models.ZonePolygon
// @Failure 502 {object} ErrorResponse
// @Router /cameras/{id}/zones [get]
func (h *ZoneHandler) ListZones(c *gin.Context) {
	list, err := h.zones.Zones(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if list == nil {
		list = []models.ZonePolygon{}
	}
	c.JSON(http.StatusOK, list)
}

// ReplaceZones overwrites the camera's zone set
// @Summary Replace all zones
// @Tags zones
// @Accept json
// @Produce json
// @Param id path string true "Camera ID"
// @Param request body ReplaceZonesRequest true "Full zone set"
// @Success 200 {array} models.ZonePolygon
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /cameras/{id}/zones [post]
func (h *ZoneHandler) ReplaceZones(c *gin.Context) {
	cameraID := c.Param("id")

	var req ReplaceZonesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := h.zones.SaveAll(c.Request.Context(), cameraID, req.Zones)
	if err != nil {
		log.Error().Err(err).Str("camera_id", cameraID).Msg("Failed to replace zones")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	h.manager.Repaint(cameraID)
	c.JSON(http.StatusOK, saved)
}

// DeleteZone removes one zone
// @Summary Delete a zone
// @Tags zones
// @Produce json
// @Param id path string true "Camera ID"
// @Param zoneId path string true "Zone ID"
// @Success 200 {array} models.ZonePolygon
// @Failure 502 {object} ErrorResponse
// @Router /cameras/{id}/zones/{zoneId} [delete]
func (h *ZoneHandler) DeleteZone(c *gin.Context) {
	cameraID := c.Param("id")
	remaining, err := h.manager.DeleteZone(c.Request.Context(), cameraID, c.Param("zoneId"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, remaining)
}

// BeginEditor starts drawing a new zone
// @Summary Begin a zone draft
// @Description Enter drawing mode. A detecting view falls back to its plain mode first.
// @Tags editor
// @Accept json
// @Produce json
// @Param id path string true "Camera ID"
// @Param request body EditorRequest true "Zone name, role and options"
// @Success 200 {object} models.ZoneDraft
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /cameras/{id}/editor [post]
func (h *ZoneHandler) BeginEditor(c *gin.Context) {
	cameraID := c.Param("id")

	var req EditorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft := models.ZoneDraft{
		Name:                 req.Name,
		Role:                 req.Role,
		LinkedTrafficLightID: req.LinkedTrafficLightID,
		Color:                req.Color,
	}
	if err := h.manager.BeginEditor(cameraID, draft); err != nil {
		c.JSON(zoneErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.zones.Draft(cameraID))
}

// AddPoint appends a viewport-space click to the draft
// @Summary Add a draft vertex
// @Tags editor
// @Accept json
// @Produce json
// @Param id path string true "Camera ID"
// @Param request body PointRequest true "Viewport-space click"
// @Success 200 {object} PointCountResponse
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{id}/editor/points [post]
func (h *ZoneHandler) AddPoint(c *gin.Context) {
	var req PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.manager.AddEditorPoint(c.Param("id"), models.Point{X: req.X, Y: req.Y})
	if err != nil {
		c.JSON(zoneErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, PointCountResponse{Points: n})
}

// UndoPoint removes the most recent draft vertex
// @Summary Undo the last draft vertex
// @Tags editor
// @Produce json
// @Param id path string true "Camera ID"
// @Success 200 {object} PointCountResponse
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{id}/editor/undo [post]
func (h *ZoneHandler) UndoPoint(c *gin.Context) {
	n, err := h.manager.UndoEditorPoint(c.Param("id"))
	if err != nil {
		c.JSON(zoneErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, PointCountResponse{Points: n})
}

// SaveEditor validates and persists the draft
// @Summary Save the zone draft
// @Description Validate the draft (3+ points, stop lines need a valid traffic light link) and persist it through the backend
// @Tags editor
// @Produce json
// @Param id path string true "Camera ID"
// @Success 200 {object} models.ZonePolygon
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /cameras/{id}/editor/save [post]
func (h *ZoneHandler) SaveEditor(c *gin.Context) {
	cameraID := c.Param("id")
	zone, err := h.manager.SaveEditor(c.Request.Context(), cameraID)
	if err != nil {
		log.Warn().Err(err).Str("camera_id", cameraID).Msg("Zone draft save refused")
		c.JSON(zoneErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, zone)
}

// CancelEditor discards the draft
// @Summary Cancel the zone draft
// @Tags editor
// @Produce json
// @Param id path string true "Camera ID"
// @Success 200 {object} SuccessResponse
// @Router /cameras/{id}/editor [delete]
func (h *ZoneHandler) CancelEditor(c *gin.Context) {
	h.manager.CancelEditor(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Draft discarded"})
}
