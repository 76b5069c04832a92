package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/api/middleware"
)

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestID())
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.DashboardInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cameras := s.router.Group("/cameras")
	{
		cameras.GET("", s.cameraHandler.ListCameras)
		cameras.GET("/selected", s.cameraHandler.GetSelection)
		cameras.PUT("/selected", s.cameraHandler.ReplaceSelection)
		cameras.POST("/:id/select", s.cameraHandler.ToggleSelection)

		cameras.POST("/:id/view", s.viewHandler.OpenView)
		cameras.GET("/:id/view", s.viewHandler.GetView)
		cameras.PATCH("/:id/view", s.viewHandler.UpdateView)
		cameras.DELETE("/:id/view", s.viewHandler.CloseView)
		cameras.GET("/:id/stream", s.viewHandler.StreamView)

		cameras.GET("/:id/zones", s.zoneHandler.ListZones)
		cameras.POST("/:id/zones", s.zoneHandler.ReplaceZones)
		cameras.DELETE("/:id/zones/:zoneId", s.zoneHandler.DeleteZone)

		cameras.POST("/:id/editor", s.zoneHandler.BeginEditor)
		cameras.POST("/:id/editor/points", s.zoneHandler.AddPoint)
		cameras.POST("/:id/editor/undo", s.zoneHandler.UndoPoint)
		cameras.POST("/:id/editor/save", s.zoneHandler.SaveEditor)
		cameras.DELETE("/:id/editor", s.zoneHandler.CancelEditor)

		cameras.POST("/:id/tracker/reset", s.detectionHandler.ResetTracker)
		cameras.GET("/:id/stats", s.detectionHandler.GetStats)
	}
}
