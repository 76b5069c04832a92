package api

import (
	"net/http"

	_ "github.com/NguyenVanMinhGiang2005/ITS/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (s *Server) setupSwagger() {
	s.router.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":       "ITS Dashboard API",
			"version":     s.config.Version,
			"description": "Traffic camera dashboard worker: composited MJPEG views, zone editing and detection control over the ITS backend",
			"swagger_ui":  "/docs/index.html",
			"endpoints": gin.H{
				"health":   "/health",
				"info":     "/",
				"metrics":  "/metrics",
				"cameras":  "/cameras",
				"views":    "/cameras/{id}/view",
				"streams":  "/cameras/{id}/stream",
				"zones":    "/cameras/{id}/zones",
				"editor":   "/cameras/{id}/editor",
				"tracking": "/cameras/{id}/tracker/reset",
				"stats":    "/cameras/{id}/stats",
			},
			"worker_id": s.config.WorkerID,
			"port":      s.config.Port,
		})
	})

	s.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
}
