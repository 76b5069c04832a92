package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/api/handlers"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/config"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/backend"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/dashboard"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/messaging"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/publisher/mjpeg"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/selection"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/zones"
)

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	healthHandler    *handlers.HealthHandler
	cameraHandler    *handlers.CameraHandler
	viewHandler      *handlers.ViewHandler
	zoneHandler      *handlers.ZoneHandler
	detectionHandler *handlers.DetectionHandler
}

// Deps are the wired services the handlers sit on
type Deps struct {
	Client    *backend.Client
	Manager   *dashboard.Manager
	Zones     *zones.Service
	Selection *selection.Store
	Publisher *mjpeg.Publisher
	Messaging *messaging.Service
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	return &Server{
		config: cfg,
		router: gin.New(),
		healthHandler: handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, func() bool {
			return deps.Messaging.IsConnected()
		}),
		cameraHandler:    handlers.NewCameraHandler(deps.Manager, deps.Selection),
		viewHandler:      handlers.NewViewHandler(deps.Manager, deps.Publisher),
		zoneHandler:      handlers.NewZoneHandler(deps.Manager, deps.Zones),
		detectionHandler: handlers.NewDetectionHandler(deps.Client),
	}
}

func (s *Server) Setup() {
	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}
}

func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("🚀 Starting ITS dashboard API")
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("🛑 Stopping ITS dashboard API")
	return s.server.Shutdown(ctx)
}

// Router exposes the engine for handler tests
func (s *Server) Router() *gin.Engine {
	return s.router
}
