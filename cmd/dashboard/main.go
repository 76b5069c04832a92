package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/api"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/config"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/logging"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/backend"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/dashboard"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/messaging"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/publisher/mjpeg"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/selection"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/zones"
)

// @title ITS Dashboard API
// @version 1.0.0
// @description Traffic camera dashboard worker: composited MJPEG views, zone editing and detection control over the ITS backend
// @BasePath /
func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	console := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = log.Output(console)

	// Load configuration
	cfg := config.Load()

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Optional embedded log viewer
	if cfg.LogdyEnabled {
		if tee, url, err := logging.StartLogdy(cfg); err == nil {
			log.Logger = log.Output(zerolog.MultiLevelWriter(console, tee))
			log.Info().Str("url", url).Msg("Logs mirrored to Logdy")
		} else {
			log.Warn().Err(err).Msg("Logdy startup failed, console logging only")
		}
	}

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Str("backend", cfg.APIBaseURL).
		Int("port", cfg.Port).
		Msg("Starting ITS dashboard worker")

	// Wire services
	client := backend.NewClient(cfg)
	zoneSvc := zones.NewService(client)
	sel := selection.NewStore(cfg.SelectionFile)
	publisher := mjpeg.NewPublisher(cfg)

	var bus *messaging.Service
	if cfg.NatsEnabled {
		bus, err = messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, violation alerts disabled")
			bus = nil
		}
	}

	var alerter *messaging.Alerter
	if bus != nil {
		alerter = messaging.NewAlerter(cfg, bus)
	}

	manager := dashboard.NewManager(cfg, client, zoneSvc, sel, publisher, alerter)

	server := api.NewServer(cfg, api.Deps{
		Client:    client,
		Manager:   manager,
		Zones:     zoneSvc,
		Selection: sel,
		Publisher: publisher,
		Messaging: bus,
	})
	server.Setup()

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	manager.Shutdown()
	publisher.Shutdown()
	if err := bus.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("NATS shutdown failed")
	}

	if err := server.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	} else {
		log.Info().Msg("Server shutdown complete")
	}
}
