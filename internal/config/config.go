package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// ITS backend (detection, zones, cameras, media proxy)
	APIBaseURL     string
	WSBaseURL      string
	BackendTimeout time.Duration

	// NATS (violation alerts and traffic summaries)
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration

	// Feed modes
	SnapshotInterval time.Duration // snapshot cache-bust refresh cadence
	DetectInterval   time.Duration // snapshot detection cadence
	StreamReadFPS    int           // HLS frame pull rate for live streaming

	// Viewport defaults
	DefaultViewportWidth  int
	DefaultViewportHeight int
	DefaultFrameWidth     int
	DefaultFrameHeight    int

	// Display toggles (initial per-view values)
	ShowZones      bool
	ShowLabels     bool
	ShowViolations bool

	// Output
	OutputQuality int // JPEG quality for the MJPEG stream

	// Views
	MaxViews int

	// Alerting via NATS
	AlertsSubject  string
	StatsSubject   string
	AlertsCooldown time.Duration

	// Camera selection persistence
	SelectionFile string

	// Swagger Configuration
	SwaggerHost string
	SwaggerPort int

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "dashboard-1"),
		Port:        getEnvInt("PORT", 8600),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// ITS backend
		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000"), "/"),
		WSBaseURL:      strings.TrimRight(getEnv("WS_BASE_URL", ""), "/"),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 20*time.Second),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", true),
		NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),

		// Feed modes
		SnapshotInterval: getEnvDuration("SNAPSHOT_INTERVAL", 12*time.Second),
		DetectInterval:   getEnvDuration("DETECT_INTERVAL", 3*time.Second),
		StreamReadFPS:    getEnvInt("STREAM_READ_FPS", 15),

		// Viewport defaults
		DefaultViewportWidth:  getEnvInt("DEFAULT_VIEWPORT_WIDTH", 800),
		DefaultViewportHeight: getEnvInt("DEFAULT_VIEWPORT_HEIGHT", 450),
		DefaultFrameWidth:     getEnvInt("DEFAULT_FRAME_WIDTH", 640),
		DefaultFrameHeight:    getEnvInt("DEFAULT_FRAME_HEIGHT", 360),

		// Display toggles
		ShowZones:      getEnvBool("SHOW_ZONES", true),
		ShowLabels:     getEnvBool("SHOW_LABELS", true),
		ShowViolations: getEnvBool("SHOW_VIOLATIONS", true),

		// Output
		OutputQuality: getEnvInt("OUTPUT_QUALITY", 90),

		// Views
		MaxViews: getEnvInt("MAX_VIEWS", 10),

		// Alerting via NATS
		AlertsSubject:  getEnv("ALERTS_SUBJECT", "traffic.violations"),
		StatsSubject:   getEnv("STATS_SUBJECT", "traffic.stats"),
		AlertsCooldown: getEnvDuration("ALERTS_COOLDOWN", 30*time.Second),

		// Camera selection persistence
		SelectionFile: getEnv("SELECTION_FILE", "data/selected_cameras.json"),

		// Swagger Configuration
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost"),
		SwaggerPort: getEnvInt("SWAGGER_PORT", 8600),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// WebSocketBase derives the ws:// base from APIBaseURL when WS_BASE_URL is unset
func (c *Config) WebSocketBase() string {
	if c.WSBaseURL != "" {
		return c.WSBaseURL
	}
	base := c.APIBaseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return "ws://" + base
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
