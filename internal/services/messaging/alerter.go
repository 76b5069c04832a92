package messaging

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/config"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/metrics"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
)

// bus is the slice of Service the alerter needs
type bus interface {
	Publish(subject string, data interface{}) error
}

// ViolationAlert is the payload published per offending vehicle
type ViolationAlert struct {
	CameraID        string  `json:"camera_id"`
	Kind            string  `json:"kind"` // parking or red_light
	TrackID         int     `json:"track_id"`
	VehicleClass    string  `json:"vehicle_class"`
	ZoneID          string  `json:"zone_id"`
	ZoneName        string  `json:"zone_name"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Timestamp       string  `json:"timestamp"`
}

// TrafficSummary is the periodic per-camera counts payload
type TrafficSummary struct {
	CameraID      string         `json:"camera_id"`
	TotalVehicles int            `json:"total_vehicles"`
	VehicleCounts map[string]int `json:"vehicle_counts"`
	Timestamp     string         `json:"timestamp"`
}

// Alerter publishes violation alerts with a per-track cooldown so a vehicle
// that stays in violation across many detection ticks alerts once per window,
// not once per tick.
type Alerter struct {
	bus bus
	cfg *config.Config

	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

func NewAlerter(cfg *config.Config, b bus) *Alerter {
	return &Alerter{
		bus:      b,
		cfg:      cfg,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// AlertViolations publishes one alert per newly seen or re-eligible track
func (a *Alerter) AlertViolations(cameraID string, parking []models.ParkingViolation, redLight []models.RedLightViolation) {
	if a.bus == nil {
		return
	}
	now := a.now()

	for _, v := range parking {
		a.send(now, ViolationAlert{
			CameraID:        cameraID,
			Kind:            "parking",
			TrackID:         v.TrackID,
			VehicleClass:    v.VehicleClass,
			ZoneID:          v.ZoneID,
			ZoneName:        v.ZoneName,
			DurationSeconds: v.DurationSeconds,
			Timestamp:       now.UTC().Format(time.RFC3339),
		})
	}
	for _, v := range redLight {
		a.send(now, ViolationAlert{
			CameraID:     cameraID,
			Kind:         "red_light",
			TrackID:      v.TrackID,
			VehicleClass: v.VehicleClass,
			ZoneID:       v.ZoneID,
			ZoneName:     v.ZoneName,
			Timestamp:    now.UTC().Format(time.RFC3339),
		})
	}
}

func (a *Alerter) send(now time.Time, alert ViolationAlert) {
	key := fmt.Sprintf("%s/%s/%d", alert.CameraID, alert.Kind, alert.TrackID)

	a.mu.Lock()
	last, seen := a.lastSent[key]
	if seen && now.Sub(last) < a.cfg.AlertsCooldown {
		a.mu.Unlock()
		return
	}
	a.lastSent[key] = now
	a.pruneLocked(now)
	a.mu.Unlock()

	if err := a.bus.Publish(a.cfg.AlertsSubject, alert); err != nil {
		log.Warn().Err(err).
			Str("camera_id", alert.CameraID).
			Int("track_id", alert.TrackID).
			Msg("Failed to publish violation alert")
		return
	}
	metrics.ViolationAlerts.Inc()

	log.Info().
		Str("camera_id", alert.CameraID).
		Str("kind", alert.Kind).
		Int("track_id", alert.TrackID).
		Str("zone", alert.ZoneName).
		Msg("Violation alert published")
}

// pruneLocked drops entries old enough that the cooldown no longer applies
func (a *Alerter) pruneLocked(now time.Time) {
	if len(a.lastSent) < 1024 {
		return
	}
	for key, ts := range a.lastSent {
		if now.Sub(ts) >= a.cfg.AlertsCooldown {
			delete(a.lastSent, key)
		}
	}
}

// PublishSummary pushes the camera's current vehicle counts
func (a *Alerter) PublishSummary(cameraID string, result *models.DetectionResult) {
	if a.bus == nil || result == nil {
		return
	}
	summary := TrafficSummary{
		CameraID:      cameraID,
		TotalVehicles: result.TotalCount,
		VehicleCounts: result.VehicleCount,
		Timestamp:     a.now().UTC().Format(time.RFC3339),
	}
	if err := a.bus.Publish(a.cfg.StatsSubject, summary); err != nil {
		log.Warn().Err(err).Str("camera_id", cameraID).Msg("Failed to publish traffic summary")
	}
}
