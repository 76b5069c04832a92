package messaging

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/config"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
)

type fakeBus struct {
	mu        sync.Mutex
	published []struct {
		Subject string
		Data    interface{}
	}
}

func (f *fakeBus) Publish(subject string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, struct {
		Subject string
		Data    interface{}
	}{subject, data})
	return nil
}

func (f *fakeBus) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func newTestAlerter() (*Alerter, *fakeBus, *time.Time) {
	cfg := config.Load()
	cfg.AlertsCooldown = 30 * time.Second

	bus := &fakeBus{}
	a := NewAlerter(cfg, bus)

	clock := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return clock }
	return a, bus, &clock
}

func parked(trackID int) models.ParkingViolation {
	return models.ParkingViolation{
		TrackID: trackID, VehicleClass: "car", ZoneID: "z1", ZoneName: "lot", DurationSeconds: 42,
	}
}

func TestAlertCooldownSuppressesRepeats(t *testing.T) {
	a, bus, clock := newTestAlerter()

	// the same vehicle stays in violation across three detection ticks
	a.AlertViolations("cam-1", []models.ParkingViolation{parked(7)}, nil)
	a.AlertViolations("cam-1", []models.ParkingViolation{parked(7)}, nil)
	a.AlertViolations("cam-1", []models.ParkingViolation{parked(7)}, nil)
	assert.Equal(t, 1, bus.count())

	// after the cooldown the same track alerts again
	*clock = clock.Add(31 * time.Second)
	a.AlertViolations("cam-1", []models.ParkingViolation{parked(7)}, nil)
	assert.Equal(t, 2, bus.count())
}

func TestAlertKeysAreIndependent(t *testing.T) {
	a, bus, _ := newTestAlerter()

	a.AlertViolations("cam-1", []models.ParkingViolation{parked(7)}, nil)
	// different track
	a.AlertViolations("cam-1", []models.ParkingViolation{parked(8)}, nil)
	// different camera, same track
	a.AlertViolations("cam-2", []models.ParkingViolation{parked(7)}, nil)
	// same track but a red light violation is a separate key
	a.AlertViolations("cam-1", nil, []models.RedLightViolation{{
		TrackID: 7, VehicleClass: "car", ZoneID: "sl1", ZoneName: "stop",
	}})

	assert.Equal(t, 4, bus.count())
}

func TestAlertPayloadShape(t *testing.T) {
	a, bus, _ := newTestAlerter()

	a.AlertViolations("cam-1", []models.ParkingViolation{parked(7)}, nil)
	require.Equal(t, 1, bus.count())

	alert, ok := bus.published[0].Data.(ViolationAlert)
	require.True(t, ok)
	assert.Equal(t, "traffic.violations", bus.published[0].Subject)
	assert.Equal(t, "parking", alert.Kind)
	assert.Equal(t, 7, alert.TrackID)
	assert.Equal(t, "lot", alert.ZoneName)
	assert.Equal(t, 42.0, alert.DurationSeconds)
	assert.NotEmpty(t, alert.Timestamp)
}

func TestPublishSummary(t *testing.T) {
	a, bus, _ := newTestAlerter()

	a.PublishSummary("cam-1", &models.DetectionResult{
		TotalCount:   5,
		VehicleCount: map[string]int{"car": 3, "bus": 2},
	})
	require.Equal(t, 1, bus.count())

	summary, ok := bus.published[0].Data.(TrafficSummary)
	require.True(t, ok)
	assert.Equal(t, "traffic.stats", bus.published[0].Subject)
	assert.Equal(t, 5, summary.TotalVehicles)
	assert.Equal(t, 3, summary.VehicleCounts["car"])

	// nil result is a no-op
	a.PublishSummary("cam-1", nil)
	assert.Equal(t, 1, bus.count())
}

func TestNilBusIsNoOp(t *testing.T) {
	cfg := config.Load()
	a := NewAlerter(cfg, nil)
	a.AlertViolations("cam-1", []models.ParkingViolation{parked(1)}, nil)
	a.PublishSummary("cam-1", &models.DetectionResult{})
}
