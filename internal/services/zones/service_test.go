package zones

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/config"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/backend"
)

// fakeBackend keeps zones in memory and echoes the full list like the real one
type fakeBackend struct {
	zones    map[string][]models.ZonePolygon
	getCalls int
	addCalls int
}

func newZoneService(t *testing.T) (*Service, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{zones: make(map[string][]models.ZonePolygon)}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/detection/zones/"), "/")
		cameraID := parts[0]

		switch {
		case r.Method == http.MethodGet:
			fb.getCalls++
			json.NewEncoder(w).Encode(models.ZoneListResponse{CameraID: cameraID, Zones: fb.zones[cameraID]})
		case r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "add":
			fb.addCalls++
			var z models.ZonePolygon
			require.NoError(t, json.NewDecoder(r.Body).Decode(&z))
			fb.zones[cameraID] = append(fb.zones[cameraID], z)
			json.NewEncoder(w).Encode(models.ZoneListResponse{Success: true, Zones: fb.zones[cameraID]})
		case r.Method == http.MethodDelete && len(parts) == 2:
			kept := fb.zones[cameraID][:0]
			for _, z := range fb.zones[cameraID] {
				if z.ID != parts[1] {
					kept = append(kept, z)
				}
			}
			fb.zones[cameraID] = kept
			json.NewEncoder(w).Encode(models.ZoneListResponse{Success: true, Zones: kept})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := config.Load()
	cfg.APIBaseURL = srv.URL
	return NewService(backend.NewClient(cfg)), fb
}

func triangle() []models.Point {
	return []models.Point{{X: 10, Y: 10}, {X: 100, Y: 10}, {X: 50, Y: 90}}
}

func TestReadThroughCache(t *testing.T) {
	svc, fb := newZoneService(t)
	fb.zones["cam-1"] = []models.ZonePolygon{{ID: "z1", Name: "lot", Points: triangle()}}

	ctx := context.Background()
	first, err := svc.Zones(ctx, "cam-1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	// second read served from cache
	_, err = svc.Zones(ctx, "cam-1")
	require.NoError(t, err)
	assert.Equal(t, 1, fb.getCalls)

	svc.Invalidate("cam-1")
	_, err = svc.Zones(ctx, "cam-1")
	require.NoError(t, err)
	assert.Equal(t, 2, fb.getCalls)
}

func TestSaveDraftHappyPath(t *testing.T) {
	svc, fb := newZoneService(t)
	ctx := context.Background()

	require.NoError(t, svc.BeginDraft("cam-1", models.ZoneDraft{Name: "lot A", Role: models.ZoneRoleParking}))
	for _, p := range triangle() {
		_, err := svc.AddPoint("cam-1", p)
		require.NoError(t, err)
	}

	saved, err := svc.SaveDraft(ctx, "cam-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(saved.ID, "zone_"))
	assert.Equal(t, models.ZoneRoleParking, saved.Role())
	assert.Equal(t, 1, fb.addCalls)

	// drawing mode exited, cache replaced with the echo
	assert.False(t, svc.Editing("cam-1"))
	assert.Len(t, svc.Cached("cam-1"), 1)
}

func TestSaveDraftRejectsTooFewPoints(t *testing.T) {
	svc, fb := newZoneService(t)

	require.NoError(t, svc.BeginDraft("cam-1", models.ZoneDraft{Name: "tiny"}))
	svc.AddPoint("cam-1", models.Point{X: 1, Y: 1})
	svc.AddPoint("cam-1", models.Point{X: 2, Y: 2})

	_, err := svc.SaveDraft(context.Background(), "cam-1")
	assert.ErrorIs(t, err, ErrTooFewPoints)
	// nothing was sent and the draft survives for more points
	assert.Equal(t, 0, fb.addCalls)
	assert.True(t, svc.Editing("cam-1"))
}

func TestStopLineRequiresValidLink(t *testing.T) {
	svc, fb := newZoneService(t)
	ctx := context.Background()

	light := models.ZonePolygon{ID: "tl-1", Name: "light", Points: triangle()}
	light.SetRole(models.ZoneRoleTrafficLight)
	fb.zones["cam-1"] = []models.ZonePolygon{light}
	_, err := svc.Refresh(ctx, "cam-1")
	require.NoError(t, err)

	// no link target: save blocked locally
	require.NoError(t, svc.BeginDraft("cam-1", models.ZoneDraft{Name: "stop", Role: models.ZoneRoleStopLine}))
	for _, p := range triangle() {
		svc.AddPoint("cam-1", p)
	}
	_, err = svc.SaveDraft(ctx, "cam-1")
	assert.ErrorIs(t, err, ErrMissingLink)
	svc.CancelDraft("cam-1")

	// link to a zone that is not a traffic light: also blocked
	require.NoError(t, svc.BeginDraft("cam-1", models.ZoneDraft{
		Name: "stop", Role: models.ZoneRoleStopLine, LinkedTrafficLightID: "nope",
	}))
	for _, p := range triangle() {
		svc.AddPoint("cam-1", p)
	}
	_, err = svc.SaveDraft(ctx, "cam-1")
	assert.ErrorIs(t, err, ErrLinkNotFound)
	svc.CancelDraft("cam-1")

	// valid link: saved with the link preserved
	require.NoError(t, svc.BeginDraft("cam-1", models.ZoneDraft{
		Name: "stop", Role: models.ZoneRoleStopLine, LinkedTrafficLightID: "tl-1",
	}))
	for _, p := range triangle() {
		svc.AddPoint("cam-1", p)
	}
	saved, err := svc.SaveDraft(ctx, "cam-1")
	require.NoError(t, err)
	assert.Equal(t, "tl-1", saved.LinkedTrafficLightID)
	assert.Equal(t, models.ZoneRoleStopLine, saved.Role())
}

func TestUndoAndCancel(t *testing.T) {
	svc, _ := newZoneService(t)

	require.NoError(t, svc.BeginDraft("cam-1", models.ZoneDraft{Name: "z"}))
	svc.AddPoint("cam-1", models.Point{X: 1, Y: 1})
	svc.AddPoint("cam-1", models.Point{X: 2, Y: 2})

	n, err := svc.UndoPoint("cam-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// undo on empty draft is a no-op, not an error
	svc.UndoPoint("cam-1")
	n, err = svc.UndoPoint("cam-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	svc.CancelDraft("cam-1")
	assert.False(t, svc.Editing("cam-1"))
	assert.Nil(t, svc.Draft("cam-1"))

	_, err = svc.AddPoint("cam-1", models.Point{})
	assert.ErrorIs(t, err, ErrNotEditing)
}

func TestOnlyOneDraftPerCamera(t *testing.T) {
	svc, _ := newZoneService(t)

	require.NoError(t, svc.BeginDraft("cam-1", models.ZoneDraft{Name: "a"}))
	assert.ErrorIs(t, svc.BeginDraft("cam-1", models.ZoneDraft{Name: "b"}), ErrAlreadyEditing)

	// a different camera is unaffected
	require.NoError(t, svc.BeginDraft("cam-2", models.ZoneDraft{Name: "c"}))
}
