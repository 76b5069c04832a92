package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/config"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Load()
	cfg.APIBaseURL = srv.URL
	cfg.WSBaseURL = ""
	return NewClient(cfg), srv
}

func TestListCameras(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/cameras", r.URL.Path)
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		require.Equal(t, "10", r.URL.Query().Get("skip"))
		json.NewEncoder(w).Encode(models.CameraList{
			Items: []models.Camera{{ID: "cam-1", Name: "Corner", URL: "http://x/cam.jpg"}},
			Total: 42,
		})
	}))

	out, err := client.ListCameras(context.Background(), 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Total)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "cam-1", out.Items[0].ID)
}

func TestDetectPassesBodyAndDecodesResult(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/detection/detect", r.URL.Path)
		var req models.DetectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cam-1", req.CameraID)
		assert.True(t, req.IncludeZones)

		track := 3
		json.NewEncoder(w).Encode(models.DetectResponse{
			Success: true,
			Result: &models.DetectionResult{
				Detections:  []models.Detection{{ClassName: "car", Confidence: 0.9, TrackID: &track}},
				FrameWidth:  1920,
				FrameHeight: 1080,
			},
			Violations: []models.ParkingViolation{{TrackID: 3, ZoneName: "lot", DurationSeconds: 11}},
		})
	}))

	resp, err := client.Detect(context.Background(), models.DetectRequest{
		ImageURL: "http://x/cam.jpg", CameraID: "cam-1", IncludeZones: true,
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, 1920, resp.Result.FrameWidth)
	require.Len(t, resp.Violations, 1)
}

func TestDetectUnsuccessfulBodyIsNotTransportError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.DetectResponse{Success: false, Error: "Failed to fetch or process image"})
	}))

	resp, err := client.Detect(context.Background(), models.DetectRequest{ImageURL: "http://x"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Failed to fetch or process image", resp.Error)
}

func TestZoneRoundTrips(t *testing.T) {
	zones := []models.ZonePolygon{{
		ID: "zone_1_000001", Name: "lot",
		Points:        []models.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}},
		IsParkingZone: true, Color: "#FF0000",
	}}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/detection/zones/cam-1":
			json.NewEncoder(w).Encode(models.ZoneListResponse{CameraID: "cam-1", Zones: zones})
		case r.Method == http.MethodPost && r.URL.Path == "/api/detection/zones/cam-1/add":
			var z models.ZonePolygon
			require.NoError(t, json.NewDecoder(r.Body).Decode(&z))
			json.NewEncoder(w).Encode(models.ZoneListResponse{Success: true, Zones: append(zones, z)})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/detection/zones/cam-1/zone_1_000001":
			json.NewEncoder(w).Encode(models.ZoneListResponse{Success: true, Zones: nil})
		default:
			http.NotFound(w, r)
		}
	}))

	got, err := client.GetZones(context.Background(), "cam-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.ZoneRoleParking, got[0].Role())

	echoed, err := client.AddZone(context.Background(), "cam-1", models.ZonePolygon{ID: "zone_2_000002", Name: "new"})
	require.NoError(t, err)
	assert.Len(t, echoed, 2)

	echoed, err = client.DeleteZone(context.Background(), "cam-1", "zone_1_000001")
	require.NoError(t, err)
	assert.Empty(t, echoed)
}

func TestNon2xxBecomesError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.GetZones(context.Background(), "cam-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestMalformedJSONBecomesError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))

	_, err := client.ListCameras(context.Background(), 10, 0)
	require.Error(t, err)
}

func TestProxyAndStreamURLs(t *testing.T) {
	cfg := config.Load()
	cfg.APIBaseURL = "http://backend:8000"
	cfg.WSBaseURL = ""
	client := NewClient(cfg)

	assert.Equal(t,
		"http://backend:8000/api/proxy/image?url=http%3A%2F%2Fcam%2Fshot.jpg",
		client.ProxyImageURL("http://cam/shot.jpg"))
	assert.Equal(t,
		"http://backend:8000/api/proxy/hls?url=http%3A%2F%2Fcam%2Flive.m3u8",
		client.ProxyHLSURL("http://cam/live.m3u8"))
	assert.Equal(t,
		"ws://backend:8000/api/detection/video-stream/cam-1",
		client.VideoStreamURL("cam-1"))
}
