// Package backend is the typed client for the remote ITS API: camera list,
// detection, zone persistence, tracker control and the media proxy. Every
// piece of real computation lives behind it; this service only calls it.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/config"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
)

type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	baseURL    string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:        cfg,
		baseURL:    cfg.APIBaseURL,
		httpClient: &http.Client{Timeout: cfg.BackendTimeout},
	}
}

// ListCameras fetches one page of the camera list
func (c *Client) ListCameras(ctx context.Context, limit, skip int) (*models.CameraList, error) {
	u := fmt.Sprintf("%s/api/cameras?limit=%d&skip=%d", c.baseURL, limit, skip)

	var out models.CameraList
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}
	return &out, nil
}

// Detect runs detection against a snapshot URL. A response with Success=false
// is not an error here; callers surface Error as a status string.
func (c *Client) Detect(ctx context.Context, req models.DetectRequest) (*models.DetectResponse, error) {
	var out models.DetectResponse
	if err := c.postJSON(ctx, c.baseURL+"/api/detection/detect", req, &out); err != nil {
		return nil, fmt.Errorf("detect request failed: %w", err)
	}
	return &out, nil
}

// DetectVideo runs detection against a single frame grabbed from a video URL
func (c *Client) DetectVideo(ctx context.Context, req models.DetectVideoRequest) (*models.DetectResponse, error) {
	var out models.DetectResponse
	if err := c.postJSON(ctx, c.baseURL+"/api/detection/detect-video", req, &out); err != nil {
		return nil, fmt.Errorf("detect-video request failed: %w", err)
	}
	return &out, nil
}

// GetZones fetches the authoritative zone list for a camera
func (c *Client) GetZones(ctx context.Context, cameraID string) ([]models.ZonePolygon, error) {
	u := fmt.Sprintf("%s/api/detection/zones/%s", c.baseURL, url.PathEscape(cameraID))

	var out models.ZoneListResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("failed to get zones: %w", err)
	}
	return out.Zones, nil
}

// SaveZones replaces the camera's whole zone set
func (c *Client) SaveZones(ctx context.Context, cameraID string, zones []models.ZonePolygon) error {
	u := fmt.Sprintf("%s/api/detection/zones/%s", c.baseURL, url.PathEscape(cameraID))

	body := models.ZoneConfig{CameraID: cameraID, Zones: zones}
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.postJSON(ctx, u, body, &out); err != nil {
		return fmt.Errorf("failed to save zones: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("backend rejected zone save")
	}
	return nil
}

// AddZone appends one zone; the backend echoes the resulting zone list, which
// replaces the local cache wholesale.
func (c *Client) AddZone(ctx context.Context, cameraID string, zone models.ZonePolygon) ([]models.ZonePolygon, error) {
	u := fmt.Sprintf("%s/api/detection/zones/%s/add", c.baseURL, url.PathEscape(cameraID))

	var out models.ZoneListResponse
	if err := c.postJSON(ctx, u, zone, &out); err != nil {
		return nil, fmt.Errorf("failed to add zone: %w", err)
	}
	return out.Zones, nil
}

// DeleteZone removes one zone and returns the echoed zone list
func (c *Client) DeleteZone(ctx context.Context, cameraID, zoneID string) ([]models.ZonePolygon, error) {
	u := fmt.Sprintf("%s/api/detection/zones/%s/%s", c.baseURL, url.PathEscape(cameraID), url.PathEscape(zoneID))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return nil, err
	}

	var out models.ZoneListResponse
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("failed to delete zone: %w", err)
	}
	return out.Zones, nil
}

// ResetTracker clears the backend's track history for a camera
func (c *Client) ResetTracker(ctx context.Context, cameraID string) error {
	u := fmt.Sprintf("%s/api/detection/tracker/%s/reset", c.baseURL, url.PathEscape(cameraID))

	var out struct {
		Success bool `json:"success"`
	}
	if err := c.postJSON(ctx, u, nil, &out); err != nil {
		return fmt.Errorf("failed to reset tracker: %w", err)
	}
	return nil
}

// GetStats fetches a traffic stats snapshot for a camera
func (c *Client) GetStats(ctx context.Context, cameraID, imageURL string) (*models.TrafficStats, error) {
	u := fmt.Sprintf("%s/api/detection/stats/%s?image_url=%s",
		c.baseURL, url.PathEscape(cameraID), url.QueryEscape(imageURL))

	var out models.TrafficStats
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &out, nil
}

// FetchSnapshot downloads raw image bytes, normally through the media proxy
func (c *Client) FetchSnapshot(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ProxyImageURL routes a camera snapshot URL through the media proxy
func (c *Client) ProxyImageURL(raw string) string {
	return fmt.Sprintf("%s/api/proxy/image?url=%s", c.baseURL, url.QueryEscape(raw))
}

// ProxyHLSURL routes a streaming playlist URL through the media proxy
func (c *Client) ProxyHLSURL(raw string) string {
	return fmt.Sprintf("%s/api/proxy/hls?url=%s", c.baseURL, url.QueryEscape(raw))
}

// VideoStreamURL is the per-camera streaming-detection websocket endpoint
func (c *Client) VideoStreamURL(cameraID string) string {
	return fmt.Sprintf("%s/api/detection/video-stream/%s", c.cfg.WebSocketBase(), url.PathEscape(cameraID))
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, u string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn().
			Int("status", resp.StatusCode).
			Str("url", req.URL.String()).
			Msg("Backend returned non-2xx status")
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// malformed payloads collapse to the "no result" case upstream
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
