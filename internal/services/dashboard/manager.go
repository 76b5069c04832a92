// Package dashboard owns the open camera views: their feed controllers, the
// overlay repaints and the zone editor orchestration.
package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/config"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/metrics"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/overlay"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/backend"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/feed"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/messaging"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/publisher/mjpeg"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/selection"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/zones"
)

var (
	ErrViewNotFound   = fmt.Errorf("no open view for this camera")
	ErrViewExists     = fmt.Errorf("a view is already open for this camera")
	ErrTooManyViews   = fmt.Errorf("maximum number of open views reached")
	ErrCameraNotFound = fmt.Errorf("camera not found")
	// ErrEditingActive blocks the detection toggle while a zone draft is open
	ErrEditingActive = fmt.Errorf("detection cannot be toggled while editing zones")
)

const cameraPageSize = 500

// Manager tracks the open views and wires the editor rules that span
// services: a detection toggle is refused mid-edit, and opening the editor
// on a detecting view turns detection off first.
type Manager struct {
	cfg       *config.Config
	client    *backend.Client
	zones     *zones.Service
	selection *selection.Store
	publisher *mjpeg.Publisher
	alerter   *messaging.Alerter

	compositor *overlay.Compositor

	mu    sync.RWMutex
	views map[string]*View

	// Controller construction seam for tests
	newController func(models.Camera, feed.Events) *feed.Controller
}

func NewManager(cfg *config.Config, client *backend.Client, zoneSvc *zones.Service,
	sel *selection.Store, pub *mjpeg.Publisher, alerter *messaging.Alerter) *Manager {

	m := &Manager{
		cfg:        cfg,
		client:     client,
		zones:      zoneSvc,
		selection:  sel,
		publisher:  pub,
		alerter:    alerter,
		compositor: overlay.New(),
		views:      make(map[string]*View),
	}
	m.newController = func(camera models.Camera, events feed.Events) *feed.Controller {
		return feed.NewController(cfg, client, camera.ID, camera.URL, events)
	}
	return m
}

// Cameras merges the backend camera list with local selection and view state
func (m *Manager) Cameras(ctx context.Context, limit, skip int) ([]models.CameraView, error) {
	if limit <= 0 {
		limit = cameraPageSize
	}
	list, err := m.client.ListCameras(ctx, limit, skip)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.CameraView, 0, len(list.Items))
	for _, cam := range list.Items {
		_, open := m.views[cam.ID]
		out = append(out, models.CameraView{
			Camera:   cam,
			Selected: m.selection.IsSelected(cam.ID),
			ViewOpen: open,
		})
	}
	return out, nil
}

func (m *Manager) lookupCamera(ctx context.Context, cameraID string) (models.Camera, error) {
	list, err := m.client.ListCameras(ctx, cameraPageSize, 0)
	if err != nil {
		return models.Camera{}, err
	}
	for _, cam := range list.Items {
		if cam.ID == cameraID {
			return cam, nil
		}
	}
	return models.Camera{}, ErrCameraNotFound
}

// OpenView starts a view for the camera and warms the zone cache
func (m *Manager) OpenView(ctx context.Context, cameraID string, req models.ViewRequest) (models.ViewState, error) {
	camera, err := m.lookupCamera(ctx, cameraID)
	if err != nil {
		return models.ViewState{}, err
	}

	m.mu.Lock()
	if _, exists := m.views[cameraID]; exists {
		m.mu.Unlock()
		return models.ViewState{}, ErrViewExists
	}
	if len(m.views) >= m.cfg.MaxViews {
		m.mu.Unlock()
		return models.ViewState{}, ErrTooManyViews
	}

	v := newView(m.cfg, camera, m.zones, m.publisher, m.alerter, m.compositor, m.newController)
	m.views[cameraID] = v
	m.mu.Unlock()

	// zones draw on the very first frame; a fetch failure only logs
	if _, err := m.zones.Zones(ctx, cameraID); err != nil {
		log.Warn().Err(err).Str("camera_id", cameraID).Msg("Zone prefetch failed, overlays start empty")
	}

	v.start()
	v.apply(req)
	metrics.ActiveViews.Inc()

	log.Info().
		Str("camera_id", cameraID).
		Str("url", camera.URL).
		Bool("is_stream", v.controller.IsStream()).
		Msg("Camera view opened")

	return v.state(), nil
}

func (m *Manager) view(cameraID string) (*View, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.views[cameraID]
	if !ok {
		return nil, ErrViewNotFound
	}
	return v, nil
}

// ViewState returns the observable state of an open view
func (m *Manager) ViewState(cameraID string) (models.ViewState, error) {
	v, err := m.view(cameraID)
	if err != nil {
		return models.ViewState{}, err
	}
	return v.state(), nil
}

// UpdateView reconfigures an open view. Detection toggles are refused while
// a zone draft is in progress.
func (m *Manager) UpdateView(cameraID string, req models.ViewRequest) (models.ViewState, error) {
	v, err := m.view(cameraID)
	if err != nil {
		return models.ViewState{}, err
	}
	if req.Detection != nil && m.zones.Editing(cameraID) {
		return models.ViewState{}, ErrEditingActive
	}
	v.apply(req)
	return v.state(), nil
}

// CloseView tears the view down; always succeeds for an open view
func (m *Manager) CloseView(cameraID string) error {
	m.mu.Lock()
	v, ok := m.views[cameraID]
	if ok {
		delete(m.views, cameraID)
	}
	m.mu.Unlock()
	if !ok {
		return ErrViewNotFound
	}

	m.zones.CancelDraft(cameraID)
	v.close()
	metrics.ActiveViews.Dec()

	log.Info().Str("camera_id", cameraID).Msg("Camera view closed")
	return nil
}

// HasView reports whether a view is open for the camera
func (m *Manager) HasView(cameraID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.views[cameraID]
	return ok
}

// Repaint recomposites a view after out-of-band state changes
func (m *Manager) Repaint(cameraID string) {
	if v, err := m.view(cameraID); err == nil {
		v.repaint()
	}
}

// BeginEditor opens a zone draft. A detecting view drops back to its plain
// mode first so the editor draws on a stable surface.
func (m *Manager) BeginEditor(cameraID string, draft models.ZoneDraft) error {
	if v, err := m.view(cameraID); err == nil && v.controller.Detecting() {
		v.controller.SetDetection(false)
	}
	if err := m.zones.BeginDraft(cameraID, draft); err != nil {
		return err
	}
	m.Repaint(cameraID)
	return nil
}

// AddEditorPoint maps a viewport-space click to frame coordinates and
// appends it to the open draft
func (m *Manager) AddEditorPoint(cameraID string, p models.Point) (int, error) {
	if v, err := m.view(cameraID); err == nil {
		p = v.toFrame(p)
	}
	n, err := m.zones.AddPoint(cameraID, p)
	if err != nil {
		return 0, err
	}
	m.Repaint(cameraID)
	return n, nil
}

// UndoEditorPoint removes the most recent vertex
func (m *Manager) UndoEditorPoint(cameraID string) (int, error) {
	n, err := m.zones.UndoPoint(cameraID)
	if err != nil {
		return 0, err
	}
	m.Repaint(cameraID)
	return n, nil
}

// SaveEditor persists the draft and repaints with the echoed zone list
func (m *Manager) SaveEditor(ctx context.Context, cameraID string) (*models.ZonePolygon, error) {
	zone, err := m.zones.SaveDraft(ctx, cameraID)
	if err != nil {
		return nil, err
	}
	m.Repaint(cameraID)
	return zone, nil
}

// CancelEditor discards the draft
func (m *Manager) CancelEditor(cameraID string) {
	m.zones.CancelDraft(cameraID)
	m.Repaint(cameraID)
}

// DeleteZone removes a zone and repaints any open view
func (m *Manager) DeleteZone(ctx context.Context, cameraID, zoneID string) ([]models.ZonePolygon, error) {
	zones, err := m.zones.DeleteZone(ctx, cameraID, zoneID)
	if err != nil {
		return nil, err
	}
	m.Repaint(cameraID)
	return zones, nil
}

// Shutdown closes every open view
func (m *Manager) Shutdown() {
	m.mu.Lock()
	views := make([]*View, 0, len(m.views))
	for id, v := range m.views {
		views = append(views, v)
		delete(m.views, id)
	}
	m.mu.Unlock()

	for _, v := range views {
		v.close()
		metrics.ActiveViews.Dec()
	}
	log.Info().Int("views", len(views)).Msg("Dashboard manager shut down")
}
