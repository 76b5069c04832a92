// Package zones holds the per-camera zone cache and the polygon editor.
// Zones are owned by the backend; the cache is replaced wholesale after every
// add/delete/save round-trip, never merged.
package zones

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/NguyenVanMinhGiang2005/ITS/internal/models"
	"github.com/NguyenVanMinhGiang2005/ITS/internal/services/backend"
)

// Save validation failures. These block the request locally; nothing is sent.
var (
	ErrTooFewPoints   = fmt.Errorf("zone needs at least 3 points")
	ErrMissingLink    = fmt.Errorf("stop line zone requires a linked traffic light")
	ErrLinkNotFound   = fmt.Errorf("linked traffic light zone does not exist")
	ErrNotEditing     = fmt.Errorf("no zone draft in progress")
	ErrAlreadyEditing = fmt.Errorf("a zone draft is already in progress")
)

// Default display colors per role
var roleDefaultColors = map[models.ZoneRole]string{
	models.ZoneRoleNormal:       "#00FF00",
	models.ZoneRoleParking:      "#FF0000",
	models.ZoneRoleTrafficLight: "#FF4444",
	models.ZoneRoleStopLine:     "#FFFFFF",
}

type Service struct {
	client *backend.Client

	mu     sync.RWMutex
	cache  map[string][]models.ZonePolygon
	drafts map[string]*models.ZoneDraft
}

func NewService(client *backend.Client) *Service {
	return &Service{
		client: client,
		cache:  make(map[string][]models.ZonePolygon),
		drafts: make(map[string]*models.ZoneDraft),
	}
}

// Zones returns the cached zone list, fetching from the backend on first use
func (s *Service) Zones(ctx context.Context, cameraID string) ([]models.ZonePolygon, error) {
	s.mu.RLock()
	cached, ok := s.cache[cameraID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}
	return s.Refresh(ctx, cameraID)
}

// Cached returns the current cache entry without touching the backend
func (s *Service) Cached(cameraID string) []models.ZonePolygon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[cameraID]
}

// Refresh re-fetches the authoritative zone list and replaces the cache
func (s *Service) Refresh(ctx context.Context, cameraID string) ([]models.ZonePolygon, error) {
	fetched, err := s.client.GetZones(ctx, cameraID)
	if err != nil {
		return nil, err
	}
	s.replace(cameraID, fetched)
	return fetched, nil
}

// Invalidate drops the cache entry; the next read goes back to the backend
func (s *Service) Invalidate(cameraID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, cameraID)
}

// DeleteZone round-trips a deletion and applies the echoed zone list
func (s *Service) DeleteZone(ctx context.Context, cameraID, zoneID string) ([]models.ZonePolygon, error) {
	echoed, err := s.client.DeleteZone(ctx, cameraID, zoneID)
	if err != nil {
		return nil, err
	}
	s.replace(cameraID, echoed)
	return echoed, nil
}

// SaveAll replaces the camera's whole zone set and re-fetches the echo
func (s *Service) SaveAll(ctx context.Context, cameraID string, zones []models.ZonePolygon) ([]models.ZonePolygon, error) {
	if err := s.client.SaveZones(ctx, cameraID, zones); err != nil {
		return nil, err
	}
	return s.Refresh(ctx, cameraID)
}

func (s *Service) replace(cameraID string, zones []models.ZonePolygon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[cameraID] = zones
}

// BeginDraft enters drawing mode for a camera. Only one draft per camera.
func (s *Service) BeginDraft(cameraID string, draft models.ZoneDraft) error {
	if !draft.Role.IsValid() {
		draft.Role = models.ZoneRoleNormal
	}
	if draft.Color == "" {
		draft.Color = roleDefaultColors[draft.Role]
	}
	draft.Points = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.drafts[cameraID]; exists {
		return ErrAlreadyEditing
	}
	s.drafts[cameraID] = &draft

	log.Info().
		Str("camera_id", cameraID).
		Str("role", draft.Role.String()).
		Msg("Zone draft started")
	return nil
}

// Editing reports whether a draft is in progress for the camera
func (s *Service) Editing(cameraID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.drafts[cameraID]
	return ok
}

// Draft returns a copy of the in-progress draft, or nil
func (s *Service) Draft(cameraID string) *models.ZoneDraft {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[cameraID]
	if !ok {
		return nil
	}
	cp := *draft
	cp.Points = append([]models.Point(nil), draft.Points...)
	return &cp
}

// AddPoint appends a frame-space vertex to the draft
func (s *Service) AddPoint(cameraID string, p models.Point) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[cameraID]
	if !ok {
		return 0, ErrNotEditing
	}
	draft.Points = append(draft.Points, p)
	return len(draft.Points), nil
}

// UndoPoint removes the most recently placed vertex
func (s *Service) UndoPoint(cameraID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[cameraID]
	if !ok {
		return 0, ErrNotEditing
	}
	if len(draft.Points) > 0 {
		draft.Points = draft.Points[:len(draft.Points)-1]
	}
	return len(draft.Points), nil
}

// CancelDraft discards the in-progress polygon
func (s *Service) CancelDraft(cameraID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, cameraID)
}

// SaveDraft validates the draft, persists it through the backend, applies the
// echoed zone list, and leaves drawing mode. Validation failures block the
// save without sending anything.
func (s *Service) SaveDraft(ctx context.Context, cameraID string) (*models.ZonePolygon, error) {
	s.mu.Lock()
	draft, ok := s.drafts[cameraID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotEditing
	}
	cached := s.cache[cameraID]

	if err := validateDraft(draft, cached); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	zone := models.ZonePolygon{
		ID:     models.NewZoneID(),
		Name:   draft.Name,
		Points: append([]models.Point(nil), draft.Points...),
		Color:  draft.Color,
	}
	zone.SetRole(draft.Role)
	if draft.Role == models.ZoneRoleStopLine {
		zone.LinkedTrafficLightID = draft.LinkedTrafficLightID
	}
	s.mu.Unlock()

	echoed, err := s.client.AddZone(ctx, cameraID, zone)
	if err != nil {
		return nil, err
	}
	s.replace(cameraID, echoed)
	s.CancelDraft(cameraID)

	log.Info().
		Str("camera_id", cameraID).
		Str("zone_id", zone.ID).
		Str("role", draft.Role.String()).
		Int("points", len(zone.Points)).
		Msg("Zone saved")

	saved := models.FindZone(echoed, zone.ID)
	if saved == nil {
		// backend accepted but did not echo the new id; fall back to what we sent
		return &zone, nil
	}
	return saved, nil
}

func validateDraft(draft *models.ZoneDraft, existing []models.ZonePolygon) error {
	if len(draft.Points) < 3 {
		return ErrTooFewPoints
	}
	if draft.Role != models.ZoneRoleStopLine {
		return nil
	}
	if draft.LinkedTrafficLightID == "" {
		return ErrMissingLink
	}
	linked := models.FindZone(existing, draft.LinkedTrafficLightID)
	if linked == nil || !linked.IsTrafficLight {
		return ErrLinkNotFound
	}
	return nil
}
