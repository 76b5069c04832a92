// Package selection persists the user's selected camera set. The list is
// loaded once at startup and rewritten on every change; corrupt or missing
// data is treated as an empty selection, never as a fatal error.
package selection

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

type Store struct {
	path string

	mu       sync.RWMutex
	selected map[string]bool
}

func NewStore(path string) *Store {
	s := &Store{
		path:     path,
		selected: make(map[string]bool),
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("Failed to read camera selection, starting empty")
		}
		return
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Corrupt camera selection file, starting empty")
		return
	}

	for _, id := range ids {
		s.selected[id] = true
	}
	log.Info().Int("count", len(ids)).Str("path", s.path).Msg("Loaded camera selection")
}

func (s *Store) save() {
	ids := s.idsLocked()

	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal camera selection")
		return
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("Failed to create selection directory")
			return
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Failed to write camera selection")
	}
}

// IsSelected reports whether a camera is in the persisted selection
func (s *Store) IsSelected(cameraID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected[cameraID]
}

// IDs returns the selected camera ids, sorted for stable output
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idsLocked()
}

func (s *Store) idsLocked() []string {
	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Replace swaps the whole selection and persists it
func (s *Store) Replace(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = make(map[string]bool, len(ids))
	for _, id := range ids {
		s.selected[id] = true
	}
	s.save()
}

// Toggle flips one camera's membership, persists, and returns the new state
func (s *Store) Toggle(cameraID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected[cameraID] {
		delete(s.selected, cameraID)
	} else {
		s.selected[cameraID] = true
	}
	s.save()
	return s.selected[cameraID]
}
