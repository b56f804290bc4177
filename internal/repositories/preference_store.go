package repositories

import (
	"sync"

	"vadimgribanov.com/tg-remind/internal/models"
)

// PreferenceStore keeps per-user display settings in memory. Reads are far
// more common than writes (every inbound command resolves a timezone), hence
// the reader/writer lock.
type PreferenceStore struct {
	mu              sync.RWMutex
	byUser          map[int64]models.Preferences
	defaultTimezone string
}

func NewPreferenceStore(defaultTimezone string) *PreferenceStore {
	return &PreferenceStore{
		byUser:          make(map[int64]models.Preferences),
		defaultTimezone: defaultTimezone,
	}
}

// Get returns the user's preferences, or the defaults when the user has
// never set any.
func (s *PreferenceStore) Get(userID int64) models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if prefs, ok := s.byUser[userID]; ok {
		return prefs
	}
	return models.DefaultPreferences(s.defaultTimezone)
}

// SetTimezone updates the user's timezone, creating the preference record
// lazily on first write.
func (s *PreferenceStore) SetTimezone(userID int64, timezone string) {
	s.update(userID, func(p *models.Preferences) { p.Timezone = timezone })
}

func (s *PreferenceStore) SetTimeFormat(userID int64, format models.TimeFormat) {
	s.update(userID, func(p *models.Preferences) { p.TimeFormat = format })
}

func (s *PreferenceStore) update(userID int64, mutate func(*models.Preferences)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs, ok := s.byUser[userID]
	if !ok {
		prefs = models.DefaultPreferences(s.defaultTimezone)
	}
	mutate(&prefs)
	s.byUser[userID] = prefs
}

// Snapshot copies all explicit preference records for persistence.
func (s *PreferenceStore) Snapshot() map[int64]models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]models.Preferences, len(s.byUser))
	for userID, prefs := range s.byUser {
		out[userID] = prefs
	}
	return out
}

// Restore replaces the store's contents from a loaded snapshot.
func (s *PreferenceStore) Restore(prefs map[int64]models.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser = make(map[int64]models.Preferences, len(prefs))
	for userID, p := range prefs {
		s.byUser[userID] = p
	}
}
