package memory

import (
	"sync"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore is an in-memory implementation of driven.SettingsStore for testing.
type SettingsStore struct {
	mu       sync.RWMutex
	settings *domain.Settings
	written  bool

	// Err, when set, is returned by Load and WriteDefault.
	Err error
}

// NewSettingsStore creates a store holding settings. A nil value behaves like
// a missing file and loads the defaults.
func NewSettingsStore(settings *domain.Settings) *SettingsStore {
	return &SettingsStore{settings: settings}
}

// Load returns a copy of the held settings.
func (s *SettingsStore) Load() (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return domain.Settings{}, s.Err
	}
	if s.settings == nil {
		return domain.DefaultSettings(), nil
	}
	out := *s.settings
	out.Jobs = append([]domain.JobSettings(nil), s.settings.Jobs...)
	return out, nil
}

// WriteDefault replaces the held settings with the defaults.
func (s *SettingsStore) WriteDefault(overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.settings != nil && !overwrite {
		return domain.ErrInvalidInput
	}
	defaults := domain.DefaultSettings()
	s.settings = &defaults
	s.written = true
	return nil
}

// Written reports whether WriteDefault has succeeded.
func (s *SettingsStore) Written() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.written
}

// Path returns a placeholder path.
func (s *SettingsStore) Path() string {
	return "memory://config.toml"
}
