package services

import (
	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
	"github.com/custodia-labs/tickersync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsService manages application settings.
type SettingsService struct {
	store driven.SettingsStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(store driven.SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// Load reads and validates settings.
func (s *SettingsService) Load() (domain.Settings, error) {
	settings, err := s.store.Load()
	if err != nil {
		return domain.Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

// Init writes the default configuration.
func (s *SettingsService) Init(overwrite bool) (string, error) {
	if err := s.store.WriteDefault(overwrite); err != nil {
		return "", err
	}
	return s.store.Path(), nil
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.store.Path()
}
