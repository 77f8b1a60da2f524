package driving

import "github.com/custodia-labs/tickersync/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Load returns validated settings.
	Load() (domain.Settings, error)

	// Init writes the default configuration file and returns its path.
	Init(overwrite bool) (string, error)

	// Path returns the configuration file path.
	Path() string
}
