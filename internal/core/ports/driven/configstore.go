package driven

import "github.com/custodia-labs/tickersync/internal/core/domain"

// SettingsStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files), environment
// overrides and type conversion.
type SettingsStore interface {
	// Load returns the defaults overlaid with the stored configuration and
	// the environment. A missing file is not an error.
	Load() (domain.Settings, error)

	// WriteDefault persists the default configuration. Fails if the file
	// exists unless overwrite is set.
	WriteDefault(overwrite bool) error

	// Path returns the configuration file path.
	Path() string
}
