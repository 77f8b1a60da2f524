package file

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/sethvargo/go-envconfig"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

const (
	// ConfigFile is the default configuration file name.
	ConfigFile = "config.toml"

	// EnvFile is loaded from the configuration directory and the working
	// directory. Variables already set in the environment win.
	EnvFile = ".env"

	configDirName = ".tickersync"
)

// Environment variables that override the configuration file.
const (
	EnvDataDir      = "TICKERSYNC_DATA_DIR"
	EnvDBDriver     = "TICKERSYNC_DB_DRIVER"
	EnvDBDSN        = "TICKERSYNC_DB_DSN"
	EnvLogLevel     = "TICKERSYNC_LOG_LEVEL"
	EnvLogFormat    = "TICKERSYNC_LOG_FORMAT"
	EnvLogFile      = "TICKERSYNC_LOG_FILE"
	EnvAlphaVantage = "ALPHA_VANTAGE_API_KEY" //nolint:gosec // G101: variable name, not a credential.
	EnvStartDate    = "TICKERSYNC_START_DATE"
	EnvEndDate      = "TICKERSYNC_END_DATE"
)

// SettingsStore is a file-based implementation of driven.SettingsStore using TOML.
type SettingsStore struct {
	filePath string
}

// NewSettingsStore creates a store for the given file.
// If path is empty, defaults to ~/.tickersync/config.toml.
func NewSettingsStore(path string) (*SettingsStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, configDirName, ConfigFile)
	}
	return &SettingsStore{filePath: path}, nil
}

// Path returns the configuration file path.
func (s *SettingsStore) Path() string {
	return s.filePath
}

// Load reads defaults, then the TOML file, then the environment.
func (s *SettingsStore) Load() (domain.Settings, error) {
	settings := domain.DefaultSettings()
	s.loadEnvFiles()

	data, err := os.ReadFile(s.filePath)
	switch {
	case os.IsNotExist(err):
		// No config file yet - defaults plus environment.
	case err != nil:
		return domain.Settings{}, fmt.Errorf("reading %s: %w", s.filePath, err)
	default:
		var fc fileConfig
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			return domain.Settings{}, domain.ConfigErrorf("%s: %v", s.filePath, err)
		}
		if err := fc.apply(&settings); err != nil {
			return domain.Settings{}, err
		}
	}

	if err := applyEnv(context.Background(), &settings); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

// WriteDefault writes the default configuration with restricted permissions.
func (s *SettingsStore) WriteDefault(overwrite bool) error {
	if _, err := os.Stat(s.filePath); err == nil && !overwrite {
		return fmt.Errorf("%w: %s already exists", domain.ErrInvalidInput, s.filePath)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return err
	}

	data, err := toml.Marshal(newFileConfig(domain.DefaultSettings()))
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// loadEnvFiles loads .env next to the config file and in the working
// directory. Missing files are ignored.
func (s *SettingsStore) loadEnvFiles() {
	for _, path := range []string{filepath.Join(filepath.Dir(s.filePath), EnvFile), EnvFile} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// envOverrides mirrors the Env* variables.
type envOverrides struct {
	DataDir      string `env:"TICKERSYNC_DATA_DIR"`
	DBDriver     string `env:"TICKERSYNC_DB_DRIVER"`
	DBDSN        string `env:"TICKERSYNC_DB_DSN"`
	LogLevel     string `env:"TICKERSYNC_LOG_LEVEL"`
	LogFormat    string `env:"TICKERSYNC_LOG_FORMAT"`
	LogFile      string `env:"TICKERSYNC_LOG_FILE"`
	AlphaVantage string `env:"ALPHA_VANTAGE_API_KEY"`
	StartDate    string `env:"TICKERSYNC_START_DATE"`
	EndDate      string `env:"TICKERSYNC_END_DATE"`
}

// applyEnv overlays environment variables. A start/end pair applies to every
// observations job except previous-day jobs.
func applyEnv(ctx context.Context, settings *domain.Settings) error {
	var env envOverrides
	if err := envconfig.Process(ctx, &env); err != nil {
		return domain.ConfigErrorf("environment: %v", err)
	}

	setString(&settings.Database.DataDir, env.DataDir)
	setString((*string)(&settings.Database.Driver), strings.ToLower(env.DBDriver))
	setString(&settings.Database.DSN, env.DBDSN)
	setString(&settings.Logging.Level, env.LogLevel)
	setString(&settings.Logging.Format, env.LogFormat)
	setString(&settings.Logging.File, env.LogFile)
	setString(&settings.AlphaVantage.APIKey, env.AlphaVantage)

	if env.StartDate == "" && env.EndDate == "" {
		return nil
	}
	for i := range settings.Jobs {
		job := &settings.Jobs[i]
		if job.Kind != domain.JobObservations || job.PreviousDayOnly {
			continue
		}
		job.StartDate, job.EndDate = env.StartDate, env.EndDate
	}
	return nil
}
