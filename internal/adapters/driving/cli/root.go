// Package cli provides the tickersync command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driving"
	"github.com/custodia-labs/tickersync/internal/logger"
)

// Exit codes returned by Execute.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitSetup  = 2
)

// skipServices marks commands that run without opening the store.
const skipServices = "tickersync.skip-services"

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
)

// Services used by the commands. They are assigned before a command runs,
// or directly by tests.
var (
	settingsService     driving.SettingsService
	syncOrchestrator    driving.SyncOrchestrator
	fundamentalsService driving.FundamentalsService
	diagnosticsService  driving.DiagnosticsService
	flagService         driving.FlagService
)

var (
	wiring        *Wiring
	closeServices func() error
)

// Services is the set of driving services opened for one invocation.
type Services struct {
	Sync         driving.SyncOrchestrator
	Fundamentals driving.FundamentalsService
	Diagnostics  driving.DiagnosticsService
	Flags        driving.FlagService

	// Close releases the store and log file.
	Close func() error
}

// Wiring builds services on demand so that commands such as version and
// config init work without a database.
type Wiring struct {
	// Settings returns the settings service for the given config path.
	Settings func(configPath string) (driving.SettingsService, error)

	// Open connects the store and builds the services from settings.
	Open func(ctx context.Context, settings domain.Settings) (*Services, error)
}

// ExitError carries a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps a command error to a process exit code. Errors without an
// explicit code mean the command could not run.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitSetup
}

var rootCmd = &cobra.Command{
	Use:   "tickersync",
	Short: "Incremental market data sync",
	Long: `tickersync pulls daily market data from Alpha Vantage and Yahoo Finance
and upserts it into per-market history tables.

Each job reads its symbols from a master table, works out the missing date
window per symbol, fetches and writes the rows in batches, then clears the
symbol's process flag.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupServices,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.tickersync/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context, w *Wiring) int {
	wiring = w
	defer func() { wiring = nil }()

	err := rootCmd.ExecuteContext(ctx)
	if closeServices != nil {
		err = errors.Join(err, closeServices())
		closeServices = nil
	}
	if err != nil {
		rootCmd.PrintErrln("Error:", err)
	}
	return ExitCode(err)
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if wiring == nil {
		return nil
	}

	svc, err := wiring.Settings(configPath)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	settingsService = svc

	if _, skip := cmd.Annotations[skipServices]; skip {
		return nil
	}

	settings, err := settingsService.Load()
	if err != nil {
		return err
	}
	if err := logger.Configure(logger.Config{
		Level:      settings.Logging.Level,
		Format:     settings.Logging.Format,
		File:       settings.Logging.File,
		MaxSizeMB:  settings.Logging.MaxSizeMB,
		MaxBackups: settings.Logging.MaxBackups,
		MaxAgeDays: settings.Logging.MaxAgeDays,
	}); err != nil {
		return domain.ConfigErrorf("logging: %v", err)
	}

	services, err := wiring.Open(cmd.Context(), settings)
	if err != nil {
		return err
	}
	syncOrchestrator = services.Sync
	fundamentalsService = services.Fundamentals
	diagnosticsService = services.Diagnostics
	flagService = services.Flags
	closeServices = services.Close
	return nil
}
