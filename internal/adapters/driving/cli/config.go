package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Create, locate and inspect the TOML configuration file.

Values from the file are overridden by TICKERSYNC_* and ALPHA_VANTAGE_API_KEY
environment variables, which may also be set in a .env file.`,
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write the default configuration file",
	Annotations: map[string]string{skipServices: "true"},
	RunE:        runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the configuration file path",
	Annotations: map[string]string{skipServices: "true"},
	RunE:        runConfigPath,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show the effective settings",
	Annotations: map[string]string{skipServices: "true"},
	RunE:        runConfigShow,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	path, err := settingsService.Init(configForce)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	cmd.Printf("Wrote default configuration to %s\n", path)
	cmd.Println("Set ALPHA_VANTAGE_API_KEY before running forex jobs.")
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	cmd.Println(settingsService.Path())
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Database]")
	cmd.Printf("  Driver: %s\n", settings.Database.Driver)
	if settings.Database.DSN != "" {
		cmd.Printf("  DSN: %s\n", maskAPIKey(settings.Database.DSN))
	}
	if settings.Database.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Database.DataDir)
	}
	cmd.Println()

	cmd.Println("[Logging]")
	cmd.Printf("  Level: %s\n", settings.Logging.Level)
	cmd.Printf("  Format: %s\n", settings.Logging.Format)
	if settings.Logging.File != "" {
		cmd.Printf("  File: %s\n", settings.Logging.File)
	}
	cmd.Println()

	cmd.Println("[Alpha Vantage]")
	cmd.Printf("  Base URL: %s\n", settings.AlphaVantage.BaseURL)
	if settings.AlphaVantage.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.AlphaVantage.APIKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	cmd.Println()

	cmd.Println("[Yahoo]")
	cmd.Printf("  Buffer days: %d\n", settings.Yahoo.BufferDays)
	cmd.Println()

	cmd.Printf("Jobs: %d configured (see 'tickersync jobs')\n", len(settings.Jobs))
	return nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
