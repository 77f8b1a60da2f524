package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:         "jobs",
	Short:       "List configured jobs",
	Annotations: map[string]string{skipServices: "true"},
	RunE:        runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if len(settings.Jobs) == 0 {
		cmd.Println("No jobs configured.")
		return nil
	}

	cmd.Println("Jobs:")
	cmd.Println()
	for _, j := range settings.Jobs {
		cmd.Printf("  %s\n", j.Name)
		if j.Description != "" {
			cmd.Printf("    %s\n", j.Description)
		}
		cmd.Printf("    Kind: %s, Provider: %s, Filter: %s\n", j.Kind, j.Provider, j.Filter)
		cmd.Printf("    Tables: %s -> %s\n", j.MasterTable, j.TargetTable)
		cmd.Println()
	}

	cmd.Printf("Total: %d jobs\n", len(settings.Jobs))
	return nil
}
