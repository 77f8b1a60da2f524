package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tickersync/internal/core/domain"
)

var checkCmd = &cobra.Command{
	Use:   "check [job]",
	Short: "Show row and symbol counts for a job",
	Long: `Reports how many symbols the job's master table holds, how many are active
or pending, and how many rows the target table has for its latest dates.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if diagnosticsService == nil {
		return errors.New("diagnostics service not configured")
	}

	report, err := diagnosticsService.Check(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	cmd.Printf("Job: %s\n\n", report.Job)
	cmd.Printf("  Master table: %s\n", report.MasterTable)
	cmd.Printf("  Target table: %s\n", report.TargetTable)
	cmd.Printf("  Symbols:      %d total, %d active, %d pending\n",
		report.EntitiesTotal, report.EntitiesActive, report.EntitiesPending)
	if report.TargetMissing {
		cmd.Println("  Rows:         none (target table not created yet)")
		return nil
	}
	cmd.Printf("  Rows:         %d\n", report.Rows)

	if len(report.LatestDates) == 0 {
		cmd.Println("\nNo rows stored yet.")
		return nil
	}

	cmd.Println("\n  Latest dates:")
	for _, d := range report.LatestDates {
		cmd.Printf("    %s  %d rows\n", d.Date.Format(domain.DateLayout), d.Rows)
	}
	return nil
}
