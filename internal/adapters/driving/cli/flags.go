package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Manage master table process flags",
	Long: `Set or clear the process flag that ad-hoc jobs use to pick symbols.

With no symbols the change applies to every row of the job's master table.`,
}

var flagsSetCmd = &cobra.Command{
	Use:   "set [job] [symbols...]",
	Short: "Mark symbols as pending",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlags(cmd, args, true)
	},
}

var flagsClearCmd = &cobra.Command{
	Use:   "clear [job] [symbols...]",
	Short: "Clear the pending mark",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlags(cmd, args, false)
	},
}

func init() {
	flagsCmd.AddCommand(flagsSetCmd)
	flagsCmd.AddCommand(flagsClearCmd)
	rootCmd.AddCommand(flagsCmd)
}

func runFlags(cmd *cobra.Command, args []string, pending bool) error {
	if flagService == nil {
		return errors.New("flag service not configured")
	}

	job, symbols := args[0], args[1:]
	n, err := flagService.SetPending(cmd.Context(), job, symbols, pending)
	if err != nil {
		return fmt.Errorf("failed to update flags: %w", err)
	}

	if pending {
		cmd.Printf("Marked %d symbols pending for %s.\n", n, job)
	} else {
		cmd.Printf("Cleared %d pending symbols for %s.\n", n, job)
	}
	return nil
}
