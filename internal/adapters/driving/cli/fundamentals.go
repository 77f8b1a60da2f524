package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tickersync/internal/core/ports/driving"
)

var (
	fundamentalsSymbols string
	fundamentalsJSON    bool
)

var fundamentalsCmd = &cobra.Command{
	Use:   "fundamentals [job]",
	Short: "Snapshot fundamentals for a job",
	Long: `Fetches today's fundamentals (market cap, ratios, share counts) for every
selected symbol and upserts one row per symbol per day.`,
	Args: cobra.ExactArgs(1),
	RunE: runFundamentals,
}

func init() {
	fundamentalsCmd.Flags().StringVar(&fundamentalsSymbols, "symbols", "", "comma-separated symbols (default: the job's filter)")
	fundamentalsCmd.Flags().BoolVar(&fundamentalsJSON, "json", false, "output the run summary as JSON")
	rootCmd.AddCommand(fundamentalsCmd)
}

func runFundamentals(cmd *cobra.Command, args []string) error {
	if fundamentalsService == nil {
		return errors.New("fundamentals service not configured")
	}

	job := args[0]
	if !fundamentalsJSON {
		cmd.Printf("Fetching fundamentals for %s...\n", job)
	}

	summary, err := fundamentalsService.Sync(cmd.Context(), job, driving.RunOptions{
		Symbols: splitSymbols(fundamentalsSymbols),
	})
	return finishRun(cmd, "fundamentals", summary, err, fundamentalsJSON)
}
