package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driving"
)

var (
	syncSymbols   string
	syncStart     string
	syncEnd       string
	syncOverwrite bool
	syncJSON      bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [job]",
	Short: "Synchronise daily observations for a job",
	Long: `Runs an observations job: for every selected symbol the missing date
window is fetched from the job's provider and upserted into the target table.

Without --start/--end each symbol resumes from its latest stored date, or
from the job's lookback when it has no history. Exits with status 1 when any
symbol failed or the run was interrupted, and 2 when the run could not start.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncSymbols, "symbols", "", "comma-separated symbols to sync (default: the job's filter)")
	syncCmd.Flags().StringVar(&syncStart, "start", "", "window start date (YYYY-MM-DD)")
	syncCmd.Flags().StringVar(&syncEnd, "end", "", "window end date, exclusive (YYYY-MM-DD)")
	syncCmd.Flags().BoolVar(&syncOverwrite, "overwrite", true, "update rows that already exist")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "output the run summary as JSON")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	job := args[0]
	opts := driving.RunOptions{
		Symbols:   splitSymbols(syncSymbols),
		StartDate: syncStart,
		EndDate:   syncEnd,
	}
	if cmd.Flags().Changed("overwrite") {
		overwrite := syncOverwrite
		opts.Overwrite = &overwrite
	}

	if !syncJSON {
		cmd.Printf("Synchronising %s...\n", job)
	}

	summary, err := syncWithProgress(cmd.Context(), cmd, syncOrchestrator, job, opts, !syncJSON)
	return finishRun(cmd, "sync", summary, err, syncJSON)
}

// finishRun prints whatever summary a run produced and maps the result to an
// exit status. A run that returns no summary never started; one that returns
// a summary with an error was interrupted part-way.
func finishRun(cmd *cobra.Command, action string, summary *domain.RunSummary, runErr error, asJSON bool) error {
	if runErr != nil && summary == nil {
		return &ExitError{Code: ExitSetup, Err: fmt.Errorf("%s failed: %w", action, runErr)}
	}
	if err := outputSummary(cmd, summary, asJSON); err != nil {
		return err
	}
	if runErr != nil {
		return &ExitError{Code: ExitFailed, Err: fmt.Errorf("%s interrupted: %w", action, runErr)}
	}
	return summaryError(summary)
}

// syncWithProgress runs sync while displaying progress updates.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
	job string,
	opts driving.RunOptions,
	showProgress bool,
) (*domain.RunSummary, error) {
	type result struct {
		summary *domain.RunSummary
		err     error
	}

	// Start sync in goroutine
	resultCh := make(chan result, 1)
	go func() {
		summary, err := syncOrch.Sync(ctx, job, opts)
		resultCh <- result{summary: summary, err: err}
	}()

	// Poll status every 500ms
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastDone := -1
	for {
		select {
		case res := <-resultCh:
			if showProgress && lastDone >= 0 {
				cmd.Println()
			}
			return res.summary, res.err
		case <-ticker.C:
			if !showProgress {
				continue
			}
			// Best effort; a missing status just skips this tick.
			status, statusErr := syncOrch.Status(ctx, job)
			if statusErr != nil || status == nil || !status.Running || status.EntitiesDone == lastDone {
				continue
			}
			cmd.Printf("\r[%d/%d] %s: %d rows written (%d errors)",
				status.EntitiesDone, status.EntitiesTotal, status.Current,
				status.RowsWritten, status.ErrorCount)
			lastDone = status.EntitiesDone
		}
	}
}

// summaryError returns an ExitFailed error when any entity failed.
func summaryError(summary *domain.RunSummary) error {
	if summary == nil || !summary.HasFailures() {
		return nil
	}
	totals := summary.Totals()
	return &ExitError{
		Code: ExitFailed,
		Err:  fmt.Errorf("%d of %d symbols failed", totals.Failed, totals.Entities),
	}
}

func outputSummary(cmd *cobra.Command, summary *domain.RunSummary, asJSON bool) error {
	if summary == nil {
		return nil
	}
	if asJSON {
		return outputSummaryJSON(cmd, summary)
	}
	outputSummaryText(cmd, summary)
	return nil
}

func outputSummaryJSON(cmd *cobra.Command, summary *domain.RunSummary) error {
	out := struct {
		*domain.RunSummary
		Totals   domain.Totals `json:"totals"`
		Duration string        `json:"duration"`
	}{
		RunSummary: summary,
		Totals:     summary.Totals(),
		Duration:   summary.Duration().Round(time.Millisecond).String(),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSummaryText(cmd *cobra.Command, summary *domain.RunSummary) {
	t := summary.Totals()

	cmd.Printf("Run %s (%s) finished in %s\n", summary.RunID, summary.Job,
		summary.Duration().Round(time.Millisecond))
	cmd.Printf("  Symbols: %d (%d committed, %d skipped, %d failed, %d rate limited)\n",
		t.Entities, t.Committed, t.Skipped, t.Failed, t.RateLimited)
	cmd.Printf("  Rows:    %d fetched, %d inserted, %d updated, %d skipped, %d errored\n",
		t.Fetched, t.Inserted, t.Updated, t.Rows, t.Errored)
	if summary.FirstDate != nil && summary.LastDate != nil {
		cmd.Printf("  Dates:   %s to %s\n",
			summary.FirstDate.Format(domain.DateLayout), summary.LastDate.Format(domain.DateLayout))
	}

	var failed, skipped []domain.EntityOutcome
	for _, o := range summary.Entities {
		switch o.State {
		case domain.StateFailed:
			failed = append(failed, o)
		case domain.StateSkipped:
			if o.SkipReason != domain.SkipEmptyWindow {
				skipped = append(skipped, o)
			}
		}
	}
	if len(skipped) > 0 {
		cmd.Println("\nSkipped:")
		for _, o := range skipped {
			cmd.Printf("  %s: %s\n", o.Symbol, o.SkipReason)
		}
	}
	if len(failed) > 0 {
		cmd.Println("\nFailed:")
		for _, o := range failed {
			cmd.Printf("  %s: %s\n", o.Symbol, o.Error)
		}
	}
}

// splitSymbols parses a comma-separated list, dropping blanks.
func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
