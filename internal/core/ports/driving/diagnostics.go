package driving

import (
	"context"
	"time"
)

// DiagnosticsService answers read-only questions about a job's tables.
type DiagnosticsService interface {
	// Check reports entity and row counts for a job.
	Check(ctx context.Context, job string) (*Report, error)
}

// FlagService maintains the process-pending flag on master tables.
type FlagService interface {
	// SetPending sets or clears the flag. An empty symbol list means every row.
	SetPending(ctx context.Context, job string, symbols []string, pending bool) (int, error)
}

// Report is the result of a diagnostics check.
type Report struct {
	Job         string
	MasterTable string
	TargetTable string

	EntitiesTotal   int
	EntitiesActive  int
	EntitiesPending int

	// TargetMissing is set when the target table does not exist yet.
	TargetMissing bool
	Rows          int
	LatestDates   []DateRows
}

// DateRows pairs a trading date with its row count.
type DateRows struct {
	Date time.Time
	Rows int
}
