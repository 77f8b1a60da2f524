package driving

import (
	"context"

	"github.com/custodia-labs/tickersync/internal/core/domain"
)

// SyncOrchestrator runs configured sync jobs.
type SyncOrchestrator interface {
	// Sync runs one job and returns its summary. The summary is returned even
	// when entities failed; the error is non-nil only when the run could not
	// start (configuration, source or setup failure).
	Sync(ctx context.Context, job string, opts RunOptions) (*domain.RunSummary, error)

	// Status returns the live status of a job.
	Status(ctx context.Context, job string) (*SyncStatus, error)

	// Jobs lists the configured jobs.
	Jobs() []domain.JobSettings
}

// RunOptions override job settings for a single run.
type RunOptions struct {
	// Symbols restricts the run to these active symbols.
	Symbols []string

	// StartDate and EndDate (YYYY-MM-DD) set an explicit window.
	StartDate string
	EndDate   string

	// Overwrite overrides the job's overwrite toggle when non-nil.
	Overwrite *bool
}

// SyncStatus represents the current state of a sync run.
type SyncStatus struct {
	// Job identifies the job.
	Job string

	// Running indicates if the run is in progress.
	Running bool

	// Current is the symbol being processed.
	Current string

	// EntitiesTotal and EntitiesDone track progress through the entity list.
	EntitiesTotal int
	EntitiesDone  int

	// RowsWritten counts inserted plus updated rows so far.
	RowsWritten int

	// ErrorCount is the number of failed entities so far.
	ErrorCount int
}
