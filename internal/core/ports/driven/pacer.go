package driven

import (
	"context"

	"github.com/custodia-labs/tickersync/internal/core/domain"
)

// Pacer spaces provider calls to stay under a rate ceiling.
type Pacer interface {
	// Wait blocks until the next call may be made or ctx is done.
	Wait(ctx context.Context) error
}

// PacerFactory builds the pacer configured for a job.
type PacerFactory func(job domain.JobSettings) Pacer
