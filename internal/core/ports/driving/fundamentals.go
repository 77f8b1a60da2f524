package driving

import (
	"context"

	"github.com/custodia-labs/tickersync/internal/core/domain"
)

// FundamentalsService runs fundamentals snapshot jobs.
type FundamentalsService interface {
	// Sync fetches and upserts today's snapshot for every entity of the job.
	Sync(ctx context.Context, job string, opts RunOptions) (*domain.RunSummary, error)
}
