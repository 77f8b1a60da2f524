package driven

import (
	"context"

	"github.com/custodia-labs/tickersync/internal/core/domain"
)

// DataProvider fetches daily observations for one entity from an external source.
// Each provider (alphavantage, yahoo) implements this interface and normalises
// its own field names into domain.Observation.
type DataProvider interface {
	// Name returns the provider identifier.
	Name() string

	// Fetch returns the observations for entity inside window, ascending by
	// trading date. Days the provider has no data for are simply absent.
	// An empty result is not an error.
	//
	// Implementations never retry. Failures are classified by wrapping
	// domain.ErrProviderRateLimited, domain.ErrProviderNoData,
	// domain.ErrProviderTimeout or domain.ErrProviderError.
	Fetch(ctx context.Context, entity domain.Entity, window domain.Window) ([]domain.Observation, error)
}

// FundamentalsProvider fetches a point-in-time fundamentals snapshot.
type FundamentalsProvider interface {
	// FetchFundamentals returns today's snapshot for entity.
	FetchFundamentals(ctx context.Context, entity domain.Entity) (*domain.Fundamentals, error)
}

// ProviderFactory creates providers from job configuration.
type ProviderFactory interface {
	// Create returns the DataProvider for the job's provider kind.
	// Returns ErrUnsupportedType if the provider is unknown.
	Create(ctx context.Context, job domain.JobSettings) (DataProvider, error)

	// CreateFundamentals returns the FundamentalsProvider for the job.
	// Returns ErrUnsupportedType if the provider has no fundamentals.
	CreateFundamentals(ctx context.Context, job domain.JobSettings) (FundamentalsProvider, error)
}
