// Package provider builds market-data providers from job configuration.
package provider

import (
	"context"
	"fmt"

	"github.com/custodia-labs/tickersync/internal/adapters/driven/provider/alphavantage"
	"github.com/custodia-labs/tickersync/internal/adapters/driven/provider/yahoo"
	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ProviderFactory = (*Factory)(nil)

// Factory creates providers using the shared provider settings.
type Factory struct {
	alphaVantage domain.AlphaVantageSettings
	yahoo        domain.YahooSettings
}

// NewFactory creates a factory from application settings.
func NewFactory(settings domain.Settings) *Factory {
	return &Factory{
		alphaVantage: settings.AlphaVantage,
		yahoo:        settings.Yahoo,
	}
}

// Create returns the DataProvider for the job.
func (f *Factory) Create(_ context.Context, job domain.JobSettings) (driven.DataProvider, error) {
	switch job.Provider {
	case domain.ProviderAlphaVantage:
		p, err := alphavantage.New(f.alphaVantage)
		if err != nil {
			return nil, err
		}
		return p, nil

	case domain.ProviderYahoo:
		return yahoo.New(f.yahoo), nil

	default:
		return nil, fmt.Errorf("%w: provider %q", domain.ErrUnsupportedType, job.Provider)
	}
}

// CreateFundamentals returns the FundamentalsProvider for the job.
// Only Yahoo serves fundamentals.
func (f *Factory) CreateFundamentals(_ context.Context, job domain.JobSettings) (driven.FundamentalsProvider, error) {
	switch job.Provider {
	case domain.ProviderYahoo:
		return yahoo.New(f.yahoo), nil

	case domain.ProviderAlphaVantage:
		return nil, fmt.Errorf("%w: %s does not serve fundamentals", domain.ErrUnsupportedType, job.Provider)

	default:
		return nil, fmt.Errorf("%w: provider %q", domain.ErrUnsupportedType, job.Provider)
	}
}
