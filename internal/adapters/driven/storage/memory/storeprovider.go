package memory

import (
	"sync"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

// Ensure StoreProvider implements the interface.
var _ driven.StoreProvider = (*StoreProvider)(nil)

// StoreProvider hands out one in-memory store per table name, so jobs that
// share a master table see the same entities.
type StoreProvider struct {
	mu           sync.Mutex
	sources      map[string]*SymbolSource
	observations map[string]*ObservationStore
	fundamentals map[string]*FundamentalsStore
}

// NewStoreProvider creates an empty provider.
func NewStoreProvider() *StoreProvider {
	return &StoreProvider{
		sources:      make(map[string]*SymbolSource),
		observations: make(map[string]*ObservationStore),
		fundamentals: make(map[string]*FundamentalsStore),
	}
}

// Source returns the symbol source for a master table, creating it if needed.
func (p *StoreProvider) Source(table string) *SymbolSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sources[table]
	if !ok {
		s = NewSymbolSource()
		p.sources[table] = s
	}
	return s
}

// Observations returns the observation store for a target table.
func (p *StoreProvider) Observations(table string) *ObservationStore {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.observations[table]
	if !ok {
		s = NewObservationStore()
		p.observations[table] = s
	}
	return s
}

// Fundamentals returns the fundamentals store for a target table.
func (p *StoreProvider) Fundamentals(table string) *FundamentalsStore {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.fundamentals[table]
	if !ok {
		s = NewFundamentalsStore()
		p.fundamentals[table] = s
	}
	return s
}

// SymbolSource implements driven.StoreProvider.
func (p *StoreProvider) SymbolSource(job domain.JobSettings) driven.SymbolSource {
	return p.Source(job.MasterTable)
}

// ObservationStore implements driven.StoreProvider.
func (p *StoreProvider) ObservationStore(job domain.JobSettings) driven.ObservationStore {
	return p.Observations(job.TargetTable)
}

// FundamentalsStore implements driven.StoreProvider.
func (p *StoreProvider) FundamentalsStore(job domain.JobSettings) driven.FundamentalsStore {
	return p.Fundamentals(job.TargetTable)
}
