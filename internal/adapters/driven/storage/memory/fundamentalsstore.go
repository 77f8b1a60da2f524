package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

// Ensure FundamentalsStore implements the interface.
var _ driven.FundamentalsStore = (*FundamentalsStore)(nil)

type fundamentalsKey struct {
	symbol string
	date   string
}

// FundamentalsStore is an in-memory implementation of driven.FundamentalsStore.
type FundamentalsStore struct {
	mu      sync.RWMutex
	rows    map[fundamentalsKey]domain.Fundamentals
	ensured bool
}

// NewFundamentalsStore creates a new in-memory fundamentals store.
func NewFundamentalsStore() *FundamentalsStore {
	return &FundamentalsStore{rows: make(map[fundamentalsKey]domain.Fundamentals)}
}

// EnsureSchema marks the table as created.
func (s *FundamentalsStore) EnsureSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured = true
	return nil
}

// TableExists reports whether EnsureSchema ran or snapshots were stored.
func (s *FundamentalsStore) TableExists(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ensured || len(s.rows) > 0, nil
}

// Upsert inserts or replaces the snapshot for (symbol, fetch date).
func (s *FundamentalsStore) Upsert(_ context.Context, f domain.Fundamentals) (domain.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fundamentalsKey{symbol: f.Symbol, date: domain.FormatDate(f.FetchDate)}
	_, exists := s.rows[key]
	s.rows[key] = f
	if exists {
		return domain.Updated, nil
	}
	return domain.Inserted, nil
}

// Get returns the snapshot for symbol on the given YYYY-MM-DD date.
func (s *FundamentalsStore) Get(symbol, date string) (domain.Fundamentals, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.rows[fundamentalsKey{symbol: symbol, date: date}]
	return f, ok
}

// Count returns the number of stored snapshots.
func (s *FundamentalsStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}
