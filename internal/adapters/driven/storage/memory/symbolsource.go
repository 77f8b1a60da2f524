package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

// Ensure SymbolSource implements the interface.
var _ driven.SymbolSource = (*SymbolSource)(nil)

// SymbolSource is an in-memory implementation of driven.SymbolSource.
type SymbolSource struct {
	mu       sync.RWMutex
	entities map[string]domain.Entity

	// Err, when set, is returned by ListEntities and Count wrapped in
	// domain.ErrSourceUnavailable.
	Err error
}

// NewSymbolSource creates a new in-memory symbol source seeded with entities.
func NewSymbolSource(entities ...domain.Entity) *SymbolSource {
	s := &SymbolSource{entities: make(map[string]domain.Entity)}
	for _, e := range entities {
		s.entities[e.Symbol] = e
	}
	return s
}

// Save stores or replaces an entity.
func (s *SymbolSource) Save(_ context.Context, e domain.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.Symbol] = e
	return nil
}

// Get retrieves an entity by symbol.
func (s *SymbolSource) Get(_ context.Context, symbol string) (*domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

// ListEntities returns matching entities ordered by symbol.
func (s *SymbolSource) ListEntities(_ context.Context, filter domain.EntityFilter) ([]domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, sourceUnavailable(s.Err)
	}

	result := make([]domain.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		if filter.Matches(e) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result, nil
}

// Count returns how many entities match filter.
func (s *SymbolSource) Count(ctx context.Context, filter domain.EntityFilter) (int, error) {
	list, err := s.ListEntities(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// ClearProcessFlag resets the entity's process flag.
func (s *SymbolSource) ClearProcessFlag(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[symbol]
	if !ok {
		return domain.ErrNotFound
	}
	e.ProcessPending = false
	s.entities[symbol] = e
	return nil
}

// SetProcessFlag sets or clears the flag for the listed symbols, or all rows.
func (s *SymbolSource) SetProcessFlag(_ context.Context, symbols []string, pending bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for key, e := range s.entities {
		if len(symbols) > 0 && !containsFold(symbols, e.Symbol) {
			continue
		}
		e.ProcessPending = pending
		s.entities[key] = e
		changed++
	}
	return changed, nil
}

// MarkSynced records the last-synced timestamp.
func (s *SymbolSource) MarkSynced(_ context.Context, symbol string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[symbol]
	if !ok {
		return domain.ErrNotFound
	}
	t := at
	e.LastSyncedAt = &t
	s.entities[symbol] = e
	return nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func sourceUnavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
}
