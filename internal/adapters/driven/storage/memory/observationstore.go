package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

// Ensure ObservationStore implements the interface.
var _ driven.ObservationStore = (*ObservationStore)(nil)

// ObservationStore is an in-memory implementation of driven.ObservationStore.
// Writers buffer rows until Commit, mirroring a transactional store, and the
// store counts commits and rollbacks for assertions.
type ObservationStore struct {
	mu        sync.RWMutex
	rows      map[domain.ObservationKey]domain.Observation
	ensured   bool
	commits   int
	rollbacks int

	// failures maps a symbol to the error returned by Upsert for its rows.
	failures map[string]error

	// commitErr, when set, is returned by every Commit.
	commitErr error
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		rows:     make(map[domain.ObservationKey]domain.Observation),
		failures: make(map[string]error),
	}
}

// FailWrites makes every Upsert for symbol return err.
func (s *ObservationStore) FailWrites(symbol string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[symbol] = err
}

// FailCommits makes every Commit return err.
func (s *ObservationStore) FailCommits(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

// Seed stores observations as already committed.
func (s *ObservationStore) Seed(obs ...domain.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range obs {
		o.TradingDate = domain.Day(o.TradingDate)
		s.rows[o.Key()] = o
	}
}

// Get returns a committed observation.
func (s *ObservationStore) Get(symbol string, day time.Time) (domain.Observation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.rows[domain.ObservationKey{Symbol: symbol, TradingDate: domain.Day(day)}]
	return o, ok
}

// Rows returns committed observations for symbol, ascending by date.
func (s *ObservationStore) Rows(symbol string) []domain.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Observation
	for k, o := range s.rows {
		if k.Symbol == symbol {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradingDate.Before(out[j].TradingDate) })
	return out
}

// Commits returns the number of Commit calls.
func (s *ObservationStore) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

// Rollbacks returns the number of Rollback calls that discarded rows.
func (s *ObservationStore) Rollbacks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rollbacks
}

// EnsureSchema marks the table as created.
func (s *ObservationStore) EnsureSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured = true
	return nil
}

// TableExists reports whether EnsureSchema ran or rows were stored.
func (s *ObservationStore) TableExists(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ensured || len(s.rows) > 0, nil
}

// MaxTradingDate returns the latest committed trading date for symbol.
func (s *ObservationStore) MaxTradingDate(_ context.Context, symbol string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var maxDate time.Time
	found := false
	for k := range s.rows {
		if k.Symbol != symbol {
			continue
		}
		if !found || k.TradingDate.After(maxDate) {
			maxDate = k.TradingDate
			found = true
		}
	}
	return maxDate, found, nil
}

// Count returns the number of committed observations.
func (s *ObservationStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

// LatestDates returns the newest trading dates with row counts.
func (s *ObservationStore) LatestDates(_ context.Context, limit int) ([]driven.DateCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[time.Time]int)
	for k := range s.rows {
		counts[k.TradingDate]++
	}
	out := make([]driven.DateCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, driven.DateCount{TradingDate: d, Rows: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradingDate.After(out[j].TradingDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Begin opens a buffering writer.
func (s *ObservationStore) Begin(_ context.Context) (driven.ObservationWriter, error) {
	return &observationWriter{
		store:   s,
		pending: make(map[domain.ObservationKey]domain.Observation),
	}, nil
}

// observationWriter buffers rows until Commit.
type observationWriter struct {
	store   *ObservationStore
	pending map[domain.ObservationKey]domain.Observation
}

// Exists checks pending then committed rows.
func (w *observationWriter) Exists(_ context.Context, key domain.ObservationKey) (bool, error) {
	key.TradingDate = domain.Day(key.TradingDate)
	if _, ok := w.pending[key]; ok {
		return true, nil
	}
	w.store.mu.RLock()
	defer w.store.mu.RUnlock()
	_, ok := w.store.rows[key]
	return ok, nil
}

// Upsert buffers obs and reports whether it would insert or update.
func (w *observationWriter) Upsert(ctx context.Context, obs domain.Observation) (domain.UpsertResult, error) {
	w.store.mu.RLock()
	failErr := w.store.failures[obs.Symbol]
	w.store.mu.RUnlock()
	if failErr != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStoreWrite, failErr)
	}

	obs.TradingDate = domain.Day(obs.TradingDate)
	exists, err := w.Exists(ctx, obs.Key())
	if err != nil {
		return "", err
	}
	w.pending[obs.Key()] = obs
	if exists {
		return domain.Updated, nil
	}
	return domain.Inserted, nil
}

// Commit moves pending rows into the store.
func (w *observationWriter) Commit() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.commits++
	if w.store.commitErr != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, w.store.commitErr)
	}
	for k, o := range w.pending {
		w.store.rows[k] = o
	}
	w.pending = make(map[domain.ObservationKey]domain.Observation)
	return nil
}

// Rollback discards pending rows.
func (w *observationWriter) Rollback() error {
	if len(w.pending) == 0 {
		return nil
	}
	w.store.mu.Lock()
	w.store.rollbacks++
	w.store.mu.Unlock()
	w.pending = make(map[domain.ObservationKey]domain.Observation)
	return nil
}
