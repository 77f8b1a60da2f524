package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/tickersync/internal/core/domain"
)

// ObservationStore persists observations keyed by (symbol, trading_date).
type ObservationStore interface {
	// EnsureSchema creates the backing tables if missing. Idempotent.
	EnsureSchema(ctx context.Context) error

	// TableExists reports whether the backing table is present. It never
	// creates it.
	TableExists(ctx context.Context) (bool, error)

	// MaxTradingDate returns the latest persisted trading date for symbol.
	// The boolean is false when the symbol has no rows.
	MaxTradingDate(ctx context.Context, symbol string) (time.Time, bool, error)

	// Begin opens a writer scoped to one entity.
	Begin(ctx context.Context) (ObservationWriter, error)

	// Count returns the number of persisted observations.
	Count(ctx context.Context) (int, error)

	// LatestDates returns the most recent distinct trading dates with their
	// row counts, newest first.
	LatestDates(ctx context.Context, limit int) ([]DateCount, error)
}

// DateCount is a trading date and how many rows it holds.
type DateCount struct {
	TradingDate time.Time
	Rows        int
}

// ObservationWriter buffers writes for one entity until Commit.
// A writer is used by a single goroutine.
type ObservationWriter interface {
	// Exists reports whether a row with key is persisted or pending.
	Exists(ctx context.Context, key domain.ObservationKey) (bool, error)

	// Upsert inserts obs if its key is absent, otherwise updates every column.
	// The existence check and the write happen in the same transaction.
	Upsert(ctx context.Context, obs domain.Observation) (domain.UpsertResult, error)

	// Commit makes pending writes durable. The writer stays usable.
	Commit() error

	// Rollback discards pending writes. Safe to call when nothing is pending.
	Rollback() error
}

// FundamentalsStore persists fundamentals keyed by (symbol, fetch_date).
type FundamentalsStore interface {
	// EnsureSchema creates the backing table if missing. Idempotent.
	EnsureSchema(ctx context.Context) error

	// TableExists reports whether the backing table is present.
	TableExists(ctx context.Context) (bool, error)

	// Upsert inserts or replaces the snapshot.
	Upsert(ctx context.Context, f domain.Fundamentals) (domain.UpsertResult, error)

	// Count returns the number of persisted snapshots.
	Count(ctx context.Context) (int, error)
}

// StoreProvider resolves the stores a job reads and writes.
type StoreProvider interface {
	// SymbolSource returns the master table for the job.
	SymbolSource(job domain.JobSettings) SymbolSource

	// ObservationStore returns the target table for an observations job.
	ObservationStore(job domain.JobSettings) ObservationStore

	// FundamentalsStore returns the target table for a fundamentals job.
	FundamentalsStore(job domain.JobSettings) FundamentalsStore
}
