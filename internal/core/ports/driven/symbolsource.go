package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/tickersync/internal/core/domain"
)

// SymbolSource lists the entities to sync from a master table.
type SymbolSource interface {
	// ListEntities returns entities matching filter, ordered by symbol.
	// Returns an error wrapping domain.ErrSourceUnavailable if the master
	// table cannot be read.
	ListEntities(ctx context.Context, filter domain.EntityFilter) ([]domain.Entity, error)

	// Count returns how many entities match filter.
	Count(ctx context.Context, filter domain.EntityFilter) (int, error)

	// ClearProcessFlag resets the entity's process flag.
	ClearProcessFlag(ctx context.Context, symbol string) error

	// SetProcessFlag sets or clears the process flag for the listed symbols.
	// An empty list applies to every row. Returns the number of rows changed.
	SetProcessFlag(ctx context.Context, symbols []string, pending bool) (int, error)

	// MarkSynced records when a run last completed for the entity.
	MarkSynced(ctx context.Context, symbol string, at time.Time) error
}
