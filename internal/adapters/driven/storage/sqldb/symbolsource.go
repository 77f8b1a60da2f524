package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

// Ensure SymbolSource implements the interface.
var _ driven.SymbolSource = (*SymbolSource)(nil)

// SymbolSource reads entities from a master table.
type SymbolSource struct {
	store *Store
	table string
}

// EnsureSchema creates the master table if missing. Production master tables
// are seeded elsewhere; this keeps a fresh database usable.
func (s *SymbolSource) EnsureSchema(ctx context.Context) error {
	return s.store.ensureTable(ctx, kindMaster, s.table)
}

// Save inserts or replaces an entity.
func (s *SymbolSource) Save(ctx context.Context, e domain.Entity) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}

	var lastSynced any
	if e.LastSyncedAt != nil {
		lastSynced = formatTimestamp(*e.LastSyncedAt)
	}
	args := []any{
		e.ProviderSymbol, e.Name, e.CurrencyFrom, e.CurrencyTo, e.Exchange, e.Sector, e.Industry,
		domain.FlagValue(e.Active), domain.FlagValue(e.ProcessPending), lastSynced,
	}

	var n int
	if err := s.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+s.table+` WHERE symbol = ?`, e.Symbol).Scan(&n); err != nil {
		return fmt.Errorf("checking entity %s: %w", e.Symbol, err)
	}
	if n > 0 {
		_, err := s.store.db.ExecContext(ctx, `
		UPDATE `+s.table+` SET
			provider_symbol = ?, name = ?, currency_from = ?, currency_to = ?,
			exchange = ?, sector = ?, industry = ?, is_active = ?, process_flag = ?,
			last_synced_at = ?
		WHERE symbol = ?`, append(args, e.Symbol)...)
		if err != nil {
			return fmt.Errorf("updating entity %s: %w", e.Symbol, err)
		}
		return nil
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO `+s.table+` (
			symbol, provider_symbol, name, currency_from, currency_to,
			exchange, sector, industry, is_active, process_flag, last_synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, append([]any{e.Symbol}, args...)...)
	if err != nil {
		return fmt.Errorf("inserting entity %s: %w", e.Symbol, err)
	}
	return nil
}

// Get retrieves an entity by symbol.
func (s *SymbolSource) Get(ctx context.Context, symbol string) (*domain.Entity, error) {
	if err := checkTable(s.table); err != nil {
		return nil, err
	}
	row := s.store.db.QueryRowContext(ctx, selectEntity+s.table+` WHERE UPPER(symbol) = UPPER(?)`, symbol)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting entity %s: %w", symbol, err)
	}
	return e, nil
}

// ListEntities returns matching entities ordered by symbol.
func (s *SymbolSource) ListEntities(ctx context.Context, filter domain.EntityFilter) ([]domain.Entity, error) {
	if err := checkTable(s.table); err != nil {
		return nil, err
	}
	where, args := filterClause(filter)

	rows, err := s.store.db.QueryContext(ctx, selectEntity+s.table+where+` ORDER BY symbol`, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s: %w", domain.ErrSourceUnavailable, s.table, err)
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning %s: %w", domain.ErrSourceUnavailable, s.table, err)
		}
		entities = append(entities, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", domain.ErrSourceUnavailable, s.table, err)
	}
	return entities, nil
}

// Count returns how many entities match filter.
func (s *SymbolSource) Count(ctx context.Context, filter domain.EntityFilter) (int, error) {
	if err := checkTable(s.table); err != nil {
		return 0, err
	}
	where, args := filterClause(filter)

	var n int
	if err := s.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+s.table+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting %s: %w", domain.ErrSourceUnavailable, s.table, err)
	}
	return n, nil
}

// ClearProcessFlag resets the entity's process flag.
func (s *SymbolSource) ClearProcessFlag(ctx context.Context, symbol string) error {
	if err := checkTable(s.table); err != nil {
		return err
	}
	_, err := s.store.db.ExecContext(ctx,
		`UPDATE `+s.table+` SET process_flag = ? WHERE UPPER(symbol) = UPPER(?)`, domain.FlagNo, symbol)
	if err != nil {
		return fmt.Errorf("clearing process flag for %s: %w", symbol, err)
	}
	return nil
}

// SetProcessFlag sets or clears the flag for the listed symbols, or all rows.
func (s *SymbolSource) SetProcessFlag(ctx context.Context, symbols []string, pending bool) (int, error) {
	if err := checkTable(s.table); err != nil {
		return 0, err
	}
	query := `UPDATE ` + s.table + ` SET process_flag = ?`
	args := []any{domain.FlagValue(pending)}
	if len(symbols) > 0 {
		query += ` WHERE UPPER(symbol) IN (` + placeholders(len(symbols)) + `)`
		for _, sym := range symbols {
			args = append(args, strings.ToUpper(sym))
		}
	}

	res, err := s.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("setting process flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("setting process flag: %w", err)
	}
	return int(n), nil
}

// MarkSynced records the last-synced timestamp.
func (s *SymbolSource) MarkSynced(ctx context.Context, symbol string, at time.Time) error {
	if err := checkTable(s.table); err != nil {
		return err
	}
	_, err := s.store.db.ExecContext(ctx,
		`UPDATE `+s.table+` SET last_synced_at = ? WHERE UPPER(symbol) = UPPER(?)`, formatTimestamp(at), symbol)
	if err != nil {
		return fmt.Errorf("marking %s synced: %w", symbol, err)
	}
	return nil
}

// selectEntity is completed with the table name and an optional WHERE clause.
// Legacy master rows may hold NULLs, hence the COALESCEs.
const selectEntity = `
	SELECT symbol, COALESCE(provider_symbol, ''), COALESCE(name, ''),
		COALESCE(currency_from, ''), COALESCE(currency_to, ''),
		COALESCE(exchange, ''), COALESCE(sector, ''), COALESCE(industry, ''),
		COALESCE(is_active, ''), COALESCE(process_flag, ''), last_synced_at
	FROM `

// filterClause translates a filter into a WHERE clause. Flags are compared
// case-insensitively.
func filterClause(f domain.EntityFilter) (string, []any) {
	active := ` WHERE UPPER(TRIM(is_active)) = 'Y'`
	switch f.Mode {
	case domain.FilterActive:
		return active, nil
	case domain.FilterPending:
		return ` WHERE UPPER(TRIM(process_flag)) = 'Y'`, nil
	case domain.FilterSymbols:
		args := make([]any, 0, len(f.Symbols))
		for _, sym := range f.Symbols {
			args = append(args, strings.ToUpper(sym))
		}
		return active + ` AND UPPER(symbol) IN (` + placeholders(len(args)) + `)`, args
	default:
		return "", nil
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*domain.Entity, error) {
	var (
		e                  domain.Entity
		active, processing string
		lastSynced         sql.NullString
	)
	if err := row.Scan(
		&e.Symbol, &e.ProviderSymbol, &e.Name, &e.CurrencyFrom, &e.CurrencyTo,
		&e.Exchange, &e.Sector, &e.Industry, &active, &processing, &lastSynced,
	); err != nil {
		return nil, err
	}
	e.Active = domain.FlagSet(active)
	e.ProcessPending = domain.FlagSet(processing)

	t, err := nullTimestamp(lastSynced)
	if err != nil {
		return nil, err
	}
	e.LastSyncedAt = t
	return &e, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
