package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

// Ensure ObservationStore implements the interface.
var _ driven.ObservationStore = (*ObservationStore)(nil)

// ObservationStore persists observations in a table keyed by
// (symbol, trading_date).
type ObservationStore struct {
	store *Store
	table string
}

// EnsureSchema creates the table if missing.
func (s *ObservationStore) EnsureSchema(ctx context.Context) error {
	return s.store.ensureTable(ctx, kindObservations, s.table)
}

// TableExists reports whether the table has been created.
func (s *ObservationStore) TableExists(ctx context.Context) (bool, error) {
	return s.store.tableExists(ctx, s.table)
}

// MaxTradingDate returns the latest persisted trading date for symbol.
func (s *ObservationStore) MaxTradingDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	if err := checkTable(s.table); err != nil {
		return time.Time{}, false, err
	}
	var maxDate sql.NullString
	err := s.store.db.QueryRowContext(ctx,
		`SELECT MAX(trading_date) FROM `+s.table+` WHERE symbol = ?`, symbol).Scan(&maxDate)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying max trading date for %s: %w", symbol, err)
	}
	if !maxDate.Valid || maxDate.String == "" {
		return time.Time{}, false, nil
	}
	d, err := parseDay(maxDate.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return d, true, nil
}

// Count returns the number of persisted observations.
func (s *ObservationStore) Count(ctx context.Context) (int, error) {
	if err := checkTable(s.table); err != nil {
		return 0, err
	}
	var n int
	if err := s.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+s.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", s.table, err)
	}
	return n, nil
}

// LatestDates returns the newest trading dates with row counts.
func (s *ObservationStore) LatestDates(ctx context.Context, limit int) ([]driven.DateCount, error) {
	if err := checkTable(s.table); err != nil {
		return nil, err
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT trading_date, COUNT(*) FROM `+s.table+`
		GROUP BY trading_date
		ORDER BY trading_date DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying latest dates: %w", err)
	}
	defer rows.Close()

	var out []driven.DateCount
	for rows.Next() {
		var (
			raw string
			n   int
		)
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, fmt.Errorf("scanning latest dates: %w", err)
		}
		d, err := parseDay(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, driven.DateCount{TradingDate: d, Rows: n})
	}
	return out, rows.Err()
}

// Get returns one observation.
func (s *ObservationStore) Get(ctx context.Context, key domain.ObservationKey) (*domain.Observation, error) {
	if err := checkTable(s.table); err != nil {
		return nil, err
	}
	row := s.store.db.QueryRowContext(ctx, selectObservation+s.table+` WHERE symbol = ? AND trading_date = ?`,
		key.Symbol, domain.FormatDate(key.TradingDate))
	o, err := scanObservation(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", key, err)
	}
	return o, nil
}

// Begin opens a writer. The transaction starts with the first write.
func (s *ObservationStore) Begin(_ context.Context) (driven.ObservationWriter, error) {
	if err := checkTable(s.table); err != nil {
		return nil, err
	}
	return &observationWriter{store: s}, nil
}

// observationWriter implements driven.ObservationWriter over a lazily
// opened transaction.
type observationWriter struct {
	store *ObservationStore
	tx    *sql.Tx
}

// queryer is the subset of *sql.DB and *sql.Tx the writer needs.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (w *observationWriter) conn() queryer {
	if w.tx != nil {
		return w.tx
	}
	return w.store.store.db
}

func (w *observationWriter) begin(ctx context.Context) error {
	if w.tx != nil {
		return nil
	}
	tx, err := w.store.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreWrite, err)
	}
	w.tx = tx
	return nil
}

// Exists reports whether a row with key is persisted or pending.
func (w *observationWriter) Exists(ctx context.Context, key domain.ObservationKey) (bool, error) {
	var one int
	err := w.conn().QueryRowContext(ctx,
		`SELECT 1 FROM `+w.store.table+` WHERE symbol = ? AND trading_date = ?`,
		key.Symbol, domain.FormatDate(key.TradingDate)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", key, err)
	}
	return true, nil
}

// Upsert inserts or updates obs inside the writer's transaction.
func (w *observationWriter) Upsert(ctx context.Context, obs domain.Observation) (domain.UpsertResult, error) {
	if err := w.begin(ctx); err != nil {
		return "", err
	}
	key := obs.Key()
	exists, err := w.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}

	values := []any{
		obs.CurrencyFrom, obs.CurrencyTo,
		obs.Open, obs.High, obs.Low, obs.Close, obs.Volume,
		obs.PreviousClose, obs.Change, obs.ChangePercent,
		obs.Bid, obs.Ask, obs.FiftyTwoWeekHigh, obs.FiftyTwoWeekLow,
		obs.FiftyDayAverage, obs.TwoHundredDayAverage,
		obs.Exchange, obs.MarketState, formatTimestamp(obs.UpdatedAt),
	}
	symbol, day := obs.Symbol, domain.FormatDate(obs.TradingDate)

	if exists {
		_, err = w.tx.ExecContext(ctx, `
			UPDATE `+w.store.table+` SET
				currency_from = ?, currency_to = ?,
				open_price = ?, high_price = ?, low_price = ?, close_price = ?, volume = ?,
				previous_close = ?, change_value = ?, change_percent = ?,
				bid = ?, ask = ?, fifty_two_week_high = ?, fifty_two_week_low = ?,
				fifty_day_avg = ?, two_hundred_day_avg = ?,
				exchange = ?, market_state = ?, updated_at = ?
			WHERE symbol = ? AND trading_date = ?`, append(values, symbol, day)...)
		if err != nil {
			return "", fmt.Errorf("%w: updating %s: %w", domain.ErrStoreWrite, key, err)
		}
		return domain.Updated, nil
	}

	_, err = w.tx.ExecContext(ctx, `
		INSERT INTO `+w.store.table+` (
			symbol, trading_date, currency_from, currency_to,
			open_price, high_price, low_price, close_price, volume,
			previous_close, change_value, change_percent,
			bid, ask, fifty_two_week_high, fifty_two_week_low,
			fifty_day_avg, two_hundred_day_avg,
			exchange, market_state, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append([]any{symbol, day}, values...)...)
	if err != nil {
		return "", fmt.Errorf("%w: inserting %s: %w", domain.ErrStoreWrite, key, err)
	}
	return domain.Inserted, nil
}

// Commit ends the current transaction. A writer with nothing pending
// commits trivially.
func (w *observationWriter) Commit() error {
	if w.tx == nil {
		return nil
	}
	tx := w.tx
	w.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// Rollback discards the current transaction, if any.
func (w *observationWriter) Rollback() error {
	if w.tx == nil {
		return nil
	}
	tx := w.tx
	w.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back: %w", err)
	}
	return nil
}

const selectObservation = `
	SELECT symbol, trading_date, currency_from, currency_to,
		open_price, high_price, low_price, close_price, volume,
		previous_close, change_value, change_percent,
		bid, ask, fifty_two_week_high, fifty_two_week_low,
		fifty_day_avg, two_hundred_day_avg,
		exchange, market_state, updated_at
	FROM `

func scanObservation(row rowScanner) (*domain.Observation, error) {
	var (
		o              domain.Observation
		day, updatedAt string
	)
	if err := row.Scan(
		&o.Symbol, &day, &o.CurrencyFrom, &o.CurrencyTo,
		&o.Open, &o.High, &o.Low, &o.Close, &o.Volume,
		&o.PreviousClose, &o.Change, &o.ChangePercent,
		&o.Bid, &o.Ask, &o.FiftyTwoWeekHigh, &o.FiftyTwoWeekLow,
		&o.FiftyDayAverage, &o.TwoHundredDayAverage,
		&o.Exchange, &o.MarketState, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if o.TradingDate, err = parseDay(day); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}
