package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

// Ensure FundamentalsStore implements the interface.
var _ driven.FundamentalsStore = (*FundamentalsStore)(nil)

// FundamentalsStore persists fundamentals keyed by (symbol, fetch_date).
type FundamentalsStore struct {
	store *Store
	table string
}

// EnsureSchema creates the table if missing.
func (s *FundamentalsStore) EnsureSchema(ctx context.Context) error {
	return s.store.ensureTable(ctx, kindFundamentals, s.table)
}

// TableExists reports whether the table has been created.
func (s *FundamentalsStore) TableExists(ctx context.Context) (bool, error) {
	return s.store.tableExists(ctx, s.table)
}

// Upsert inserts or replaces the snapshot in one transaction.
func (s *FundamentalsStore) Upsert(ctx context.Context, f domain.Fundamentals) (domain.UpsertResult, error) {
	if err := checkTable(s.table); err != nil {
		return "", err
	}
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	symbol, day := f.Symbol, domain.FormatDate(f.FetchDate)
	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM `+s.table+` WHERE symbol = ? AND fetch_date = ?`, symbol, day).Scan(&one)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("%w: checking %s@%s: %w", domain.ErrStoreWrite, symbol, day, err)
	}

	values := []any{
		f.LongName, f.Exchange, f.Currency, f.MarketCap, f.SharesOutstanding,
		f.TrailingPE, f.ForwardPE, f.PriceToBook, f.BookValue,
		f.EPSTrailing, f.EPSForward, f.DividendRate, f.DividendYield,
		f.RegularMarketPrice, f.FiftyTwoWeekHigh, f.FiftyTwoWeekLow,
		f.FiftyDayAverage, f.TwoHundredDayAverage, formatTimestamp(f.UpdatedAt),
	}

	result := domain.Inserted
	if exists {
		result = domain.Updated
		_, err = tx.ExecContext(ctx, `
			UPDATE `+s.table+` SET
				company_name = ?, exchange = ?, currency = ?, market_cap = ?, shares_outstanding = ?,
				trailing_pe = ?, forward_pe = ?, price_to_book = ?, book_value = ?,
				trailing_eps = ?, forward_eps = ?, dividend_rate = ?, dividend_yield = ?,
				regular_market_price = ?, fifty_two_week_high = ?, fifty_two_week_low = ?,
				fifty_day_avg = ?, two_hundred_day_avg = ?, updated_at = ?
			WHERE symbol = ? AND fetch_date = ?`, append(values, symbol, day)...)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO `+s.table+` (
				symbol, fetch_date, company_name, exchange, currency, market_cap, shares_outstanding,
				trailing_pe, forward_pe, price_to_book, book_value,
				trailing_eps, forward_eps, dividend_rate, dividend_yield,
				regular_market_price, fifty_two_week_high, fifty_two_week_low,
				fifty_day_avg, two_hundred_day_avg, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			append([]any{symbol, day}, values...)...)
	}
	if err != nil {
		return "", fmt.Errorf("%w: writing %s@%s: %w", domain.ErrStoreWrite, symbol, day, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: committing: %w", domain.ErrStoreWrite, err)
	}
	return result, nil
}

// Get returns the snapshot for symbol on day.
func (s *FundamentalsStore) Get(ctx context.Context, symbol string, day time.Time) (*domain.Fundamentals, error) {
	if err := checkTable(s.table); err != nil {
		return nil, err
	}
	var (
		f                domain.Fundamentals
		fetch, updatedAt string
	)
	err := s.store.db.QueryRowContext(ctx, `
		SELECT symbol, fetch_date, company_name, exchange, currency, market_cap, shares_outstanding,
			trailing_pe, forward_pe, price_to_book, book_value,
			trailing_eps, forward_eps, dividend_rate, dividend_yield,
			regular_market_price, fifty_two_week_high, fifty_two_week_low,
			fifty_day_avg, two_hundred_day_avg, updated_at
		FROM `+s.table+` WHERE symbol = ? AND fetch_date = ?`, symbol, domain.FormatDate(day)).Scan(
		&f.Symbol, &fetch, &f.LongName, &f.Exchange, &f.Currency, &f.MarketCap, &f.SharesOutstanding,
		&f.TrailingPE, &f.ForwardPE, &f.PriceToBook, &f.BookValue,
		&f.EPSTrailing, &f.EPSForward, &f.DividendRate, &f.DividendYield,
		&f.RegularMarketPrice, &f.FiftyTwoWeekHigh, &f.FiftyTwoWeekLow,
		&f.FiftyDayAverage, &f.TwoHundredDayAverage, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting fundamentals %s: %w", symbol, err)
	}
	if f.FetchDate, err = parseDay(fetch); err != nil {
		return nil, err
	}
	if f.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// Count returns the number of persisted snapshots.
func (s *FundamentalsStore) Count(ctx context.Context) (int, error) {
	if err := checkTable(s.table); err != nil {
		return 0, err
	}
	var n int
	if err := s.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+s.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", s.table, err)
	}
	return n, nil
}
