package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// changePercentPlaces is the precision kept for ChangePercent.
const changePercentPlaces = 6

// ObservationKey is the natural key of an observation.
type ObservationKey struct {
	Symbol      string
	TradingDate time.Time
}

// String renders the key as "SYMBOL@YYYY-MM-DD".
func (k ObservationKey) String() string {
	return k.Symbol + "@" + FormatDate(k.TradingDate)
}

// Observation is one trading day's record for one entity.
//
// Snapshot fields (bid/ask, 52-week range, moving averages, exchange, market
// state) are point-in-time values captured at fetch time. They are not
// historical-as-of values and are overwritten on every re-fetch.
type Observation struct {
	Symbol      string
	TradingDate time.Time

	CurrencyFrom string
	CurrencyTo   string

	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal

	Volume int64

	// Derived fields, recomputed on every write.
	PreviousClose decimal.NullDecimal
	Change        decimal.NullDecimal
	ChangePercent decimal.NullDecimal

	// SnapshotPreviousClose is the provider's own previous close, used only
	// when no earlier row exists in the same fetch batch. It is not persisted.
	SnapshotPreviousClose decimal.NullDecimal

	Bid                  decimal.NullDecimal
	Ask                  decimal.NullDecimal
	FiftyTwoWeekHigh     decimal.NullDecimal
	FiftyTwoWeekLow      decimal.NullDecimal
	FiftyDayAverage      decimal.NullDecimal
	TwoHundredDayAverage decimal.NullDecimal

	Exchange    string
	MarketState string

	// UpdatedAt is stamped by the engine immediately before the write.
	UpdatedAt time.Time
}

// Key returns the observation's natural key.
func (o Observation) Key() ObservationKey {
	return ObservationKey{Symbol: o.Symbol, TradingDate: o.TradingDate}
}

// ApplyPreviousClose sets PreviousClose and recomputes Change and
// ChangePercent from it. A null or zero previous close clears the change
// fields rather than leaving stale values behind.
func (o *Observation) ApplyPreviousClose(prev decimal.NullDecimal) {
	o.PreviousClose = prev
	o.Change = decimal.NullDecimal{}
	o.ChangePercent = decimal.NullDecimal{}
	if !prev.Valid {
		return
	}

	change := o.Close.Sub(prev.Decimal)
	o.Change = decimal.NewNullDecimal(change)
	if prev.Decimal.IsZero() {
		return
	}
	pct := change.Div(prev.Decimal).Mul(decimal.NewFromInt(100)).Round(changePercentPlaces)
	o.ChangePercent = decimal.NewNullDecimal(pct)
}

// NullDecimalFromFloat converts a provider float into a nullable decimal,
// treating zero as "not reported".
func NullDecimalFromFloat(f float64) decimal.NullDecimal {
	if f == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}
