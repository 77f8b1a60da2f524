package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fundamentals is a per-day snapshot of valuation and trading metrics for
// one equity. Natural key is (Symbol, FetchDate).
type Fundamentals struct {
	Symbol    string
	FetchDate time.Time

	LongName string
	Exchange string
	Currency string

	MarketCap         int64
	SharesOutstanding int64

	TrailingPE  decimal.NullDecimal
	ForwardPE   decimal.NullDecimal
	PriceToBook decimal.NullDecimal
	BookValue   decimal.NullDecimal

	EPSTrailing decimal.NullDecimal
	EPSForward  decimal.NullDecimal

	DividendRate  decimal.NullDecimal
	DividendYield decimal.NullDecimal

	RegularMarketPrice   decimal.NullDecimal
	FiftyTwoWeekHigh     decimal.NullDecimal
	FiftyTwoWeekLow      decimal.NullDecimal
	FiftyDayAverage      decimal.NullDecimal
	TwoHundredDayAverage decimal.NullDecimal

	UpdatedAt time.Time
}
