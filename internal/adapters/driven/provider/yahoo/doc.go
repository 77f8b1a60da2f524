// Package yahoo implements driven.DataProvider and driven.FundamentalsProvider
// on top of github.com/piquette/finance-go.
//
// Daily bars come from the chart endpoint. Bar timestamps are shifted by the
// exchange's GMT offset before truncating to a trading date, so an NSE bar
// opening at 09:15 IST lands on the same calendar day as an equivalent
// NASDAQ bar. Each fetch then takes one quote snapshot (previous close,
// bid/ask, 52-week range, moving averages, market state) and stamps it onto
// every row.
//
// Fundamentals come from the equity endpoint and are dated today.
package yahoo
