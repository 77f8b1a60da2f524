// Package sqldb implements the symbol source, observation store and
// fundamentals store over database/sql.
//
// Table names come from job settings and are validated before being
// interpolated into SQL. DDL is rendered from embedded per-dialect
// templates; queries use "?" placeholders and run unchanged on SQLite and
// MySQL. Dates are stored as YYYY-MM-DD and prices as exact decimals.
package sqldb
