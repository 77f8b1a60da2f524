// Package domain defines the core business entities for tickersync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It defines the fundamental types:
//
//   - Entity: A tradable symbol or currency pair from a master table
//   - Observation: One trading day's record for one entity
//   - Window: The half-open date range fetched for an entity
//   - RunSummary: The per-run outcome, never persisted
//   - Fundamentals: A per-day valuation snapshot
//   - Settings: Operator configuration and job definitions
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. Apart from the standard library it
// only imports shopspring/decimal, so prices are exact everywhere.
// All other packages depend on domain, never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library, github.com/shopspring/decimal
//   - Cannot Import: Any internal/ package
package domain
