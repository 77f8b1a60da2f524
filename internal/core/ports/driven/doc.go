// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - SymbolSource: Entity master table (list, flag reset, last-synced stamp)
//   - DataProvider: Fetches daily observations for one entity
//   - FundamentalsProvider: Fetches a fundamentals snapshot
//   - ProviderFactory: Creates providers from job configuration
//   - ObservationStore / ObservationWriter: Keyed upsert with batched commit
//   - FundamentalsStore: Keyed snapshot upsert
//   - StoreProvider: Resolves the stores for a job
//   - Pacer: Spacing between provider calls
//   - SettingsStore: Loads and initialises operator configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or provider package
package driven
