// Package services implements the driving port interfaces.
// Services contain the core sync logic and orchestrate
// calls to driven ports (adapters).
//
// SyncEngine owns the per-entity window, fetch and reconcile cycle.
// SyncOrchestrator, FundamentalsSync and Diagnostics resolve named jobs
// into the stores, providers and pacers the engine needs.
package services
