// Package sqlite provides the embedded SQLite storage backend.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Queries and DDL are shared with the
// MySQL backend through the sqldb package.
//
// # Data Location
//
// By default, the database is stored at ~/.tickersync/data/tickersync.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
