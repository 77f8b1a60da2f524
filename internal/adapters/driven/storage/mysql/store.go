// Package mysql provides the MySQL storage backend for shared symbol
// masters and history tables.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/custodia-labs/tickersync/internal/adapters/driven/storage/sqldb"
	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/logger"
)

// Connection pool defaults. A sync run is sequential, so a small pool is
// enough for the writer transaction plus diagnostics reads.
const (
	defaultMaxOpenConns    = 4
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5 * time.Minute
	pingTimeout            = 5 * time.Second
)

// Store is a MySQL-backed storage that provides access to every job's
// master and target tables through the embedded sqldb.Store.
type Store struct {
	*sqldb.Store
	db *sql.DB
}

// NewStore opens and pings a MySQL database.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, domain.ConfigErrorf("invalid mysql dsn: %v", err)
	}

	logger.WithComponent("mysql").WithField("dsn", Redact(cfg)).Debug("Connecting to MySQL")

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping mysql: %w", domain.ErrSourceUnavailable, err)
	}

	return &Store{
		Store: sqldb.New(db, sqldb.MySQL),
		db:    db,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Redact returns the DSN with the password masked, for logging.
func Redact(cfg *mysql.Config) string {
	masked := cfg.Clone()
	if masked.Passwd != "" {
		masked.Passwd = "***"
	}
	return masked.FormatDSN()
}
