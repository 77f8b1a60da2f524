package sqldb

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

//go:embed schema
var schemaFS embed.FS

// Dialect selects the DDL flavour. Queries are shared; both dialects accept
// "?" placeholders.
type Dialect string

// Supported dialects.
const (
	SQLite Dialect = "sqlite"
	MySQL  Dialect = "mysql"
)

// Table kinds, matching the template file names under schema/<dialect>/.
const (
	kindMaster       = "master"
	kindObservations = "observations"
	kindFundamentals = "fundamentals"
)

// Store is a database/sql backed storage that provides access to the
// symbol master, observation and fundamentals tables of any job through
// wrapper types.
type Store struct {
	db      *sql.DB
	dialect Dialect

	mu      sync.Mutex
	ensured map[string]bool
}

// Ensure Store implements the interface.
var _ driven.StoreProvider = (*Store)(nil)

// New wraps an open database handle. The caller keeps ownership of db.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		ensured: make(map[string]bool),
	}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the store's SQL dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// SymbolSource returns the job's master table.
func (s *Store) SymbolSource(job domain.JobSettings) driven.SymbolSource {
	return s.Source(job.MasterTable)
}

// ObservationStore returns the job's observation table.
func (s *Store) ObservationStore(job domain.JobSettings) driven.ObservationStore {
	return s.Observations(job.TargetTable)
}

// FundamentalsStore returns the job's fundamentals table.
func (s *Store) FundamentalsStore(job domain.JobSettings) driven.FundamentalsStore {
	return s.Fundamentals(job.TargetTable)
}

// Source returns a symbol source over the named master table.
func (s *Store) Source(table string) *SymbolSource {
	return &SymbolSource{store: s, table: table}
}

// Observations returns an observation store over the named table.
func (s *Store) Observations(table string) *ObservationStore {
	return &ObservationStore{store: s, table: table}
}

// Fundamentals returns a fundamentals store over the named table.
func (s *Store) Fundamentals(table string) *FundamentalsStore {
	return &FundamentalsStore{store: s, table: table}
}

// ensureTable creates table from the kind's template once per Store.
func (s *Store) ensureTable(ctx context.Context, kind, table string) error {
	if err := checkTable(table); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := kind + ":" + table
	if s.ensured[key] {
		return nil
	}

	stmts, err := s.schema(kind, table)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating %s table %s: %w", kind, table, err)
		}
	}
	s.ensured[key] = true
	return nil
}

// tableExists looks table up in the catalog without creating it.
func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	if err := checkTable(table); err != nil {
		return false, err
	}

	query := "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	if s.dialect == MySQL {
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, fmt.Errorf("looking up table %s: %w", table, err)
	}
	return n > 0, nil
}

// schema renders the DDL statements for a table kind.
func (s *Store) schema(kind, table string) ([]string, error) {
	name := fmt.Sprintf("schema/%s/%s.sql", s.dialect, kind)
	content, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: no %s schema for dialect %q", domain.ErrUnsupportedType, kind, s.dialect)
	}
	tmpl, err := template.New(kind).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parsing schema %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Table string }{Table: table}); err != nil {
		return nil, fmt.Errorf("rendering schema %s: %w", name, err)
	}

	var stmts []string
	for _, stmt := range strings.Split(buf.String(), ";\n") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, strings.TrimSuffix(stmt, ";"))
		}
	}
	return stmts, nil
}

// checkTable rejects table names that could not have come from validated
// settings before they are interpolated into SQL.
func checkTable(table string) error {
	if !domain.ValidIdentifier(table) {
		return fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidInput, table)
	}
	return nil
}
