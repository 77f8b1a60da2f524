package sqldb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/tickersync/internal/core/domain"
)

// timestampLayout is how timestamps are written. MySQL DATETIME accepts it
// and SQLite stores it as text.
const timestampLayout = "2006-01-02 15:04:05"

// formatTimestamp renders t in UTC for storage.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp reads a stored timestamp. Drivers that decode DATETIME
// columns into time.Time hand database/sql an RFC 3339 string instead.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised timestamp %q", domain.ErrInvalidInput, s)
}

// parseDay reads a stored DATE or YYYY-MM-DD text column.
func parseDay(s string) (time.Time, error) {
	if len(s) > len(domain.DateLayout) {
		s = s[:len(domain.DateLayout)]
	}
	return domain.ParseDate(s)
}

// nullTimestamp converts a nullable column into an optional time.
func nullTimestamp(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTimestamp(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
