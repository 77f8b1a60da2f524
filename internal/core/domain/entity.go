package domain

import (
	"strings"
	"time"
)

// Flag values as written to the symbol master. Reads compare case-insensitively
// so legacy lower-case rows are still honoured.
const (
	FlagYes = "Y"
	FlagNo  = "N"
)

// FlagSet reports whether a master-table flag value means "yes".
func FlagSet(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), FlagYes)
}

// FlagValue converts a boolean into the canonical master-table flag value.
func FlagValue(b bool) string {
	if b {
		return FlagYes
	}
	return FlagNo
}

// Entity is one tradable symbol or currency pair tracked by the system.
type Entity struct {
	// Symbol is the natural key (e.g. "EURUSD", "AAPL", "RELIANCE").
	Symbol string

	// ProviderSymbol is the identifier used when calling the data provider
	// (e.g. "EURUSD=X", "RELIANCE.NS"). Falls back to Symbol when empty.
	ProviderSymbol string

	// Name is the human-readable company or pair name.
	Name string

	// CurrencyFrom and CurrencyTo are set for FX pairs.
	CurrencyFrom string
	CurrencyTo   string

	Exchange string
	Sector   string
	Industry string

	// Active controls inclusion in active-only and explicit-list runs.
	Active bool

	// ProcessPending marks the entity for the next ad-hoc or backfill run.
	ProcessPending bool

	// LastSyncedAt is when a run last completed for this entity.
	LastSyncedAt *time.Time
}

// FetchSymbol returns the identifier to send to the provider.
func (e Entity) FetchSymbol() string {
	if e.ProviderSymbol != "" {
		return e.ProviderSymbol
	}
	return e.Symbol
}

// IsCurrencyPair reports whether the entity describes an FX pair.
func (e Entity) IsCurrencyPair() bool {
	return e.CurrencyFrom != "" && e.CurrencyTo != ""
}

// FilterMode selects which entities a run includes.
type FilterMode string

// Available filter modes.
const (
	// FilterAll includes every row in the master table.
	FilterAll FilterMode = "all"

	// FilterActive includes only active rows.
	FilterActive FilterMode = "active"

	// FilterSymbols includes the listed symbols that are also active.
	FilterSymbols FilterMode = "symbols"

	// FilterPending includes rows whose process flag is set.
	FilterPending FilterMode = "pending"
)

// IsValid returns true if the filter mode is recognised.
func (m FilterMode) IsValid() bool {
	switch m {
	case FilterAll, FilterActive, FilterSymbols, FilterPending:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m FilterMode) String() string {
	return string(m)
}

// EntityFilter narrows the entity list for a run.
type EntityFilter struct {
	Mode    FilterMode
	Symbols []string
}

// Matches applies the filter to a single entity. Stores use it for
// in-memory filtering and tests use it as the reference semantics.
func (f EntityFilter) Matches(e Entity) bool {
	switch f.Mode {
	case FilterAll, "":
		return true
	case FilterActive:
		return e.Active
	case FilterPending:
		return e.ProcessPending
	case FilterSymbols:
		if !e.Active {
			return false
		}
		for _, s := range f.Symbols {
			if strings.EqualFold(s, e.Symbol) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Validate checks the filter is usable.
func (f EntityFilter) Validate() error {
	if f.Mode != "" && !f.Mode.IsValid() {
		return ConfigErrorf("unknown filter mode %q", f.Mode)
	}
	if f.Mode == FilterSymbols && len(f.Symbols) == 0 {
		return ConfigErrorf("filter mode %q requires at least one symbol", f.Mode)
	}
	return nil
}

// NormalizeSymbols trims, upper-cases and de-duplicates a symbol list,
// preserving first-seen order.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
