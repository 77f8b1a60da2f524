package domain

import (
	"regexp"
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// Defaults shared by every job unless overridden.
const (
	DefaultLookbackDays  = 365
	DefaultBatchSize     = 50
	DefaultFetchAttempts = 1
	DefaultRetryDelay    = 2 * time.Second
)

// identifierPattern restricts table names that are interpolated into SQL.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidIdentifier reports whether s is safe to use as a SQL table name.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// ProviderKind identifies a market-data provider.
type ProviderKind string

// Available providers.
const (
	// ProviderAlphaVantage is the Alpha Vantage HTTP API (FX and daily equities).
	ProviderAlphaVantage ProviderKind = "alphavantage"

	// ProviderYahoo is Yahoo Finance via the chart and quote endpoints.
	ProviderYahoo ProviderKind = "yahoo"
)

// IsValid returns true if the provider is recognised.
func (p ProviderKind) IsValid() bool {
	switch p {
	case ProviderAlphaVantage, ProviderYahoo:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p ProviderKind) RequiresAPIKey() bool {
	return p == ProviderAlphaVantage
}

// String returns the string representation.
func (p ProviderKind) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p ProviderKind) Description() string {
	switch p {
	case ProviderAlphaVantage:
		return "Alpha Vantage (FX_DAILY / TIME_SERIES_DAILY)"
	case ProviderYahoo:
		return "Yahoo Finance (chart + quote)"
	default:
		return unknownDescription
	}
}

// StoreDriver identifies the relational database backing the store.
type StoreDriver string

// Available store drivers.
const (
	StoreSQLite StoreDriver = "sqlite"
	StoreMySQL  StoreDriver = "mysql"
)

// IsValid returns true if the driver is recognised.
func (d StoreDriver) IsValid() bool {
	return d == StoreSQLite || d == StoreMySQL
}

// JobKind selects what a job synchronises.
type JobKind string

// Job kinds.
const (
	// JobObservations syncs daily time series.
	JobObservations JobKind = "observations"

	// JobFundamentals syncs one fundamentals snapshot per entity per day.
	JobFundamentals JobKind = "fundamentals"
)

// IsValid returns true if the job kind is recognised.
func (k JobKind) IsValid() bool {
	return k == JobObservations || k == JobFundamentals
}

// PacingMode selects the Pacer implementation for a job.
type PacingMode string

// Pacing modes.
const (
	// PacingFixed sleeps a fixed interval between provider calls.
	PacingFixed PacingMode = "fixed"

	// PacingTokenBucket spaces calls with a token bucket.
	PacingTokenBucket PacingMode = "token-bucket"
)

// IsValid returns true if the pacing mode is recognised.
func (m PacingMode) IsValid() bool {
	return m == PacingFixed || m == PacingTokenBucket
}

// DatabaseSettings holds store configuration.
type DatabaseSettings struct {
	// Driver selects sqlite or mysql.
	Driver StoreDriver

	// DSN is the MySQL data source name. Ignored for sqlite.
	DSN string

	// DataDir is where the sqlite database file lives.
	// Defaults to ~/.tickersync/data.
	DataDir string
}

// LoggingSettings holds log output configuration.
type LoggingSettings struct {
	// Level is one of debug, info, warn, error.
	Level string

	// Format is text or json.
	Format string

	// File, when set, receives logs through a rotating writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AlphaVantageSettings holds Alpha Vantage API configuration.
type AlphaVantageSettings struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// IsConfigured returns true if an API key is present.
func (a AlphaVantageSettings) IsConfigured() bool {
	return a.APIKey != ""
}

// YahooSettings holds Yahoo Finance configuration.
type YahooSettings struct {
	// BufferDays widens the chart request on both sides before the result is
	// filtered back to the exact window.
	BufferDays int
}

// JobSettings configures one named sync job.
type JobSettings struct {
	Name        string
	Description string
	Kind        JobKind
	Provider    ProviderKind

	// MasterTable lists the entities; TargetTable receives observations
	// or fundamentals.
	MasterTable string
	TargetTable string

	Filter  FilterMode
	Symbols []string

	LookbackDays int
	BatchSize    int
	Overwrite    bool

	PacingMode        PacingMode
	PacingInterval    time.Duration
	RequestsPerMinute float64

	// StartDate and EndDate (YYYY-MM-DD) define an explicit window.
	// Both or neither must be set.
	StartDate string
	EndDate   string

	// PreviousDayOnly fetches just the last weekday before today.
	PreviousDayOnly bool

	// ClearProcessFlag resets the entity's process flag after success.
	ClearProcessFlag bool

	// FetchAttempts retries provider timeouts. 1 means no retry.
	FetchAttempts int
	RetryDelay    time.Duration
}

// HasExplicitWindow reports whether an operator window is configured.
func (j JobSettings) HasExplicitWindow() bool {
	return j.StartDate != "" || j.EndDate != ""
}

// ExplicitWindow parses the configured explicit window.
// Returns nil when no explicit window is set.
func (j JobSettings) ExplicitWindow() (*Window, error) {
	if !j.HasExplicitWindow() {
		return nil, nil
	}
	if j.StartDate == "" || j.EndDate == "" {
		return nil, ConfigErrorf("job %s: start_date and end_date must both be set", j.Name)
	}
	start, err := ParseDate(j.StartDate)
	if err != nil {
		return nil, ConfigErrorf("job %s: %v", j.Name, err)
	}
	end, err := ParseDate(j.EndDate)
	if err != nil {
		return nil, ConfigErrorf("job %s: %v", j.Name, err)
	}
	w, err := NewWindow(start, end, WindowExplicit)
	if err != nil {
		return nil, ConfigErrorf("job %s: start %s must be before end %s", j.Name, j.StartDate, j.EndDate)
	}
	return &w, nil
}

// EntityFilter builds the entity filter for this job.
func (j JobSettings) EntityFilter() EntityFilter {
	mode := j.Filter
	if mode == "" {
		mode = FilterActive
	}
	return EntityFilter{Mode: mode, Symbols: NormalizeSymbols(j.Symbols)}
}

// Validate checks the job is internally consistent.
func (j JobSettings) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return ConfigErrorf("job name is required")
	}
	if !j.Kind.IsValid() {
		return ConfigErrorf("job %s: unknown kind %q", j.Name, j.Kind)
	}
	if !j.Provider.IsValid() {
		return ConfigErrorf("job %s: unknown provider %q", j.Name, j.Provider)
	}
	if j.Kind == JobFundamentals && j.Provider != ProviderYahoo {
		return ConfigErrorf("job %s: fundamentals are only available from %s", j.Name, ProviderYahoo)
	}
	if !ValidIdentifier(j.MasterTable) {
		return ConfigErrorf("job %s: invalid master table %q", j.Name, j.MasterTable)
	}
	if !ValidIdentifier(j.TargetTable) {
		return ConfigErrorf("job %s: invalid target table %q", j.Name, j.TargetTable)
	}
	if err := j.EntityFilter().Validate(); err != nil {
		return ConfigErrorf("job %s: %v", j.Name, err)
	}
	if j.LookbackDays <= 0 {
		return ConfigErrorf("job %s: lookback_days must be positive, got %d", j.Name, j.LookbackDays)
	}
	if j.BatchSize <= 0 {
		return ConfigErrorf("job %s: batch_size must be positive, got %d", j.Name, j.BatchSize)
	}
	if j.PacingInterval < 0 {
		return ConfigErrorf("job %s: pacing_interval must not be negative", j.Name)
	}
	if j.PacingMode != "" && !j.PacingMode.IsValid() {
		return ConfigErrorf("job %s: unknown pacing mode %q", j.Name, j.PacingMode)
	}
	if j.PacingMode == PacingTokenBucket && j.RequestsPerMinute <= 0 {
		return ConfigErrorf("job %s: requests_per_minute must be positive for token-bucket pacing", j.Name)
	}
	if j.FetchAttempts < 1 {
		return ConfigErrorf("job %s: fetch_attempts must be at least 1", j.Name)
	}
	if j.PreviousDayOnly && j.HasExplicitWindow() {
		return ConfigErrorf("job %s: previous_day_only cannot be combined with an explicit window", j.Name)
	}
	if _, err := j.ExplicitWindow(); err != nil {
		return err
	}
	return nil
}

// Settings holds all application settings.
type Settings struct {
	Database     DatabaseSettings
	Logging      LoggingSettings
	AlphaVantage AlphaVantageSettings
	Yahoo        YahooSettings
	Jobs         []JobSettings
}

// Job returns the named job.
func (s Settings) Job(name string) (JobSettings, error) {
	for _, j := range s.Jobs {
		if j.Name == name {
			return j, nil
		}
	}
	return JobSettings{}, ConfigErrorf("unknown job %q", name)
}

// Validate checks every section and job.
func (s Settings) Validate() error {
	if !s.Database.Driver.IsValid() {
		return ConfigErrorf("unknown database driver %q", s.Database.Driver)
	}
	if s.Database.Driver == StoreMySQL && s.Database.DSN == "" {
		return ConfigErrorf("database dsn is required for mysql")
	}
	seen := make(map[string]struct{}, len(s.Jobs))
	for _, j := range s.Jobs {
		if err := j.Validate(); err != nil {
			return err
		}
		if _, dup := seen[j.Name]; dup {
			return ConfigErrorf("duplicate job %q", j.Name)
		}
		seen[j.Name] = struct{}{}
	}
	return nil
}

// DefaultJob returns a job with shared defaults filled in.
func DefaultJob(name string, provider ProviderKind, master, target string) JobSettings {
	return JobSettings{
		Name:           name,
		Kind:           JobObservations,
		Provider:       provider,
		MasterTable:    master,
		TargetTable:    target,
		Filter:         FilterActive,
		LookbackDays:   DefaultLookbackDays,
		BatchSize:      DefaultBatchSize,
		Overwrite:      true,
		PacingMode:     PacingFixed,
		PacingInterval: time.Second,
		FetchAttempts:  DefaultFetchAttempts,
		RetryDelay:     DefaultRetryDelay,
	}
}

// DefaultSettings returns settings with sensible defaults.
// The Alpha Vantage key is left empty and must come from config or environment.
func DefaultSettings() Settings {
	forexDaily := DefaultJob("forex-daily", ProviderAlphaVantage, "forex_master", "forex_hist_data")
	forexDaily.Description = "Incremental daily FX rates for active pairs"
	forexDaily.PacingInterval = 15 * time.Second // free tier allows 5 calls per minute

	forexAdhoc := DefaultJob("forex-adhoc", ProviderAlphaVantage, "forex_master", "forex_hist_data")
	forexAdhoc.Description = "Backfill FX pairs whose process flag is set, then clear the flag"
	forexAdhoc.Filter = FilterPending
	forexAdhoc.ClearProcessFlag = true
	forexAdhoc.PacingInterval = 15 * time.Second

	forexPrevDay := DefaultJob("forex-prevday", ProviderAlphaVantage, "forex_master", "forex_hist_data")
	forexPrevDay.Description = "Previous trading day FX rates for active pairs"
	forexPrevDay.PreviousDayOnly = true
	forexPrevDay.PacingInterval = 15 * time.Second

	nasdaq := DefaultJob("nasdaq100-daily", ProviderYahoo, "nasdaq_top100", "nasdaq_100_hist_data")
	nasdaq.Description = "Incremental daily bars for the NASDAQ-100"

	nse := DefaultJob("nse500-daily", ProviderYahoo, "nse_500", "nse_500_hist_data")
	nse.Description = "Incremental daily bars for the NSE 500"

	nasdaqFund := DefaultJob("nasdaq100-fundamentals", ProviderYahoo, "nasdaq_top100", "nasdaq_100_fundamentals")
	nasdaqFund.Kind = JobFundamentals
	nasdaqFund.Description = "Daily fundamentals snapshot for the NASDAQ-100"

	nseFund := DefaultJob("nse500-fundamentals", ProviderYahoo, "nse_500", "nse_500_fundamentals")
	nseFund.Kind = JobFundamentals
	nseFund.Description = "Daily fundamentals snapshot for the NSE 500"

	return Settings{
		Database: DatabaseSettings{
			Driver: StoreSQLite,
		},
		Logging: LoggingSettings{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		AlphaVantage: AlphaVantageSettings{
			BaseURL: "https://www.alphavantage.co",
			Timeout: 30 * time.Second,
		},
		Yahoo: YahooSettings{
			BufferDays: 10,
		},
		Jobs: []JobSettings{forexDaily, forexAdhoc, forexPrevDay, nasdaq, nse, nasdaqFund, nseFund},
	}
}
