package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("forex_hist_data"))
	assert.True(t, ValidIdentifier("_t1"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("1table"))
	assert.False(t, ValidIdentifier("forex; DROP TABLE x"))
	assert.False(t, ValidIdentifier("dbo.forex"))
}

func TestProviderKind_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider ProviderKind
		expected bool
	}{
		{"alphavantage is valid", ProviderAlphaVantage, true},
		{"yahoo is valid", ProviderYahoo, true},
		{"empty is invalid", ProviderKind(""), false},
		{"unknown is invalid", ProviderKind("bloomberg"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestProviderKind_Description(t *testing.T) {
	assert.Contains(t, ProviderAlphaVantage.Description(), "FX_DAILY")
	assert.Contains(t, ProviderYahoo.Description(), "Yahoo")
	assert.Equal(t, "Unknown", ProviderKind("x").Description())
	assert.True(t, ProviderAlphaVantage.RequiresAPIKey())
	assert.False(t, ProviderYahoo.RequiresAPIKey())
}

func TestDefaultSettings_Valid(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())

	assert.Equal(t, StoreSQLite, s.Database.Driver)
	assert.Equal(t, 10, s.Yahoo.BufferDays)

	fx, err := s.Job("forex-daily")
	require.NoError(t, err)
	assert.Equal(t, ProviderAlphaVantage, fx.Provider)
	assert.Equal(t, 15*time.Second, fx.PacingInterval)
	assert.Equal(t, DefaultBatchSize, fx.BatchSize)
	assert.Equal(t, DefaultLookbackDays, fx.LookbackDays)
	assert.True(t, fx.Overwrite)

	adhoc, err := s.Job("forex-adhoc")
	require.NoError(t, err)
	assert.Equal(t, FilterPending, adhoc.Filter)
	assert.True(t, adhoc.ClearProcessFlag)

	fund, err := s.Job("nasdaq100-fundamentals")
	require.NoError(t, err)
	assert.Equal(t, JobFundamentals, fund.Kind)
}

func TestSettings_JobUnknown(t *testing.T) {
	_, err := DefaultSettings().Job("nope")
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Settings)
	}{
		{"unknown driver", func(s *Settings) { s.Database.Driver = "postgres" }},
		{"mysql without dsn", func(s *Settings) { s.Database.Driver = StoreMySQL }},
		{"duplicate job", func(s *Settings) { s.Jobs = append(s.Jobs, s.Jobs[0]) }},
		{"zero batch size", func(s *Settings) { s.Jobs[0].BatchSize = 0 }},
		{"negative lookback", func(s *Settings) { s.Jobs[0].LookbackDays = -1 }},
		{"bad table", func(s *Settings) { s.Jobs[0].TargetTable = "x y" }},
		{"unknown provider", func(s *Settings) { s.Jobs[0].Provider = "x" }},
		{"fundamentals from alphavantage", func(s *Settings) {
			s.Jobs[0].Kind = JobFundamentals
		}},
		{"token bucket without rate", func(s *Settings) { s.Jobs[0].PacingMode = PacingTokenBucket }},
		{"zero attempts", func(s *Settings) { s.Jobs[0].FetchAttempts = 0 }},
		{"start after end", func(s *Settings) {
			s.Jobs[0].StartDate = "2024-03-01"
			s.Jobs[0].EndDate = "2024-02-01"
		}},
		{"start equals end", func(s *Settings) {
			s.Jobs[0].StartDate = "2024-03-01"
			s.Jobs[0].EndDate = "2024-03-01"
		}},
		{"only start", func(s *Settings) { s.Jobs[0].StartDate = "2024-03-01" }},
		{"explicit with previous day", func(s *Settings) {
			s.Jobs[2].StartDate = "2024-01-01"
			s.Jobs[2].EndDate = "2024-02-01"
		}},
		{"symbols filter without symbols", func(s *Settings) { s.Jobs[0].Filter = FilterSymbols }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig), err.Error())
		})
	}
}

func TestJobSettings_ExplicitWindow(t *testing.T) {
	j := DefaultJob("range", ProviderYahoo, "forex_master", "forex_hist_data")

	w, err := j.ExplicitWindow()
	require.NoError(t, err)
	assert.Nil(t, w)

	j.StartDate = "2024-01-01"
	j.EndDate = "2024-12-31"
	w, err = j.ExplicitWindow()
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, WindowExplicit, w.Kind)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), w.Start)

	j.EndDate = "not-a-date"
	_, err = j.ExplicitWindow()
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestJobSettings_EntityFilter(t *testing.T) {
	j := DefaultJob("x", ProviderYahoo, "m", "t")
	j.Filter = ""
	assert.Equal(t, FilterActive, j.EntityFilter().Mode)

	j.Filter = FilterSymbols
	j.Symbols = []string{"aapl", "msft", "AAPL"}
	f := j.EntityFilter()
	assert.Equal(t, FilterSymbols, f.Mode)
	assert.Equal(t, []string{"AAPL", "MSFT"}, f.Symbols)
}
