package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tickersync/internal/core/ports/driving"
)

func TestCheckCmd_Use(t *testing.T) {
	assert.Equal(t, "check [job]", checkCmd.Use)
	assert.Equal(t, "Show row and symbol counts for a job", checkCmd.Short)
}

func TestCheckCmd_PrintsReport(t *testing.T) {
	defer saveServices()()
	diagnosticsService = &mockDiagnosticsService{report: &driving.Report{
		Job:             "forex-daily",
		MasterTable:     "forex_master",
		TargetTable:     "forex_hist_data",
		EntitiesTotal:   10,
		EntitiesActive:  8,
		EntitiesPending: 2,
		Rows:            1234,
		LatestDates: []driving.DateRows{
			{Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Rows: 8},
			{Date: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), Rows: 7},
		},
	}}

	out, err := executeCommand("check", "forex-daily")

	require.NoError(t, err)
	assert.Contains(t, out, "Job: forex-daily")
	assert.Contains(t, out, "Master table: forex_master")
	assert.Contains(t, out, "Target table: forex_hist_data")
	assert.Contains(t, out, "10 total, 8 active, 2 pending")
	assert.Contains(t, out, "Rows:         1234")
	assert.Contains(t, out, "2024-01-05  8 rows")
	assert.Contains(t, out, "2024-01-04  7 rows")
}

func TestCheckCmd_EmptyTable(t *testing.T) {
	defer saveServices()()
	diagnosticsService = &mockDiagnosticsService{report: &driving.Report{Job: "nse500-daily"}}

	out, err := executeCommand("check", "nse500-daily")

	require.NoError(t, err)
	assert.Contains(t, out, "No rows stored yet.")
}

func TestCheckCmd_MissingTargetTable(t *testing.T) {
	defer saveServices()()
	diagnosticsService = &mockDiagnosticsService{report: &driving.Report{
		Job:           "nse500-daily",
		TargetTable:   "nse_500_hist_data",
		EntitiesTotal: 500,
		TargetMissing: true,
	}}

	out, err := executeCommand("check", "nse500-daily")

	require.NoError(t, err)
	assert.Contains(t, out, "Symbols:      500 total")
	assert.Contains(t, out, "none (target table not created yet)")
	assert.NotContains(t, out, "No rows stored yet.")
}

func TestCheckCmd_ServiceError(t *testing.T) {
	defer saveServices()()
	diagnosticsService = &mockDiagnosticsService{err: errors.New("table missing")}

	_, err := executeCommand("check", "forex-daily")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "check failed")
}

func TestCheckCmd_ServiceNotConfigured(t *testing.T) {
	defer saveServices()()
	diagnosticsService = nil

	_, err := executeCommand("check", "forex-daily")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "diagnostics service not configured")
}
