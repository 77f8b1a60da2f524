package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsCmd_Use(t *testing.T) {
	assert.Equal(t, "flags", flagsCmd.Use)
	assert.Equal(t, "set [job] [symbols...]", flagsSetCmd.Use)
	assert.Equal(t, "clear [job] [symbols...]", flagsClearCmd.Use)
}

func TestFlagsSetCmd_Symbols(t *testing.T) {
	defer saveServices()()
	mock := &mockFlagService{n: 2}
	flagService = mock

	out, err := executeCommand("flags", "set", "forex-adhoc", "EURUSD", "GBPUSD")

	require.NoError(t, err)
	assert.Equal(t, "forex-adhoc", mock.gotJob)
	assert.Equal(t, []string{"EURUSD", "GBPUSD"}, mock.gotSymbols)
	assert.True(t, mock.gotPending)
	assert.Contains(t, out, "Marked 2 symbols pending for forex-adhoc.")
}

func TestFlagsClearCmd_AllRows(t *testing.T) {
	defer saveServices()()
	mock := &mockFlagService{n: 5}
	flagService = mock

	out, err := executeCommand("flags", "clear", "forex-adhoc")

	require.NoError(t, err)
	assert.Empty(t, mock.gotSymbols)
	assert.False(t, mock.gotPending)
	assert.Contains(t, out, "Cleared 5 pending symbols for forex-adhoc.")
}

func TestFlagsSetCmd_RequiresJob(t *testing.T) {
	defer saveServices()()
	flagService = &mockFlagService{}

	_, err := executeCommand("flags", "set")

	assert.Error(t, err)
}

func TestFlagsSetCmd_ServiceError(t *testing.T) {
	defer saveServices()()
	flagService = &mockFlagService{err: errors.New("locked")}

	_, err := executeCommand("flags", "set", "forex-adhoc")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update flags")
}

func TestFlagsSetCmd_ServiceNotConfigured(t *testing.T) {
	defer saveServices()()
	flagService = nil

	_, err := executeCommand("flags", "clear", "forex-adhoc")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "flag service not configured")
}
