package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	operatorHex  = "0x00000000000000000000000000000000000000aA"
	recipientHex = "0x0000000000000000000000000000000000000001"
	extraHex     = "0x0000000000000000000000000000000000000002"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	contents := fmt.Sprintf(`[node]
DataDir = %q
Operator = %q

[fees]
DAORecipient = "0x00000000000000000000000000000000000000da"
DAOManagementFee = 200
DAOPerformanceFee = 1000

[[fees.recipients]]
Address = %q
Management = 300
Performance = 500
`, filepath.Join(dir, "data"), operatorHex, recipientHex)
	path := filepath.Join(dir, "vault.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := execute(args, &out)
	return out.String(), err
}

func readStatus(t *testing.T, configPath string) status {
	t.Helper()
	out, err := runCommand(t, "status", "-config", configPath)
	require.NoError(t, err)
	var view status
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	return view
}

func TestInitAndManageRecipients(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "init", "-config", configPath)
	require.NoError(t, err)
	require.Contains(t, out, "initialized vault state at height 1")

	_, err = runCommand(t, "init", "-config", configPath)
	require.ErrorContains(t, err, "already initialized")

	view := readStatus(t, configPath)
	require.Equal(t, uint64(500), view.TotalManagementFee)
	require.Equal(t, uint64(1500), view.TotalPerformanceFee)
	require.Len(t, view.Recipients, 1)

	_, err = runCommand(t, "add-recipient", "-config", configPath, "-recipient", extraHex, "-management", "100", "-performance", "50")
	require.NoError(t, err)
	view = readStatus(t, configPath)
	require.Equal(t, uint64(600), view.TotalManagementFee)
	require.Equal(t, uint64(1550), view.TotalPerformanceFee)
	require.Len(t, view.Recipients, 2)

	_, err = runCommand(t, "remove-recipient", "-config", configPath, "-recipient", recipientHex)
	require.NoError(t, err)
	view = readStatus(t, configPath)
	require.Equal(t, uint64(300), view.TotalManagementFee)
	require.Equal(t, uint64(1050), view.TotalPerformanceFee)
	require.Len(t, view.Recipients, 1)
	require.Equal(t, uint64(3), view.Height)
}

func TestUnauthorizedCallerIsRejected(t *testing.T) {
	configPath := writeTestConfig(t)
	_, err := runCommand(t, "init", "-config", configPath)
	require.NoError(t, err)

	_, err = runCommand(t, "add-recipient", "-config", configPath, "-caller", extraHex, "-recipient", extraHex, "-management", "1")
	require.ErrorContains(t, err, "unauthorized")
}

func TestPauseToggle(t *testing.T) {
	configPath := writeTestConfig(t)
	_, err := runCommand(t, "init", "-config", configPath)
	require.NoError(t, err)

	out, err := runCommand(t, "pause", "-config", configPath, "-module", "fees")
	require.NoError(t, err)
	require.Equal(t, "fees paused\n", out)
	require.True(t, readStatus(t, configPath).Paused["fees"])

	_, err = runCommand(t, "harvest", "-config", configPath)
	require.ErrorContains(t, err, "paused")

	_, err = runCommand(t, "pause", "-config", configPath, "-module", "fees", "-resume")
	require.NoError(t, err)
	require.False(t, readStatus(t, configPath).Paused["fees"])

	_, err = runCommand(t, "pause", "-config", configPath, "-module", "bank")
	require.Error(t, err)
}

func TestRequiredFlagsAndUsage(t *testing.T) {
	_, err := runCommand(t)
	require.ErrorIs(t, err, errUsage)
	_, err = runCommand(t, "bogus")
	require.ErrorIs(t, err, errUsage)
	_, err = runCommand(t, "remove-recipient", "-config", writeTestConfig(t))
	require.ErrorContains(t, err, "recipient is required")
}
