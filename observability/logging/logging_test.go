package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWriterEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWriter(&buf, "vaultd", "test", slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("fees harvested", slog.String("component", "fees"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "fees harvested", line["message"])
	require.Equal(t, "vaultd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Contains(t, line, "timestamp")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestMaskURL(t *testing.T) {
	require.Equal(t, "https://%5BREDACTED%5D@rpc.example.org/v2?redacted", MaskURL("https://user:pw@rpc.example.org/v2?key=secret"))
	require.Equal(t, "http://127.0.0.1:8545", MaskURL("http://127.0.0.1:8545"))
	require.Equal(t, RedactedValue, MaskURL("not a url"))
	require.Equal(t, "", MaskURL(" "))
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("operator_key", "0xabc").Value.String())
	require.Equal(t, "fees", MaskField("component", "fees").Value.String())
	require.Contains(t, RedactionAllowlist(), "asset")
}
