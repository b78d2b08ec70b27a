package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullConfig = `[node]
DataDir = "/var/lib/vault"
MetricsAddress = "127.0.0.1:9100"
Environment = "prod"
Operator = "0x00000000000000000000000000000000000000aa"

[fees]
Manager = "0x00000000000000000000000000000000000000f1"
Vault = "0x00000000000000000000000000000000000000f2"
VaultDecimals = 6
DAORecipient = "0x00000000000000000000000000000000000000da"
DAOManagementFee = 200
DAOPerformanceFee = 1000
HighWaterMarkInterval = 3600

[[fees.recipients]]
Address = "0x0000000000000000000000000000000000000001"
Management = 300
Performance = 500

[[fees.recipients]]
Address = "0x0000000000000000000000000000000000000002"
Management = 200
Performance = 0

[oracle]
Manager = "0x00000000000000000000000000000000000000e1"
FallbackMiddleware = "0x00000000000000000000000000000000000000e2"
DefaultMaxStaleness = 86400

[[oracle.assets]]
Asset = "0x00000000000000000000000000000000000000c1"
Source = "0x00000000000000000000000000000000000000c2"
MaxStaleness = 3600
MinPrice = "900000000000000000"
MaxPrice = "1100000000000000000"
MaxPriceDelta = "50000000000000000"

[oracle.sequencer]
Feed = "0x00000000000000000000000000000000000000b1"
OpStack = true
Enabled = true

[keeper]
Enabled = true
HarvestSchedule = "0 30 * * * *"
Watch = ["0x00000000000000000000000000000000000000c1"]

[chain]
RPCURL = "http://127.0.0.1:8545"
CallTimeout = 4

[telemetry]
Endpoint = "otel-collector:4318"
Traces = true
Headers = "x-api-key=abc"

[pauses]
Oracle = true
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Node.DataDir != "/var/lib/vault" || cfg.Node.Environment != "prod" {
		t.Fatalf("unexpected node section: %+v", cfg.Node)
	}
	if cfg.Fees.VaultDecimals != 6 || cfg.Fees.DAOManagementFee != 200 || cfg.Fees.HighWaterMarkInterval != 3600 {
		t.Fatalf("unexpected fees section: %+v", cfg.Fees)
	}
	if len(cfg.Fees.Recipients) != 2 || cfg.Fees.Recipients[0].Performance != 500 {
		t.Fatalf("unexpected recipients: %+v", cfg.Fees.Recipients)
	}
	if len(cfg.Oracle.Assets) != 1 || !cfg.Oracle.Sequencer.OpStack || !cfg.Oracle.Sequencer.Enabled {
		t.Fatalf("unexpected oracle section: %+v", cfg.Oracle)
	}
	limits, err := cfg.Oracle.Assets[0].Limits()
	if err != nil {
		t.Fatalf("limits: %v", err)
	}
	if limits.MaxPriceDelta.Uint64() != 50_000_000_000_000_000 {
		t.Fatalf("unexpected max price delta %s", limits.MaxPriceDelta)
	}
	if cfg.Keeper.HarvestSchedule != "0 30 * * * *" {
		t.Fatalf("unexpected harvest schedule %q", cfg.Keeper.HarvestSchedule)
	}
	if cfg.Keeper.ValidateSchedule != DefaultValidateSchedule {
		t.Fatalf("validate schedule default not applied: %q", cfg.Keeper.ValidateSchedule)
	}
	if cfg.Chain.CallTimeout != 4 {
		t.Fatalf("unexpected call timeout %d", cfg.Chain.CallTimeout)
	}
	if !cfg.Telemetry.Traces || cfg.Telemetry.Metrics || cfg.Telemetry.Endpoint != "otel-collector:4318" {
		t.Fatalf("unexpected telemetry section: %+v", cfg.Telemetry)
	}
	if !cfg.Pauses.Oracle || cfg.Pauses.Fees {
		t.Fatalf("unexpected pauses %+v", cfg.Pauses)
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Node.DataDir != DefaultDataDir || cfg.Chain.CallTimeout != DefaultCallTimeoutSeconds {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Fees.HighWaterMarkInterval != 86_400 {
		t.Fatalf("unexpected reloaded interval %d", reloaded.Fees.HighWaterMarkInterval)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "[fees]\nDAOManagmentFee = 100\n"))
	if err == nil || !strings.Contains(err.Error(), "fees.DAOManagmentFee") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidateRejectsInvalidConfigs(t *testing.T) {
	cases := map[string]string{
		"dao fee above 100%": "[fees]\nDAOManagementFee = 10001\n",
		"total above 100%": `[fees]
DAOPerformanceFee = 9000
[[fees.recipients]]
Address = "0x0000000000000000000000000000000000000001"
Performance = 1001
`,
		"duplicate recipient": `[[fees.recipients]]
Address = "0x0000000000000000000000000000000000000001"
[[fees.recipients]]
Address = "0x0000000000000000000000000000000000000001"
`,
		"zero recipient":    "[[fees.recipients]]\nManagement = 1\n",
		"bad address":       "[fees]\nVault = \"vault\"\n",
		"sequencer no feed": "[oracle.sequencer]\nEnabled = true\n",
		"inverted bounds": `[[oracle.assets]]
Asset = "0x00000000000000000000000000000000000000c1"
MinPrice = "2"
MaxPrice = "1"
`,
		"bad amount":   "[[oracle.assets]]\nAsset = \"0x00000000000000000000000000000000000000c1\"\nMaxPriceDelta = \"-1\"\n",
		"watched zero": "[keeper]\nWatch = [\"0x0000000000000000000000000000000000000000\"]\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, contents)); err == nil {
				t.Fatalf("expected validation failure")
			}
		})
	}
}

func TestValidateAcceptsOpenUpperBound(t *testing.T) {
	cfg := &Config{Oracle: Oracle{Assets: []OracleAsset{{
		Asset:    "0x00000000000000000000000000000000000000c1",
		MinPrice: "5",
	}}}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := Validate(nil); err == nil {
		t.Fatalf("expected nil configuration error")
	}
}
