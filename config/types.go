package config

// Node configures the process hosting the vault engines.
type Node struct {
	DataDir        string `toml:"DataDir"`
	MetricsAddress string `toml:"MetricsAddress"`
	Environment    string `toml:"Environment"`
	// Operator is the address the daemon and CLI act as.
	Operator string `toml:"Operator"`
}

// FeeRecipient is one recipient seeded at fee manager deployment.
type FeeRecipient struct {
	Address     string `toml:"Address"`
	Management  uint64 `toml:"Management"`
	Performance uint64 `toml:"Performance"`
}

// Fees configures the fee manager and the vault it serves. Percentages use
// two implied decimals (10000 = 100%).
type Fees struct {
	Manager               string         `toml:"Manager"`
	Vault                 string         `toml:"Vault"`
	VaultDecimals         uint8          `toml:"VaultDecimals"`
	DAORecipient          string         `toml:"DAORecipient"`
	DAOManagementFee      uint64         `toml:"DAOManagementFee"`
	DAOPerformanceFee     uint64         `toml:"DAOPerformanceFee"`
	HighWaterMarkInterval uint64         `toml:"HighWaterMarkInterval"`
	Recipients            []FeeRecipient `toml:"recipients"`
}

// OracleAsset configures the price source and guards of one asset. Prices
// and deltas are decimal strings in 18-decimal units.
type OracleAsset struct {
	Asset         string `toml:"Asset"`
	Source        string `toml:"Source"`
	MaxStaleness  uint64 `toml:"MaxStaleness"`
	MinPrice      string `toml:"MinPrice"`
	MaxPrice      string `toml:"MaxPrice"`
	MaxPriceDelta string `toml:"MaxPriceDelta"`
}

// Sequencer configures the L2 sequencer uptime check.
type Sequencer struct {
	Feed    string `toml:"Feed"`
	OpStack bool   `toml:"OpStack"`
	Enabled bool   `toml:"Enabled"`
}

// Oracle configures the price oracle middleware manager.
type Oracle struct {
	Manager             string        `toml:"Manager"`
	FallbackMiddleware  string        `toml:"FallbackMiddleware"`
	DefaultMaxStaleness uint64        `toml:"DefaultMaxStaleness"`
	Assets              []OracleAsset `toml:"assets"`
	Sequencer           Sequencer     `toml:"sequencer"`
}

// Keeper configures the periodic jobs. Schedules use cron syntax with a
// leading seconds field.
type Keeper struct {
	Enabled            bool     `toml:"Enabled"`
	HarvestSchedule    string   `toml:"HarvestSchedule"`
	ValidateSchedule   string   `toml:"ValidateSchedule"`
	CheckpointSchedule string   `toml:"CheckpointSchedule"`
	Watch              []string `toml:"Watch"`
}

// Chain configures the JSON-RPC endpoint used to read on-chain feeds.
type Chain struct {
	RPCURL      string `toml:"RPCURL"`
	CallTimeout int    `toml:"CallTimeout"` // seconds
}

// Telemetry configures the OTLP exporters. Headers use the
// OTEL_EXPORTER_OTLP_HEADERS form (key=value,key=value).
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// Pauses toggles module execution.
type Pauses struct {
	Fees   bool `toml:"Fees" json:"fees"`
	Oracle bool `toml:"Oracle" json:"oracle"`
}
