package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultDataDir            = "./vault-data"
	DefaultMetricsAddress     = ":9464"
	DefaultEnvironment        = "dev"
	DefaultHarvestSchedule    = "0 0 * * * *"
	DefaultValidateSchedule   = "0 */5 * * * *"
	DefaultCheckpointSchedule = "0 0 0 * * *"
	DefaultCallTimeoutSeconds = 10
)

type Config struct {
	Node      Node      `toml:"node"`
	Fees      Fees      `toml:"fees"`
	Oracle    Oracle    `toml:"oracle"`
	Keeper    Keeper    `toml:"keeper"`
	Chain     Chain     `toml:"chain"`
	Telemetry Telemetry `toml:"telemetry"`
	Pauses    Pauses    `toml:"pauses"`
}

// Load loads the configuration from the given path. A missing file is
// replaced by a freshly written default configuration.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Node.DataDir) == "" {
		c.Node.DataDir = DefaultDataDir
	}
	if strings.TrimSpace(c.Node.MetricsAddress) == "" {
		c.Node.MetricsAddress = DefaultMetricsAddress
	}
	if strings.TrimSpace(c.Node.Environment) == "" {
		c.Node.Environment = DefaultEnvironment
	}
	if c.Fees.VaultDecimals == 0 {
		c.Fees.VaultDecimals = 18
	}
	if strings.TrimSpace(c.Keeper.HarvestSchedule) == "" {
		c.Keeper.HarvestSchedule = DefaultHarvestSchedule
	}
	if strings.TrimSpace(c.Keeper.ValidateSchedule) == "" {
		c.Keeper.ValidateSchedule = DefaultValidateSchedule
	}
	if strings.TrimSpace(c.Keeper.CheckpointSchedule) == "" {
		c.Keeper.CheckpointSchedule = DefaultCheckpointSchedule
	}
	if c.Keeper.Watch == nil {
		c.Keeper.Watch = []string{}
	}
	if c.Chain.CallTimeout <= 0 {
		c.Chain.CallTimeout = DefaultCallTimeoutSeconds
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		Node: Node{
			DataDir:        DefaultDataDir,
			MetricsAddress: DefaultMetricsAddress,
			Environment:    DefaultEnvironment,
		},
		Fees: Fees{
			VaultDecimals:         18,
			HighWaterMarkInterval: 86_400,
			Recipients:            []FeeRecipient{},
		},
		Oracle: Oracle{Assets: []OracleAsset{}},
	}
	cfg.applyDefaults()

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
