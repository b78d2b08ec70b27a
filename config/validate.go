package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// MaxPercentage is 100% in the two-implied-decimal fee representation.
const MaxPercentage = uint64(10_000)

// Validate rejects configurations the engines would refuse at runtime.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if _, err := ParseAddress(cfg.Node.Operator); err != nil {
		return fmt.Errorf("node: Operator: %w", err)
	}
	if err := validateFees(cfg.Fees); err != nil {
		return err
	}
	if err := validateOracle(cfg.Oracle); err != nil {
		return err
	}
	for _, watched := range cfg.Keeper.Watch {
		addr, err := ParseAddress(watched)
		if err != nil || addr == (common.Address{}) {
			return fmt.Errorf("keeper: invalid watched asset %q", watched)
		}
	}
	if cfg.Chain.CallTimeout < 0 {
		return fmt.Errorf("chain: CallTimeout must not be negative")
	}
	return nil
}

func validateFees(f Fees) error {
	for name, value := range map[string]string{"Manager": f.Manager, "Vault": f.Vault, "DAORecipient": f.DAORecipient} {
		if _, err := ParseAddress(value); err != nil {
			return fmt.Errorf("fees: %s: %w", name, err)
		}
	}
	if f.DAOManagementFee > MaxPercentage || f.DAOPerformanceFee > MaxPercentage {
		return fmt.Errorf("fees: DAO fee above 100%%")
	}
	management, performance := f.DAOManagementFee, f.DAOPerformanceFee
	seen := make(map[common.Address]struct{}, len(f.Recipients))
	for _, r := range f.Recipients {
		addr, err := ParseAddress(r.Address)
		if err != nil {
			return fmt.Errorf("fees: recipients: %w", err)
		}
		if addr == (common.Address{}) {
			return fmt.Errorf("fees: recipients: address required")
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("fees: recipients: duplicate %s", addr.Hex())
		}
		seen[addr] = struct{}{}
		management += r.Management
		performance += r.Performance
	}
	if management > MaxPercentage {
		return fmt.Errorf("fees: total management fee %d exceeds %d", management, MaxPercentage)
	}
	if performance > MaxPercentage {
		return fmt.Errorf("fees: total performance fee %d exceeds %d", performance, MaxPercentage)
	}
	return nil
}

func validateOracle(o Oracle) error {
	if _, err := ParseAddress(o.Manager); err != nil {
		return fmt.Errorf("oracle: Manager: %w", err)
	}
	if _, err := ParseAddress(o.FallbackMiddleware); err != nil {
		return fmt.Errorf("oracle: FallbackMiddleware: %w", err)
	}
	feed, err := ParseAddress(o.Sequencer.Feed)
	if err != nil {
		return fmt.Errorf("oracle: sequencer: %w", err)
	}
	if o.Sequencer.Enabled && feed == (common.Address{}) {
		return fmt.Errorf("oracle: sequencer: Feed required when Enabled")
	}
	seen := make(map[common.Address]struct{}, len(o.Assets))
	for _, asset := range o.Assets {
		limits, err := asset.Limits()
		if err != nil {
			return fmt.Errorf("oracle: %w", err)
		}
		if limits.Asset == (common.Address{}) {
			return fmt.Errorf("oracle: assets: Asset required")
		}
		if _, dup := seen[limits.Asset]; dup {
			return fmt.Errorf("oracle: assets: duplicate %s", limits.Asset.Hex())
		}
		seen[limits.Asset] = struct{}{}
		if !limits.MaxPrice.IsZero() && limits.MinPrice.Gt(limits.MaxPrice) {
			return fmt.Errorf("oracle: assets: %s MinPrice above MaxPrice", limits.Asset.Hex())
		}
	}
	return nil
}
