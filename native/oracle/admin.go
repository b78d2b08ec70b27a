package oracle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"plasmavault/core/events"
)

// Operations checked against the authorizer.
const (
	OpSetAssetsPricesSources    = "oracle.setAssetsPricesSources"
	OpRemoveAssetsPricesSources = "oracle.removeAssetsPricesSources"
	OpUpdatePriceValidation     = "oracle.updatePriceValidation"
	OpRemovePriceValidation     = "oracle.removePriceValidation"
	OpSetMaxStaleness           = "oracle.setMaxStaleness"
	OpSetPriceBounds            = "oracle.setPriceBounds"
	OpSetSequencerConfig        = "oracle.setSequencerConfig"
	OpSetPriceOracleMiddleware  = "oracle.setPriceOracleMiddleware"
)

func requireBatch(n int, lengths ...int) error {
	if n == 0 {
		return ErrEmptyArrayNotSupported
	}
	for _, l := range lengths {
		if l != n {
			return fmt.Errorf("%w: %d != %d", ErrArrayLengthMismatch, l, n)
		}
	}
	return nil
}

func requireAsset(asset common.Address) error {
	if asset == (common.Address{}) {
		return fmt.Errorf("%w: asset", ErrZeroAddress)
	}
	return nil
}

// SetAssetsPricesSources registers a custom round-based source per asset.
func (m *Manager) SetAssetsPricesSources(caller common.Address, assets, sources []common.Address) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpSetAssetsPricesSources); err != nil {
			return err
		}
		if err := requireBatch(len(assets), len(sources)); err != nil {
			return err
		}
		for i, asset := range assets {
			if err := requireAsset(asset); err != nil {
				return err
			}
			if sources[i] == (common.Address{}) {
				return fmt.Errorf("%w: source for %s", ErrZeroAddress, asset.Hex())
			}
			if err := m.store.SetPriceSource(asset, sources[i]); err != nil {
				return err
			}
			emit.Emit(events.AssetPriceSourceUpdated{Asset: asset, Source: sources[i]})
		}
		return nil
	})
}

// RemoveAssetsPricesSources drops the custom source of every asset so their
// prices come from the fallback middleware.
func (m *Manager) RemoveAssetsPricesSources(caller common.Address, assets []common.Address) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpRemoveAssetsPricesSources); err != nil {
			return err
		}
		if err := requireBatch(len(assets)); err != nil {
			return err
		}
		for _, asset := range assets {
			if err := m.store.DeletePriceSource(asset); err != nil {
				return err
			}
			emit.Emit(events.AssetPriceSourceUpdated{Asset: asset})
		}
		return nil
	})
}

// UpdatePriceValidation sets the maximum relative price change per asset.
// Existing baselines are kept.
func (m *Manager) UpdatePriceValidation(caller common.Address, assets []common.Address, maxPriceDeltas []*uint256.Int) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpUpdatePriceValidation); err != nil {
			return err
		}
		if err := requireBatch(len(assets), len(maxPriceDeltas)); err != nil {
			return err
		}
		for i, asset := range assets {
			if err := requireAsset(asset); err != nil {
				return err
			}
			if maxPriceDeltas[i] == nil || maxPriceDeltas[i].IsZero() {
				return fmt.Errorf("%w: %s", ErrInvalidMaxPriceDelta, asset.Hex())
			}
			cfg, _, err := m.store.PriceValidation(asset)
			if err != nil {
				return err
			}
			cfg.MaxPriceDelta = new(uint256.Int).Set(maxPriceDeltas[i])
			if err := m.store.SetPriceValidation(asset, cfg); err != nil {
				return err
			}
			emit.Emit(events.PriceValidationUpdated{Asset: asset, MaxPriceDelta: cfg.MaxPriceDelta})
		}
		return nil
	})
}

// RemovePriceValidation clears the circuit breaker and baseline per asset.
func (m *Manager) RemovePriceValidation(caller common.Address, assets []common.Address) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpRemovePriceValidation); err != nil {
			return err
		}
		if err := requireBatch(len(assets)); err != nil {
			return err
		}
		for _, asset := range assets {
			if err := m.store.DeletePriceValidation(asset); err != nil {
				return err
			}
			emit.Emit(events.PriceValidationUpdated{Asset: asset, Removed: true})
		}
		return nil
	})
}

// SetMaxStaleness sets the per-asset staleness threshold in seconds.
func (m *Manager) SetMaxStaleness(caller common.Address, assets []common.Address, maxStaleness []uint64) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpSetMaxStaleness); err != nil {
			return err
		}
		if err := requireBatch(len(assets), len(maxStaleness)); err != nil {
			return err
		}
		for i, asset := range assets {
			if err := requireAsset(asset); err != nil {
				return err
			}
			if err := m.store.SetMaxStaleness(asset, maxStaleness[i]); err != nil {
				return err
			}
			emit.Emit(events.MaxStalenessUpdated{Asset: asset, MaxStaleness: maxStaleness[i]})
		}
		return nil
	})
}

// RemoveMaxStaleness clears the per-asset threshold so the default applies.
func (m *Manager) RemoveMaxStaleness(caller common.Address, assets []common.Address) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpSetMaxStaleness); err != nil {
			return err
		}
		if err := requireBatch(len(assets)); err != nil {
			return err
		}
		for _, asset := range assets {
			if err := m.store.DeleteMaxStaleness(asset); err != nil {
				return err
			}
			emit.Emit(events.MaxStalenessUpdated{Asset: asset})
		}
		return nil
	})
}

// SetDefaultMaxStaleness sets the threshold used by assets without their own.
// Zero disables the default.
func (m *Manager) SetDefaultMaxStaleness(caller common.Address, seconds uint64) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpSetMaxStaleness); err != nil {
			return err
		}
		if err := m.store.SetDefaultMaxStaleness(seconds); err != nil {
			return err
		}
		emit.Emit(events.MaxStalenessUpdated{MaxStaleness: seconds})
		return nil
	})
}

// SetPriceBounds sets the accepted 18-decimal price band per asset. A zero
// bound is not enforced.
func (m *Manager) SetPriceBounds(caller common.Address, assets []common.Address, minPrices, maxPrices []*uint256.Int) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpSetPriceBounds); err != nil {
			return err
		}
		if err := requireBatch(len(assets), len(minPrices), len(maxPrices)); err != nil {
			return err
		}
		for i, asset := range assets {
			if err := requireAsset(asset); err != nil {
				return err
			}
			bounds := PriceBounds{MinPrice: cloneInt(minPrices[i]), MaxPrice: cloneInt(maxPrices[i])}
			if !bounds.MaxPrice.IsZero() && bounds.MinPrice.Gt(bounds.MaxPrice) {
				return fmt.Errorf("%w: %s", ErrInvalidPriceBounds, asset.Hex())
			}
			if err := m.store.SetPriceBounds(asset, bounds); err != nil {
				return err
			}
			emit.Emit(events.PriceBoundsUpdated{Asset: asset, MinPrice: bounds.MinPrice, MaxPrice: bounds.MaxPrice})
		}
		return nil
	})
}

// RemovePriceBounds clears the price band per asset.
func (m *Manager) RemovePriceBounds(caller common.Address, assets []common.Address) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpSetPriceBounds); err != nil {
			return err
		}
		if err := requireBatch(len(assets)); err != nil {
			return err
		}
		for _, asset := range assets {
			if err := m.store.DeletePriceBounds(asset); err != nil {
				return err
			}
			emit.Emit(events.PriceBoundsUpdated{Asset: asset})
		}
		return nil
	})
}

// SetSequencerConfig selects the sequencer uptime feed and enables the check.
func (m *Manager) SetSequencerConfig(caller, feed common.Address, opStack bool) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpSetSequencerConfig); err != nil {
			return err
		}
		if feed == (common.Address{}) {
			return fmt.Errorf("%w: sequencer feed", ErrZeroAddress)
		}
		return m.storeSequencer(SequencerConfig{Feed: feed, OpStack: opStack, Enabled: true}, emit)
	})
}

// EnableSequencerCheck turns the configured sequencer check on.
func (m *Manager) EnableSequencerCheck(caller common.Address) error {
	return m.toggleSequencer(caller, true)
}

// DisableSequencerCheck turns the sequencer check off, keeping the feed.
func (m *Manager) DisableSequencerCheck(caller common.Address) error {
	return m.toggleSequencer(caller, false)
}

func (m *Manager) toggleSequencer(caller common.Address, enabled bool) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpSetSequencerConfig); err != nil {
			return err
		}
		cfg, err := m.store.SequencerConfig()
		if err != nil {
			return err
		}
		if enabled && cfg.Feed == (common.Address{}) {
			return fmt.Errorf("%w: sequencer feed", ErrZeroAddress)
		}
		cfg.Enabled = enabled
		return m.storeSequencer(cfg, emit)
	})
}

func (m *Manager) storeSequencer(cfg SequencerConfig, emit events.Emitter) error {
	if err := m.store.SetSequencerConfig(cfg); err != nil {
		return err
	}
	emit.Emit(events.SequencerConfigUpdated{Feed: cfg.Feed, OpStack: cfg.OpStack, Enabled: cfg.Enabled})
	return nil
}

// SetPriceOracleMiddleware sets the fallback middleware address.
func (m *Manager) SetPriceOracleMiddleware(caller, middleware common.Address) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpSetPriceOracleMiddleware); err != nil {
			return err
		}
		if middleware == (common.Address{}) {
			return fmt.Errorf("%w: middleware", ErrZeroAddress)
		}
		if err := m.store.SetMiddleware(middleware); err != nil {
			return err
		}
		emit.Emit(events.PriceOracleMiddlewareUpdated{Middleware: middleware})
		return nil
	})
}
