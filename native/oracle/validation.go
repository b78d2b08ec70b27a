package oracle

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"plasmavault/core/events"
	nativecommon "plasmavault/native/common"
)

// priceScale is the 18-decimal unit used for relative price deltas.
var priceScale = nativecommon.Pow10(PriceDecimals)

// ValidatePriceChange compares price against the last validated price of
// asset. The first call seeds the baseline. A relative move above the
// configured maximum fails with ErrPriceChangeExceeded; a move above half the
// maximum refreshes the baseline. It reports whether the baseline changed.
func (m *Manager) ValidatePriceChange(asset common.Address, price *uint256.Int) (bool, error) {
	updated := false
	err := m.execute(func(emit events.Emitter) error {
		cfg, ok, err := m.store.PriceValidation(asset)
		if err != nil {
			return err
		}
		if !ok || cfg.MaxPriceDelta.IsZero() {
			return fmt.Errorf("%w: %s", ErrPriceValidationNotConfigured, asset.Hex())
		}
		if price == nil || price.IsZero() {
			return fmt.Errorf("%w: zero price for %s", ErrUnexpectedPriceResult, asset.Hex())
		}
		if !cfg.LastValidatedPrice.IsZero() {
			delta, err := relativeDelta(price, cfg.LastValidatedPrice)
			if err != nil {
				return err
			}
			if delta.Gt(cfg.MaxPriceDelta) {
				return &PriceChangeExceededError{Asset: asset, Delta: delta, MaxPriceDelta: cfg.MaxPriceDelta}
			}
			half := new(uint256.Int).Rsh(cfg.MaxPriceDelta, 1)
			if !delta.Gt(half) {
				return nil
			}
		}
		now := m.now()
		cfg.LastValidatedPrice = new(uint256.Int).Set(price)
		cfg.LastValidatedAt = now
		if err := m.store.SetPriceValidation(asset, cfg); err != nil {
			return err
		}
		updated = true
		emit.Emit(events.PriceBaselineUpdated{Asset: asset, Price: cfg.LastValidatedPrice, Timestamp: now})
		return nil
	})
	result := "unchanged"
	switch {
	case err != nil:
		result = "rejected"
		m.logger.Warn("price change rejected", slog.String("asset", asset.Hex()), slog.Any("error", err))
	case updated:
		result = "baseline_updated"
	}
	m.metrics.ObserveValidation(result)
	if err != nil {
		return false, err
	}
	return updated, nil
}

// relativeDelta returns |price-baseline|/baseline as an 18-decimal fraction.
func relativeDelta(price, baseline *uint256.Int) (*uint256.Int, error) {
	diff := new(uint256.Int)
	if price.Gt(baseline) {
		diff.Sub(price, baseline)
	} else {
		diff.Sub(baseline, price)
	}
	return nativecommon.MulDiv(diff, priceScale, baseline)
}
