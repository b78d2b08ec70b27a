package events

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"plasmavault/core/types"
)

const (
	// TypeAssetPriceSourceUpdated marks a custom price source being set or cleared.
	TypeAssetPriceSourceUpdated = "oracle.price_source_updated"
	// TypePriceValidationUpdated marks a price-delta validation config change.
	TypePriceValidationUpdated = "oracle.price_validation_updated"
	// TypePriceBaselineUpdated marks a refreshed validation baseline.
	TypePriceBaselineUpdated = "oracle.price_baseline_updated"
	// TypeMaxStalenessUpdated marks a staleness threshold change.
	TypeMaxStalenessUpdated = "oracle.max_staleness_updated"
	// TypePriceBoundsUpdated marks a price bounds change.
	TypePriceBoundsUpdated = "oracle.price_bounds_updated"
	// TypeSequencerConfigUpdated marks a sequencer uptime config change.
	TypeSequencerConfigUpdated = "oracle.sequencer_config_updated"
	// TypePriceOracleMiddlewareUpdated marks a new fallback middleware.
	TypePriceOracleMiddlewareUpdated = "oracle.middleware_updated"
)

// AssetPriceSourceUpdated records the custom source configured for an asset.
// A zero source means the asset falls back to the middleware.
type AssetPriceSourceUpdated struct {
	Asset  common.Address
	Source common.Address
}

// EventType satisfies the events.Event interface.
func (AssetPriceSourceUpdated) EventType() string { return TypeAssetPriceSourceUpdated }

// Event converts the structured payload into a broadcastable event.
func (e AssetPriceSourceUpdated) Event() *types.Event {
	return &types.Event{Type: TypeAssetPriceSourceUpdated, Attributes: map[string]string{
		"asset":  addr(e.Asset),
		"source": addr(e.Source),
	}}
}

// PriceValidationUpdated records the max price delta configured for an asset.
// Removed is set when validation was switched off.
type PriceValidationUpdated struct {
	Asset         common.Address
	MaxPriceDelta *uint256.Int
	Removed       bool
}

// EventType satisfies the events.Event interface.
func (PriceValidationUpdated) EventType() string { return TypePriceValidationUpdated }

// Event converts the structured payload into a broadcastable event.
func (e PriceValidationUpdated) Event() *types.Event {
	return &types.Event{Type: TypePriceValidationUpdated, Attributes: map[string]string{
		"asset":         addr(e.Asset),
		"maxPriceDelta": amount(e.MaxPriceDelta),
		"removed":       strconv.FormatBool(e.Removed),
	}}
}

// PriceBaselineUpdated records a new validated price baseline.
type PriceBaselineUpdated struct {
	Asset     common.Address
	Price     *uint256.Int
	Timestamp uint64
}

// EventType satisfies the events.Event interface.
func (PriceBaselineUpdated) EventType() string { return TypePriceBaselineUpdated }

// Event converts the structured payload into a broadcastable event.
func (e PriceBaselineUpdated) Event() *types.Event {
	return &types.Event{Type: TypePriceBaselineUpdated, Attributes: map[string]string{
		"asset":     addr(e.Asset),
		"price":     amount(e.Price),
		"timestamp": u64(e.Timestamp),
	}}
}

// MaxStalenessUpdated records a staleness threshold. The zero asset denotes
// the global default.
type MaxStalenessUpdated struct {
	Asset        common.Address
	MaxStaleness uint64
}

// EventType satisfies the events.Event interface.
func (MaxStalenessUpdated) EventType() string { return TypeMaxStalenessUpdated }

// Event converts the structured payload into a broadcastable event.
func (e MaxStalenessUpdated) Event() *types.Event {
	return &types.Event{Type: TypeMaxStalenessUpdated, Attributes: map[string]string{
		"asset":        addr(e.Asset),
		"maxStaleness": u64(e.MaxStaleness),
	}}
}

// PriceBoundsUpdated records the accepted price range for an asset.
type PriceBoundsUpdated struct {
	Asset    common.Address
	MinPrice *uint256.Int
	MaxPrice *uint256.Int
}

// EventType satisfies the events.Event interface.
func (PriceBoundsUpdated) EventType() string { return TypePriceBoundsUpdated }

// Event converts the structured payload into a broadcastable event.
func (e PriceBoundsUpdated) Event() *types.Event {
	return &types.Event{Type: TypePriceBoundsUpdated, Attributes: map[string]string{
		"asset":    addr(e.Asset),
		"minPrice": amount(e.MinPrice),
		"maxPrice": amount(e.MaxPrice),
	}}
}

// SequencerConfigUpdated records the sequencer uptime feed configuration.
type SequencerConfigUpdated struct {
	Feed    common.Address
	OpStack bool
	Enabled bool
}

// EventType satisfies the events.Event interface.
func (SequencerConfigUpdated) EventType() string { return TypeSequencerConfigUpdated }

// Event converts the structured payload into a broadcastable event.
func (e SequencerConfigUpdated) Event() *types.Event {
	return &types.Event{Type: TypeSequencerConfigUpdated, Attributes: map[string]string{
		"feed":    addr(e.Feed),
		"opStack": strconv.FormatBool(e.OpStack),
		"enabled": strconv.FormatBool(e.Enabled),
	}}
}

// PriceOracleMiddlewareUpdated records the fallback middleware address.
type PriceOracleMiddlewareUpdated struct {
	Middleware common.Address
}

// EventType satisfies the events.Event interface.
func (PriceOracleMiddlewareUpdated) EventType() string { return TypePriceOracleMiddlewareUpdated }

// Event converts the structured payload into a broadcastable event.
func (e PriceOracleMiddlewareUpdated) Event() *types.Event {
	return &types.Event{Type: TypePriceOracleMiddlewareUpdated, Attributes: map[string]string{
		"middleware": addr(e.Middleware),
	}}
}
