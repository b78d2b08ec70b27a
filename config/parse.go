package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ParseAddress parses a hex address. Empty input yields the zero address.
func ParseAddress(value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(trimmed), nil
}

// ParseAmount parses a non-negative decimal integer. Empty input yields zero.
func ParseAmount(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}

// AssetLimits is the parsed form of an OracleAsset.
type AssetLimits struct {
	Asset         common.Address
	Source        common.Address
	MinPrice      *uint256.Int
	MaxPrice      *uint256.Int
	MaxPriceDelta *uint256.Int
}

// Limits parses the addresses and decimal amounts of the asset entry.
func (a OracleAsset) Limits() (AssetLimits, error) {
	var limits AssetLimits
	var err error
	if limits.Asset, err = ParseAddress(a.Asset); err != nil {
		return limits, fmt.Errorf("invalid oracle.assets.Asset: %w", err)
	}
	if limits.Source, err = ParseAddress(a.Source); err != nil {
		return limits, fmt.Errorf("invalid oracle.assets.Source: %w", err)
	}
	if limits.MinPrice, err = ParseAmount(a.MinPrice); err != nil {
		return limits, fmt.Errorf("invalid oracle.assets.MinPrice: %w", err)
	}
	if limits.MaxPrice, err = ParseAmount(a.MaxPrice); err != nil {
		return limits, fmt.Errorf("invalid oracle.assets.MaxPrice: %w", err)
	}
	if limits.MaxPriceDelta, err = ParseAmount(a.MaxPriceDelta); err != nil {
		return limits, fmt.Errorf("invalid oracle.assets.MaxPriceDelta: %w", err)
	}
	return limits, nil
}
