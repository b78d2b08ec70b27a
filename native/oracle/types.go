package oracle

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PriceDecimals is the fixed-point precision of every price returned by the
// manager.
const PriceDecimals uint8 = 18

// RoundData is the answer of a round-based aggregator feed.
type RoundData struct {
	RoundID         *big.Int
	Answer          *big.Int
	StartedAt       uint64
	UpdatedAt       uint64
	AnsweredInRound *big.Int
}

// PriceFeed is a round-based aggregator: custom asset price sources and
// sequencer uptime feeds share this shape.
type PriceFeed interface {
	LatestRoundData() (RoundData, error)
	Decimals() (uint8, error)
}

// Middleware is the fallback price oracle consulted for assets without a
// custom source.
type Middleware interface {
	GetAssetPrice(asset common.Address) (*uint256.Int, uint8, error)
}

// Directory resolves feed and middleware addresses to callable instances.
type Directory interface {
	PriceFeed(address common.Address) (PriceFeed, error)
	Middleware(address common.Address) (Middleware, error)
}

// PriceValidation is the circuit breaker configuration and baseline of one
// asset. MaxPriceDelta is an 18-decimal fraction (5e16 is 5%).
type PriceValidation struct {
	MaxPriceDelta      *uint256.Int
	LastValidatedPrice *uint256.Int
	LastValidatedAt    uint64
}

func (v PriceValidation) clone() PriceValidation {
	return PriceValidation{
		MaxPriceDelta:      cloneInt(v.MaxPriceDelta),
		LastValidatedPrice: cloneInt(v.LastValidatedPrice),
		LastValidatedAt:    v.LastValidatedAt,
	}
}

// PriceBounds limits accepted prices. A zero bound is not enforced.
type PriceBounds struct {
	MinPrice *uint256.Int
	MaxPrice *uint256.Int
}

func (b PriceBounds) clone() PriceBounds {
	return PriceBounds{MinPrice: cloneInt(b.MinPrice), MaxPrice: cloneInt(b.MaxPrice)}
}

// SequencerConfig selects the L2 sequencer uptime feed checked before prices
// are served.
type SequencerConfig struct {
	Feed    common.Address
	OpStack bool
	Enabled bool
}

func cloneInt(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
