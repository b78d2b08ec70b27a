package oracle

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	errNilState = errors.New("oracle: state not configured")

	ErrUnsupportedAsset             = errors.New("oracle: unsupported asset")
	ErrUnexpectedPriceResult        = errors.New("oracle: unexpected price result")
	ErrStalePrice                   = errors.New("oracle: stale price")
	ErrPriceOutOfBounds             = errors.New("oracle: price out of bounds")
	ErrPriceChangeExceeded          = errors.New("oracle: price change exceeded")
	ErrPriceValidationNotConfigured = errors.New("oracle: price validation not configured")
	ErrEmptyArrayNotSupported       = errors.New("oracle: empty array not supported")
	ErrArrayLengthMismatch          = errors.New("oracle: array length mismatch")
	ErrZeroAddress                  = errors.New("oracle: zero address")
	ErrInvalidMaxPriceDelta         = errors.New("oracle: max price delta must be positive")
	ErrInvalidPriceBounds           = errors.New("oracle: min price above max price")

	ErrSequencerDown         = errors.New("oracle: sequencer down")
	ErrSequencerFeedStale    = errors.New("oracle: sequencer feed stale")
	ErrGracePeriodNotElapsed = errors.New("oracle: sequencer grace period not elapsed")
)

// StalePriceError reports a feed answer older than the allowed staleness.
type StalePriceError struct {
	Asset        common.Address
	UpdatedAt    uint64
	Now          uint64
	MaxStaleness uint64
}

func (e *StalePriceError) Error() string {
	return fmt.Sprintf("oracle: stale price for %s: updated at %d, now %d, max staleness %ds",
		e.Asset.Hex(), e.UpdatedAt, e.Now, e.MaxStaleness)
}

// Is lets errors.Is match ErrStalePrice.
func (e *StalePriceError) Is(target error) bool { return target == ErrStalePrice }

// PriceOutOfBoundsError reports a price outside the configured band.
type PriceOutOfBoundsError struct {
	Asset    common.Address
	Price    *uint256.Int
	MinPrice *uint256.Int
	MaxPrice *uint256.Int
}

func (e *PriceOutOfBoundsError) Error() string {
	return fmt.Sprintf("oracle: price %s for %s outside [%s, %s]",
		dec(e.Price), e.Asset.Hex(), dec(e.MinPrice), dec(e.MaxPrice))
}

// Is lets errors.Is match ErrPriceOutOfBounds.
func (e *PriceOutOfBoundsError) Is(target error) bool { return target == ErrPriceOutOfBounds }

// PriceChangeExceededError reports a relative price move above the allowed
// delta. Both deltas are 18-decimal fractions.
type PriceChangeExceededError struct {
	Asset         common.Address
	Delta         *uint256.Int
	MaxPriceDelta *uint256.Int
}

func (e *PriceChangeExceededError) Error() string {
	return fmt.Sprintf("oracle: price change for %s of %s exceeds %s",
		e.Asset.Hex(), dec(e.Delta), dec(e.MaxPriceDelta))
}

// Is lets errors.Is match ErrPriceChangeExceeded.
func (e *PriceChangeExceededError) Is(target error) bool { return target == ErrPriceChangeExceeded }

// GracePeriodError reports a sequencer that came back up too recently.
type GracePeriodError struct {
	StartedAt uint64
	Now       uint64
}

func (e *GracePeriodError) Error() string {
	return fmt.Sprintf("oracle: sequencer grace period not elapsed: up since %d, now %d", e.StartedAt, e.Now)
}

// Is lets errors.Is match ErrGracePeriodNotElapsed.
func (e *GracePeriodError) Is(target error) bool { return target == ErrGracePeriodNotElapsed }

func dec(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
