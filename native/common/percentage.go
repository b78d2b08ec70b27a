package common

import (
	"errors"
	"fmt"
	"math"
)

// Percentage is a fixed-point percentage with two implied decimals, so 10000
// is 100% and 1 is 0.01%.
type Percentage uint64

// PercentageDenominator is the value representing 100%.
const PercentageDenominator Percentage = 10_000

// ErrPercentageOverflow indicates a percentage sum that no longer fits in the
// underlying integer.
var ErrPercentageOverflow = errors.New("percentage overflow")

// Uint64 returns the raw fixed-point value.
func (p Percentage) Uint64() uint64 { return uint64(p) }

// String renders the percentage with two decimals, e.g. "5.00%".
func (p Percentage) String() string {
	return fmt.Sprintf("%d.%02d%%", uint64(p)/100, uint64(p)%100)
}

// SumPercentages adds the supplied values, failing on overflow.
func SumPercentages(values ...Percentage) (Percentage, error) {
	var total uint64
	for _, v := range values {
		if uint64(v) > math.MaxUint64-total {
			return 0, ErrPercentageOverflow
		}
		total += uint64(v)
	}
	return Percentage(total), nil
}
