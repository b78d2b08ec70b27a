package common

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrDivisionByZero is returned by MulDiv for a zero denominator.
	ErrDivisionByZero = errors.New("math: division by zero")
	// ErrMulDivOverflow is returned when x*y/d does not fit in 256 bits.
	ErrMulDivOverflow = errors.New("math: mul div overflow")
)

// MulDiv computes floor(x*y/d) using a 512-bit intermediate product, so the
// multiplication never wraps even when x*y exceeds 2^256.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d == nil || d.IsZero() {
		return nil, ErrDivisionByZero
	}
	if x == nil || y == nil {
		return new(uint256.Int), nil
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrMulDivOverflow
	}
	return z, nil
}

// Pow10 returns 10^exp.
func Pow10(exp uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(exp)))
}

// ScaleDecimals converts value expressed with from decimals into to decimals,
// truncating when precision is lost. It fails when the upscaled value no longer
// fits in 256 bits.
func ScaleDecimals(value *uint256.Int, from, to uint8) (*uint256.Int, error) {
	if value == nil {
		return new(uint256.Int), nil
	}
	switch {
	case from == to:
		return new(uint256.Int).Set(value), nil
	case from < to:
		scaled, overflow := new(uint256.Int).MulOverflow(value, Pow10(to-from))
		if overflow {
			return nil, ErrMulDivOverflow
		}
		return scaled, nil
	default:
		return new(uint256.Int).Div(value, Pow10(from-to)), nil
	}
}
