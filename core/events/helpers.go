package events

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func addr(a common.Address) string {
	return a.Hex()
}

func amount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
