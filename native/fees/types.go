package fees

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "plasmavault/native/common"
)

// FeeType distinguishes the two fee categories routed through fee accounts.
type FeeType uint8

const (
	Management FeeType = iota
	Performance
)

// String returns the lowercase fee type name.
func (t FeeType) String() string {
	switch t {
	case Management:
		return "management"
	case Performance:
		return "performance"
	default:
		return "unknown"
	}
}

// FeeTypes lists every fee type in harvest order.
var FeeTypes = []FeeType{Management, Performance}

// RecipientFee pairs a recipient with its allocation for one fee type.
type RecipientFee struct {
	Recipient common.Address
	Fee       nativecommon.Percentage
}

// RecipientAllocation carries both allocations of a single recipient.
type RecipientAllocation struct {
	Recipient   common.Address
	Management  nativecommon.Percentage
	Performance nativecommon.Percentage
}

// FeeTotals are the total fee percentages configured on the vault: the DAO
// percentage plus every recipient allocation.
type FeeTotals struct {
	Management  uint64
	Performance uint64
}

// Of returns the total for the fee type.
func (t FeeTotals) Of(kind FeeType) nativecommon.Percentage {
	if kind == Performance {
		return nativecommon.Percentage(t.Performance)
	}
	return nativecommon.Percentage(t.Management)
}

// With returns a copy with the total for kind replaced.
func (t FeeTotals) With(kind FeeType, value nativecommon.Percentage) FeeTotals {
	if kind == Performance {
		t.Performance = value.Uint64()
	} else {
		t.Management = value.Uint64()
	}
	return t
}

// DAOFeeRecipient is the protocol recipient and its fixed percentages.
type DAOFeeRecipient struct {
	Recipient      common.Address
	ManagementFee  uint64
	PerformanceFee uint64
}

// Fee returns the fixed DAO percentage for the fee type.
func (d DAOFeeRecipient) Fee(kind FeeType) nativecommon.Percentage {
	if kind == Performance {
		return nativecommon.Percentage(d.PerformanceFee)
	}
	return nativecommon.Percentage(d.ManagementFee)
}

// HighWaterMark tracks the highest recorded valuation used to gate
// performance fees.
type HighWaterMark struct {
	Value          *uint256.Int
	LastUpdate     uint64
	UpdateInterval uint64
}

// Clone returns a deep copy.
func (h HighWaterMark) Clone() HighWaterMark {
	clone := HighWaterMark{LastUpdate: h.LastUpdate, UpdateInterval: h.UpdateInterval}
	if h.Value != nil {
		clone.Value = new(uint256.Int).Set(h.Value)
	} else {
		clone.Value = new(uint256.Int)
	}
	return clone
}

// InitData seeds the fee manager storage on deployment.
type InitData struct {
	DAORecipient          common.Address
	DAOManagementFee      nativecommon.Percentage
	DAOPerformanceFee     nativecommon.Percentage
	Recipients            []RecipientAllocation
	HighWaterMarkInterval uint64
}
