package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestBufferFlushPreservesOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(FeeUpdated{FeeType: "management", TotalFee: 500})
	buf.Emit(FeeRecipientRemoved{Recipient: common.HexToAddress("0x01")})
	buf.Emit(nil)
	require.Equal(t, 2, buf.Len())

	rec := &Recorder{}
	buf.Flush(rec)
	require.Equal(t, []string{TypeFeeUpdated, TypeFeeRecipientRemoved}, rec.Types())
	require.Zero(t, buf.Len())

	buf.Emit(FeeUpdated{})
	buf.Discard()
	buf.Flush(rec)
	require.Len(t, rec.Events, 2)
}

func TestFeeHarvestedAttributes(t *testing.T) {
	evt := FeeHarvested{
		FeeType:   "performance",
		Account:   common.HexToAddress("0xaa"),
		Recipient: common.HexToAddress("0xbb"),
		Amount:    uint256.NewInt(600_000),
	}.Event()
	require.Equal(t, TypeFeeHarvested, evt.Type)
	require.Equal(t, "600000", evt.Attributes["amount"])
	require.Equal(t, "performance", evt.Attributes["feeType"])
	require.Equal(t, common.HexToAddress("0xbb").Hex(), evt.Attributes["recipient"])
}

func TestOracleEventAttributes(t *testing.T) {
	evt := PriceBoundsUpdated{
		Asset:    common.HexToAddress("0x10"),
		MinPrice: uint256.NewInt(1),
	}.Event()
	require.Equal(t, "1", evt.Attributes["minPrice"])
	require.Equal(t, "0", evt.Attributes["maxPrice"])

	seq := SequencerConfigUpdated{Enabled: true}.Event()
	require.Equal(t, "true", seq.Attributes["enabled"])
	require.Equal(t, "false", seq.Attributes["opStack"])
}
