package core

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"plasmavault/config"
	"plasmavault/core/events"
	nativecommon "plasmavault/native/common"
	"plasmavault/native/fees"
	"plasmavault/storage"
)

var (
	operatorAddr  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	daoAddr       = common.HexToAddress("0x00000000000000000000000000000000000000da")
	recipientAddr = common.HexToAddress("0x0000000000000000000000000000000000000001")
	assetAddr     = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	sourceAddr    = common.HexToAddress("0x00000000000000000000000000000000000000c2")
	feedAddr      = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func testConfig() *config.Config {
	return &config.Config{
		Fees: config.Fees{
			DAORecipient:          daoAddr.Hex(),
			DAOManagementFee:      200,
			DAOPerformanceFee:     1000,
			HighWaterMarkInterval: 3600,
			Recipients: []config.FeeRecipient{
				{Address: recipientAddr.Hex(), Management: 300, Performance: 500},
			},
		},
		Oracle: config.Oracle{
			DefaultMaxStaleness: 7200,
			Assets: []config.OracleAsset{{
				Asset:         assetAddr.Hex(),
				Source:        sourceAddr.Hex(),
				MaxStaleness:  600,
				MinPrice:      "1",
				MaxPrice:      "5000000000000000000",
				MaxPriceDelta: "50000000000000000",
			}},
			Sequencer: config.Sequencer{Feed: feedAddr.Hex(), OpStack: true},
		},
		Pauses: config.Pauses{Oracle: true},
	}
}

func newTestNode(t *testing.T, db storage.Database) *Node {
	t.Helper()
	node, err := NewNode(db, Options{VaultDecimals: 6, Now: func() int64 { return 1_700_000_000 }})
	require.NoError(t, err)
	return node
}

func TestBootstrapSeedsEngines(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	node := newTestNode(t, db)
	require.True(t, node.Fresh())
	require.NoError(t, node.Bootstrap(testConfig(), operatorAddr))

	require.NoError(t, node.View(func(n *Node) error {
		initialized, err := n.Fees().IsInitialized()
		require.NoError(t, err)
		require.True(t, initialized)

		total, err := n.Fees().TotalManagementFee()
		require.NoError(t, err)
		require.Equal(t, nativecommon.Percentage(500), total)
		perf, err := n.Fees().TotalPerformanceFee()
		require.NoError(t, err)
		require.Equal(t, nativecommon.Percentage(1500), perf)

		source, err := n.Oracle().GetSourceOfAssetPrice(assetAddr)
		require.NoError(t, err)
		require.Equal(t, sourceAddr, source)
		staleness, err := n.Oracle().GetMaxStaleness(assetAddr)
		require.NoError(t, err)
		require.Equal(t, uint64(600), staleness)
		info, ok, err := n.Oracle().GetPriceValidationInfo(assetAddr)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, uint64(50_000_000_000_000_000), info.MaxPriceDelta.Uint64())
		sequencer, err := n.Oracle().GetSequencerConfig()
		require.NoError(t, err)
		require.Equal(t, feedAddr, sequencer.Feed)
		require.True(t, sequencer.OpStack)
		require.False(t, sequencer.Enabled)

		require.True(t, n.Params().IsPaused("oracle"))
		require.False(t, n.Params().IsPaused("fees"))
		return nil
	}))
	require.Equal(t, uint64(1), node.Head().Height)
}

func TestMutateCommitsAndReopens(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	node := newTestNode(t, db)
	require.NoError(t, node.Bootstrap(testConfig(), operatorAddr))

	account := node.Fees().ManagementFeeAccount().Address()
	require.NoError(t, node.Mutate(func(n *Node) error {
		if err := n.Ledger().Mint(account, uint256.NewInt(1_000)); err != nil {
			return err
		}
		return n.Fees().HarvestManagementFee()
	}))
	head := node.Head()
	require.Equal(t, uint64(2), head.Height)

	recent := node.Events().Recent(1)
	require.Len(t, recent, 1)
	require.Equal(t, events.TypeFeeHarvested, recent[0].Event.Type)

	reopened := newTestNode(t, db)
	require.False(t, reopened.Fresh())
	require.Equal(t, head, reopened.Head())
	require.NoError(t, reopened.View(func(n *Node) error {
		dao, err := n.Ledger().BalanceOf(daoAddr)
		require.NoError(t, err)
		require.Equal(t, uint64(400), dao.Uint64())
		rec, err := n.Ledger().BalanceOf(recipientAddr)
		require.NoError(t, err)
		require.Equal(t, uint64(600), rec.Uint64())
		return nil
	}))
}

func TestMutateFailureSkipsCommit(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	node := newTestNode(t, db)
	require.NoError(t, node.Bootstrap(testConfig(), operatorAddr))
	before := node.Head()

	outsider := common.HexToAddress("0x0000000000000000000000000000000000000bad")
	err := node.Mutate(func(n *Node) error {
		return n.Fees().AddFeeRecipient(outsider, outsider, 1, 1)
	})
	require.ErrorIs(t, err, nativecommon.ErrUnauthorized)
	require.Equal(t, before, node.Head())
}

func TestFeeInitDataRejectsBadAddress(t *testing.T) {
	_, err := FeeInitData(config.Fees{DAORecipient: "dao"})
	require.Error(t, err)

	data, err := FeeInitData(testConfig().Fees)
	require.NoError(t, err)
	require.Equal(t, []fees.RecipientAllocation{{Recipient: recipientAddr, Management: 300, Performance: 500}}, data.Recipients)
}

func TestEventLogCapacity(t *testing.T) {
	log := NewEventLog(2, nil)
	for i := 0; i < 3; i++ {
		log.Emit(events.FeeHarvested{})
	}
	require.Len(t, log.Recent(0), 2)
	require.Len(t, log.Recent(1), 1)
}
