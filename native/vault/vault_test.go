package vault

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"plasmavault/core/state"
	nativecommon "plasmavault/native/common"
	"plasmavault/storage"
	"plasmavault/storage/trie"
)

var (
	vaultAddr = common.HexToAddress("0x00000000000000000000000000000000000a0a01")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	owner     = common.HexToAddress("0x0000000000000000000000000000000000000001")
)

func newState(t *testing.T) *state.Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	require.NoError(t, err)
	return state.NewManager(tr)
}

func TestShareLedgerTransferFrom(t *testing.T) {
	ledger := NewShareLedger(newState(t), vaultAddr, 6)
	require.Equal(t, uint8(6), ledger.Decimals())
	require.NoError(t, ledger.Mint(alice, uint256.NewInt(1_000)))

	err := ledger.TransferFrom(bob, alice, bob, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientAllowance)

	require.NoError(t, ledger.Approve(alice, bob, uint256.NewInt(300)))
	require.NoError(t, ledger.TransferFrom(bob, alice, bob, uint256.NewInt(100)))
	allowance, err := ledger.Allowance(alice, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(200), allowance.Uint64())

	require.NoError(t, ledger.Approve(alice, bob, new(uint256.Int).SetAllOne()))
	require.NoError(t, ledger.TransferFrom(bob, alice, bob, uint256.NewInt(900)))
	allowance, err = ledger.Allowance(alice, bob)
	require.NoError(t, err)
	require.True(t, allowance.Eq(new(uint256.Int).SetAllOne()))

	err = ledger.TransferFrom(bob, alice, bob, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	bal, err := ledger.BalanceOf(bob)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), bal.Uint64())
	supply, err := ledger.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), supply.Uint64())
}

func TestShareLedgerStrictApprovals(t *testing.T) {
	ledger := NewShareLedger(newState(t), vaultAddr, 18)
	ledger.SetStrictApprovals(true)

	require.NoError(t, ledger.Approve(alice, bob, uint256.NewInt(5)))
	require.ErrorIs(t, ledger.Approve(alice, bob, uint256.NewInt(6)), ErrApproveFromNonZero)
	require.NoError(t, ledger.Approve(alice, bob, new(uint256.Int)))
	require.NoError(t, ledger.Approve(alice, bob, uint256.NewInt(6)))
	require.ErrorIs(t, ledger.Approve(common.Address{}, bob, uint256.NewInt(1)), ErrZeroAddress)
}

func TestGovernanceRejectsFeeAbove100Percent(t *testing.T) {
	gov := NewGovernance(newState(t), vaultAddr, nativecommon.AllowAll{})

	require.NoError(t, gov.ConfigureManagementFee(owner, alice, 500))
	data, err := gov.ManagementFeeData()
	require.NoError(t, err)
	require.Equal(t, FeeData{Account: alice, Fee: 500}, data)

	require.ErrorIs(t, gov.ConfigurePerformanceFee(owner, alice, 10_001), ErrFeeTooHigh)
	require.ErrorIs(t, gov.ConfigurePerformanceFee(owner, common.Address{}, 1), ErrZeroAddress)

	denied := NewGovernance(newState(t), vaultAddr, nil)
	require.ErrorIs(t, denied.ConfigureManagementFee(owner, alice, 1), nativecommon.ErrUnauthorized)
}

func TestAccessManager(t *testing.T) {
	access := NewAccessManager(newState(t))
	access.Require("fees.addFeeRecipient", RoleAtomist)
	require.NoError(t, access.Grant(RoleOwner, owner))
	require.NoError(t, access.Grant(RoleAtomist, alice))

	require.NoError(t, access.Authorize(alice, "fees.addFeeRecipient"))
	require.NoError(t, access.Authorize(owner, "anything"))
	require.ErrorIs(t, access.Authorize(bob, "fees.addFeeRecipient"), nativecommon.ErrUnauthorized)
	require.ErrorIs(t, access.Authorize(alice, "unknown.op"), nativecommon.ErrUnauthorized)

	require.NoError(t, access.Revoke(RoleAtomist, alice))
	require.ErrorIs(t, access.Authorize(alice, "fees.addFeeRecipient"), nativecommon.ErrUnauthorized)
}
