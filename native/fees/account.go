package fees

import (
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// ApprovableToken is the allowance surface of the vault share token.
type ApprovableToken interface {
	Approve(owner, spender common.Address, amount *uint256.Int) error
}

// FeeAccount holds vault shares for one fee category until the fee manager
// harvests them.
type FeeAccount struct {
	address common.Address
	owner   common.Address
}

// NewFeeAccount returns the fee account at address owned by owner.
func NewFeeAccount(address, owner common.Address) *FeeAccount {
	return &FeeAccount{address: address, owner: owner}
}

// feeAccountAddress derives the deterministic address of the fee account
// created by manager with the given creation nonce.
func feeAccountAddress(manager common.Address, nonce uint64) common.Address {
	return ethcrypto.CreateAddress(manager, nonce)
}

// Address returns the fee account address.
func (a *FeeAccount) Address() common.Address { return a.address }

// Owner returns the fee manager allowed to act on the account.
func (a *FeeAccount) Owner() common.Address { return a.owner }

// Initialize grants the owner an unlimited allowance over the account's
// shares. Only the owner may trigger the grant. Repeated calls re-grant the
// maximum allowance.
func (a *FeeAccount) Initialize(caller common.Address, token ApprovableToken) error {
	if caller != a.owner {
		return ErrUnauthorized
	}
	return forceApprove(token, a.address, a.owner, new(uint256.Int).SetAllOne())
}

// forceApprove sets the allowance to amount, passing through zero when the
// token refuses to move directly between two non-zero allowances.
func forceApprove(token ApprovableToken, owner, spender common.Address, amount *uint256.Int) error {
	if err := token.Approve(owner, spender, amount); err == nil {
		return nil
	}
	if err := token.Approve(owner, spender, new(uint256.Int)); err != nil {
		return err
	}
	return token.Approve(owner, spender, amount)
}
