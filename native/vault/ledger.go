package vault

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	errNilState              = errors.New("vault: state not configured")
	ErrZeroAddress           = errors.New("vault: zero address")
	ErrInsufficientBalance   = errors.New("vault: insufficient share balance")
	ErrInsufficientAllowance = errors.New("vault: insufficient allowance")

	// ErrApproveFromNonZero mirrors tokens that refuse to move an allowance
	// between two non-zero values.
	ErrApproveFromNonZero = errors.New("vault: approve from non-zero allowance")
)

const ledgerPrefix = "vault/ledger/v1"

// StateStore captures the state manager capabilities used by the vault
// collaborators.
type StateStore interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
}

// ShareLedger is the share accounting of a single vault: balances, allowances
// and total supply held in state.
type ShareLedger struct {
	state    StateStore
	address  common.Address
	decimals uint8
	// strictApprovals rejects non-zero to non-zero allowance changes.
	strictApprovals bool
}

// NewShareLedger binds a share ledger for the vault at address.
func NewShareLedger(state StateStore, address common.Address, decimals uint8) *ShareLedger {
	return &ShareLedger{state: state, address: address, decimals: decimals}
}

// SetStrictApprovals toggles the non-zero to non-zero approval restriction.
func (l *ShareLedger) SetStrictApprovals(strict bool) {
	if l == nil {
		return
	}
	l.strictApprovals = strict
}

// Address returns the vault address backing the ledger.
func (l *ShareLedger) Address() common.Address { return l.address }

// Decimals returns the share decimals.
func (l *ShareLedger) Decimals() uint8 { return l.decimals }

func (l *ShareLedger) balanceKey(account common.Address) []byte {
	return []byte(fmt.Sprintf("%s/%x/balance/%x", ledgerPrefix, l.address, account))
}

func (l *ShareLedger) allowanceKey(owner, spender common.Address) []byte {
	return []byte(fmt.Sprintf("%s/%x/allowance/%x/%x", ledgerPrefix, l.address, owner, spender))
}

func (l *ShareLedger) supplyKey() []byte {
	return []byte(fmt.Sprintf("%s/%x/supply", ledgerPrefix, l.address))
}

func (l *ShareLedger) load(key []byte) (*uint256.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	value := new(uint256.Int)
	if _, err := l.state.KVGet(key, value); err != nil {
		return nil, err
	}
	return value, nil
}

func (l *ShareLedger) store(key []byte, value *uint256.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return l.state.KVPut(key, value)
}

// BalanceOf returns the share balance of account.
func (l *ShareLedger) BalanceOf(account common.Address) (*uint256.Int, error) {
	return l.load(l.balanceKey(account))
}

// TotalSupply returns the outstanding share supply.
func (l *ShareLedger) TotalSupply() (*uint256.Int, error) {
	return l.load(l.supplyKey())
}

// Allowance returns the amount spender may pull from owner.
func (l *ShareLedger) Allowance(owner, spender common.Address) (*uint256.Int, error) {
	return l.load(l.allowanceKey(owner, spender))
}

// Approve sets the allowance of spender over owner's shares.
func (l *ShareLedger) Approve(owner, spender common.Address, amount *uint256.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == nil {
		amount = new(uint256.Int)
	}
	if l.strictApprovals && !amount.IsZero() {
		current, err := l.Allowance(owner, spender)
		if err != nil {
			return err
		}
		if !current.IsZero() {
			return ErrApproveFromNonZero
		}
	}
	return l.store(l.allowanceKey(owner, spender), amount)
}

// Mint credits freshly issued shares to account.
func (l *ShareLedger) Mint(account common.Address, amount *uint256.Int) error {
	if account == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	balance, err := l.BalanceOf(account)
	if err != nil {
		return err
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(supply, amount)
	if overflow {
		return fmt.Errorf("vault: share supply overflow")
	}
	if err := l.store(l.supplyKey(), newSupply); err != nil {
		return err
	}
	return l.store(l.balanceKey(account), new(uint256.Int).Add(balance, amount))
}

// Transfer moves shares owned by from.
func (l *ShareLedger) Transfer(from, to common.Address, amount *uint256.Int) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	fromBalance, err := l.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return fmt.Errorf("%w: have %s need %s", ErrInsufficientBalance, fromBalance.Dec(), amount.Dec())
	}
	if err := l.store(l.balanceKey(from), new(uint256.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	toBalance, err := l.BalanceOf(to)
	if err != nil {
		return err
	}
	return l.store(l.balanceKey(to), new(uint256.Int).Add(toBalance, amount))
}

// TransferFrom moves shares owned by from on behalf of spender, consuming
// allowance. A maximal allowance is treated as infinite and never decreases.
func (l *ShareLedger) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	allowance, err := l.Allowance(from, spender)
	if err != nil {
		return err
	}
	if allowance.Lt(amount) {
		return fmt.Errorf("%w: have %s need %s", ErrInsufficientAllowance, allowance.Dec(), amount.Dec())
	}
	if !isMax(allowance) {
		if err := l.store(l.allowanceKey(from, spender), new(uint256.Int).Sub(allowance, amount)); err != nil {
			return err
		}
	}
	return l.Transfer(from, to, amount)
}

func isMax(v *uint256.Int) bool {
	return v.Eq(new(uint256.Int).SetAllOne())
}
