package vault

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "plasmavault/native/common"
)

// Operations guarded by the access manager on the governance surface.
const (
	OpConfigureManagementFee  = "vault.configureManagementFee"
	OpConfigurePerformanceFee = "vault.configurePerformanceFee"
)

const governancePrefix = "vault/governance/v1"

// ErrFeeTooHigh is returned when a configured total exceeds 100%.
var ErrFeeTooHigh = errors.New("vault: fee exceeds 100%")

// FeeData is the fee configuration the vault applies when minting fee shares.
type FeeData struct {
	Account common.Address
	Fee     uint64
}

// Governance stores the management and performance fee configuration of a
// vault. The fee manager pushes new totals here whenever they change.
type Governance struct {
	state StateStore
	vault common.Address
	auth  nativecommon.Authorizer
}

// NewGovernance binds the fee governance surface of the vault at address.
func NewGovernance(state StateStore, vault common.Address, auth nativecommon.Authorizer) *Governance {
	return &Governance{state: state, vault: vault, auth: auth}
}

func (g *Governance) key(kind string) []byte {
	return []byte(fmt.Sprintf("%s/%x/%s", governancePrefix, g.vault, kind))
}

// ConfigureManagementFee records the management fee account and total.
func (g *Governance) ConfigureManagementFee(caller, account common.Address, fee nativecommon.Percentage) error {
	return g.configure(caller, OpConfigureManagementFee, "management", account, fee)
}

// ConfigurePerformanceFee records the performance fee account and total.
func (g *Governance) ConfigurePerformanceFee(caller, account common.Address, fee nativecommon.Percentage) error {
	return g.configure(caller, OpConfigurePerformanceFee, "performance", account, fee)
}

func (g *Governance) configure(caller common.Address, op, kind string, account common.Address, fee nativecommon.Percentage) error {
	if g == nil || g.state == nil {
		return errNilState
	}
	if err := nativecommon.Authorize(g.auth, caller, op); err != nil {
		return err
	}
	if account == (common.Address{}) {
		return ErrZeroAddress
	}
	if fee > nativecommon.PercentageDenominator {
		return fmt.Errorf("%w: %s", ErrFeeTooHigh, fee)
	}
	return g.state.KVPut(g.key(kind), FeeData{Account: account, Fee: fee.Uint64()})
}

// ManagementFeeData returns the stored management fee configuration.
func (g *Governance) ManagementFeeData() (FeeData, error) {
	return g.load("management")
}

// PerformanceFeeData returns the stored performance fee configuration.
func (g *Governance) PerformanceFeeData() (FeeData, error) {
	return g.load("performance")
}

func (g *Governance) load(kind string) (FeeData, error) {
	if g == nil || g.state == nil {
		return FeeData{}, errNilState
	}
	var data FeeData
	if _, err := g.state.KVGet(g.key(kind), &data); err != nil {
		return FeeData{}, err
	}
	return data, nil
}
