package fees

import (
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"plasmavault/core/events"
	nativecommon "plasmavault/native/common"
)

// transfer is one planned payout of a harvest.
type transfer struct {
	recipient common.Address
	amount    *uint256.Int
	party     string
}

// HarvestManagementFee distributes the management fee account balance.
func (m *Manager) HarvestManagementFee() error {
	return m.execute(func(emit events.Emitter) error {
		return m.harvest(Management, emit)
	})
}

// HarvestPerformanceFee distributes the performance fee account balance.
func (m *Manager) HarvestPerformanceFee() error {
	return m.execute(func(emit events.Emitter) error {
		return m.harvest(Performance, emit)
	})
}

// HarvestAllFees distributes both fee account balances in one call.
func (m *Manager) HarvestAllFees() error {
	return m.execute(func(emit events.Emitter) error {
		for _, kind := range FeeTypes {
			if err := m.harvest(kind, emit); err != nil {
				return err
			}
		}
		return nil
	})
}

// harvest moves the balance of the fee account of kind to the DAO and the
// recipients. The DAO receives its fee ratio, fixed at the vault's decimals,
// of the balance; the remainder is split among recipients pro rata to their
// allocations. Every payout is computed
// before the first transfer so a transfer cannot influence later shares.
func (m *Manager) harvest(kind FeeType, emit events.Emitter) (err error) {
	feeType := kind.String()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		m.metrics.ObserveHarvest(feeType, outcome)
	}()

	if err := m.requireInitialized(); err != nil {
		return err
	}
	recipients, err := m.store.Recipients(kind)
	if err != nil {
		return err
	}
	dao, err := m.store.DAORecipient()
	if err != nil {
		return err
	}
	if len(recipients) == 0 || dao.Recipient == (common.Address{}) {
		return ErrInvalidFeeRecipientAddress
	}
	totals, err := m.store.TotalFees()
	if err != nil {
		return err
	}
	total := totals.Of(kind)
	if total == 0 {
		return nil
	}
	account := m.account(kind)
	balance, err := m.shares.BalanceOf(account.Address())
	if err != nil {
		return err
	}
	if balance.IsZero() {
		return nil
	}

	plan, err := m.planHarvest(kind, balance, total, dao, recipients)
	if err != nil {
		return err
	}

	distributed := new(uint256.Int)
	for _, t := range plan {
		if err := m.shares.TransferFrom(m.address, account.Address(), t.recipient, t.amount); err != nil {
			return err
		}
		distributed.Add(distributed, t.amount)
		emit.Emit(events.FeeHarvested{
			FeeType:   feeType,
			Account:   account.Address(),
			Recipient: t.recipient,
			Amount:    new(uint256.Int).Set(t.amount),
		})
		m.metrics.ObserveDistributed(feeType, t.party, t.amount)
		m.logger.Debug("fee share transferred",
			slog.String("feeType", feeType),
			slog.String("recipient", t.recipient.Hex()),
			slog.String("amount", t.amount.Dec()))
	}
	dust := new(uint256.Int).Sub(balance, distributed)
	m.metrics.SetRoundingDust(feeType, dust)
	m.logger.Info("fees harvested",
		slog.String("feeType", feeType),
		slog.String("balance", balance.Dec()),
		slog.String("distributed", distributed.Dec()),
		slog.Int("transfers", len(plan)))
	return nil
}

// planHarvest computes the payouts of a harvest without touching state.
func (m *Manager) planHarvest(kind FeeType, balance *uint256.Int, total nativecommon.Percentage, dao DAOFeeRecipient, recipients []common.Address) ([]transfer, error) {
	daoShare, err := daoShareOf(balance, dao.Fee(kind), total, m.shares.Decimals())
	if err != nil {
		return nil, err
	}
	if daoShare.Gt(balance) {
		daoShare = new(uint256.Int).Set(balance)
	}
	plan := make([]transfer, 0, len(recipients)+1)
	if !daoShare.IsZero() {
		plan = append(plan, transfer{recipient: dao.Recipient, amount: daoShare, party: "dao"})
	}
	if !balance.Gt(daoShare) {
		return plan, nil
	}
	remaining := new(uint256.Int).Sub(balance, daoShare)

	allocations := make([]nativecommon.Percentage, len(recipients))
	pool := new(uint256.Int)
	for i, r := range recipients {
		fee, _, err := m.store.Allocation(kind, r)
		if err != nil {
			return nil, err
		}
		allocations[i] = fee
		pool.Add(pool, uint256.NewInt(fee.Uint64()))
	}
	if pool.IsZero() {
		return plan, nil
	}
	for i, r := range recipients {
		share, err := nativecommon.MulDiv(remaining, uint256.NewInt(allocations[i].Uint64()), pool)
		if err != nil {
			return nil, err
		}
		if share.IsZero() {
			continue
		}
		plan = append(plan, transfer{recipient: r, amount: share, party: "recipient"})
	}
	return plan, nil
}

// daoShareOf returns balance * (daoFee * 10^decimals / total) / 10^decimals.
// The ratio is truncated at the vault's decimals before it is applied.
func daoShareOf(balance *uint256.Int, daoFee, total nativecommon.Percentage, decimals uint8) (*uint256.Int, error) {
	base := nativecommon.Pow10(decimals)
	ratio, err := nativecommon.MulDiv(uint256.NewInt(daoFee.Uint64()), base, uint256.NewInt(total.Uint64()))
	if err != nil {
		return nil, err
	}
	return nativecommon.MulDiv(balance, ratio, base)
}
