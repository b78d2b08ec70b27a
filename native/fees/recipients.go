package fees

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"plasmavault/core/events"
	nativecommon "plasmavault/native/common"
)

// UpdateManagementFee harvests the management fee account and then sets the
// total management fee to the DAO percentage plus recipientPortion.
// Individual recipient allocations are left untouched.
func (m *Manager) UpdateManagementFee(caller common.Address, recipientPortion nativecommon.Percentage) error {
	return m.updateFee(caller, OpUpdateManagementFee, Management, recipientPortion)
}

// UpdatePerformanceFee harvests the performance fee account and then sets the
// total performance fee to the DAO percentage plus recipientPortion.
func (m *Manager) UpdatePerformanceFee(caller common.Address, recipientPortion nativecommon.Percentage) error {
	return m.updateFee(caller, OpUpdatePerformanceFee, Performance, recipientPortion)
}

func (m *Manager) updateFee(caller common.Address, op string, kind FeeType, recipientPortion nativecommon.Percentage) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, op); err != nil {
			return err
		}
		if err := m.harvest(kind, emit); err != nil {
			return err
		}
		dao, err := m.store.DAORecipient()
		if err != nil {
			return err
		}
		total, err := nativecommon.SumPercentages(recipientPortion, dao.Fee(kind))
		if err != nil {
			return err
		}
		totals, err := m.store.TotalFees()
		if err != nil {
			return err
		}
		return m.applyTotals(totals.With(kind, total), []FeeType{kind}, emit)
	})
}

// AddFeeRecipient appends recipient to both recipient sets with the given
// allocations and recomputes both totals.
func (m *Manager) AddFeeRecipient(caller, recipient common.Address, management, performance nativecommon.Percentage) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpAddFeeRecipient); err != nil {
			return err
		}
		if err := m.requireInitialized(); err != nil {
			return err
		}
		if recipient == (common.Address{}) {
			return ErrInvalidAddress
		}
		for _, kind := range FeeTypes {
			list, err := m.store.Recipients(kind)
			if err != nil {
				return err
			}
			if indexOf(list, recipient) >= 0 {
				return fmt.Errorf("%w: %s", ErrDuplicateFeeRecipient, recipient.Hex())
			}
			if err := m.store.SetRecipients(kind, append(list, recipient)); err != nil {
				return err
			}
			fee := management
			if kind == Performance {
				fee = performance
			}
			if err := m.store.SetAllocation(kind, recipient, fee); err != nil {
				return err
			}
		}
		emit.Emit(events.FeeRecipientAdded{Recipient: recipient, Management: management.Uint64(), Performance: performance.Uint64()})
		emit.Emit(events.RecipientFeesUpdated{Recipient: recipient, Management: management.Uint64(), Performance: performance.Uint64()})
		return m.recomputeTotals(emit)
	})
}

// RemoveFeeRecipient harvests both fee accounts, removes recipient from both
// sets while keeping the order of the others, clears its allocations and
// recomputes both totals. The last recipient can never be removed.
func (m *Manager) RemoveFeeRecipient(caller, recipient common.Address) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpRemoveFeeRecipient); err != nil {
			return err
		}
		lists := make(map[FeeType][]common.Address, len(FeeTypes))
		for _, kind := range FeeTypes {
			list, err := m.store.Recipients(kind)
			if err != nil {
				return err
			}
			if len(list) <= 1 && (len(list) == 0 || list[0] == recipient) {
				return ErrEmptyFeeRecipients
			}
			if indexOf(list, recipient) < 0 {
				return fmt.Errorf("%w: %s", ErrFeeRecipientNotFound, recipient.Hex())
			}
			lists[kind] = list
		}
		for _, kind := range FeeTypes {
			if err := m.harvest(kind, emit); err != nil {
				return err
			}
		}
		for _, kind := range FeeTypes {
			list := lists[kind]
			idx := indexOf(list, recipient)
			list = append(list[:idx], list[idx+1:]...)
			if err := m.store.SetRecipients(kind, list); err != nil {
				return err
			}
			if err := m.store.DeleteAllocation(kind, recipient); err != nil {
				return err
			}
		}
		emit.Emit(events.FeeRecipientRemoved{Recipient: recipient})
		return m.recomputeTotals(emit)
	})
}

// UpdateRecipientFees harvests both fee accounts, overwrites the allocations
// of recipient and recomputes both totals.
func (m *Manager) UpdateRecipientFees(caller, recipient common.Address, management, performance nativecommon.Percentage) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpUpdateRecipientFees); err != nil {
			return err
		}
		if recipient == (common.Address{}) {
			return ErrInvalidAddress
		}
		for _, kind := range FeeTypes {
			list, err := m.store.Recipients(kind)
			if err != nil {
				return err
			}
			if indexOf(list, recipient) < 0 {
				return fmt.Errorf("%w: %s", ErrFeeRecipientNotFound, recipient.Hex())
			}
		}
		for _, kind := range FeeTypes {
			if err := m.harvest(kind, emit); err != nil {
				return err
			}
		}
		if err := m.store.SetAllocation(Management, recipient, management); err != nil {
			return err
		}
		if err := m.store.SetAllocation(Performance, recipient, performance); err != nil {
			return err
		}
		emit.Emit(events.RecipientFeesUpdated{Recipient: recipient, Management: management.Uint64(), Performance: performance.Uint64()})
		return m.recomputeTotals(emit)
	})
}

// recomputeTotals resums both totals from the DAO percentages and every
// current recipient allocation and pushes them to governance.
func (m *Manager) recomputeTotals(emit events.Emitter) error {
	dao, err := m.store.DAORecipient()
	if err != nil {
		return err
	}
	var totals FeeTotals
	for _, kind := range FeeTypes {
		parts := []nativecommon.Percentage{dao.Fee(kind)}
		list, err := m.store.Recipients(kind)
		if err != nil {
			return err
		}
		for _, r := range list {
			fee, _, err := m.store.Allocation(kind, r)
			if err != nil {
				return err
			}
			parts = append(parts, fee)
		}
		total, err := nativecommon.SumPercentages(parts...)
		if err != nil {
			return err
		}
		totals = totals.With(kind, total)
	}
	return m.applyTotals(totals, FeeTypes, emit)
}

// applyTotals pushes the totals of kinds to governance and stores them.
func (m *Manager) applyTotals(totals FeeTotals, kinds []FeeType, emit events.Emitter) error {
	for _, kind := range kinds {
		total := totals.Of(kind)
		account := m.account(kind).Address()
		var err error
		if kind == Performance {
			err = m.governance.ConfigurePerformanceFee(m.address, account, total)
		} else {
			err = m.governance.ConfigureManagementFee(m.address, account, total)
		}
		if err != nil {
			return err
		}
		emit.Emit(events.FeeUpdated{FeeType: kind.String(), Account: account, TotalFee: total.Uint64()})
		m.metrics.SetTotalFee(kind.String(), total.Uint64())
	}
	return m.store.SetTotalFees(totals)
}

func indexOf(list []common.Address, target common.Address) int {
	for i, addr := range list {
		if addr == target {
			return i
		}
	}
	return -1
}
