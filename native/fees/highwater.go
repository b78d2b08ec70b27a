package fees

import (
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"plasmavault/core/events"
)

// HighWaterMark returns the recorded performance high-water mark.
func (m *Manager) HighWaterMark() (HighWaterMark, error) {
	return m.store.HighWaterMark()
}

// UpdateHighWaterMarkInterval sets the minimum number of seconds between two
// high-water mark checkpoints.
func (m *Manager) UpdateHighWaterMarkInterval(caller common.Address, seconds uint64) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpUpdateHighWaterMarkInterval); err != nil {
			return err
		}
		hwm, err := m.store.HighWaterMark()
		if err != nil {
			return err
		}
		hwm.UpdateInterval = seconds
		if err := m.store.SetHighWaterMark(hwm); err != nil {
			return err
		}
		emit.Emit(events.HighWaterMarkIntervalUpdated{Interval: seconds})
		return nil
	})
}

// CheckpointHighWaterMark records value as the new high-water mark when the
// update interval has elapsed since the previous checkpoint and value exceeds
// the stored mark. The checkpoint time advances whenever the interval elapsed.
// It reports whether the mark moved.
func (m *Manager) CheckpointHighWaterMark(caller common.Address, value *uint256.Int) (bool, error) {
	moved := false
	err := m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpCheckpointHighWaterMark); err != nil {
			return err
		}
		hwm, err := m.store.HighWaterMark()
		if err != nil {
			return err
		}
		now := m.now()
		if hwm.LastUpdate != 0 && (now < hwm.LastUpdate || now-hwm.LastUpdate < hwm.UpdateInterval) {
			return nil
		}
		hwm.LastUpdate = now
		if value != nil && value.Gt(hwm.Value) {
			hwm.Value = new(uint256.Int).Set(value)
			moved = true
		}
		if err := m.store.SetHighWaterMark(hwm); err != nil {
			return err
		}
		if moved {
			emit.Emit(events.HighWaterMarkUpdated{HighWaterMark: hwm.Value, Timestamp: now})
			m.logger.Info("high-water mark raised",
				slog.String("value", hwm.Value.Dec()),
				slog.Uint64("timestamp", now))
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return moved, nil
}

// PerformanceProfit returns the part of value above the high-water mark, or
// zero when value does not exceed it.
func (m *Manager) PerformanceProfit(value *uint256.Int) (*uint256.Int, error) {
	hwm, err := m.store.HighWaterMark()
	if err != nil {
		return nil, err
	}
	if value == nil || !value.Gt(hwm.Value) {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Sub(value, hwm.Value), nil
}
