package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"plasmavault/core/types"
)

const (
	// TypeFeeHarvested marks a share transfer out of a fee account.
	TypeFeeHarvested = "fees.harvested"
	// TypeFeeUpdated marks a new total fee percentage pushed to governance.
	TypeFeeUpdated = "fees.updated"
	// TypeFeeRecipientAdded marks a recipient joining the distribution set.
	TypeFeeRecipientAdded = "fees.recipient_added"
	// TypeFeeRecipientRemoved marks a recipient leaving the distribution set.
	TypeFeeRecipientRemoved = "fees.recipient_removed"
	// TypeRecipientFeesUpdated marks a change to a recipient's allocations.
	TypeRecipientFeesUpdated = "fees.recipient_allocation_updated"
	// TypeDAOFeeRecipientUpdated marks a new protocol DAO recipient address.
	TypeDAOFeeRecipientUpdated = "fees.dao_recipient_updated"
	// TypeHighWaterMarkUpdated marks a checkpoint of the performance high-water mark.
	TypeHighWaterMarkUpdated = "fees.high_water_mark_updated"
	// TypeHighWaterMarkIntervalUpdated marks a new minimum checkpoint interval.
	TypeHighWaterMarkIntervalUpdated = "fees.high_water_mark_interval_updated"
)

// FeeHarvested records a single transfer of accrued fee shares.
type FeeHarvested struct {
	FeeType   string
	Account   common.Address
	Recipient common.Address
	Amount    *uint256.Int
}

// EventType satisfies the events.Event interface.
func (FeeHarvested) EventType() string { return TypeFeeHarvested }

// Event converts the structured payload into a broadcastable event.
func (e FeeHarvested) Event() *types.Event {
	return &types.Event{Type: TypeFeeHarvested, Attributes: map[string]string{
		"feeType":   e.FeeType,
		"account":   addr(e.Account),
		"recipient": addr(e.Recipient),
		"amount":    amount(e.Amount),
	}}
}

// FeeUpdated records the total percentage configured for a fee type.
type FeeUpdated struct {
	FeeType  string
	Account  common.Address
	TotalFee uint64
}

// EventType satisfies the events.Event interface.
func (FeeUpdated) EventType() string { return TypeFeeUpdated }

// Event converts the structured payload into a broadcastable event.
func (e FeeUpdated) Event() *types.Event {
	return &types.Event{Type: TypeFeeUpdated, Attributes: map[string]string{
		"feeType":  e.FeeType,
		"account":  addr(e.Account),
		"totalFee": u64(e.TotalFee),
	}}
}

// FeeRecipientAdded records a new recipient and its initial allocations.
type FeeRecipientAdded struct {
	Recipient   common.Address
	Management  uint64
	Performance uint64
}

// EventType satisfies the events.Event interface.
func (FeeRecipientAdded) EventType() string { return TypeFeeRecipientAdded }

// Event converts the structured payload into a broadcastable event.
func (e FeeRecipientAdded) Event() *types.Event {
	return &types.Event{Type: TypeFeeRecipientAdded, Attributes: map[string]string{
		"recipient":   addr(e.Recipient),
		"management":  u64(e.Management),
		"performance": u64(e.Performance),
	}}
}

// FeeRecipientRemoved records a recipient leaving the distribution set.
type FeeRecipientRemoved struct {
	Recipient common.Address
}

// EventType satisfies the events.Event interface.
func (FeeRecipientRemoved) EventType() string { return TypeFeeRecipientRemoved }

// Event converts the structured payload into a broadcastable event.
func (e FeeRecipientRemoved) Event() *types.Event {
	return &types.Event{Type: TypeFeeRecipientRemoved, Attributes: map[string]string{
		"recipient": addr(e.Recipient),
	}}
}

// RecipientFeesUpdated records new allocations for an existing recipient.
type RecipientFeesUpdated struct {
	Recipient   common.Address
	Management  uint64
	Performance uint64
}

// EventType satisfies the events.Event interface.
func (RecipientFeesUpdated) EventType() string { return TypeRecipientFeesUpdated }

// Event converts the structured payload into a broadcastable event.
func (e RecipientFeesUpdated) Event() *types.Event {
	return &types.Event{Type: TypeRecipientFeesUpdated, Attributes: map[string]string{
		"recipient":   addr(e.Recipient),
		"management":  u64(e.Management),
		"performance": u64(e.Performance),
	}}
}

// DAOFeeRecipientUpdated records a new protocol DAO recipient.
type DAOFeeRecipientUpdated struct {
	Recipient common.Address
}

// EventType satisfies the events.Event interface.
func (DAOFeeRecipientUpdated) EventType() string { return TypeDAOFeeRecipientUpdated }

// Event converts the structured payload into a broadcastable event.
func (e DAOFeeRecipientUpdated) Event() *types.Event {
	return &types.Event{Type: TypeDAOFeeRecipientUpdated, Attributes: map[string]string{
		"recipient": addr(e.Recipient),
	}}
}

// HighWaterMarkUpdated records a performance high-water mark checkpoint.
type HighWaterMarkUpdated struct {
	HighWaterMark *uint256.Int
	Timestamp     uint64
}

// EventType satisfies the events.Event interface.
func (HighWaterMarkUpdated) EventType() string { return TypeHighWaterMarkUpdated }

// Event converts the structured payload into a broadcastable event.
func (e HighWaterMarkUpdated) Event() *types.Event {
	return &types.Event{Type: TypeHighWaterMarkUpdated, Attributes: map[string]string{
		"highWaterMark": amount(e.HighWaterMark),
		"timestamp":     u64(e.Timestamp),
	}}
}

// HighWaterMarkIntervalUpdated records the minimum spacing between checkpoints.
type HighWaterMarkIntervalUpdated struct {
	Interval uint64
}

// EventType satisfies the events.Event interface.
func (HighWaterMarkIntervalUpdated) EventType() string { return TypeHighWaterMarkIntervalUpdated }

// Event converts the structured payload into a broadcastable event.
func (e HighWaterMarkIntervalUpdated) Event() *types.Event {
	return &types.Event{Type: TypeHighWaterMarkIntervalUpdated, Attributes: map[string]string{
		"interval": u64(e.Interval),
	}}
}
