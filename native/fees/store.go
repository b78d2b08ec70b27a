package fees

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "plasmavault/native/common"
)

// Storage regions. Every logical group lives under its own versioned prefix
// so fields can be appended to one region without disturbing the others.
const (
	regionTotals     = "fees/v1/totals"
	regionRecipients = "fees/v1/recipients"
	regionDAO        = "fees/v1/dao"
	regionHWM        = "fees/v1/high-water-mark"
	regionLifecycle  = "fees/v1/lifecycle"
)

// StateStore captures the key/value capabilities of the state manager used by
// the fee storage.
type StateStore interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVDelete(key []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Store provides typed accessors over the fee manager storage regions. It
// holds no business rules; the Manager enforces every invariant.
type Store struct {
	state   StateStore
	manager common.Address
}

// NewStore binds the storage of the fee manager deployed at manager.
func NewStore(state StateStore, manager common.Address) *Store {
	return &Store{state: state, manager: manager}
}

func (s *Store) withState() (StateStore, error) {
	if s == nil || s.state == nil {
		return nil, errNilState
	}
	return s.state, nil
}

func (s *Store) key(region string, parts ...string) []byte {
	key := fmt.Sprintf("%s/%x", region, s.manager)
	for _, part := range parts {
		key += "/" + part
	}
	return []byte(key)
}

type lifecycle struct {
	Deployed    bool
	Initialized bool
}

func (s *Store) lifecycle() (lifecycle, error) {
	state, err := s.withState()
	if err != nil {
		return lifecycle{}, err
	}
	var lc lifecycle
	if _, err := state.KVGet(s.key(regionLifecycle), &lc); err != nil {
		return lifecycle{}, err
	}
	return lc, nil
}

func (s *Store) putLifecycle(lc lifecycle) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVPut(s.key(regionLifecycle), lc)
}

// Deployed reports whether the storage was seeded.
func (s *Store) Deployed() (bool, error) {
	lc, err := s.lifecycle()
	return lc.Deployed, err
}

// SetDeployed marks the storage as seeded.
func (s *Store) SetDeployed() error {
	lc, err := s.lifecycle()
	if err != nil {
		return err
	}
	lc.Deployed = true
	return s.putLifecycle(lc)
}

// Initialized reports whether the fee accounts were initialised.
func (s *Store) Initialized() (bool, error) {
	lc, err := s.lifecycle()
	return lc.Initialized, err
}

// SetInitialized records the fee account initialisation.
func (s *Store) SetInitialized() error {
	lc, err := s.lifecycle()
	if err != nil {
		return err
	}
	lc.Initialized = true
	return s.putLifecycle(lc)
}

// TotalFees loads the total fee percentages.
func (s *Store) TotalFees() (FeeTotals, error) {
	state, err := s.withState()
	if err != nil {
		return FeeTotals{}, err
	}
	var totals FeeTotals
	if _, err := state.KVGet(s.key(regionTotals), &totals); err != nil {
		return FeeTotals{}, err
	}
	return totals, nil
}

// SetTotalFees stores the total fee percentages.
func (s *Store) SetTotalFees(totals FeeTotals) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVPut(s.key(regionTotals), totals)
}

// Recipients returns the recipient set of the fee type in distribution order.
func (s *Store) Recipients(kind FeeType) ([]common.Address, error) {
	state, err := s.withState()
	if err != nil {
		return nil, err
	}
	var list []common.Address
	if err := state.KVGetList(s.key(regionRecipients, kind.String(), "list"), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetRecipients replaces the recipient set of the fee type.
func (s *Store) SetRecipients(kind FeeType, recipients []common.Address) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if recipients == nil {
		recipients = []common.Address{}
	}
	return state.KVPut(s.key(regionRecipients, kind.String(), "list"), recipients)
}

func (s *Store) allocationKey(kind FeeType, recipient common.Address) []byte {
	return s.key(regionRecipients, kind.String(), "allocation", fmt.Sprintf("%x", recipient))
}

// Allocation returns the allocation of recipient for the fee type and whether
// an entry exists.
func (s *Store) Allocation(kind FeeType, recipient common.Address) (nativecommon.Percentage, bool, error) {
	state, err := s.withState()
	if err != nil {
		return 0, false, err
	}
	var value uint64
	ok, err := state.KVGet(s.allocationKey(kind, recipient), &value)
	if err != nil {
		return 0, false, err
	}
	return nativecommon.Percentage(value), ok, nil
}

// SetAllocation stores the allocation of recipient for the fee type.
func (s *Store) SetAllocation(kind FeeType, recipient common.Address, fee nativecommon.Percentage) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVPut(s.allocationKey(kind, recipient), fee.Uint64())
}

// DeleteAllocation clears the allocation entry of recipient for the fee type.
func (s *Store) DeleteAllocation(kind FeeType, recipient common.Address) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVDelete(s.allocationKey(kind, recipient))
}

// DAORecipient loads the protocol DAO recipient and its fixed percentages.
func (s *Store) DAORecipient() (DAOFeeRecipient, error) {
	state, err := s.withState()
	if err != nil {
		return DAOFeeRecipient{}, err
	}
	var dao DAOFeeRecipient
	if _, err := state.KVGet(s.key(regionDAO), &dao); err != nil {
		return DAOFeeRecipient{}, err
	}
	return dao, nil
}

// SetDAORecipient stores the protocol DAO recipient.
func (s *Store) SetDAORecipient(dao DAOFeeRecipient) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVPut(s.key(regionDAO), dao)
}

// HighWaterMark loads the performance high-water mark.
func (s *Store) HighWaterMark() (HighWaterMark, error) {
	state, err := s.withState()
	if err != nil {
		return HighWaterMark{}, err
	}
	var hwm HighWaterMark
	if _, err := state.KVGet(s.key(regionHWM), &hwm); err != nil {
		return HighWaterMark{}, err
	}
	return hwm.Clone(), nil
}

// SetHighWaterMark stores the performance high-water mark.
func (s *Store) SetHighWaterMark(hwm HighWaterMark) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVPut(s.key(regionHWM), hwm.Clone())
}
