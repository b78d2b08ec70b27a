package fees

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"plasmavault/core/events"
	nativecommon "plasmavault/native/common"
	"plasmavault/observability/metrics"
)

const moduleName = "fees"

// Operations checked against the authorizer.
const (
	OpUpdateManagementFee         = "fees.updateManagementFee"
	OpUpdatePerformanceFee        = "fees.updatePerformanceFee"
	OpAddFeeRecipient             = "fees.addFeeRecipient"
	OpRemoveFeeRecipient          = "fees.removeFeeRecipient"
	OpUpdateRecipientFees         = "fees.updateRecipientFees"
	OpSetDAOFeeRecipientAddress   = "fees.setDaoFeeRecipientAddress"
	OpUpdateHighWaterMarkInterval = "fees.updateHighWaterMarkInterval"
	OpCheckpointHighWaterMark     = "fees.checkpointHighWaterMark"
)

type engineState interface {
	StateStore
	Atomic(fn func() error) error
}

// ShareLedger is the vault share accounting consulted and moved by harvests.
type ShareLedger interface {
	ApprovableToken
	BalanceOf(account common.Address) (*uint256.Int, error)
	TransferFrom(spender, from, to common.Address, amount *uint256.Int) error
	// Decimals is the fixed-point base of the DAO share ratio.
	Decimals() uint8
}

// FeeGovernance receives every change of the total fee percentages. The
// caller is the fee manager itself.
type FeeGovernance interface {
	ConfigureManagementFee(caller, account common.Address, fee nativecommon.Percentage) error
	ConfigurePerformanceFee(caller, account common.Address, fee nativecommon.Percentage) error
}

// Manager accrues and distributes vault fees held by the management and
// performance fee accounts among the DAO and the configured recipients.
type Manager struct {
	address     common.Address
	state       engineState
	store       *Store
	shares      ShareLedger
	governance  FeeGovernance
	auth        nativecommon.Authorizer
	pauses      nativecommon.PauseView
	emitter     events.Emitter
	logger      *slog.Logger
	metrics     *metrics.FeeMetrics
	nowFn       func() int64
	management  *FeeAccount
	performance *FeeAccount
	entered     bool
}

// NewManager binds the fee manager deployed at address. The two fee accounts
// are derived from the manager address so every process observing the same
// state agrees on them.
func NewManager(address common.Address, state engineState, shares ShareLedger, governance FeeGovernance) *Manager {
	return &Manager{
		address:     address,
		state:       state,
		store:       NewStore(state, address),
		shares:      shares,
		governance:  governance,
		emitter:     events.NoopEmitter{},
		logger:      slog.Default(),
		metrics:     metrics.Fees(),
		nowFn:       func() int64 { return time.Now().Unix() },
		management:  NewFeeAccount(feeAccountAddress(address, 1), address),
		performance: NewFeeAccount(feeAccountAddress(address, 2), address),
	}
}

// SetAuthorizer configures the capability check applied to privileged calls.
func (m *Manager) SetAuthorizer(auth nativecommon.Authorizer) { m.auth = auth }

// SetPauses wires the module pause view.
func (m *Manager) SetPauses(p nativecommon.PauseView) { m.pauses = p }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (m *Manager) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		m.emitter = events.NoopEmitter{}
		return
	}
	m.emitter = emitter
}

// SetLogger overrides the structured logger.
func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	m.logger = logger.With(slog.String("component", moduleName))
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (m *Manager) SetNowFunc(now func() int64) {
	if now == nil {
		m.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	m.nowFn = now
}

func (m *Manager) now() uint64 {
	ts := m.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// Address returns the fee manager address.
func (m *Manager) Address() common.Address { return m.address }

// ManagementFeeAccount returns the account accumulating management fees.
func (m *Manager) ManagementFeeAccount() *FeeAccount { return m.management }

// PerformanceFeeAccount returns the account accumulating performance fees.
func (m *Manager) PerformanceFeeAccount() *FeeAccount { return m.performance }

func (m *Manager) account(kind FeeType) *FeeAccount {
	if kind == Performance {
		return m.performance
	}
	return m.management
}

// execute runs fn as one all-or-nothing call: state writes are reverted and
// queued events dropped when fn fails. Nested entry is refused.
func (m *Manager) execute(fn func(emit events.Emitter) error) error {
	if m == nil || m.state == nil {
		return errNilState
	}
	if m.entered {
		return ErrReentrantCall
	}
	if err := nativecommon.Guard(m.pauses, moduleName); err != nil {
		return err
	}
	m.entered = true
	defer func() { m.entered = false }()

	var buf events.Buffer
	if err := m.state.Atomic(func() error { return fn(&buf) }); err != nil {
		buf.Discard()
		return err
	}
	buf.Flush(m.emitter)
	return nil
}

func (m *Manager) authorize(caller common.Address, operation string) error {
	return nativecommon.Authorize(m.auth, caller, operation)
}

// Deploy seeds the storage from the initialisation data: the DAO recipient and
// its fixed percentages, the recipient sets and the derived totals, which are
// pushed to the vault governance. It fails when the storage was already
// seeded.
func (m *Manager) Deploy(data InitData) error {
	return m.execute(func(emit events.Emitter) error {
		deployed, err := m.store.Deployed()
		if err != nil {
			return err
		}
		if deployed {
			return ErrAlreadyDeployed
		}
		if err := m.store.SetDAORecipient(DAOFeeRecipient{
			Recipient:      data.DAORecipient,
			ManagementFee:  data.DAOManagementFee.Uint64(),
			PerformanceFee: data.DAOPerformanceFee.Uint64(),
		}); err != nil {
			return err
		}
		lists := map[FeeType][]common.Address{Management: {}, Performance: {}}
		seen := make(map[common.Address]struct{}, len(data.Recipients))
		for _, r := range data.Recipients {
			if r.Recipient == (common.Address{}) {
				return ErrInvalidAddress
			}
			if _, dup := seen[r.Recipient]; dup {
				return fmt.Errorf("%w: %s", ErrDuplicateFeeRecipient, r.Recipient.Hex())
			}
			seen[r.Recipient] = struct{}{}
			for _, kind := range FeeTypes {
				lists[kind] = append(lists[kind], r.Recipient)
				fee := r.Management
				if kind == Performance {
					fee = r.Performance
				}
				if err := m.store.SetAllocation(kind, r.Recipient, fee); err != nil {
					return err
				}
			}
		}
		for _, kind := range FeeTypes {
			if err := m.store.SetRecipients(kind, lists[kind]); err != nil {
				return err
			}
		}
		if err := m.store.SetHighWaterMark(HighWaterMark{
			Value:          new(uint256.Int),
			UpdateInterval: data.HighWaterMarkInterval,
		}); err != nil {
			return err
		}
		if err := m.recomputeTotals(emit); err != nil {
			return err
		}
		return m.store.SetDeployed()
	})
}

// Initialize grants the fee manager unlimited allowance over both fee
// accounts. It may run only once.
func (m *Manager) Initialize() error {
	return m.execute(func(emit events.Emitter) error {
		initialized, err := m.store.Initialized()
		if err != nil {
			return err
		}
		if initialized {
			return ErrAlreadyInitialized
		}
		if err := m.management.Initialize(m.address, m.shares); err != nil {
			return fmt.Errorf("fees: initialize management account: %w", err)
		}
		if err := m.performance.Initialize(m.address, m.shares); err != nil {
			return fmt.Errorf("fees: initialize performance account: %w", err)
		}
		return m.store.SetInitialized()
	})
}

// IsInitialized reports whether Initialize completed.
func (m *Manager) IsInitialized() (bool, error) {
	return m.store.Initialized()
}

func (m *Manager) requireInitialized() error {
	initialized, err := m.store.Initialized()
	if err != nil {
		return err
	}
	if !initialized {
		return ErrNotInitialized
	}
	return nil
}

// TotalManagementFee returns the configured total management fee.
func (m *Manager) TotalManagementFee() (nativecommon.Percentage, error) {
	totals, err := m.store.TotalFees()
	return totals.Of(Management), err
}

// TotalPerformanceFee returns the configured total performance fee.
func (m *Manager) TotalPerformanceFee() (nativecommon.Percentage, error) {
	totals, err := m.store.TotalFees()
	return totals.Of(Performance), err
}

// DAOFeeRecipient returns the protocol DAO recipient and its percentages.
func (m *Manager) DAOFeeRecipient() (DAOFeeRecipient, error) {
	return m.store.DAORecipient()
}

// ManagementFeeRecipients lists management recipients in distribution order.
func (m *Manager) ManagementFeeRecipients() ([]RecipientFee, error) {
	return m.recipientFees(Management)
}

// PerformanceFeeRecipients lists performance recipients in distribution order.
func (m *Manager) PerformanceFeeRecipients() ([]RecipientFee, error) {
	return m.recipientFees(Performance)
}

func (m *Manager) recipientFees(kind FeeType) ([]RecipientFee, error) {
	recipients, err := m.store.Recipients(kind)
	if err != nil {
		return nil, err
	}
	out := make([]RecipientFee, 0, len(recipients))
	for _, r := range recipients {
		fee, _, err := m.store.Allocation(kind, r)
		if err != nil {
			return nil, err
		}
		out = append(out, RecipientFee{Recipient: r, Fee: fee})
	}
	return out, nil
}

// SetDAOFeeRecipientAddress replaces the protocol DAO recipient. The DAO
// percentages are unchanged.
func (m *Manager) SetDAOFeeRecipientAddress(caller, recipient common.Address) error {
	return m.execute(func(emit events.Emitter) error {
		if err := m.authorize(caller, OpSetDAOFeeRecipientAddress); err != nil {
			return err
		}
		if recipient == (common.Address{}) {
			return ErrWrongAddress
		}
		dao, err := m.store.DAORecipient()
		if err != nil {
			return err
		}
		dao.Recipient = recipient
		if err := m.store.SetDAORecipient(dao); err != nil {
			return err
		}
		emit.Emit(events.DAOFeeRecipientUpdated{Recipient: recipient})
		return nil
	})
}
