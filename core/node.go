package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"plasmavault/config"
	"plasmavault/core/events"
	"plasmavault/core/state"
	"plasmavault/core/types"
	nativecommon "plasmavault/native/common"
	"plasmavault/native/fees"
	"plasmavault/native/oracle"
	"plasmavault/native/params"
	"plasmavault/native/vault"
	"plasmavault/storage"
	"plasmavault/storage/trie"
)

const defaultEventCapacity = 256

var headKey = []byte("plasmavault/head")

// Head is the last committed state root.
type Head struct {
	Root   common.Hash
	Height uint64
}

// Options wires the engines hosted by a Node.
type Options struct {
	// FeeManager and OracleManager are the engine addresses. Zero values
	// select deterministic defaults.
	FeeManager    common.Address
	OracleManager common.Address
	Vault         common.Address
	VaultDecimals uint8
	Directory     oracle.Directory
	Logger        *slog.Logger
	Now           func() int64
	EventCapacity int
}

var (
	DefaultFeeManagerAddress    = common.HexToAddress("0x000000000000000000000000000000000000fee0")
	DefaultOracleManagerAddress = common.HexToAddress("0x00000000000000000000000000000000000070c1")
	DefaultVaultAddress         = common.HexToAddress("0x000000000000000000000000000000000000a0a0")
)

// Node is the central controller: it owns the state trie, hosts the fee and
// oracle engines and serialises every call against them.
type Node struct {
	db     storage.Database
	state  *state.Manager
	head   Head
	fresh  bool
	mu     sync.Mutex
	logger *slog.Logger

	access     *vault.AccessManager
	ledger     *vault.ShareLedger
	governance *vault.Governance
	params     *params.Store
	fees       *fees.Manager
	oracle     *oracle.Manager
	events     *EventLog
}

// NewNode opens the state at the last committed head and wires the engines.
func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database required")
	}
	head, err := loadHead(db)
	if err != nil {
		return nil, err
	}
	var root []byte
	if head.Root != (common.Hash{}) {
		root = head.Root.Bytes()
	}
	stateTrie, err := trie.NewTrie(db, root)
	if err != nil {
		return nil, fmt.Errorf("node: open state at %s: %w", head.Root.Hex(), err)
	}
	manager := state.NewManager(stateTrie)
	fresh, err := manager.EnsureSchema()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	capacity := opts.EventCapacity
	if capacity <= 0 {
		capacity = defaultEventCapacity
	}
	n := &Node{
		db:     db,
		state:  manager,
		head:   head,
		fresh:  fresh,
		logger: logger.With(slog.String("component", "node")),
		events: NewEventLog(capacity, logger),
	}
	n.wire(opts, logger)
	return n, nil
}

func (n *Node) wire(opts Options, logger *slog.Logger) {
	feeAddr := opts.FeeManager
	if feeAddr == (common.Address{}) {
		feeAddr = DefaultFeeManagerAddress
	}
	oracleAddr := opts.OracleManager
	if oracleAddr == (common.Address{}) {
		oracleAddr = DefaultOracleManagerAddress
	}
	vaultAddr := opts.Vault
	if vaultAddr == (common.Address{}) {
		vaultAddr = DefaultVaultAddress
	}
	decimals := opts.VaultDecimals
	if decimals == 0 {
		decimals = 18
	}

	n.access = vault.NewAccessManager(n.state)
	registerPolicy(n.access)
	n.params = params.NewStore(n.state)
	n.params.SetLogger(logger)

	n.ledger = vault.NewShareLedger(n.state, vaultAddr, decimals)
	n.ledger.SetStrictApprovals(true)
	n.governance = vault.NewGovernance(n.state, vaultAddr, n.access)

	n.fees = fees.NewManager(feeAddr, n.state, n.ledger, n.governance)
	n.fees.SetAuthorizer(n.access)
	n.fees.SetPauses(n.params)
	n.fees.SetEmitter(n.events)
	n.fees.SetLogger(logger)

	n.oracle = oracle.NewManager(oracleAddr, n.state, opts.Directory)
	n.oracle.SetAuthorizer(n.access)
	n.oracle.SetPauses(n.params)
	n.oracle.SetEmitter(n.events)
	n.oracle.SetLogger(logger)

	if opts.Now != nil {
		n.fees.SetNowFunc(opts.Now)
		n.oracle.SetNowFunc(opts.Now)
	}
}

// registerPolicy maps every privileged operation onto its role.
func registerPolicy(access *vault.AccessManager) {
	for _, op := range []string{
		fees.OpUpdateManagementFee,
		fees.OpUpdatePerformanceFee,
		fees.OpAddFeeRecipient,
		fees.OpRemoveFeeRecipient,
		fees.OpUpdateRecipientFees,
		fees.OpUpdateHighWaterMarkInterval,
	} {
		access.Require(op, vault.RoleAtomist)
	}
	access.Require(fees.OpSetDAOFeeRecipientAddress, vault.RoleDAO)
	access.Require(fees.OpCheckpointHighWaterMark, vault.RoleKeeper)
	access.Require(vault.OpConfigureManagementFee, vault.RoleFeeManager)
	access.Require(vault.OpConfigurePerformanceFee, vault.RoleFeeManager)
	for _, op := range []string{
		oracle.OpSetAssetsPricesSources,
		oracle.OpRemoveAssetsPricesSources,
		oracle.OpUpdatePriceValidation,
		oracle.OpRemovePriceValidation,
		oracle.OpSetMaxStaleness,
		oracle.OpSetPriceBounds,
		oracle.OpSetSequencerConfig,
		oracle.OpSetPriceOracleMiddleware,
	} {
		access.Require(op, vault.RolePriceOracleAdmin)
	}
}

func loadHead(db storage.Database) (Head, error) {
	raw, err := db.Get(headKey)
	if errors.Is(err, storage.ErrNotFound) {
		return Head{}, nil
	}
	if err != nil {
		return Head{}, fmt.Errorf("node: load head: %w", err)
	}
	var head Head
	if err := rlp.DecodeBytes(raw, &head); err != nil {
		return Head{}, fmt.Errorf("node: decode head: %w", err)
	}
	return head, nil
}

// Fresh reports whether the state had never been stamped before this node
// opened it.
func (n *Node) Fresh() bool { return n.fresh }

// Head returns the last committed head.
func (n *Node) Head() Head {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.head
}

// Locker exposes the mutex serialising engine access.
func (n *Node) Locker() sync.Locker { return &n.mu }

func (n *Node) Fees() *fees.Manager { return n.fees }
func (n *Node) Oracle() *oracle.Manager { return n.oracle }
func (n *Node) Ledger() *vault.ShareLedger { return n.ledger }
func (n *Node) Governance() *vault.Governance { return n.governance }
func (n *Node) Access() *vault.AccessManager { return n.access }
func (n *Node) Params() *params.Store { return n.params }
func (n *Node) Events() *EventLog { return n.events }

// View runs fn under the node lock without committing.
func (n *Node) View(fn func(*Node) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn(n)
}

// Mutate runs fn under the node lock and commits the resulting state when fn
// succeeds.
func (n *Node) Mutate(fn func(*Node) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := fn(n); err != nil {
		return err
	}
	_, err := n.CommitLocked()
	return err
}

// CommitLocked flushes pending writes and persists the new head. The caller
// must hold the node lock.
func (n *Node) CommitLocked() (Head, error) {
	if n.state.Root() == n.head.Root {
		return n.head, nil
	}
	height := n.head.Height + 1
	root, err := n.state.Commit(height)
	if err != nil {
		return Head{}, fmt.Errorf("node: commit state: %w", err)
	}
	next := Head{Root: root, Height: height}
	encoded, err := rlp.EncodeToBytes(next)
	if err != nil {
		return Head{}, err
	}
	if err := n.db.Put(headKey, encoded); err != nil {
		return Head{}, fmt.Errorf("node: persist head: %w", err)
	}
	n.head = next
	n.logger.Debug("state committed", slog.Uint64("height", height), slog.String("root", root.Hex()))
	return next, nil
}

// VaultValue is the valuation fed into high-water mark checkpoints: the share
// supply of the vault. It is a share count, not a NAV; deployments with an
// asset valuation pass their own keeper.ValueSource.
func (n *Node) VaultValue() (*uint256.Int, error) {
	return n.ledger.TotalSupply()
}

// Bootstrap seeds fresh state from the configuration: roles, fee manager
// deployment and initialisation, oracle sources and guards, and pause
// toggles. operator receives the owner role.
func (n *Node) Bootstrap(cfg *config.Config, operator common.Address) error {
	if cfg == nil {
		return fmt.Errorf("node: configuration required")
	}
	if operator == (common.Address{}) {
		return fmt.Errorf("node: operator address required")
	}
	initData, err := FeeInitData(cfg.Fees)
	if err != nil {
		return err
	}
	return n.Mutate(func(n *Node) error {
		return n.state.Atomic(func() error {
			if err := n.access.Grant(vault.RoleOwner, operator); err != nil {
				return err
			}
			if err := n.access.Grant(vault.RoleFeeManager, n.fees.Address()); err != nil {
				return err
			}
			initialized, err := n.fees.IsInitialized()
			if err != nil {
				return err
			}
			if !initialized {
				if err := n.fees.Deploy(initData); err != nil {
					return err
				}
				if err := n.fees.Initialize(); err != nil {
					return err
				}
			}
			if err := n.configureOracle(cfg.Oracle, operator); err != nil {
				return err
			}
			return n.params.SetPauses(cfg.Pauses)
		})
	})
}

// FeeInitData converts the [fees] section into deployment data.
func FeeInitData(f config.Fees) (fees.InitData, error) {
	dao, err := config.ParseAddress(f.DAORecipient)
	if err != nil {
		return fees.InitData{}, err
	}
	recipients := make([]fees.RecipientAllocation, 0, len(f.Recipients))
	for _, r := range f.Recipients {
		addr, err := config.ParseAddress(r.Address)
		if err != nil {
			return fees.InitData{}, err
		}
		recipients = append(recipients, fees.RecipientAllocation{
			Recipient:   addr,
			Management:  nativecommon.Percentage(r.Management),
			Performance: nativecommon.Percentage(r.Performance),
		})
	}
	return fees.InitData{
		DAORecipient:          dao,
		DAOManagementFee:      nativecommon.Percentage(f.DAOManagementFee),
		DAOPerformanceFee:     nativecommon.Percentage(f.DAOPerformanceFee),
		Recipients:            recipients,
		HighWaterMarkInterval: f.HighWaterMarkInterval,
	}, nil
}

func (n *Node) configureOracle(o config.Oracle, operator common.Address) error {
	if err := n.access.Grant(vault.RolePriceOracleAdmin, operator); err != nil {
		return err
	}
	middleware, err := config.ParseAddress(o.FallbackMiddleware)
	if err != nil {
		return err
	}
	if middleware != (common.Address{}) {
		if err := n.oracle.SetPriceOracleMiddleware(operator, middleware); err != nil {
			return err
		}
	}
	if o.DefaultMaxStaleness > 0 {
		if err := n.oracle.SetDefaultMaxStaleness(operator, o.DefaultMaxStaleness); err != nil {
			return err
		}
	}
	for _, entry := range o.Assets {
		limits, err := entry.Limits()
		if err != nil {
			return err
		}
		assets := []common.Address{limits.Asset}
		if limits.Source != (common.Address{}) {
			if err := n.oracle.SetAssetsPricesSources(operator, assets, []common.Address{limits.Source}); err != nil {
				return err
			}
		}
		if entry.MaxStaleness > 0 {
			if err := n.oracle.SetMaxStaleness(operator, assets, []uint64{entry.MaxStaleness}); err != nil {
				return err
			}
		}
		if !limits.MinPrice.IsZero() || !limits.MaxPrice.IsZero() {
			if err := n.oracle.SetPriceBounds(operator, assets, []*uint256.Int{limits.MinPrice}, []*uint256.Int{limits.MaxPrice}); err != nil {
				return err
			}
		}
		if !limits.MaxPriceDelta.IsZero() {
			if err := n.oracle.UpdatePriceValidation(operator, assets, []*uint256.Int{limits.MaxPriceDelta}); err != nil {
				return err
			}
		}
	}
	feed, err := config.ParseAddress(o.Sequencer.Feed)
	if err != nil {
		return err
	}
	if feed != (common.Address{}) {
		if err := n.oracle.SetSequencerConfig(operator, feed, o.Sequencer.OpStack); err != nil {
			return err
		}
		if !o.Sequencer.Enabled {
			return n.oracle.DisableSequencerCheck(operator)
		}
	}
	return nil
}

// Close releases the database.
func (n *Node) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.db.Close()
}

// EventLog keeps the most recent committed events and mirrors them to the
// logger.
type EventLog struct {
	mu       sync.Mutex
	capacity int
	entries  []LoggedEvent
	logger   *slog.Logger
}

// LoggedEvent is an event with its publication time.
type LoggedEvent struct {
	At    time.Time    `json:"at"`
	Event *types.Event `json:"event"`
}

var _ events.Emitter = (*EventLog)(nil)

// NewEventLog creates a log retaining at most capacity events.
func NewEventLog(capacity int, logger *slog.Logger) *EventLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLog{capacity: capacity, logger: logger.With(slog.String("component", "events"))}
}

// Emit implements events.Emitter.
func (l *EventLog) Emit(evt events.Event) {
	if l == nil || evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, LoggedEvent{At: time.Now().UTC(), Event: payload})
	if overflow := len(l.entries) - l.capacity; overflow > 0 {
		l.entries = append([]LoggedEvent(nil), l.entries[overflow:]...)
	}
	l.mu.Unlock()
	l.logger.Info("event", slog.String("type", payload.Type), slog.Any("attributes", payload.Attributes))
}

// Recent returns up to limit of the newest events, oldest first. A
// non-positive limit returns everything retained.
func (l *EventLog) Recent(limit int) []LoggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := 0
	if limit > 0 && len(l.entries) > limit {
		start = len(l.entries) - limit
	}
	out := make([]LoggedEvent, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}
