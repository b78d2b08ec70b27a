package oracle

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"plasmavault/core/events"
	nativecommon "plasmavault/native/common"
	"plasmavault/observability/metrics"
)

const moduleName = "oracle"

type engineState interface {
	StateStore
	Atomic(fn func() error) error
}

// Manager resolves asset prices from custom round-based sources or the
// fallback middleware and guards them with staleness, bounds, sequencer
// uptime and price change checks.
type Manager struct {
	address   common.Address
	state     engineState
	store     *Store
	directory Directory
	auth      nativecommon.Authorizer
	pauses    nativecommon.PauseView
	emitter   events.Emitter
	logger    *slog.Logger
	metrics   *metrics.OracleMetrics
	nowFn     func() int64
}

// NewManager binds the price oracle manager deployed at address.
func NewManager(address common.Address, state engineState, directory Directory) *Manager {
	return &Manager{
		address:   address,
		state:     state,
		store:     NewStore(state, address),
		directory: directory,
		emitter:   events.NoopEmitter{},
		logger:    slog.Default(),
		metrics:   metrics.Oracle(),
		nowFn:     func() int64 { return time.Now().Unix() },
	}
}

// SetAuthorizer configures the capability check applied to admin calls.
func (m *Manager) SetAuthorizer(auth nativecommon.Authorizer) { m.auth = auth }

// SetPauses wires the module pause view.
func (m *Manager) SetPauses(p nativecommon.PauseView) { m.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
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

// SetNowFunc overrides the time source used for staleness and sequencer checks.
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

// Address returns the manager address.
func (m *Manager) Address() common.Address { return m.address }

func (m *Manager) execute(fn func(emit events.Emitter) error) error {
	if m == nil || m.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(m.pauses, moduleName); err != nil {
		return err
	}
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

// GetAssetPrice returns the price of asset with PriceDecimals decimals.
func (m *Manager) GetAssetPrice(asset common.Address) (*uint256.Int, uint8, error) {
	price, err := m.assetPrice(asset)
	if err != nil {
		m.metrics.ObservePriceRejected(rejectReason(err))
		m.logger.Warn("price rejected",
			slog.String("asset", asset.Hex()),
			slog.Any("error", err))
		return nil, 0, err
	}
	return price, PriceDecimals, nil
}

// GetAssetsPrices resolves every asset, failing on the first error.
func (m *Manager) GetAssetsPrices(assets []common.Address) ([]*uint256.Int, []uint8, error) {
	if len(assets) == 0 {
		return nil, nil, ErrEmptyArrayNotSupported
	}
	prices := make([]*uint256.Int, len(assets))
	decimals := make([]uint8, len(assets))
	for i, asset := range assets {
		price, dec, err := m.GetAssetPrice(asset)
		if err != nil {
			return nil, nil, err
		}
		prices[i] = price
		decimals[i] = dec
	}
	return prices, decimals, nil
}

func (m *Manager) assetPrice(asset common.Address) (*uint256.Int, error) {
	if m == nil || m.state == nil {
		return nil, errNilState
	}
	if asset == (common.Address{}) {
		return nil, ErrUnsupportedAsset
	}
	sequencer, err := m.store.SequencerConfig()
	if err != nil {
		return nil, err
	}
	if sequencer.Enabled {
		err := CheckSequencerUptime(m.directory, sequencer.Feed, sequencer.OpStack, m.now())
		m.metrics.ObserveSequencerCheck(sequencerResult(err))
		if err != nil {
			return nil, err
		}
	}

	source, ok, err := m.store.PriceSource(asset)
	if err != nil {
		return nil, err
	}
	var price *uint256.Int
	if ok {
		price, err = m.sourcePrice(asset, source)
		if err != nil {
			return nil, err
		}
		m.metrics.ObservePriceServed("source")
	} else {
		price, err = m.middlewarePrice(asset)
		if err != nil {
			return nil, err
		}
		m.metrics.ObservePriceServed("middleware")
	}

	bounds, err := m.store.PriceBounds(asset)
	if err != nil {
		return nil, err
	}
	if outOfBounds(price, bounds) {
		return nil, &PriceOutOfBoundsError{Asset: asset, Price: price, MinPrice: bounds.MinPrice, MaxPrice: bounds.MaxPrice}
	}
	return price, nil
}

func (m *Manager) sourcePrice(asset, source common.Address) (*uint256.Int, error) {
	if m.directory == nil {
		return nil, fmt.Errorf("%w: no feed directory", ErrUnexpectedPriceResult)
	}
	feed, err := m.directory.PriceFeed(source)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", ErrUnexpectedPriceResult, source.Hex(), err)
	}
	round, err := feed.LatestRoundData()
	if err != nil {
		return nil, fmt.Errorf("%w: round data from %s: %v", ErrUnexpectedPriceResult, source.Hex(), err)
	}
	decimals, err := feed.Decimals()
	if err != nil {
		return nil, fmt.Errorf("%w: decimals from %s: %v", ErrUnexpectedPriceResult, source.Hex(), err)
	}
	if round.Answer == nil || round.Answer.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive answer from %s", ErrUnexpectedPriceResult, source.Hex())
	}
	answer, overflow := uint256.FromBig(round.Answer)
	if overflow {
		return nil, fmt.Errorf("%w: answer overflow from %s", ErrUnexpectedPriceResult, source.Hex())
	}
	price, err := nativecommon.ScaleDecimals(answer, decimals, PriceDecimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedPriceResult, err)
	}
	if price.IsZero() {
		return nil, fmt.Errorf("%w: zero price from %s", ErrUnexpectedPriceResult, source.Hex())
	}

	maxStaleness, err := m.effectiveMaxStaleness(asset)
	if err != nil {
		return nil, err
	}
	now := m.now()
	if maxStaleness > 0 && round.UpdatedAt > 0 && now > round.UpdatedAt && now-round.UpdatedAt > maxStaleness {
		return nil, &StalePriceError{Asset: asset, UpdatedAt: round.UpdatedAt, Now: now, MaxStaleness: maxStaleness}
	}
	return price, nil
}

func (m *Manager) middlewarePrice(asset common.Address) (*uint256.Int, error) {
	addr, err := m.store.Middleware()
	if err != nil {
		return nil, err
	}
	if addr == (common.Address{}) || m.directory == nil {
		return nil, fmt.Errorf("%w: %s has no source and no middleware is set", ErrUnsupportedAsset, asset.Hex())
	}
	middleware, err := m.directory.Middleware(addr)
	if err != nil {
		return nil, err
	}
	price, decimals, err := middleware.GetAssetPrice(asset)
	if err != nil {
		return nil, err
	}
	if decimals == PriceDecimals {
		return cloneInt(price), nil
	}
	return nativecommon.ScaleDecimals(price, decimals, PriceDecimals)
}

func (m *Manager) effectiveMaxStaleness(asset common.Address) (uint64, error) {
	seconds, err := m.store.MaxStaleness(asset)
	if err != nil || seconds > 0 {
		return seconds, err
	}
	return m.store.DefaultMaxStaleness()
}

func outOfBounds(price *uint256.Int, bounds PriceBounds) bool {
	if bounds.MinPrice != nil && !bounds.MinPrice.IsZero() && price.Lt(bounds.MinPrice) {
		return true
	}
	if bounds.MaxPrice != nil && !bounds.MaxPrice.IsZero() && price.Gt(bounds.MaxPrice) {
		return true
	}
	return false
}

// GetSourceOfAssetPrice returns the custom source of asset, zero when unset.
func (m *Manager) GetSourceOfAssetPrice(asset common.Address) (common.Address, error) {
	source, _, err := m.store.PriceSource(asset)
	return source, err
}

// GetConfiguredAssets lists the assets with a custom source.
func (m *Manager) GetConfiguredAssets() ([]common.Address, error) {
	return m.store.Assets()
}

// GetPriceValidationInfo returns the circuit breaker configuration of asset
// and whether one is set.
func (m *Manager) GetPriceValidationInfo(asset common.Address) (PriceValidation, bool, error) {
	return m.store.PriceValidation(asset)
}

// GetMaxStaleness returns the per-asset staleness threshold in seconds.
func (m *Manager) GetMaxStaleness(asset common.Address) (uint64, error) {
	return m.store.MaxStaleness(asset)
}

// GetDefaultMaxStaleness returns the fallback staleness threshold in seconds.
func (m *Manager) GetDefaultMaxStaleness() (uint64, error) {
	return m.store.DefaultMaxStaleness()
}

// GetPriceBounds returns the bounds configured for asset.
func (m *Manager) GetPriceBounds(asset common.Address) (PriceBounds, error) {
	return m.store.PriceBounds(asset)
}

// GetSequencerConfig returns the sequencer uptime configuration.
func (m *Manager) GetSequencerConfig() (SequencerConfig, error) {
	return m.store.SequencerConfig()
}

// PriceOracleMiddleware returns the fallback middleware address.
func (m *Manager) PriceOracleMiddleware() (common.Address, error) {
	return m.store.Middleware()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedAsset):
		return "unsupported_asset"
	case errors.Is(err, ErrStalePrice):
		return "stale"
	case errors.Is(err, ErrPriceOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, ErrUnexpectedPriceResult):
		return "unexpected_result"
	case errors.Is(err, ErrSequencerDown), errors.Is(err, ErrSequencerFeedStale), errors.Is(err, ErrGracePeriodNotElapsed):
		return "sequencer"
	default:
		return "other"
	}
}

func sequencerResult(err error) string {
	switch {
	case err == nil:
		return "up"
	case errors.Is(err, ErrSequencerDown):
		return "down"
	case errors.Is(err, ErrSequencerFeedStale):
		return "stale"
	case errors.Is(err, ErrGracePeriodNotElapsed):
		return "grace_period"
	default:
		return "error"
	}
}
