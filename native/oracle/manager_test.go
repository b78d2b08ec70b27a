package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"plasmavault/core/events"
	"plasmavault/core/state"
	nativecommon "plasmavault/native/common"
	"plasmavault/native/vault"
	"plasmavault/storage"
	"plasmavault/storage/trie"
)

var (
	oracleAddr     = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	adminAddr      = common.HexToAddress("0x000000000000000000000000000000000000ad01")
	outsiderAddr   = common.HexToAddress("0x0000000000000000000000000000000000000bad")
	usdcAddr       = common.HexToAddress("0x0000000000000000000000000000000000005dc0")
	wethAddr       = common.HexToAddress("0x000000000000000000000000000000000000e770")
	usdcFeedAddr   = common.HexToAddress("0x00000000000000000000000000000000000f0001")
	sequencerAddr  = common.HexToAddress("0x00000000000000000000000000000000000f5e90")
	middlewareAddr = common.HexToAddress("0x000000000000000000000000000000000000d1dd")
)

const testNow = int64(1_700_000_000)

type fakeFeed struct {
	round    RoundData
	decimals uint8
	roundErr error
	decErr   error
}

func (f *fakeFeed) LatestRoundData() (RoundData, error) { return f.round, f.roundErr }
func (f *fakeFeed) Decimals() (uint8, error)            { return f.decimals, f.decErr }

type fakeMiddleware struct {
	prices   map[common.Address]*uint256.Int
	decimals uint8
	err      error
}

func (f *fakeMiddleware) GetAssetPrice(asset common.Address) (*uint256.Int, uint8, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	price, ok := f.prices[asset]
	if !ok {
		return nil, 0, fmt.Errorf("middleware: no price for %s", asset.Hex())
	}
	return price, f.decimals, nil
}

type fakeDirectory struct {
	feeds       map[common.Address]*fakeFeed
	middlewares map[common.Address]*fakeMiddleware
}

func (d *fakeDirectory) PriceFeed(addr common.Address) (PriceFeed, error) {
	feed, ok := d.feeds[addr]
	if !ok {
		return nil, fmt.Errorf("no feed at %s", addr.Hex())
	}
	return feed, nil
}

func (d *fakeDirectory) Middleware(addr common.Address) (Middleware, error) {
	mw, ok := d.middlewares[addr]
	if !ok {
		return nil, fmt.Errorf("no middleware at %s", addr.Hex())
	}
	return mw, nil
}

type fixture struct {
	manager    *Manager
	directory  *fakeDirectory
	middleware *fakeMiddleware
	recorder   *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	require.NoError(t, err)
	st := state.NewManager(tr)

	access := vault.NewAccessManager(st)
	for _, op := range []string{
		OpSetAssetsPricesSources, OpRemoveAssetsPricesSources, OpUpdatePriceValidation,
		OpRemovePriceValidation, OpSetMaxStaleness, OpSetPriceBounds,
		OpSetSequencerConfig, OpSetPriceOracleMiddleware,
	} {
		access.Require(op, vault.RolePriceOracleAdmin)
	}
	require.NoError(t, access.Grant(vault.RolePriceOracleAdmin, adminAddr))

	mw := &fakeMiddleware{prices: map[common.Address]*uint256.Int{}, decimals: 18}
	dir := &fakeDirectory{
		feeds:       map[common.Address]*fakeFeed{},
		middlewares: map[common.Address]*fakeMiddleware{middlewareAddr: mw},
	}
	f := &fixture{
		manager:    NewManager(oracleAddr, st, dir),
		directory:  dir,
		middleware: mw,
		recorder:   &events.Recorder{},
	}
	f.manager.SetAuthorizer(access)
	f.manager.SetEmitter(f.recorder)
	f.manager.SetNowFunc(func() int64 { return testNow })
	return f
}

// withUSDCFeed registers an 8-decimal feed answering 1.00000000 updated at
// testNow-age.
func (f *fixture) withUSDCFeed(t *testing.T, age uint64) *fakeFeed {
	t.Helper()
	feed := &fakeFeed{
		round: RoundData{
			RoundID:   big.NewInt(1),
			Answer:    big.NewInt(100_000_000),
			StartedAt: uint64(testNow) - age,
			UpdatedAt: uint64(testNow) - age,
		},
		decimals: 8,
	}
	f.directory.feeds[usdcFeedAddr] = feed
	require.NoError(t, f.manager.SetAssetsPricesSources(adminAddr, []common.Address{usdcAddr}, []common.Address{usdcFeedAddr}))
	return feed
}

func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), nativecommon.Pow10(18))
}

func TestGetAssetPriceFromSource(t *testing.T) {
	f := newFixture(t)
	f.withUSDCFeed(t, 60)

	price, decimals, err := f.manager.GetAssetPrice(usdcAddr)
	require.NoError(t, err)
	require.Equal(t, PriceDecimals, decimals)
	require.True(t, price.Eq(ether(1)), "got %s", price.Dec())

	source, err := f.manager.GetSourceOfAssetPrice(usdcAddr)
	require.NoError(t, err)
	require.Equal(t, usdcFeedAddr, source)
	assets, err := f.manager.GetConfiguredAssets()
	require.NoError(t, err)
	require.Equal(t, []common.Address{usdcAddr}, assets)
}

func TestGetAssetPriceNormalizesHighDecimals(t *testing.T) {
	f := newFixture(t)
	feed := f.withUSDCFeed(t, 0)
	feed.decimals = 20
	feed.round.Answer = new(big.Int).Mul(big.NewInt(3), new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil))

	price, _, err := f.manager.GetAssetPrice(usdcAddr)
	require.NoError(t, err)
	require.True(t, price.Eq(ether(3)))
}

func TestGetAssetPriceRejectsZeroAsset(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.manager.GetAssetPrice(common.Address{})
	require.ErrorIs(t, err, ErrUnsupportedAsset)
}

func TestGetAssetPriceUnexpectedResults(t *testing.T) {
	cases := map[string]func(*fakeFeed){
		"round error":     func(feed *fakeFeed) { feed.roundErr = errors.New("execution reverted") },
		"decimals error":  func(feed *fakeFeed) { feed.decErr = errors.New("execution reverted") },
		"negative answer": func(feed *fakeFeed) { feed.round.Answer = big.NewInt(-1) },
		"zero answer":     func(feed *fakeFeed) { feed.round.Answer = big.NewInt(0) },
		"truncated to zero": func(feed *fakeFeed) {
			feed.decimals = 30
			feed.round.Answer = big.NewInt(1)
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			mutate(f.withUSDCFeed(t, 0))
			_, _, err := f.manager.GetAssetPrice(usdcAddr)
			require.ErrorIs(t, err, ErrUnexpectedPriceResult)
		})
	}
}

func TestGetAssetPriceStaleness(t *testing.T) {
	f := newFixture(t)
	feed := f.withUSDCFeed(t, 3_601)

	_, _, err := f.manager.GetAssetPrice(usdcAddr)
	require.NoError(t, err)

	require.NoError(t, f.manager.SetMaxStaleness(adminAddr, []common.Address{usdcAddr}, []uint64{3_600}))
	_, _, err = f.manager.GetAssetPrice(usdcAddr)
	require.ErrorIs(t, err, ErrStalePrice)
	var stale *StalePriceError
	require.True(t, errors.As(err, &stale))
	require.Equal(t, uint64(3_600), stale.MaxStaleness)
	require.Equal(t, usdcAddr, stale.Asset)

	require.NoError(t, f.manager.RemoveMaxStaleness(adminAddr, []common.Address{usdcAddr}))
	require.NoError(t, f.manager.SetDefaultMaxStaleness(adminAddr, 7_200))
	_, _, err = f.manager.GetAssetPrice(usdcAddr)
	require.NoError(t, err)

	require.NoError(t, f.manager.SetDefaultMaxStaleness(adminAddr, 3_000))
	_, _, err = f.manager.GetAssetPrice(usdcAddr)
	require.ErrorIs(t, err, ErrStalePrice)

	feed.round.UpdatedAt = 0
	_, _, err = f.manager.GetAssetPrice(usdcAddr)
	require.NoError(t, err)

	def, err := f.manager.GetDefaultMaxStaleness()
	require.NoError(t, err)
	require.Equal(t, uint64(3_000), def)
}

func TestGetAssetPriceFallsBackToMiddleware(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.manager.GetAssetPrice(wethAddr)
	require.ErrorIs(t, err, ErrUnsupportedAsset)

	require.ErrorIs(t, f.manager.SetPriceOracleMiddleware(adminAddr, common.Address{}), ErrZeroAddress)
	require.NoError(t, f.manager.SetPriceOracleMiddleware(adminAddr, middlewareAddr))
	mw, err := f.manager.PriceOracleMiddleware()
	require.NoError(t, err)
	require.Equal(t, middlewareAddr, mw)

	f.middleware.decimals = 8
	f.middleware.prices[wethAddr] = uint256.NewInt(2_500_00000000)
	price, decimals, err := f.manager.GetAssetPrice(wethAddr)
	require.NoError(t, err)
	require.Equal(t, uint8(18), decimals)
	require.True(t, price.Eq(ether(2_500)))

	boom := errors.New("middleware: asset not supported")
	f.middleware.err = boom
	_, _, err = f.manager.GetAssetPrice(wethAddr)
	require.ErrorIs(t, err, boom)
}

func TestRemovingSourceFallsBackToMiddleware(t *testing.T) {
	f := newFixture(t)
	f.withUSDCFeed(t, 0)
	require.NoError(t, f.manager.SetPriceOracleMiddleware(adminAddr, middlewareAddr))
	f.middleware.prices[usdcAddr] = uint256.NewInt(999)

	require.NoError(t, f.manager.RemoveAssetsPricesSources(adminAddr, []common.Address{usdcAddr}))
	price, _, err := f.manager.GetAssetPrice(usdcAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(999), price.Uint64())

	assets, err := f.manager.GetConfiguredAssets()
	require.NoError(t, err)
	require.Empty(t, assets)
}

func TestPriceBoundsRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.withUSDCFeed(t, 0)

	require.ErrorIs(t, f.manager.SetPriceBounds(adminAddr,
		[]common.Address{usdcAddr}, []*uint256.Int{ether(2)}, []*uint256.Int{ether(1)}), ErrInvalidPriceBounds)

	require.NoError(t, f.manager.SetPriceBounds(adminAddr,
		[]common.Address{usdcAddr}, []*uint256.Int{ether(2)}, []*uint256.Int{ether(3)}))
	_, _, err := f.manager.GetAssetPrice(usdcAddr)
	require.ErrorIs(t, err, ErrPriceOutOfBounds)
	var oob *PriceOutOfBoundsError
	require.True(t, errors.As(err, &oob))
	require.True(t, oob.Price.Eq(ether(1)))

	require.NoError(t, f.manager.SetPriceBounds(adminAddr,
		[]common.Address{usdcAddr}, []*uint256.Int{new(uint256.Int)}, []*uint256.Int{ether(1)}))
	_, _, err = f.manager.GetAssetPrice(usdcAddr)
	require.NoError(t, err)

	require.NoError(t, f.manager.SetPriceBounds(adminAddr,
		[]common.Address{usdcAddr}, []*uint256.Int{new(uint256.Int)}, []*uint256.Int{uint256.NewInt(1)}))
	_, _, err = f.manager.GetAssetPrice(usdcAddr)
	require.ErrorIs(t, err, ErrPriceOutOfBounds)

	require.NoError(t, f.manager.RemovePriceBounds(adminAddr, []common.Address{usdcAddr}))
	_, _, err = f.manager.GetAssetPrice(usdcAddr)
	require.NoError(t, err)
	bounds, err := f.manager.GetPriceBounds(usdcAddr)
	require.NoError(t, err)
	require.True(t, bounds.MinPrice.IsZero())
	require.True(t, bounds.MaxPrice.IsZero())
}

func TestGetAssetsPrices(t *testing.T) {
	f := newFixture(t)
	f.withUSDCFeed(t, 0)
	require.NoError(t, f.manager.SetPriceOracleMiddleware(adminAddr, middlewareAddr))
	f.middleware.prices[wethAddr] = ether(2_000)

	_, _, err := f.manager.GetAssetsPrices(nil)
	require.ErrorIs(t, err, ErrEmptyArrayNotSupported)

	prices, decimals, err := f.manager.GetAssetsPrices([]common.Address{usdcAddr, wethAddr})
	require.NoError(t, err)
	require.Equal(t, []uint8{18, 18}, decimals)
	require.True(t, prices[0].Eq(ether(1)))
	require.True(t, prices[1].Eq(ether(2_000)))

	_, _, err = f.manager.GetAssetsPrices([]common.Address{usdcAddr, {}})
	require.ErrorIs(t, err, ErrUnsupportedAsset)
}

func TestSequencerGatesPrices(t *testing.T) {
	f := newFixture(t)
	f.withUSDCFeed(t, 0)
	seq := &fakeFeed{round: RoundData{
		Answer:    big.NewInt(0),
		StartedAt: uint64(testNow) - 30*60,
		UpdatedAt: uint64(testNow) - 30*60,
	}}
	f.directory.feeds[sequencerAddr] = seq

	require.ErrorIs(t, f.manager.EnableSequencerCheck(adminAddr), ErrZeroAddress)
	require.NoError(t, f.manager.SetSequencerConfig(adminAddr, sequencerAddr, false))
	cfg, err := f.manager.GetSequencerConfig()
	require.NoError(t, err)
	require.Equal(t, SequencerConfig{Feed: sequencerAddr, Enabled: true}, cfg)

	_, _, err = f.manager.GetAssetPrice(usdcAddr)
	require.ErrorIs(t, err, ErrGracePeriodNotElapsed)

	seq.round.StartedAt = uint64(testNow) - 61*60
	_, _, err = f.manager.GetAssetPrice(usdcAddr)
	require.NoError(t, err)

	seq.round.Answer = big.NewInt(1)
	_, _, err = f.manager.GetAssetPrice(usdcAddr)
	require.ErrorIs(t, err, ErrSequencerDown)

	require.NoError(t, f.manager.DisableSequencerCheck(adminAddr))
	_, _, err = f.manager.GetAssetPrice(usdcAddr)
	require.NoError(t, err)
}

func TestAdminBatchValidation(t *testing.T) {
	f := newFixture(t)
	one := []common.Address{usdcAddr}
	two := []common.Address{usdcAddr, wethAddr}

	require.ErrorIs(t, f.manager.SetAssetsPricesSources(adminAddr, nil, nil), ErrEmptyArrayNotSupported)
	require.ErrorIs(t, f.manager.SetAssetsPricesSources(adminAddr, two, one), ErrArrayLengthMismatch)
	require.ErrorIs(t, f.manager.SetAssetsPricesSources(adminAddr, one, []common.Address{{}}), ErrZeroAddress)
	require.ErrorIs(t, f.manager.RemoveAssetsPricesSources(adminAddr, nil), ErrEmptyArrayNotSupported)
	require.ErrorIs(t, f.manager.UpdatePriceValidation(adminAddr, two, []*uint256.Int{uint256.NewInt(1)}), ErrArrayLengthMismatch)
	require.ErrorIs(t, f.manager.UpdatePriceValidation(adminAddr, one, []*uint256.Int{new(uint256.Int)}), ErrInvalidMaxPriceDelta)
	require.ErrorIs(t, f.manager.RemovePriceValidation(adminAddr, nil), ErrEmptyArrayNotSupported)
	require.ErrorIs(t, f.manager.SetMaxStaleness(adminAddr, one, nil), ErrArrayLengthMismatch)
	require.ErrorIs(t, f.manager.RemoveMaxStaleness(adminAddr, nil), ErrEmptyArrayNotSupported)
	require.ErrorIs(t, f.manager.SetPriceBounds(adminAddr, one, []*uint256.Int{nil}, nil), ErrArrayLengthMismatch)
	require.ErrorIs(t, f.manager.RemovePriceBounds(adminAddr, nil), ErrEmptyArrayNotSupported)
	require.ErrorIs(t, f.manager.SetSequencerConfig(adminAddr, common.Address{}, true), ErrZeroAddress)

	require.Empty(t, f.recorder.Events)
}

func TestAdminBatchIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	err := f.manager.SetAssetsPricesSources(adminAddr,
		[]common.Address{usdcAddr, {}},
		[]common.Address{usdcFeedAddr, usdcFeedAddr})
	require.ErrorIs(t, err, ErrZeroAddress)

	source, err := f.manager.GetSourceOfAssetPrice(usdcAddr)
	require.NoError(t, err)
	require.Equal(t, common.Address{}, source)
	require.Empty(t, f.recorder.Events)
}

func TestAdminRequiresRole(t *testing.T) {
	f := newFixture(t)
	one := []common.Address{usdcAddr}
	calls := []error{
		f.manager.SetAssetsPricesSources(outsiderAddr, one, one),
		f.manager.RemoveAssetsPricesSources(outsiderAddr, one),
		f.manager.UpdatePriceValidation(outsiderAddr, one, []*uint256.Int{uint256.NewInt(1)}),
		f.manager.RemovePriceValidation(outsiderAddr, one),
		f.manager.SetMaxStaleness(outsiderAddr, one, []uint64{1}),
		f.manager.SetDefaultMaxStaleness(outsiderAddr, 1),
		f.manager.SetPriceBounds(outsiderAddr, one, []*uint256.Int{nil}, []*uint256.Int{nil}),
		f.manager.SetSequencerConfig(outsiderAddr, sequencerAddr, true),
		f.manager.DisableSequencerCheck(outsiderAddr),
		f.manager.SetPriceOracleMiddleware(outsiderAddr, middlewareAddr),
	}
	for i, err := range calls {
		require.ErrorIs(t, err, nativecommon.ErrUnauthorized, "call %d", i)
	}
}

func TestPausedOracleRejectsAdmin(t *testing.T) {
	f := newFixture(t)
	f.manager.SetPauses(nativecommon.StaticPauses{moduleName: true})
	err := f.manager.SetPriceOracleMiddleware(adminAddr, middlewareAddr)
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
}
