package chainfeed

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"

	"plasmavault/native/oracle"
)

const defaultCallTimeout = 10 * time.Second

// Client defines the subset of the Ethereum RPC used to read feeds.
type Client interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
}

// Dial initialises an RPC client for the provided endpoint.
func Dial(ctx context.Context, endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("chainfeed: rpc endpoint required")
	}
	return ethclient.DialContext(ctx, trimmed)
}

// Directory resolves aggregator and middleware contracts on an EVM chain.
// Every read is bounded by the configured timeout.
type Directory struct {
	client  Client
	base    context.Context
	timeout time.Duration
}

var _ oracle.Directory = (*Directory)(nil)

// NewDirectory wraps client. A non-positive timeout selects the default.
func NewDirectory(client Client, timeout time.Duration) *Directory {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Directory{client: client, base: context.Background(), timeout: timeout}
}

// WithContext returns a copy whose reads derive from ctx.
func (d *Directory) WithContext(ctx context.Context) *Directory {
	clone := *d
	if ctx != nil {
		clone.base = ctx
	}
	return &clone
}

// PriceFeed implements oracle.Directory.
func (d *Directory) PriceFeed(address common.Address) (oracle.PriceFeed, error) {
	if d == nil || d.client == nil {
		return nil, fmt.Errorf("chainfeed: client not configured")
	}
	if address == (common.Address{}) {
		return nil, fmt.Errorf("chainfeed: feed address required")
	}
	return &aggregator{dir: d, address: address}, nil
}

// Middleware implements oracle.Directory.
func (d *Directory) Middleware(address common.Address) (oracle.Middleware, error) {
	if d == nil || d.client == nil {
		return nil, fmt.Errorf("chainfeed: client not configured")
	}
	if address == (common.Address{}) {
		return nil, fmt.Errorf("chainfeed: middleware address required")
	}
	return &middleware{dir: d, address: address}, nil
}

// HeadTime returns the timestamp of the latest block.
func (d *Directory) HeadTime() (uint64, error) {
	if d == nil || d.client == nil {
		return 0, fmt.Errorf("chainfeed: client not configured")
	}
	ctx, cancel := context.WithTimeout(d.base, d.timeout)
	defer cancel()
	header, err := d.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("chainfeed: fetch head: %w", err)
	}
	if header == nil {
		return 0, fmt.Errorf("chainfeed: head unavailable")
	}
	return header.Time, nil
}

func (d *Directory) call(contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chainfeed: pack %s: %w", method, err)
	}
	ctx, cancel := context.WithTimeout(d.base, d.timeout)
	defer cancel()
	output, err := d.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("chainfeed: call %s on %s: %w", method, to.Hex(), err)
	}
	values, err := contract.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("chainfeed: unpack %s from %s: %w", method, to.Hex(), err)
	}
	return values, nil
}

type aggregator struct {
	dir     *Directory
	address common.Address
}

func (a *aggregator) LatestRoundData() (oracle.RoundData, error) {
	values, err := a.dir.call(aggregatorABI, a.address, "latestRoundData")
	if err != nil {
		return oracle.RoundData{}, err
	}
	if len(values) != 5 {
		return oracle.RoundData{}, fmt.Errorf("chainfeed: latestRoundData returned %d values", len(values))
	}
	startedAt, err := toUint64(values[2])
	if err != nil {
		return oracle.RoundData{}, fmt.Errorf("chainfeed: startedAt: %w", err)
	}
	updatedAt, err := toUint64(values[3])
	if err != nil {
		return oracle.RoundData{}, fmt.Errorf("chainfeed: updatedAt: %w", err)
	}
	return oracle.RoundData{
		RoundID:         bigOf(values[0]),
		Answer:          bigOf(values[1]),
		StartedAt:       startedAt,
		UpdatedAt:       updatedAt,
		AnsweredInRound: bigOf(values[4]),
	}, nil
}

func (a *aggregator) Decimals() (uint8, error) {
	values, err := a.dir.call(aggregatorABI, a.address, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("chainfeed: decimals has type %T", values[0])
	}
	return decimals, nil
}

type middleware struct {
	dir     *Directory
	address common.Address
}

func (m *middleware) GetAssetPrice(asset common.Address) (*uint256.Int, uint8, error) {
	values, err := m.dir.call(middlewareABI, m.address, "getAssetPrice", asset)
	if err != nil {
		return nil, 0, err
	}
	price, overflow := uint256.FromBig(bigOf(values[0]))
	if overflow {
		return nil, 0, fmt.Errorf("chainfeed: price overflows 256 bits")
	}
	decimals := bigOf(values[1])
	if !decimals.IsUint64() || decimals.Uint64() > 255 {
		return nil, 0, fmt.Errorf("chainfeed: decimals %s out of range", decimals)
	}
	return price, uint8(decimals.Uint64()), nil
}

func bigOf(v interface{}) *big.Int {
	if value, ok := v.(*big.Int); ok && value != nil {
		return new(big.Int).Set(value)
	}
	return new(big.Int)
}

func toUint64(v interface{}) (uint64, error) {
	value := bigOf(v)
	if !value.IsUint64() {
		return 0, fmt.Errorf("value %s does not fit 64 bits", value)
	}
	return value.Uint64(), nil
}
