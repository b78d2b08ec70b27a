package oracle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	regionSources    = "oracle/v1/sources"
	regionValidation = "oracle/v1/validation"
	regionSecurity   = "oracle/v1/security"
	regionMiddleware = "oracle/v1/middleware"
)

// StateStore captures the key/value capabilities of the state manager used by
// the oracle storage.
type StateStore interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVDelete(key []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Store persists the price oracle configuration: custom sources, price
// validation, staleness, bounds, sequencer and fallback middleware.
type Store struct {
	state   StateStore
	manager common.Address
}

// NewStore binds the storage of the oracle manager deployed at manager.
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

func assetPart(asset common.Address) string { return fmt.Sprintf("%x", asset) }

// PriceSource returns the custom source of asset and whether one is set.
func (s *Store) PriceSource(asset common.Address) (common.Address, bool, error) {
	state, err := s.withState()
	if err != nil {
		return common.Address{}, false, err
	}
	var source common.Address
	ok, err := state.KVGet(s.key(regionSources, "asset", assetPart(asset)), &source)
	if err != nil {
		return common.Address{}, false, err
	}
	return source, ok && source != (common.Address{}), nil
}

// SetPriceSource registers source for asset and lists the asset.
func (s *Store) SetPriceSource(asset, source common.Address) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := state.KVPut(s.key(regionSources, "asset", assetPart(asset)), source); err != nil {
		return err
	}
	assets, err := s.Assets()
	if err != nil {
		return err
	}
	for _, existing := range assets {
		if existing == asset {
			return nil
		}
	}
	return state.KVPut(s.key(regionSources, "assets"), append(assets, asset))
}

// DeletePriceSource removes the custom source of asset.
func (s *Store) DeletePriceSource(asset common.Address) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := state.KVDelete(s.key(regionSources, "asset", assetPart(asset))); err != nil {
		return err
	}
	assets, err := s.Assets()
	if err != nil {
		return err
	}
	kept := make([]common.Address, 0, len(assets))
	for _, existing := range assets {
		if existing != asset {
			kept = append(kept, existing)
		}
	}
	return state.KVPut(s.key(regionSources, "assets"), kept)
}

// Assets lists the assets with a custom source in registration order.
func (s *Store) Assets() ([]common.Address, error) {
	state, err := s.withState()
	if err != nil {
		return nil, err
	}
	var assets []common.Address
	if err := state.KVGetList(s.key(regionSources, "assets"), &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// PriceValidation returns the validation entry of asset and whether it exists.
func (s *Store) PriceValidation(asset common.Address) (PriceValidation, bool, error) {
	state, err := s.withState()
	if err != nil {
		return PriceValidation{}, false, err
	}
	var v PriceValidation
	ok, err := state.KVGet(s.key(regionValidation, assetPart(asset)), &v)
	if err != nil {
		return PriceValidation{}, false, err
	}
	return v.clone(), ok, nil
}

// SetPriceValidation stores the validation entry of asset.
func (s *Store) SetPriceValidation(asset common.Address, v PriceValidation) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVPut(s.key(regionValidation, assetPart(asset)), v.clone())
}

// DeletePriceValidation removes the validation entry of asset.
func (s *Store) DeletePriceValidation(asset common.Address) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVDelete(s.key(regionValidation, assetPart(asset)))
}

// MaxStaleness returns the staleness threshold in seconds configured for
// asset, zero when unset.
func (s *Store) MaxStaleness(asset common.Address) (uint64, error) {
	state, err := s.withState()
	if err != nil {
		return 0, err
	}
	var seconds uint64
	if _, err := state.KVGet(s.key(regionSecurity, "staleness", assetPart(asset)), &seconds); err != nil {
		return 0, err
	}
	return seconds, nil
}

// SetMaxStaleness stores the staleness threshold of asset.
func (s *Store) SetMaxStaleness(asset common.Address, seconds uint64) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVPut(s.key(regionSecurity, "staleness", assetPart(asset)), seconds)
}

// DeleteMaxStaleness clears the staleness threshold of asset.
func (s *Store) DeleteMaxStaleness(asset common.Address) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVDelete(s.key(regionSecurity, "staleness", assetPart(asset)))
}

// DefaultMaxStaleness returns the threshold applied to assets without their
// own, zero when unset.
func (s *Store) DefaultMaxStaleness() (uint64, error) {
	state, err := s.withState()
	if err != nil {
		return 0, err
	}
	var seconds uint64
	if _, err := state.KVGet(s.key(regionSecurity, "staleness-default"), &seconds); err != nil {
		return 0, err
	}
	return seconds, nil
}

// SetDefaultMaxStaleness stores the default staleness threshold.
func (s *Store) SetDefaultMaxStaleness(seconds uint64) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVPut(s.key(regionSecurity, "staleness-default"), seconds)
}

// PriceBounds returns the bounds of asset; both are zero when unset.
func (s *Store) PriceBounds(asset common.Address) (PriceBounds, error) {
	state, err := s.withState()
	if err != nil {
		return PriceBounds{}, err
	}
	var b PriceBounds
	if _, err := state.KVGet(s.key(regionSecurity, "bounds", assetPart(asset)), &b); err != nil {
		return PriceBounds{}, err
	}
	return b.clone(), nil
}

// SetPriceBounds stores the bounds of asset.
func (s *Store) SetPriceBounds(asset common.Address, b PriceBounds) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVPut(s.key(regionSecurity, "bounds", assetPart(asset)), b.clone())
}

// DeletePriceBounds clears the bounds of asset.
func (s *Store) DeletePriceBounds(asset common.Address) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVDelete(s.key(regionSecurity, "bounds", assetPart(asset)))
}

// SequencerConfig loads the sequencer uptime configuration.
func (s *Store) SequencerConfig() (SequencerConfig, error) {
	state, err := s.withState()
	if err != nil {
		return SequencerConfig{}, err
	}
	var cfg SequencerConfig
	if _, err := state.KVGet(s.key(regionSecurity, "sequencer"), &cfg); err != nil {
		return SequencerConfig{}, err
	}
	return cfg, nil
}

// SetSequencerConfig stores the sequencer uptime configuration.
func (s *Store) SetSequencerConfig(cfg SequencerConfig) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVPut(s.key(regionSecurity, "sequencer"), cfg)
}

// Middleware returns the fallback middleware address.
func (s *Store) Middleware() (common.Address, error) {
	state, err := s.withState()
	if err != nil {
		return common.Address{}, err
	}
	var addr common.Address
	if _, err := state.KVGet(s.key(regionMiddleware), &addr); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// SetMiddleware stores the fallback middleware address.
func (s *Store) SetMiddleware(addr common.Address) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVPut(s.key(regionMiddleware), addr)
}
