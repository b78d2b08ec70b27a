package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"plasmavault/config"
)

// StoreState captures the subset of state manager capabilities required by the
// parameter helpers.
type StoreState interface {
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
}

// Store provides typed accessors for operator-controlled parameters. It also
// serves as the pause view consulted by the fee and oracle engines.
type Store struct {
	state  StoreState
	logger *slog.Logger
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend.
func NewStore(state StoreState) *Store {
	return &Store{state: state, logger: slog.Default()}
}

// SetLogger overrides the logger used to report unreadable pause payloads.
func (s *Store) SetLogger(logger *slog.Logger) {
	if s == nil || logger == nil {
		return
	}
	s.logger = logger
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

// SetPauses persists the supplied pause configuration under the canonical
// parameter store key. Values are marshalled as JSON.
func (s *Store) SetPauses(pauses config.Pauses) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(pauses)
	if err != nil {
		return fmt.Errorf("params: encode pauses: %w", err)
	}
	return state.ParamStoreSet(KeyPauses, encoded)
}

// Pauses loads the persisted pause configuration. When unset, a zero-value
// configuration is returned.
func (s *Store) Pauses() (config.Pauses, error) {
	state, err := s.withState()
	if err != nil {
		return config.Pauses{}, err
	}
	raw, ok, err := state.ParamStoreGet(KeyPauses)
	if err != nil {
		return config.Pauses{}, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return config.Pauses{}, nil
	}
	var pauses config.Pauses
	if err := json.Unmarshal(raw, &pauses); err != nil {
		return config.Pauses{}, fmt.Errorf("params: decode pauses: %w", err)
	}
	return pauses, nil
}

// SetModulePaused flips the toggle of a single module.
func (s *Store) SetModulePaused(module string, paused bool) error {
	pauses, err := s.Pauses()
	if err != nil {
		return err
	}
	switch module {
	case ModuleFees:
		pauses.Fees = paused
	case ModuleOracle:
		pauses.Oracle = paused
	default:
		return fmt.Errorf("params: unknown module %q", module)
	}
	return s.SetPauses(pauses)
}

// IsPaused reports whether module is paused. A payload that cannot be read
// pauses every module.
func (s *Store) IsPaused(module string) bool {
	pauses, err := s.Pauses()
	if err != nil {
		if s != nil && s.logger != nil {
			s.logger.Error("pause toggles unreadable", slog.String("module", module), slog.Any("error", err))
		}
		return true
	}
	switch module {
	case ModuleFees:
		return pauses.Fees
	case ModuleOracle:
		return pauses.Oracle
	default:
		return false
	}
}
