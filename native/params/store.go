package params

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StoreState captures the subset of state manager capabilities required by the
// parameter helpers.
type StoreState interface {
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
}

// Store provides typed accessors for administrator-controlled parameters.
type Store struct {
	state StoreState
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend.
func NewStore(state StoreState) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

// SetParams validates and persists the ledger parameters as JSON.
func (s *Store) SetParams(p Params) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	encoded, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("params: encode ledger params: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyLedger, encoded)
}

// Params loads the persisted ledger parameters. When unset the defaults are
// returned.
func (s *Store) Params() (Params, error) {
	state, err := s.withState()
	if err != nil {
		return Params{}, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyLedger)
	if err != nil {
		return Params{}, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return Default(), nil
	}
	var p Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return Params{}, fmt.Errorf("params: decode ledger params: %w", err)
	}
	return p, nil
}

// SetPauses persists the supplied pause configuration under the canonical
// parameter store key.
func (s *Store) SetPauses(pauses Pauses) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(pauses)
	if err != nil {
		return fmt.Errorf("params: encode pauses: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyPauses, encoded)
}

// Pauses loads the persisted pause configuration. When unset, a zero-value
// configuration is returned.
func (s *Store) Pauses() (Pauses, error) {
	state, err := s.withState()
	if err != nil {
		return Pauses{}, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyPauses)
	if err != nil {
		return Pauses{}, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return Pauses{}, nil
	}
	var pauses Pauses
	if err := json.Unmarshal(raw, &pauses); err != nil {
		return Pauses{}, fmt.Errorf("params: decode pauses: %w", err)
	}
	return pauses, nil
}

// IsPaused implements common.PauseView on top of the stored configuration.
// Read failures report unpaused.
func (s *Store) IsPaused(module string) bool {
	pauses, err := s.Pauses()
	if err != nil {
		return false
	}
	return pauses.IsPaused(module)
}
