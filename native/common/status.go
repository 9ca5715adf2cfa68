package common

import (
	"fmt"
	"strings"
)

// Status tags the liveness of a registry record. Records are never deleted;
// they flip between Active and Inactive.
type Status uint8

const (
	StatusActive Status = iota + 1
	StatusInactive
)

// Valid reports whether the status is recognised.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "active":
		*s = StatusActive
	case "inactive":
		*s = StatusInactive
	default:
		return fmt.Errorf("invalid status %q", string(text))
	}
	return nil
}

// Transition validates a liveness flip. Deactivating an inactive record or
// reactivating an active one is rejected.
func Transition(current Status, active bool) (Status, error) {
	if active {
		if current == StatusActive {
			return current, fmt.Errorf("%w: already active", ErrInvalidInput)
		}
		return StatusActive, nil
	}
	if current != StatusActive {
		return current, fmt.Errorf("%w: already inactive", ErrInvalidInput)
	}
	return StatusInactive, nil
}
