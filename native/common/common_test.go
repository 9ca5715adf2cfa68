package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubPauseView map[string]bool

func (s stubPauseView) IsPaused(module string) bool { return s[module] }

func TestGuardRejectsPausedModule(t *testing.T) {
	view := stubPauseView{"access": true}
	require.ErrorIs(t, Guard(view, "access"), ErrModulePaused)
	require.NoError(t, Guard(view, "custody"))
	require.NoError(t, Guard(nil, "access"))
}

func TestReasonMapsWrappedErrors(t *testing.T) {
	require.Equal(t, "", Reason(nil))
	require.Equal(t, "IncorrectAmount", Reason(fmt.Errorf("access: %w", ErrIncorrectAmount)))
	require.Equal(t, ReasonInternal, Reason(errors.New("disk full")))

	hook := fmt.Errorf("hook: %w", ErrReentrantCall)
	require.Equal(t, "ReentrantCall", Reason(hook))
	require.Equal(t, "TransferFailed", Reason(fmt.Errorf("%w: %w", ErrTransferFailed, hook)))
	require.Equal(t, "TransferFailed", Reason(fmt.Errorf("%w: %w", ErrTransferFailed, errors.New("rejected"))))
}

func TestReentrancyGuard(t *testing.T) {
	var g ReentrancyGuard
	require.NoError(t, g.Enter())
	require.True(t, g.Held())
	require.ErrorIs(t, g.Enter(), ErrReentrantCall)
	g.Exit()
	require.False(t, g.Held())
	require.NoError(t, g.Enter())
}

func TestStatusTransition(t *testing.T) {
	next, err := Transition(StatusActive, false)
	require.NoError(t, err)
	require.Equal(t, StatusInactive, next)

	_, err = Transition(StatusInactive, false)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = Transition(StatusActive, true)
	require.ErrorIs(t, err, ErrInvalidInput)

	next, err = Transition(StatusInactive, true)
	require.NoError(t, err)
	require.Equal(t, StatusActive, next)
}

func TestStatusText(t *testing.T) {
	var s Status
	require.NoError(t, s.UnmarshalText([]byte(" Inactive ")))
	require.Equal(t, StatusInactive, s)
	out, err := s.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "inactive", string(out))
	require.Error(t, s.UnmarshalText([]byte("deleted")))
}
