package rpc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"agentpay/core/types"
)

func TestEventFilterMatchesTypeOrModule(t *testing.T) {
	accessed := &types.Event{Type: "access.content.accessed"}
	completed := &types.Event{Type: "campaign.completed"}

	require.True(t, parseEventFilter("").match(accessed))

	byType := parseEventFilter(" access.content.accessed , ")
	require.True(t, byType.match(accessed))
	require.False(t, byType.match(completed))

	byModule := parseEventFilter("campaign")
	require.True(t, byModule.match(completed))
	require.False(t, byModule.match(accessed))
	require.Equal(t, "campaign", completed.Module())
}
