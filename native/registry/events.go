package registry

import (
	"agentpay/core/events"
	"agentpay/core/types"
	"agentpay/native/common"
)

const (
	// EventTypeCreatorRegistered is emitted when a wallet registers as a creator.
	EventTypeCreatorRegistered = "registry.creator.registered"
	// EventTypeCreatorUpdated is emitted when a creator changes its name.
	EventTypeCreatorUpdated = "registry.creator.updated"
	// EventTypeAgentRegistered is emitted when a wallet registers an agent.
	EventTypeAgentRegistered = "registry.agent.registered"
	// EventTypeAgentUpdated is emitted when agent metadata changes.
	EventTypeAgentUpdated = "registry.agent.updated"
	// EventTypeStatusChanged is emitted when a creator or agent is deactivated
	// or reactivated.
	EventTypeStatusChanged = "registry.status.changed"
)

func creatorRegisteredEvent(c *Creator) *types.Event {
	return &types.Event{
		Type: EventTypeCreatorRegistered,
		Attributes: map[string]string{
			"creator": events.FormatAddress(c.Address),
			"name":    c.Name,
		},
	}
}

func creatorUpdatedEvent(c *Creator, previous string) *types.Event {
	return &types.Event{
		Type: EventTypeCreatorUpdated,
		Attributes: map[string]string{
			"creator":      events.FormatAddress(c.Address),
			"name":         c.Name,
			"previousName": previous,
		},
	}
}

func agentRegisteredEvent(a *Agent, fee string) *types.Event {
	return &types.Event{
		Type: EventTypeAgentRegistered,
		Attributes: map[string]string{
			"agent":     events.FormatAddress(a.Address),
			"name":      a.Name,
			"custodyId": events.FormatUint(a.CustodyID),
			"fee":       fee,
		},
	}
}

func agentUpdatedEvent(a *Agent) *types.Event {
	return &types.Event{
		Type: EventTypeAgentUpdated,
		Attributes: map[string]string{
			"agent":        events.FormatAddress(a.Address),
			"name":         a.Name,
			"description":  a.Description,
			"capabilities": a.Capabilities,
		},
	}
}

func statusChangedEvent(kind string, addr [20]byte, status common.Status) *types.Event {
	return &types.Event{
		Type: EventTypeStatusChanged,
		Attributes: map[string]string{
			"kind":    kind,
			"address": events.FormatAddress(addr),
			"status":  status.String(),
		},
	}
}
