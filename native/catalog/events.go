package catalog

import (
	"agentpay/core/events"
	"agentpay/core/types"
)

const (
	// EventTypeContentRegistered is emitted when a creator lists new content.
	EventTypeContentRegistered = "catalog.content.registered"
	// EventTypeContentUpdated is emitted when a creator changes a listing.
	EventTypeContentUpdated = "catalog.content.updated"
)

func contentRegisteredEvent(c *Content) *types.Event {
	return &types.Event{
		Type: EventTypeContentRegistered,
		Attributes: map[string]string{
			"contentId":   events.FormatUint(c.ID),
			"creator":     events.FormatAddress(c.Creator),
			"title":       c.Title,
			"fingerprint": c.Fingerprint,
			"price":       events.FormatAmount(c.Price),
		},
	}
}

func contentUpdatedEvent(c *Content) *types.Event {
	return &types.Event{
		Type: EventTypeContentUpdated,
		Attributes: map[string]string{
			"contentId": events.FormatUint(c.ID),
			"creator":   events.FormatAddress(c.Creator),
			"title":     c.Title,
			"price":     events.FormatAmount(c.Price),
			"active":    events.FormatBool(c.Active()),
		},
	}
}
