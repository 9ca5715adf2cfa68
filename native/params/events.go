package params

import (
	"agentpay/core/events"
	"agentpay/core/types"
)

const (
	// EventTypeParamsUpdated is emitted whenever the administrator changes a
	// ledger parameter.
	EventTypeParamsUpdated = "params.updated"
)

func paramsUpdatedEvent(admin [20]byte, field string, value string) *types.Event {
	return &types.Event{
		Type: EventTypeParamsUpdated,
		Attributes: map[string]string{
			"admin": events.FormatAddress(admin),
			"field": field,
			"value": value,
		},
	}
}
