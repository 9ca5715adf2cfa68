package access

import (
	"math/big"

	"agentpay/core/events"
	"agentpay/core/types"
)

const (
	// EventTypeContentAccessed is emitted once per settled access.
	EventTypeContentAccessed = "access.content.accessed"
	// EventTypePaymentProcessed is emitted for each leg of a settlement.
	EventTypePaymentProcessed = "access.payment.processed"
)

const (
	legCreator  = "creator"
	legPlatform = "platform"
)

func contentAccessedEvent(s *Settlement) *types.Event {
	return &types.Event{
		Type: EventTypeContentAccessed,
		Attributes: map[string]string{
			"contentId":   events.FormatUint(s.ContentID),
			"agent":       events.FormatAddress(s.Agent),
			"agentTag":    s.AgentTag,
			"payment":     events.FormatAmount(s.Payment),
			"accessCount": events.FormatUint(s.AccessCount),
		},
	}
}

func paymentProcessedEvent(contentID uint64, leg string, payer, payee [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypePaymentProcessed,
		Attributes: map[string]string{
			"contentId": events.FormatUint(contentID),
			"leg":       leg,
			"from":      events.FormatAddress(payer),
			"to":        events.FormatAddress(payee),
			"amount":    events.FormatAmount(amount),
		},
	}
}
