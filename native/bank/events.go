package bank

import (
	"math/big"

	"agentpay/core/events"
	"agentpay/core/types"
)

const (
	// EventTypeTransfer is emitted for every native balance movement.
	EventTypeTransfer = "bank.transfer"
)

func transferEvent(from, to [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"from":   events.FormatAddress(from),
			"to":     events.FormatAddress(to),
			"amount": events.FormatAmount(amount),
		},
	}
}
