package custody

import (
	"math/big"

	"agentpay/core/events"
	"agentpay/core/types"
)

const (
	// EventTypeAccountOpened is emitted when a custody account is created.
	EventTypeAccountOpened = "custody.account.opened"
	// EventTypeBalanceUpdated is emitted whenever a custody balance changes.
	EventTypeBalanceUpdated = "custody.balance.updated"
	// EventTypeTransactionExecuted is emitted after a successful outbound
	// agent call.
	EventTypeTransactionExecuted = "custody.transaction.executed"
)

func accountOpenedEvent(a *Account) *types.Event {
	return &types.Event{
		Type: EventTypeAccountOpened,
		Attributes: map[string]string{
			"accountId": events.FormatUint(a.ID),
			"owner":     events.FormatAddress(a.Owner),
		},
	}
}

func balanceUpdatedEvent(a *Account, reason string, delta *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeBalanceUpdated,
		Attributes: map[string]string{
			"accountId": events.FormatUint(a.ID),
			"owner":     events.FormatAddress(a.Owner),
			"reason":    reason,
			"delta":     events.FormatAmount(delta),
			"balance":   events.FormatAmount(a.Balance),
		},
	}
}

func transactionExecutedEvent(a *Account, target [20]byte, value *big.Int, payloadSize int) *types.Event {
	return &types.Event{
		Type: EventTypeTransactionExecuted,
		Attributes: map[string]string{
			"accountId":   events.FormatUint(a.ID),
			"owner":       events.FormatAddress(a.Owner),
			"target":      events.FormatAddress(target),
			"value":       events.FormatAmount(value),
			"payloadSize": events.FormatUint(uint64(payloadSize)),
			"txCount":     events.FormatUint(a.TxCount),
		},
	}
}
