package campaign

import (
	"agentpay/core/events"
	"agentpay/core/types"
)

const (
	// EventTypeCampaignCreated is emitted when a client opens a campaign.
	EventTypeCampaignCreated = "campaign.created"
	// EventTypeCampaignExecuted is emitted when execution progress is reported.
	EventTypeCampaignExecuted = "campaign.executed"
	// EventTypeCampaignCompleted is emitted when a campaign is closed.
	EventTypeCampaignCompleted = "campaign.completed"
)

func campaignCreatedEvent(c *Campaign) *types.Event {
	return &types.Event{
		Type: EventTypeCampaignCreated,
		Attributes: map[string]string{
			"campaignId":   events.FormatUint(c.ID),
			"client":       events.FormatAddress(c.Client),
			"campaignType": c.Type,
			"budget":       events.FormatAmount(c.Budget),
			"payment":      events.FormatAmount(c.Payment),
		},
	}
}

func campaignExecutedEvent(c *Campaign, executor [20]byte, average uint64) *types.Event {
	return &types.Event{
		Type: EventTypeCampaignExecuted,
		Attributes: map[string]string{
			"campaignId":         events.FormatUint(c.ID),
			"executor":           events.FormatAddress(executor),
			"spent":              events.FormatAmount(c.Spent),
			"performanceBps":     events.FormatUint(c.PerformanceBps),
			"averagePerformance": events.FormatUint(average),
		},
	}
}

func campaignCompletedEvent(c *Campaign) *types.Event {
	return &types.Event{
		Type: EventTypeCampaignCompleted,
		Attributes: map[string]string{
			"campaignId":     events.FormatUint(c.ID),
			"spent":          events.FormatAmount(c.Spent),
			"performanceBps": events.FormatUint(c.PerformanceBps),
			"bonus":          events.FormatAmount(c.Bonus),
			"bonusPaid":      events.FormatBool(c.BonusPaid),
		},
	}
}
