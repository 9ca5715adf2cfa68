package state

import (
	"fmt"
	"math/big"

	"agentpay/native/campaign"
)

type storedCampaign struct {
	ID             uint64
	Client         [20]byte
	Type           string
	Budget         *big.Int
	Payment        *big.Int
	Spent          *big.Int
	PerformanceBps uint64
	Executed       bool
	Status         uint8
	CreatedAt      uint64
	CompletedAt    uint64
	Bonus          *big.Int
	BonusPaid      bool
}

type storedCampaignStats struct {
	TotalCampaigns     uint64
	ExecutedCampaigns  uint64
	PerformanceSum     uint64
	AveragePerformance uint64
	TotalBonusesPaid   *big.Int
	BonusesSkipped     uint64
}

// CampaignGet loads a campaign by id.
func (m *Manager) CampaignGet(id uint64) (*campaign.Campaign, bool, error) {
	stored := new(storedCampaign)
	ok, err := m.KVGet(idKey(campaignPrefix, id), stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &campaign.Campaign{
		ID:             stored.ID,
		Client:         stored.Client,
		Type:           stored.Type,
		Budget:         amountOrZero(stored.Budget),
		Payment:        amountOrZero(stored.Payment),
		Spent:          amountOrZero(stored.Spent),
		PerformanceBps: stored.PerformanceBps,
		Executed:       stored.Executed,
		Status:         campaign.Status(stored.Status),
		CreatedAt:      int64(stored.CreatedAt),
		CompletedAt:    int64(stored.CompletedAt),
		Bonus:          amountOrZero(stored.Bonus),
		BonusPaid:      stored.BonusPaid,
	}, true, nil
}

// CampaignPut stores a campaign.
func (m *Manager) CampaignPut(c *campaign.Campaign) error {
	if c == nil {
		return fmt.Errorf("campaign: nil campaign")
	}
	if c.ID == 0 {
		return fmt.Errorf("campaign: id must be assigned")
	}
	if !c.Status.Valid() {
		return fmt.Errorf("campaign: invalid status %d", c.Status)
	}
	return m.KVPut(idKey(campaignPrefix, c.ID), &storedCampaign{
		ID:             c.ID,
		Client:         c.Client,
		Type:           c.Type,
		Budget:         amountOrZero(c.Budget),
		Payment:        amountOrZero(c.Payment),
		Spent:          amountOrZero(c.Spent),
		PerformanceBps: c.PerformanceBps,
		Executed:       c.Executed,
		Status:         uint8(c.Status),
		CreatedAt:      timestamp(c.CreatedAt),
		CompletedAt:    timestamp(c.CompletedAt),
		Bonus:          amountOrZero(c.Bonus),
		BonusPaid:      c.BonusPaid,
	})
}

// CampaignNextID reserves the next campaign id.
func (m *Manager) CampaignNextID() (uint64, error) {
	return m.nextID(campaignLastIDKey)
}

// CampaignStatsGet loads the platform campaign metrics. Missing stats are
// returned zeroed.
func (m *Manager) CampaignStatsGet() (*campaign.Stats, error) {
	stored := new(storedCampaignStats)
	ok, err := m.KVGet(campaignStatsKey, stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &campaign.Stats{TotalBonusesPaid: big.NewInt(0)}, nil
	}
	return &campaign.Stats{
		TotalCampaigns:     stored.TotalCampaigns,
		ExecutedCampaigns:  stored.ExecutedCampaigns,
		PerformanceSum:     stored.PerformanceSum,
		AveragePerformance: stored.AveragePerformance,
		TotalBonusesPaid:   amountOrZero(stored.TotalBonusesPaid),
		BonusesSkipped:     stored.BonusesSkipped,
	}, nil
}

// CampaignStatsPut stores the platform campaign metrics.
func (m *Manager) CampaignStatsPut(s *campaign.Stats) error {
	if s == nil {
		return fmt.Errorf("campaign: nil stats")
	}
	return m.KVPut(campaignStatsKey, &storedCampaignStats{
		TotalCampaigns:     s.TotalCampaigns,
		ExecutedCampaigns:  s.ExecutedCampaigns,
		PerformanceSum:     s.PerformanceSum,
		AveragePerformance: s.AveragePerformance,
		TotalBonusesPaid:   amountOrZero(s.TotalBonusesPaid),
		BonusesSkipped:     s.BonusesSkipped,
	})
}
