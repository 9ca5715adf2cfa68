package campaign

import (
	"fmt"
	"math/big"
)

const (
	// MaxPerformanceBps is the top of the performance scale.
	MaxPerformanceBps = 10_000
	// BonusThresholdBps is the performance a campaign must reach for the
	// executing agent to earn a bonus.
	BonusThresholdBps = 7_500
)

// Status tracks the lifecycle of a campaign. Completed is terminal.
type Status uint8

const (
	StatusActive Status = iota + 1
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Valid reports whether the status is recognised.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCompleted
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid campaign status %d", s)
	}
	return []byte(s.String()), nil
}

// Campaign is a budgeted job executed by the campaign agent on behalf of a
// client.
type Campaign struct {
	ID             uint64
	Client         [20]byte
	Type           string
	Budget         *big.Int
	Payment        *big.Int
	Spent          *big.Int
	PerformanceBps uint64
	Executed       bool
	Status         Status
	CreatedAt      int64
	CompletedAt    int64
	Bonus          *big.Int
	BonusPaid      bool
}

// Clone returns a deep copy of the campaign.
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	out := *c
	out.Budget = cloneAmount(c.Budget)
	out.Payment = cloneAmount(c.Payment)
	out.Spent = cloneAmount(c.Spent)
	out.Bonus = cloneAmount(c.Bonus)
	return &out
}

// Stats aggregates platform-wide campaign metrics.
type Stats struct {
	TotalCampaigns     uint64
	ExecutedCampaigns  uint64
	PerformanceSum     uint64
	AveragePerformance uint64
	TotalBonusesPaid   *big.Int
	BonusesSkipped     uint64
}

// Clone returns a deep copy of the stats.
func (s *Stats) Clone() *Stats {
	if s == nil {
		return &Stats{TotalBonusesPaid: big.NewInt(0)}
	}
	out := *s
	out.TotalBonusesPaid = cloneAmount(s.TotalBonusesPaid)
	return &out
}

// record folds a campaign's new performance into the running mean. previous
// is the campaign's last reported performance and first tells whether this
// is its first execution.
func (s *Stats) record(previous, next uint64, first bool) {
	if first {
		s.ExecutedCampaigns++
	} else {
		s.PerformanceSum -= previous
	}
	s.PerformanceSum += next
	s.AveragePerformance = s.PerformanceSum / s.ExecutedCampaigns
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
