package state

import (
	"fmt"
	"math/big"

	"agentpay/native/access"
)

type storedGrant struct {
	Agent        [20]byte
	ContentID    uint64
	AccessCount  uint64
	TotalPaid    *big.Int
	LastTag      string
	LastAccessAt uint64
}

// AccessGrantGet loads the access record for (agent, contentID).
func (m *Manager) AccessGrantGet(agent [20]byte, contentID uint64) (*access.Grant, bool, error) {
	stored := new(storedGrant)
	ok, err := m.KVGet(grantKey(agent, contentID), stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &access.Grant{
		Agent:        stored.Agent,
		ContentID:    stored.ContentID,
		AccessCount:  stored.AccessCount,
		TotalPaid:    amountOrZero(stored.TotalPaid),
		LastTag:      stored.LastTag,
		LastAccessAt: int64(stored.LastAccessAt),
	}, true, nil
}

// AccessGrantPut stores an access record.
func (m *Manager) AccessGrantPut(g *access.Grant) error {
	if g == nil {
		return fmt.Errorf("access: nil grant")
	}
	return m.KVPut(grantKey(g.Agent, g.ContentID), &storedGrant{
		Agent:        g.Agent,
		ContentID:    g.ContentID,
		AccessCount:  g.AccessCount,
		TotalPaid:    amountOrZero(g.TotalPaid),
		LastTag:      g.LastTag,
		LastAccessAt: timestamp(g.LastAccessAt),
	})
}
