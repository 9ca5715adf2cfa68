package state

import (
	"fmt"
	"math/big"

	"agentpay/native/common"
	"agentpay/native/registry"
)

type storedCreator struct {
	Address      [20]byte
	Name         string
	RegisteredAt uint64
	ContentCount uint64
	TotalRevenue *big.Int
	Status       uint8
}

type storedAgent struct {
	Address           [20]byte
	Name              string
	Description       string
	Capabilities      string
	AccessCount       uint64
	TotalSpent        *big.Int
	RegisteredAt      uint64
	LastActiveAt      uint64
	CampaignsExecuted uint64
	Status            uint8
	CustodyID         uint64
}

// RegistryCreatorGet loads the creator registered at addr.
func (m *Manager) RegistryCreatorGet(addr [20]byte) (*registry.Creator, bool, error) {
	stored := new(storedCreator)
	ok, err := m.KVGet(addressKey(creatorPrefix, addr), stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &registry.Creator{
		Address:      stored.Address,
		Name:         stored.Name,
		RegisteredAt: int64(stored.RegisteredAt),
		ContentCount: stored.ContentCount,
		TotalRevenue: amountOrZero(stored.TotalRevenue),
		Status:       common.Status(stored.Status),
	}, true, nil
}

// RegistryCreatorPut stores a creator record.
func (m *Manager) RegistryCreatorPut(c *registry.Creator) error {
	if c == nil {
		return fmt.Errorf("registry: nil creator")
	}
	if !c.Status.Valid() {
		return fmt.Errorf("registry: invalid creator status %d", c.Status)
	}
	return m.KVPut(addressKey(creatorPrefix, c.Address), &storedCreator{
		Address:      c.Address,
		Name:         c.Name,
		RegisteredAt: timestamp(c.RegisteredAt),
		ContentCount: c.ContentCount,
		TotalRevenue: amountOrZero(c.TotalRevenue),
		Status:       uint8(c.Status),
	})
}

// RegistryAgentGet loads the agent owned by addr.
func (m *Manager) RegistryAgentGet(addr [20]byte) (*registry.Agent, bool, error) {
	stored := new(storedAgent)
	ok, err := m.KVGet(addressKey(agentPrefix, addr), stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &registry.Agent{
		Address:           stored.Address,
		Name:              stored.Name,
		Description:       stored.Description,
		Capabilities:      stored.Capabilities,
		AccessCount:       stored.AccessCount,
		TotalSpent:        amountOrZero(stored.TotalSpent),
		RegisteredAt:      int64(stored.RegisteredAt),
		LastActiveAt:      int64(stored.LastActiveAt),
		CampaignsExecuted: stored.CampaignsExecuted,
		Status:            common.Status(stored.Status),
		CustodyID:         stored.CustodyID,
	}, true, nil
}

// RegistryAgentPut stores an agent record.
func (m *Manager) RegistryAgentPut(a *registry.Agent) error {
	if a == nil {
		return fmt.Errorf("registry: nil agent")
	}
	if !a.Status.Valid() {
		return fmt.Errorf("registry: invalid agent status %d", a.Status)
	}
	return m.KVPut(addressKey(agentPrefix, a.Address), &storedAgent{
		Address:           a.Address,
		Name:              a.Name,
		Description:       a.Description,
		Capabilities:      a.Capabilities,
		AccessCount:       a.AccessCount,
		TotalSpent:        amountOrZero(a.TotalSpent),
		RegisteredAt:      timestamp(a.RegisteredAt),
		LastActiveAt:      timestamp(a.LastActiveAt),
		CampaignsExecuted: a.CampaignsExecuted,
		Status:            uint8(a.Status),
		CustodyID:         a.CustodyID,
	})
}

// RegistryNameGet resolves the owner of a claimed name.
func (m *Manager) RegistryNameGet(namespace, name string) ([20]byte, bool, error) {
	var owner [20]byte
	ok, err := m.KVGet(NameKey(namespace, name), &owner)
	if err != nil {
		return [20]byte{}, false, err
	}
	return owner, ok, nil
}

// RegistryNamePut claims name for owner.
func (m *Manager) RegistryNamePut(namespace, name string, owner [20]byte) error {
	return m.KVPut(NameKey(namespace, name), owner)
}

// RegistryNameDelete releases a name claim.
func (m *Manager) RegistryNameDelete(namespace, name string) error {
	return m.KVDelete(NameKey(namespace, name))
}
