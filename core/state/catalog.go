package state

import (
	"fmt"
	"math/big"

	"agentpay/native/catalog"
	"agentpay/native/common"
)

type storedContent struct {
	ID           uint64
	Creator      [20]byte
	Title        string
	Description  string
	Fingerprint  string
	Price        *big.Int
	Status       uint8
	AccessCount  uint64
	TotalRevenue *big.Int
	CreatedAt    uint64
	UpdatedAt    uint64
}

// CatalogContentGet loads a content item by id.
func (m *Manager) CatalogContentGet(id uint64) (*catalog.Content, bool, error) {
	stored := new(storedContent)
	ok, err := m.KVGet(idKey(contentPrefix, id), stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &catalog.Content{
		ID:           stored.ID,
		Creator:      stored.Creator,
		Title:        stored.Title,
		Description:  stored.Description,
		Fingerprint:  stored.Fingerprint,
		Price:        amountOrZero(stored.Price),
		Status:       common.Status(stored.Status),
		AccessCount:  stored.AccessCount,
		TotalRevenue: amountOrZero(stored.TotalRevenue),
		CreatedAt:    int64(stored.CreatedAt),
		UpdatedAt:    int64(stored.UpdatedAt),
	}, true, nil
}

// CatalogContentPut stores a content item.
func (m *Manager) CatalogContentPut(c *catalog.Content) error {
	if c == nil {
		return fmt.Errorf("catalog: nil content")
	}
	if c.ID == 0 {
		return fmt.Errorf("catalog: content id must be assigned")
	}
	if !c.Status.Valid() {
		return fmt.Errorf("catalog: invalid content status %d", c.Status)
	}
	return m.KVPut(idKey(contentPrefix, c.ID), &storedContent{
		ID:           c.ID,
		Creator:      c.Creator,
		Title:        c.Title,
		Description:  c.Description,
		Fingerprint:  c.Fingerprint,
		Price:        amountOrZero(c.Price),
		Status:       uint8(c.Status),
		AccessCount:  c.AccessCount,
		TotalRevenue: amountOrZero(c.TotalRevenue),
		CreatedAt:    timestamp(c.CreatedAt),
		UpdatedAt:    timestamp(c.UpdatedAt),
	})
}

// CatalogNextID reserves the next content id.
func (m *Manager) CatalogNextID() (uint64, error) {
	return m.nextID(contentLastIDKey)
}

// CatalogLastID returns the highest assigned content id.
func (m *Manager) CatalogLastID() (uint64, error) {
	return m.loadCounter(contentLastIDKey)
}

// CatalogFingerprintGet resolves the content id claiming fp.
func (m *Manager) CatalogFingerprintGet(fp string) (uint64, bool, error) {
	var id uint64
	ok, err := m.KVGet(fingerprintKey(fp), &id)
	if err != nil {
		return 0, false, err
	}
	return id, ok, nil
}

// CatalogFingerprintPut claims fp for content id.
func (m *Manager) CatalogFingerprintPut(fp string, id uint64) error {
	return m.KVPut(fingerprintKey(fp), id)
}

// CatalogCreatorContents lists a creator's content ids in registration order.
func (m *Manager) CatalogCreatorContents(creator [20]byte) ([]uint64, error) {
	var ids []uint64
	if err := m.KVGetList(addressKey(creatorContentsPrefix, creator), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// CatalogCreatorContentAppend adds id to the creator's content index.
func (m *Manager) CatalogCreatorContentAppend(creator [20]byte, id uint64) error {
	ids, err := m.CatalogCreatorContents(creator)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return m.KVPut(addressKey(creatorContentsPrefix, creator), append(ids, id))
}
