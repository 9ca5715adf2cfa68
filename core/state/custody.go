package state

import (
	"fmt"
	"math/big"

	"agentpay/native/custody"
)

type storedCustodyAccount struct {
	ID           uint64
	Owner        [20]byte
	Balance      *big.Int
	TxCount      uint64
	TxVolume     *big.Int
	Deposited    *big.Int
	Withdrawn    *big.Int
	CreatedAt    uint64
	LastActiveAt uint64
}

// CustodyAccountGet loads a custody account by id.
func (m *Manager) CustodyAccountGet(id uint64) (*custody.Account, bool, error) {
	stored := new(storedCustodyAccount)
	ok, err := m.KVGet(idKey(custodyPrefix, id), stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &custody.Account{
		ID:           stored.ID,
		Owner:        stored.Owner,
		Balance:      amountOrZero(stored.Balance),
		TxCount:      stored.TxCount,
		TxVolume:     amountOrZero(stored.TxVolume),
		Deposited:    amountOrZero(stored.Deposited),
		Withdrawn:    amountOrZero(stored.Withdrawn),
		CreatedAt:    int64(stored.CreatedAt),
		LastActiveAt: int64(stored.LastActiveAt),
	}, true, nil
}

// CustodyAccountPut stores a custody account. Negative balances are
// rejected.
func (m *Manager) CustodyAccountPut(a *custody.Account) error {
	if a == nil {
		return fmt.Errorf("custody: nil account")
	}
	if a.ID == 0 {
		return fmt.Errorf("custody: account id must be assigned")
	}
	if a.Balance != nil && a.Balance.Sign() < 0 {
		return fmt.Errorf("custody: negative balance for account %d", a.ID)
	}
	return m.KVPut(idKey(custodyPrefix, a.ID), &storedCustodyAccount{
		ID:           a.ID,
		Owner:        a.Owner,
		Balance:      amountOrZero(a.Balance),
		TxCount:      a.TxCount,
		TxVolume:     amountOrZero(a.TxVolume),
		Deposited:    amountOrZero(a.Deposited),
		Withdrawn:    amountOrZero(a.Withdrawn),
		CreatedAt:    timestamp(a.CreatedAt),
		LastActiveAt: timestamp(a.LastActiveAt),
	})
}

// CustodyNextID reserves the next custody account id.
func (m *Manager) CustodyNextID() (uint64, error) {
	return m.nextID(custodyLastIDKey)
}

// CustodyOwnerGet resolves the custody account bound to owner.
func (m *Manager) CustodyOwnerGet(owner [20]byte) (uint64, bool, error) {
	var id uint64
	ok, err := m.KVGet(addressKey(custodyOwnerPrefix, owner), &id)
	if err != nil {
		return 0, false, err
	}
	return id, ok, nil
}

// CustodyOwnerPut binds owner to custody account id.
func (m *Manager) CustodyOwnerPut(owner [20]byte, id uint64) error {
	return m.KVPut(addressKey(custodyOwnerPrefix, owner), id)
}
