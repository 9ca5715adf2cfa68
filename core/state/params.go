package state

import (
	"fmt"
	"math/big"
	"strings"

	"agentpay/native/fees"
)

// ParamStoreSet stores a raw parameter value.
func (m *Manager) ParamStoreSet(name string, value []byte) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("params: name must not be empty")
	}
	return m.KVPut(ParamStoreKey(name), value)
}

// ParamStoreGet loads a raw parameter value.
func (m *Manager) ParamStoreGet(name string) ([]byte, bool, error) {
	if strings.TrimSpace(name) == "" {
		return nil, false, fmt.Errorf("params: name must not be empty")
	}
	var value []byte
	ok, err := m.KVGet(ParamStoreKey(name), &value)
	if err != nil {
		return nil, false, err
	}
	return value, ok, nil
}

type storedFeeTotals struct {
	Domain string
	Wallet [20]byte
	Gross  *big.Int
	Fee    *big.Int
	Net    *big.Int
}

// FeeTotalsGet loads the cumulative platform fee totals for domain.
func (m *Manager) FeeTotalsGet(domain string) (*fees.Totals, bool, error) {
	stored := new(storedFeeTotals)
	ok, err := m.KVGet(feeTotalsKey(domain), stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &fees.Totals{
		Domain: stored.Domain,
		Wallet: stored.Wallet,
		Gross:  amountOrZero(stored.Gross),
		Fee:    amountOrZero(stored.Fee),
		Net:    amountOrZero(stored.Net),
	}, true, nil
}

// FeeTotalsPut stores cumulative platform fee totals.
func (m *Manager) FeeTotalsPut(totals *fees.Totals) error {
	if totals == nil {
		return fmt.Errorf("fees: nil totals")
	}
	domain := fees.NormalizeDomain(totals.Domain)
	if domain == "" {
		return fmt.Errorf("fees: domain must not be empty")
	}
	return m.KVPut(feeTotalsKey(domain), &storedFeeTotals{
		Domain: domain,
		Wallet: totals.Wallet,
		Gross:  amountOrZero(totals.Gross),
		Fee:    amountOrZero(totals.Fee),
		Net:    amountOrZero(totals.Net),
	})
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func timestamp(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
