package core

import (
	"fmt"
	"math/big"
	"strings"

	"agentpay/core/types"
	nativecommon "agentpay/native/common"
	"agentpay/native/fees"
)

// Read queries never take the reentrancy guard. During an outbound call they
// observe the uncommitted state of the call in flight.

// Account returns the nonce and native balance of addr.
func (l *Ledger) Account(addr [20]byte) (*types.Account, error) {
	return l.state.GetAccount(addr[:])
}

// Balance returns the native balance of addr.
func (l *Ledger) Balance(addr [20]byte) (*big.Int, error) {
	return l.Bank.Balance(addr)
}

// Nonce returns the next expected transaction nonce of addr.
func (l *Ledger) Nonce(addr [20]byte) (uint64, error) {
	account, err := l.state.GetAccount(addr[:])
	if err != nil {
		return 0, err
	}
	return account.Nonce, nil
}

// FeeTotals returns the cumulative platform fee accounting of a fee domain.
// Domains without settlements report zero totals.
func (l *Ledger) FeeTotals(domain string) (*fees.Totals, error) {
	normalized := fees.NormalizeDomain(domain)
	switch normalized {
	case fees.DomainAccess, fees.DomainRegistration, fees.DomainCampaign:
	default:
		return nil, fmt.Errorf("fees: unknown domain %q: %w", strings.TrimSpace(domain), nativecommon.ErrInvalidInput)
	}
	totals, ok, err := l.state.FeeTotalsGet(normalized)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &fees.Totals{Domain: normalized, Gross: big.NewInt(0), Fee: big.NewInt(0), Net: big.NewInt(0)}, nil
	}
	return totals, nil
}
