package fees

import "math/big"

// TotalsState persists the cumulative platform fee accounting per domain.
type TotalsState interface {
	FeeTotalsGet(domain string) (*Totals, bool, error)
	FeeTotalsPut(totals *Totals) error
}

// Record folds split into the running totals for domain and stamps the wallet
// the fee was routed to.
func Record(state TotalsState, domain string, wallet [20]byte, split Split) error {
	normalized := NormalizeDomain(domain)
	current, ok, err := state.FeeTotalsGet(normalized)
	if err != nil {
		return err
	}
	base := Totals{Domain: normalized, Gross: big.NewInt(0), Fee: big.NewInt(0), Net: big.NewInt(0)}
	if ok && current != nil {
		base = current.Clone()
		base.Domain = normalized
	}
	next := base.Add(split)
	next.Wallet = wallet
	return state.FeeTotalsPut(&next)
}
