package types

import "math/big"

// Account is the externally visible view of a ledger account.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}
