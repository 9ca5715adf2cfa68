package custody

import "math/big"

// Account holds the funds an agent wallet has placed under ledger custody.
type Account struct {
	ID           uint64
	Owner        [20]byte
	Balance      *big.Int
	TxCount      uint64
	TxVolume     *big.Int
	Deposited    *big.Int
	Withdrawn    *big.Int
	CreatedAt    int64
	LastActiveAt int64
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.Balance = cloneAmount(a.Balance)
	out.TxVolume = cloneAmount(a.TxVolume)
	out.Deposited = cloneAmount(a.Deposited)
	out.Withdrawn = cloneAmount(a.Withdrawn)
	return &out
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
