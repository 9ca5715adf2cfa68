package access

import "math/big"

// Grant records what an agent has paid to access one content item.
type Grant struct {
	Agent        [20]byte
	ContentID    uint64
	AccessCount  uint64
	TotalPaid    *big.Int
	LastTag      string
	LastAccessAt int64
}

// Clone returns a deep copy of the grant.
func (g *Grant) Clone() *Grant {
	if g == nil {
		return nil
	}
	out := *g
	if g.TotalPaid != nil {
		out.TotalPaid = new(big.Int).Set(g.TotalPaid)
	} else {
		out.TotalPaid = big.NewInt(0)
	}
	return &out
}

// Settlement is the outcome of a paid access.
type Settlement struct {
	ContentID      uint64
	Agent          [20]byte
	Creator        [20]byte
	AgentTag       string
	Payment        *big.Int
	PlatformFee    *big.Int
	CreatorPayment *big.Int
	AccessCount    uint64
}
