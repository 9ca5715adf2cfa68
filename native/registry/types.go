package registry

import (
	"math/big"
	"strings"
	"unicode/utf8"

	"agentpay/native/common"
)

// MaxNameLength bounds creator and agent display names, in characters.
const MaxNameLength = 64

const (
	// NamespaceCreator scopes creator display names.
	NamespaceCreator = "creator"
	// NamespaceAgent scopes agent names.
	NamespaceAgent = "agent"
)

// Creator is a registered content owner. Records are never deleted.
type Creator struct {
	Address      [20]byte
	Name         string
	RegisteredAt int64
	ContentCount uint64
	TotalRevenue *big.Int
	Status       common.Status
}

// Active reports whether the creator may publish.
func (c *Creator) Active() bool { return c != nil && c.Status == common.StatusActive }

// Clone returns a deep copy of the creator.
func (c *Creator) Clone() *Creator {
	if c == nil {
		return nil
	}
	out := *c
	out.TotalRevenue = cloneAmount(c.TotalRevenue)
	return &out
}

// Agent is a registered autonomous agent. Each wallet owns at most one.
type Agent struct {
	Address           [20]byte
	Name              string
	Description       string
	Capabilities      string
	AccessCount       uint64
	TotalSpent        *big.Int
	RegisteredAt      int64
	LastActiveAt      int64
	CampaignsExecuted uint64
	Status            common.Status
	CustodyID         uint64
}

// Active reports whether the agent may transact.
func (a *Agent) Active() bool { return a != nil && a.Status == common.StatusActive }

// Clone returns a deep copy of the agent.
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	out := *a
	out.TotalSpent = cloneAmount(a.TotalSpent)
	return &out
}

// AgentUpdate carries optional agent field changes. Empty fields are left
// untouched.
type AgentUpdate struct {
	Name         string
	Description  string
	Capabilities string
}

// NormalizeName trims surrounding whitespace from a display name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

func validName(name string) bool {
	return name != "" && utf8.RuneCountInString(name) <= MaxNameLength
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
