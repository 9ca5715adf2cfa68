package types

import "strings"

// Event is a committed ledger event. Type is dotted, module first
// (e.g. "access.content.accessed"); amounts in Attributes are decimal strings
// and identities are bech32 addresses.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Module returns the leading segment of the event type.
func (e *Event) Module() string {
	if e == nil {
		return ""
	}
	module, _, _ := strings.Cut(e.Type, ".")
	return module
}
