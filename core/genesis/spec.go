// core/genesis/spec.go
package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"agentpay/crypto"
	"agentpay/native/fees"
	"agentpay/native/params"
)

// GenesisSpec describes the initial ledger state. It can be loaded from a
// JSON file or embedded in the node's TOML configuration.
type GenesisSpec struct {
	Admin         string            `json:"admin" toml:"Admin"`
	Operator      string            `json:"operator" toml:"Operator"`
	CampaignAgent string            `json:"campaignAgent,omitempty" toml:"CampaignAgent"`
	Params        *ParamsSpec       `json:"params,omitempty" toml:"Params"`
	Paused        []string          `json:"paused,omitempty" toml:"Paused"`
	Alloc         map[string]string `json:"alloc,omitempty" toml:"Alloc"` // addr -> amount

	params params.Params
	pauses params.Pauses
	alloc  []Allocation
}

// ParamsSpec overrides individual defaults. Unset fields keep params.Default.
type ParamsSpec struct {
	PlatformFee       *uint64 `json:"platformFee,omitempty" toml:"PlatformFee"`
	FeeMode           string  `json:"feeMode,omitempty" toml:"FeeMode"`
	RegistrationFee   string  `json:"registrationFee,omitempty" toml:"RegistrationFee"`
	MinPrice          string  `json:"minPrice,omitempty" toml:"MinPrice"`
	MaxPrice          string  `json:"maxPrice,omitempty" toml:"MaxPrice"`
	CampaignBasePrice string  `json:"campaignBasePrice,omitempty" toml:"CampaignBasePrice"`
	PerformanceFeeBps *uint64 `json:"performanceFeeBps,omitempty" toml:"PerformanceFeeBps"`
}

// Allocation is a genesis balance credited to an account.
type Allocation struct {
	Address [20]byte
	Amount  *big.Int
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	var spec GenesisSpec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis spec %q: %w", path, err)
	}
	return &spec, nil
}

// Validate parses every field and caches the resolved parameters,
// pauses and allocations.
func (s *GenesisSpec) Validate() error {
	if s == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	resolved := params.Default()

	admin, err := crypto.ParseAddress(s.Admin)
	if err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	if admin == ([20]byte{}) {
		return fmt.Errorf("admin must not be the zero address")
	}
	resolved.Admin = admin

	resolved.Operator = admin
	if strings.TrimSpace(s.Operator) != "" {
		if resolved.Operator, err = crypto.ParseAddress(s.Operator); err != nil {
			return fmt.Errorf("operator: %w", err)
		}
	}
	if strings.TrimSpace(s.CampaignAgent) != "" {
		if resolved.CampaignAgent, err = crypto.ParseAddress(s.CampaignAgent); err != nil {
			return fmt.Errorf("campaignAgent: %w", err)
		}
	}
	if err := s.Params.apply(&resolved); err != nil {
		return err
	}
	if err := resolved.Validate(); err != nil {
		return err
	}

	pauses, err := params.PausesFromModules(s.Paused)
	if err != nil {
		return fmt.Errorf("paused: %w", err)
	}

	alloc := make([]Allocation, 0, len(s.Alloc))
	for rawAddr, rawAmount := range s.Alloc {
		addr, err := crypto.ParseAddress(rawAddr)
		if err != nil {
			return fmt.Errorf("alloc %q: %w", rawAddr, err)
		}
		amount, err := parseAmountString(rawAmount)
		if err != nil {
			return fmt.Errorf("alloc %q: %w", rawAddr, err)
		}
		alloc = append(alloc, Allocation{Address: addr, Amount: amount})
	}
	sort.Slice(alloc, func(i, j int) bool {
		return bytes.Compare(alloc[i].Address[:], alloc[j].Address[:]) < 0
	})
	for i := 1; i < len(alloc); i++ {
		if alloc[i].Address == alloc[i-1].Address {
			return fmt.Errorf("alloc: duplicate address %s", crypto.FormatAddress(alloc[i].Address))
		}
	}

	s.params = resolved
	s.pauses = pauses
	s.alloc = alloc
	return nil
}

// ResolvedParams returns the parameters computed by Validate.
func (s *GenesisSpec) ResolvedParams() params.Params { return s.params.Clone() }

// ResolvedPauses returns the pause configuration computed by Validate.
func (s *GenesisSpec) ResolvedPauses() params.Pauses { return s.pauses }

// Allocations returns the genesis balances sorted by address.
func (s *GenesisSpec) Allocations() []Allocation {
	out := make([]Allocation, len(s.alloc))
	for i, a := range s.alloc {
		out[i] = Allocation{Address: a.Address, Amount: new(big.Int).Set(a.Amount)}
	}
	return out
}

func (p *ParamsSpec) apply(dst *params.Params) error {
	if p == nil {
		return nil
	}
	if p.FeeMode != "" {
		mode, err := fees.ParseMode(p.FeeMode)
		if err != nil {
			return fmt.Errorf("params.feeMode: %w", err)
		}
		dst.FeeMode = mode
	}
	if p.PlatformFee != nil {
		dst.PlatformFee = *p.PlatformFee
	}
	if p.PerformanceFeeBps != nil {
		dst.PerformanceFeeBps = *p.PerformanceFeeBps
	}
	for _, field := range []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"registrationFee", p.RegistrationFee, &dst.RegistrationFee},
		{"minPrice", p.MinPrice, &dst.MinPrice},
		{"maxPrice", p.MaxPrice, &dst.MaxPrice},
		{"campaignBasePrice", p.CampaignBasePrice, &dst.CampaignBasePrice},
	} {
		if strings.TrimSpace(field.raw) == "" {
			continue
		}
		amount, err := parseAmountString(field.raw)
		if err != nil {
			return fmt.Errorf("params.%s: %w", field.name, err)
		}
		*field.dst = amount
	}
	return nil
}

func parseAmountString(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount must not be empty")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}
