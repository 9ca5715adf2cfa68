package params

import (
	"fmt"
	"math/big"
	"strings"

	"agentpay/native/fees"
)

const maxPerformanceFeeBps = fees.BpsDenominator

// Params holds the administrator-controlled ledger configuration. Changes
// only affect operations executed after they are stored.
type Params struct {
	Admin             [20]byte  `json:"admin"`
	Operator          [20]byte  `json:"operator"`
	CampaignAgent     [20]byte  `json:"campaignAgent"`
	PlatformFee       uint64    `json:"platformFee"`
	FeeMode           fees.Mode `json:"feeMode"`
	RegistrationFee   *big.Int  `json:"registrationFee"`
	MinPrice          *big.Int  `json:"minPrice"`
	MaxPrice          *big.Int  `json:"maxPrice"`
	CampaignBasePrice *big.Int  `json:"campaignBasePrice"`
	PerformanceFeeBps uint64    `json:"performanceFeeBps"`
}

// Default returns the parameters used when genesis leaves a field unset:
// 5% platform fee, 0.01 unit registration fee, content priced between 0.001
// and 100 units, 0.1 unit campaign base price and a 5% performance bonus.
func Default() Params {
	return Params{
		PlatformFee:       500,
		FeeMode:           fees.ModeBps,
		RegistrationFee:   units(1, 16),
		MinPrice:          units(1, 15),
		MaxPrice:          units(1, 20),
		CampaignBasePrice: units(1, 17),
		PerformanceFeeBps: 500,
	}
}

func units(mantissa int64, exp int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
	return scale.Mul(scale, big.NewInt(mantissa))
}

// Clone returns a deep copy of the parameters.
func (p Params) Clone() Params {
	out := p
	out.RegistrationFee = cloneBig(p.RegistrationFee)
	out.MinPrice = cloneBig(p.MinPrice)
	out.MaxPrice = cloneBig(p.MaxPrice)
	out.CampaignBasePrice = cloneBig(p.CampaignBasePrice)
	return out
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Validate enforces the bounds every stored parameter set must respect.
func (p Params) Validate() error {
	if err := fees.Validate(p.PlatformFee, p.FeeMode); err != nil {
		return err
	}
	if p.PerformanceFeeBps > maxPerformanceFeeBps {
		return fmt.Errorf("params: performance fee %d exceeds %d bps", p.PerformanceFeeBps, maxPerformanceFeeBps)
	}
	if p.MinPrice == nil || p.MinPrice.Sign() <= 0 {
		return fmt.Errorf("params: min price must be positive")
	}
	if p.MaxPrice == nil || p.MaxPrice.Cmp(p.MinPrice) < 0 {
		return fmt.Errorf("params: max price must be at least min price")
	}
	for name, v := range map[string]*big.Int{
		"registration fee":    p.RegistrationFee,
		"campaign base price": p.CampaignBasePrice,
	} {
		if v != nil && v.Sign() < 0 {
			return fmt.Errorf("params: %s must not be negative", name)
		}
	}
	return nil
}

// InPriceBounds reports whether price lies in [MinPrice, MaxPrice].
func (p Params) InPriceBounds(price *big.Int) bool {
	if price == nil {
		return false
	}
	return price.Cmp(p.MinPrice) >= 0 && price.Cmp(p.MaxPrice) <= 0
}

// Pauses toggles individual modules. A paused module rejects its mutating
// entry points while queries keep working.
type Pauses struct {
	Bank     bool `json:"bank" toml:"bank"`
	Registry bool `json:"registry" toml:"registry"`
	Catalog  bool `json:"catalog" toml:"catalog"`
	Access   bool `json:"access" toml:"access"`
	Custody  bool `json:"custody" toml:"custody"`
	Campaign bool `json:"campaign" toml:"campaign"`
}

// IsPaused implements common.PauseView.
func (p Pauses) IsPaused(module string) bool {
	switch strings.ToLower(strings.TrimSpace(module)) {
	case ModuleBank:
		return p.Bank
	case ModuleRegistry:
		return p.Registry
	case ModuleCatalog:
		return p.Catalog
	case ModuleAccess:
		return p.Access
	case ModuleCustody:
		return p.Custody
	case ModuleCampaign:
		return p.Campaign
	default:
		return false
	}
}

// Modules lists the names of every paused module.
func (p Pauses) Modules() []string {
	var out []string
	for _, name := range []string{ModuleBank, ModuleRegistry, ModuleCatalog, ModuleAccess, ModuleCustody, ModuleCampaign} {
		if p.IsPaused(name) {
			out = append(out, name)
		}
	}
	return out
}

// PausesFromModules builds a pause configuration from a list of module names.
func PausesFromModules(modules []string) (Pauses, error) {
	var out Pauses
	for _, m := range modules {
		switch strings.ToLower(strings.TrimSpace(m)) {
		case ModuleBank:
			out.Bank = true
		case ModuleRegistry:
			out.Registry = true
		case ModuleCatalog:
			out.Catalog = true
		case ModuleAccess:
			out.Access = true
		case ModuleCustody:
			out.Custody = true
		case ModuleCampaign:
			out.Campaign = true
		default:
			return Pauses{}, fmt.Errorf("params: unknown module %q", m)
		}
	}
	return out, nil
}
