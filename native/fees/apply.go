package fees

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// DomainAccess covers pay-per-access settlements.
	DomainAccess = "access"
	// DomainRegistration covers agent registration fees.
	DomainRegistration = "registration"
	// DomainCampaign covers campaign payments retained in the campaign vault.
	DomainCampaign = "campaign"
)

const (
	// MaxPlatformFeeBps caps the platform fee at 20% in basis points.
	MaxPlatformFeeBps = 2_000
	// MaxPlatformFeePercent caps the platform fee at 20% in percentage points.
	MaxPlatformFeePercent = 20
	// BpsDenominator is the basis point scale.
	BpsDenominator = 10_000
	// PercentDenominator is the percentage point scale.
	PercentDenominator = 100
)

var ErrFeeTooHigh = errors.New("fees: platform fee above cap")

// Mode selects the unit in which the platform fee rate is expressed.
type Mode uint8

const (
	// ModeBps interprets the rate as basis points (1/10000).
	ModeBps Mode = iota
	// ModePercent interprets the rate as whole percentage points (1/100).
	ModePercent
)

func (m Mode) String() string {
	switch m {
	case ModePercent:
		return "percent"
	default:
		return "bps"
	}
}

// Denominator returns the scale that the rate is divided by.
func (m Mode) Denominator() int64 {
	if m == ModePercent {
		return PercentDenominator
	}
	return BpsDenominator
}

// Cap returns the highest permitted rate for the mode.
func (m Mode) Cap() uint64 {
	if m == ModePercent {
		return MaxPlatformFeePercent
	}
	return MaxPlatformFeeBps
}

// ParseMode resolves a textual fee mode.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "bps", "basis_points", "basispoints":
		return ModeBps, nil
	case "percent", "pct", "percentage":
		return ModePercent, nil
	default:
		return ModeBps, fmt.Errorf("fees: unknown fee mode %q", raw)
	}
}

// Validate ensures the rate respects the cap for the mode.
func Validate(rate uint64, mode Mode) error {
	if rate > mode.Cap() {
		return fmt.Errorf("%w: %d %s exceeds %d", ErrFeeTooHigh, rate, mode, mode.Cap())
	}
	return nil
}

// NormalizeDomain canonicalises domain identifiers for consistent lookups.
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// Split is the result of dividing a gross payment between the platform and
// the recipient. Fee + Net always equals Gross.
type Split struct {
	Gross *big.Int
	Fee   *big.Int
	Net   *big.Int
}

// Apply divides gross by the configured rate. The fee is truncated toward
// zero and the remainder goes to the recipient.
func Apply(gross *big.Int, rate uint64, mode Mode) Split {
	split := Split{Gross: big.NewInt(0), Fee: big.NewInt(0), Net: big.NewInt(0)}
	if gross == nil || gross.Sign() <= 0 {
		return split
	}
	split.Gross = new(big.Int).Set(gross)
	split.Net = new(big.Int).Set(gross)
	if rate == 0 {
		return split
	}
	fee := new(big.Int).Mul(gross, new(big.Int).SetUint64(rate))
	fee.Quo(fee, big.NewInt(mode.Denominator()))
	if fee.Cmp(gross) >= 0 {
		split.Fee = new(big.Int).Set(gross)
		split.Net = big.NewInt(0)
		return split
	}
	split.Fee = fee
	split.Net = new(big.Int).Sub(gross, fee)
	return split
}

// Bonus computes amount * bps / 10000, truncated.
func Bonus(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return out.Quo(out, big.NewInt(BpsDenominator))
}

// Totals aggregates fee accounting metrics per domain and wallet.
type Totals struct {
	Domain string
	Wallet [20]byte
	Gross  *big.Int
	Fee    *big.Int
	Net    *big.Int
}

// Clone returns a copy of the totals structure with duplicated big.Int values.
func (t Totals) Clone() Totals {
	clone := Totals{Domain: t.Domain, Wallet: t.Wallet}
	if t.Gross != nil {
		clone.Gross = new(big.Int).Set(t.Gross)
	}
	if t.Fee != nil {
		clone.Fee = new(big.Int).Set(t.Fee)
	}
	if t.Net != nil {
		clone.Net = new(big.Int).Set(t.Net)
	}
	return clone
}

// Add accumulates a split into the totals and returns the updated copy.
func (t Totals) Add(split Split) Totals {
	out := t.Clone()
	out.Gross = addOrZero(out.Gross, split.Gross)
	out.Fee = addOrZero(out.Fee, split.Fee)
	out.Net = addOrZero(out.Net, split.Net)
	return out
}

func addOrZero(a, b *big.Int) *big.Int {
	sum := big.NewInt(0)
	if a != nil {
		sum.Add(sum, a)
	}
	if b != nil {
		sum.Add(sum, b)
	}
	return sum
}
