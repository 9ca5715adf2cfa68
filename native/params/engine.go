package params

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"agentpay/core/events"
	"agentpay/native/common"
	"agentpay/native/fees"
)

var errNilState = errors.New("params engine: state not configured")

// PriceGuard is consulted before new price bounds are stored. It returns an
// error when existing content would fall outside [min, max].
type PriceGuard func(min, max *big.Int) error

// Engine applies administrator-only parameter changes.
type Engine struct {
	store      *Store
	emitter    events.Emitter
	priceGuard PriceGuard
}

// NewEngine constructs a parameter engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state StoreState) { e.store = NewStore(state) }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPriceGuard installs the check run before price bounds change.
func (e *Engine) SetPriceGuard(guard PriceGuard) { e.priceGuard = guard }

// Params returns the stored parameters.
func (e *Engine) Params() (Params, error) {
	if e.store == nil {
		return Params{}, errNilState
	}
	return e.store.Params()
}

// Pauses returns the stored pause configuration.
func (e *Engine) Pauses() (Pauses, error) {
	if e.store == nil {
		return Pauses{}, errNilState
	}
	return e.store.Pauses()
}

// IsPaused implements common.PauseView.
func (e *Engine) IsPaused(module string) bool {
	if e.store == nil {
		return false
	}
	return e.store.IsPaused(module)
}

func (e *Engine) authorize(caller [20]byte) (Params, error) {
	current, err := e.Params()
	if err != nil {
		return Params{}, err
	}
	if caller != current.Admin {
		return Params{}, fmt.Errorf("params: caller is not the administrator: %w", common.ErrUnauthorized)
	}
	return current.Clone(), nil
}

func (e *Engine) update(caller [20]byte, field string, value string, mutate func(*Params) error) error {
	next, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if err := mutate(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	if err := e.store.SetParams(next); err != nil {
		return err
	}
	e.emitter.Emit(events.Wrap(paramsUpdatedEvent(caller, field, value)))
	return nil
}

// SetPlatformFee updates the platform fee rate, interpreted under the current
// fee mode.
func (e *Engine) SetPlatformFee(caller [20]byte, rate uint64) error {
	return e.update(caller, "platformFee", events.FormatUint(rate), func(p *Params) error {
		if err := fees.Validate(rate, p.FeeMode); err != nil {
			return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
		}
		p.PlatformFee = rate
		return nil
	})
}

// SetFeeMode switches between basis-point and percentage-point fees. The
// current rate must remain within the cap of the new mode.
func (e *Engine) SetFeeMode(caller [20]byte, mode fees.Mode) error {
	return e.update(caller, "feeMode", mode.String(), func(p *Params) error {
		if mode != fees.ModeBps && mode != fees.ModePercent {
			return fmt.Errorf("%w: unknown fee mode", common.ErrInvalidInput)
		}
		if err := fees.Validate(p.PlatformFee, mode); err != nil {
			return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
		}
		p.FeeMode = mode
		return nil
	})
}

// SetRegistrationFee updates the agent registration fee.
func (e *Engine) SetRegistrationFee(caller [20]byte, amount *big.Int) error {
	return e.update(caller, "registrationFee", events.FormatAmount(amount), func(p *Params) error {
		if amount == nil || amount.Sign() < 0 {
			return fmt.Errorf("%w: registration fee must not be negative", common.ErrInvalidInput)
		}
		p.RegistrationFee = new(big.Int).Set(amount)
		return nil
	})
}

// SetPriceBounds updates the permitted content price range. Bounds that
// would leave existing content outside the range are rejected.
func (e *Engine) SetPriceBounds(caller [20]byte, min, max *big.Int) error {
	value := events.FormatAmount(min) + "-" + events.FormatAmount(max)
	return e.update(caller, "priceBounds", value, func(p *Params) error {
		if min == nil || max == nil || min.Sign() <= 0 || min.Cmp(max) > 0 {
			return fmt.Errorf("%w: price bounds must satisfy 0 < min <= max", common.ErrInvalidInput)
		}
		if e.priceGuard != nil {
			if err := e.priceGuard(min, max); err != nil {
				return err
			}
		}
		p.MinPrice = new(big.Int).Set(min)
		p.MaxPrice = new(big.Int).Set(max)
		return nil
	})
}

// SetCampaignBasePrice updates the minimum payment to open a campaign.
func (e *Engine) SetCampaignBasePrice(caller [20]byte, amount *big.Int) error {
	return e.update(caller, "campaignBasePrice", events.FormatAmount(amount), func(p *Params) error {
		if amount == nil || amount.Sign() < 0 {
			return fmt.Errorf("%w: campaign base price must not be negative", common.ErrInvalidInput)
		}
		p.CampaignBasePrice = new(big.Int).Set(amount)
		return nil
	})
}

// SetPerformanceFee updates the campaign bonus rate in basis points.
func (e *Engine) SetPerformanceFee(caller [20]byte, bps uint64) error {
	return e.update(caller, "performanceFeeBps", events.FormatUint(bps), func(p *Params) error {
		if bps > maxPerformanceFeeBps {
			return fmt.Errorf("%w: performance fee above %d bps", common.ErrInvalidInput, maxPerformanceFeeBps)
		}
		p.PerformanceFeeBps = bps
		return nil
	})
}

// SetOperator changes the platform operator that receives fees.
func (e *Engine) SetOperator(caller [20]byte, operator [20]byte) error {
	return e.update(caller, "operator", events.FormatAddress(operator), func(p *Params) error {
		if operator == ([20]byte{}) {
			return fmt.Errorf("%w: operator address required", common.ErrInvalidInput)
		}
		p.Operator = operator
		return nil
	})
}

// SetCampaignAgent changes the wallet allowed to execute campaigns.
func (e *Engine) SetCampaignAgent(caller [20]byte, agent [20]byte) error {
	return e.update(caller, "campaignAgent", events.FormatAddress(agent), func(p *Params) error {
		p.CampaignAgent = agent
		return nil
	})
}

// TransferAdmin hands administrator rights to a new identity.
func (e *Engine) TransferAdmin(caller [20]byte, admin [20]byte) error {
	return e.update(caller, "admin", events.FormatAddress(admin), func(p *Params) error {
		if admin == ([20]byte{}) {
			return fmt.Errorf("%w: admin address required", common.ErrInvalidInput)
		}
		p.Admin = admin
		return nil
	})
}

// SetPauses replaces the set of paused modules.
func (e *Engine) SetPauses(caller [20]byte, modules []string) error {
	if _, err := e.authorize(caller); err != nil {
		return err
	}
	pauses, err := PausesFromModules(modules)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	if err := e.store.SetPauses(pauses); err != nil {
		return err
	}
	e.emitter.Emit(events.Wrap(paramsUpdatedEvent(caller, "pauses", strings.Join(pauses.Modules(), ","))))
	return nil
}
