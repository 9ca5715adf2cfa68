package campaign

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"agentpay/core/events"
	"agentpay/native/common"
	"agentpay/native/fees"
	"agentpay/native/params"
	"agentpay/native/registry"
)

var (
	errNilState    = errors.New("campaign engine: state not configured")
	errNilParams   = errors.New("campaign engine: params not configured")
	errNilBank     = errors.New("campaign engine: bank not configured")
	errVaultNotSet = errors.New("campaign engine: vault not configured")
)

type engineState interface {
	CampaignGet(id uint64) (*Campaign, bool, error)
	CampaignPut(campaign *Campaign) error
	CampaignNextID() (uint64, error)
	CampaignStatsGet() (*Stats, error)
	CampaignStatsPut(stats *Stats) error
	RegistryAgentGet(addr [20]byte) (*registry.Agent, bool, error)
	RegistryAgentPut(agent *registry.Agent) error
	fees.TotalsState
}

type paramsSource interface {
	Params() (params.Params, error)
}

type bank interface {
	Balance(addr [20]byte) (*big.Int, error)
	Transfer(from, to [20]byte, amount *big.Int) error
}

// Engine settles budgeted campaigns and their performance bonus.
type Engine struct {
	state   engineState
	params  paramsSource
	bank    bank
	vault   [20]byte
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a campaign engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetParams configures the parameter source.
func (e *Engine) SetParams(p paramsSource) { e.params = p }

// SetBank configures the balance source and mover used for bonuses.
func (e *Engine) SetBank(b bank) { e.bank = b }

// SetVault configures the module account holding campaign payments.
func (e *Engine) SetVault(vault [20]byte) { e.vault = vault }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) ready() (params.Params, error) {
	if e.state == nil {
		return params.Params{}, errNilState
	}
	if e.params == nil {
		return params.Params{}, errNilParams
	}
	if e.bank == nil {
		return params.Params{}, errNilBank
	}
	if e.vault == ([20]byte{}) {
		return params.Params{}, errVaultNotSet
	}
	return e.params.Params()
}

// Create opens a campaign for the caller. payment is the attached value
// already held by the campaign vault; it stays there to back bonuses.
func (e *Engine) Create(caller [20]byte, campaignType string, budget, payment *big.Int) (*Campaign, error) {
	cfg, err := e.ready()
	if err != nil {
		return nil, err
	}
	if payment == nil {
		payment = big.NewInt(0)
	}
	if payment.Cmp(cfg.CampaignBasePrice) < 0 {
		return nil, fmt.Errorf("campaign: payment %s below base price %s: %w", payment, cfg.CampaignBasePrice, common.ErrInsufficientPayment)
	}
	if budget == nil || budget.Sign() <= 0 {
		return nil, fmt.Errorf("campaign: budget must be positive: %w", common.ErrInvalidBudget)
	}
	id, err := e.state.CampaignNextID()
	if err != nil {
		return nil, err
	}
	campaign := &Campaign{
		ID:        id,
		Client:    caller,
		Type:      campaignType,
		Budget:    new(big.Int).Set(budget),
		Payment:   new(big.Int).Set(payment),
		Spent:     big.NewInt(0),
		Status:    StatusActive,
		CreatedAt: e.nowFn(),
		Bonus:     big.NewInt(0),
	}
	if err := e.state.CampaignPut(campaign); err != nil {
		return nil, err
	}
	stats, err := e.state.CampaignStatsGet()
	if err != nil {
		return nil, err
	}
	stats.TotalCampaigns++
	if err := e.state.CampaignStatsPut(stats); err != nil {
		return nil, err
	}
	retained := fees.Split{Gross: payment, Fee: big.NewInt(0), Net: payment}
	if err := fees.Record(e.state, fees.DomainCampaign, e.vault, retained); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(campaignCreatedEvent(campaign)))
	return campaign.Clone(), nil
}

func (e *Engine) load(id uint64) (*Campaign, error) {
	campaign, ok, err := e.state.CampaignGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("campaign: %d: %w", id, common.ErrNotFound)
	}
	return campaign, nil
}

// operatingAgent returns the configured campaign agent when caller is that
// wallet and it is registered and active.
func (e *Engine) operatingAgent(caller [20]byte, cfg params.Params) (*registry.Agent, bool, error) {
	if cfg.CampaignAgent == ([20]byte{}) || caller != cfg.CampaignAgent {
		return nil, false, nil
	}
	agent, ok, err := e.state.RegistryAgentGet(caller)
	if err != nil {
		return nil, false, err
	}
	if !ok || !agent.Active() {
		return nil, false, nil
	}
	return agent, true, nil
}

// Execute reports progress on a campaign. Only the campaign agent or the
// administrator may call it.
func (e *Engine) Execute(caller [20]byte, id uint64, spent *big.Int, performanceBps uint64) (*Campaign, error) {
	cfg, err := e.ready()
	if err != nil {
		return nil, err
	}
	campaign, err := e.load(id)
	if err != nil {
		return nil, err
	}
	agent, isAgent, err := e.operatingAgent(caller, cfg)
	if err != nil {
		return nil, err
	}
	if !isAgent && caller != cfg.Admin {
		return nil, fmt.Errorf("campaign: caller may not execute campaigns: %w", common.ErrUnauthorized)
	}
	if campaign.Status != StatusActive {
		return nil, fmt.Errorf("campaign: %d: %w", id, common.ErrNotActive)
	}
	if performanceBps > MaxPerformanceBps {
		return nil, fmt.Errorf("campaign: performance %d above %d: %w", performanceBps, MaxPerformanceBps, common.ErrInvalidPerformance)
	}
	if spent == nil {
		spent = big.NewInt(0)
	}
	if spent.Sign() < 0 || spent.Cmp(campaign.Budget) > 0 {
		return nil, fmt.Errorf("campaign: spent %s outside budget %s: %w", spent, campaign.Budget, common.ErrInvalidBudget)
	}

	stats, err := e.state.CampaignStatsGet()
	if err != nil {
		return nil, err
	}
	stats.record(campaign.PerformanceBps, performanceBps, !campaign.Executed)
	if err := e.state.CampaignStatsPut(stats); err != nil {
		return nil, err
	}
	campaign.Spent = new(big.Int).Set(spent)
	campaign.PerformanceBps = performanceBps
	campaign.Executed = true
	if err := e.state.CampaignPut(campaign); err != nil {
		return nil, err
	}
	if isAgent {
		agent.CampaignsExecuted++
		agent.LastActiveAt = e.nowFn()
		if err := e.state.RegistryAgentPut(agent); err != nil {
			return nil, err
		}
	}
	e.emitter.Emit(events.Wrap(campaignExecutedEvent(campaign, caller, stats.AveragePerformance)))
	return campaign.Clone(), nil
}

// Complete closes a campaign. When performance reached the bonus threshold
// the campaign agent is paid spent * performanceFeeBps / 10000 from the
// campaign vault; the bonus is skipped when the vault cannot cover it.
func (e *Engine) Complete(caller [20]byte, id uint64) (*Campaign, error) {
	cfg, err := e.ready()
	if err != nil {
		return nil, err
	}
	campaign, err := e.load(id)
	if err != nil {
		return nil, err
	}
	_, isAgent, err := e.operatingAgent(caller, cfg)
	if err != nil {
		return nil, err
	}
	if !isAgent && caller != cfg.Admin && caller != campaign.Client {
		return nil, fmt.Errorf("campaign: caller may not complete campaign %d: %w", id, common.ErrUnauthorized)
	}
	if campaign.Status == StatusCompleted {
		return nil, fmt.Errorf("campaign: %d: %w", id, common.ErrAlreadyCompleted)
	}

	campaign.Status = StatusCompleted
	campaign.CompletedAt = e.nowFn()
	campaign.Bonus = big.NewInt(0)
	stats, err := e.state.CampaignStatsGet()
	if err != nil {
		return nil, err
	}
	if campaign.PerformanceBps >= BonusThresholdBps {
		campaign.Bonus = fees.Bonus(campaign.Spent, cfg.PerformanceFeeBps)
	}
	if campaign.Bonus.Sign() > 0 {
		paid, err := e.payBonus(cfg.CampaignAgent, campaign.Bonus)
		if err != nil {
			return nil, err
		}
		campaign.BonusPaid = paid
		if paid {
			stats.TotalBonusesPaid = new(big.Int).Add(stats.TotalBonusesPaid, campaign.Bonus)
		} else {
			stats.BonusesSkipped++
		}
	}
	if err := e.state.CampaignPut(campaign); err != nil {
		return nil, err
	}
	if err := e.state.CampaignStatsPut(stats); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(campaignCompletedEvent(campaign)))
	return campaign.Clone(), nil
}

// payBonus transfers the bonus when a recipient is configured and the vault
// covers it. A failing transfer fails the completion.
func (e *Engine) payBonus(recipient [20]byte, bonus *big.Int) (bool, error) {
	if recipient == ([20]byte{}) {
		return false, nil
	}
	available, err := e.bank.Balance(e.vault)
	if err != nil {
		return false, err
	}
	if available.Cmp(bonus) < 0 {
		return false, nil
	}
	if err := e.bank.Transfer(e.vault, recipient, bonus); err != nil {
		if errors.Is(err, common.ErrTransferFailed) {
			return false, fmt.Errorf("campaign: bonus: %w", err)
		}
		return false, fmt.Errorf("campaign: bonus: %w: %w", common.ErrTransferFailed, err)
	}
	return true, nil
}

// Campaign returns the campaign with the given id.
func (e *Engine) Campaign(id uint64) (*Campaign, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.load(id)
}

// Stats returns the platform-wide campaign metrics.
func (e *Engine) Stats() (*Stats, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.state.CampaignStatsGet()
}
