package access

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"agentpay/core/events"
	"agentpay/native/catalog"
	"agentpay/native/common"
	"agentpay/native/fees"
	"agentpay/native/params"
	"agentpay/native/registry"
)

var (
	errNilState      = errors.New("access engine: state not configured")
	errNilParams     = errors.New("access engine: params not configured")
	errNilBank       = errors.New("access engine: bank not configured")
	errVaultNotSet   = errors.New("access engine: vault not configured")
	errOperatorUnset = errors.New("access engine: operator not configured")
)

// MaxAgentTagLength bounds the caller supplied agent tag.
const MaxAgentTagLength = 128

type engineState interface {
	RegistryAgentGet(addr [20]byte) (*registry.Agent, bool, error)
	RegistryAgentPut(agent *registry.Agent) error
	RegistryCreatorGet(addr [20]byte) (*registry.Creator, bool, error)
	RegistryCreatorPut(creator *registry.Creator) error
	CatalogContentGet(id uint64) (*catalog.Content, bool, error)
	CatalogContentPut(content *catalog.Content) error
	AccessGrantGet(agent [20]byte, contentID uint64) (*Grant, bool, error)
	AccessGrantPut(grant *Grant) error
	fees.TotalsState
}

type paramsSource interface {
	Params() (params.Params, error)
}

type transferer interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

// Engine settles paid content access.
type Engine struct {
	state   engineState
	params  paramsSource
	bank    transferer
	vault   [20]byte
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs an access engine with default dependencies.
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

// SetBank configures the balance mover used to pay out settlements.
func (e *Engine) SetBank(b transferer) { e.bank = b }

// SetVault configures the module account holding attached access payments.
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

// AccessContent settles a paid access by the calling agent. payment is the
// attached value already held by the access vault. The split is computed
// and every counter updated before any funds leave the vault; a failed
// payout fails the whole call.
func (e *Engine) AccessContent(caller [20]byte, contentID uint64, agentTag string, payment *big.Int) (*Settlement, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if e.params == nil {
		return nil, errNilParams
	}
	if e.bank == nil {
		return nil, errNilBank
	}
	if e.vault == ([20]byte{}) {
		return nil, errVaultNotSet
	}

	agent, ok, err := e.state.RegistryAgentGet(caller)
	if err != nil {
		return nil, err
	}
	if !ok || !agent.Active() {
		return nil, fmt.Errorf("access: caller is not an active agent: %w", common.ErrUnauthorized)
	}
	content, ok, err := e.state.CatalogContentGet(contentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("access: content %d: %w", contentID, common.ErrNotFound)
	}
	if !content.Active() {
		return nil, fmt.Errorf("access: content %d: %w", contentID, common.ErrContentInactive)
	}
	if payment == nil || payment.Cmp(content.Price) != 0 {
		return nil, fmt.Errorf("access: payment %s does not match price %s: %w", events.FormatAmount(payment), content.Price, common.ErrIncorrectAmount)
	}
	agentTag = strings.TrimSpace(agentTag)
	if agentTag == "" || len(agentTag) > MaxAgentTagLength {
		return nil, fmt.Errorf("access: agent tag required: %w", common.ErrInvalidInput)
	}

	cfg, err := e.params.Params()
	if err != nil {
		return nil, err
	}
	split := fees.Apply(payment, cfg.PlatformFee, cfg.FeeMode)
	if split.Fee.Sign() > 0 && cfg.Operator == ([20]byte{}) {
		return nil, errOperatorUnset
	}
	now := e.nowFn()

	content.AccessCount++
	content.TotalRevenue = new(big.Int).Add(content.TotalRevenue, payment)
	if err := e.state.CatalogContentPut(content); err != nil {
		return nil, err
	}
	creator, ok, err := e.state.RegistryCreatorGet(content.Creator)
	if err != nil {
		return nil, err
	}
	if ok {
		creator.TotalRevenue = new(big.Int).Add(creator.TotalRevenue, split.Net)
		if err := e.state.RegistryCreatorPut(creator); err != nil {
			return nil, err
		}
	}
	agent.AccessCount++
	agent.TotalSpent = new(big.Int).Add(agent.TotalSpent, payment)
	agent.LastActiveAt = now
	if err := e.state.RegistryAgentPut(agent); err != nil {
		return nil, err
	}
	grant, ok, err := e.state.AccessGrantGet(caller, contentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		grant = &Grant{Agent: caller, ContentID: contentID, TotalPaid: big.NewInt(0)}
	}
	grant.AccessCount++
	grant.TotalPaid = new(big.Int).Add(grant.TotalPaid, payment)
	grant.LastTag = agentTag
	grant.LastAccessAt = now
	if err := e.state.AccessGrantPut(grant); err != nil {
		return nil, err
	}
	if err := fees.Record(e.state, fees.DomainAccess, cfg.Operator, split); err != nil {
		return nil, err
	}

	if err := e.bank.Transfer(e.vault, content.Creator, split.Net); err != nil {
		return nil, e.transferError(err)
	}
	if err := e.bank.Transfer(e.vault, cfg.Operator, split.Fee); err != nil {
		return nil, e.transferError(err)
	}

	settlement := &Settlement{
		ContentID:      contentID,
		Agent:          caller,
		Creator:        content.Creator,
		AgentTag:       agentTag,
		Payment:        new(big.Int).Set(payment),
		PlatformFee:    split.Fee,
		CreatorPayment: split.Net,
		AccessCount:    content.AccessCount,
	}
	e.emitter.Emit(events.Wrap(contentAccessedEvent(settlement)))
	e.emitter.Emit(events.Wrap(paymentProcessedEvent(contentID, legCreator, e.vault, content.Creator, split.Net)))
	e.emitter.Emit(events.Wrap(paymentProcessedEvent(contentID, legPlatform, e.vault, cfg.Operator, split.Fee)))
	return settlement, nil
}

func (e *Engine) transferError(err error) error {
	if errors.Is(err, common.ErrTransferFailed) {
		return fmt.Errorf("access: payout: %w", err)
	}
	return fmt.Errorf("access: payout: %w: %w", common.ErrTransferFailed, err)
}

// HasAccess reports whether agent has paid for contentID at least once.
func (e *Engine) HasAccess(agent [20]byte, contentID uint64) (bool, error) {
	if e.state == nil {
		return false, errNilState
	}
	grant, ok, err := e.state.AccessGrantGet(agent, contentID)
	if err != nil {
		return false, err
	}
	return ok && grant.AccessCount > 0, nil
}

// Grant returns the access record for (agent, contentID).
func (e *Engine) Grant(agent [20]byte, contentID uint64) (*Grant, error) {
	if e.state == nil {
		return nil, errNilState
	}
	grant, ok, err := e.state.AccessGrantGet(agent, contentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("access: grant for content %d: %w", contentID, common.ErrNotFound)
	}
	return grant, nil
}
