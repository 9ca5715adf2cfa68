package registry

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"agentpay/core/events"
	"agentpay/native/common"
	"agentpay/native/fees"
	"agentpay/native/params"
)

var (
	errNilState      = errors.New("registry engine: state not configured")
	errNilParams     = errors.New("registry engine: params not configured")
	errNilBank       = errors.New("registry engine: bank not configured")
	errNilCustody    = errors.New("registry engine: custody not configured")
	errVaultNotSet   = errors.New("registry engine: vault not configured")
	errOperatorUnset = errors.New("registry engine: operator not configured")
)

type engineState interface {
	RegistryCreatorGet(addr [20]byte) (*Creator, bool, error)
	RegistryCreatorPut(creator *Creator) error
	RegistryAgentGet(addr [20]byte) (*Agent, bool, error)
	RegistryAgentPut(agent *Agent) error
	RegistryNameGet(namespace, name string) ([20]byte, bool, error)
	RegistryNamePut(namespace, name string, owner [20]byte) error
	RegistryNameDelete(namespace, name string) error
	fees.TotalsState
}

type paramsSource interface {
	Params() (params.Params, error)
}

type transferer interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

// CustodyOpener creates the custody account bound to a newly registered
// agent wallet.
type CustodyOpener interface {
	Open(owner [20]byte) (uint64, error)
}

// Engine manages creator and agent identities.
type Engine struct {
	state   engineState
	params  paramsSource
	bank    transferer
	custody CustodyOpener
	vault   [20]byte
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a registry engine with default dependencies.
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

// SetBank configures the balance mover used to forward registration fees.
func (e *Engine) SetBank(b transferer) { e.bank = b }

// SetCustody configures the custody ledger that opens agent accounts.
func (e *Engine) SetCustody(c CustodyOpener) { e.custody = c }

// SetVault configures the module account holding attached registration fees.
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

// RegisterCreator registers the caller as a creator under name.
func (e *Engine) RegisterCreator(caller [20]byte, name string) (*Creator, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if _, exists, err := e.state.RegistryCreatorGet(caller); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("registry: creator already registered: %w", common.ErrAlreadyRegistered)
	}
	name = NormalizeName(name)
	if !validName(name) {
		return nil, fmt.Errorf("registry: creator name must be 1-%d characters: %w", MaxNameLength, common.ErrInvalidInput)
	}
	if _, taken, err := e.state.RegistryNameGet(NamespaceCreator, name); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("registry: creator name %q taken: %w", name, common.ErrInvalidInput)
	}
	creator := &Creator{
		Address:      caller,
		Name:         name,
		RegisteredAt: e.nowFn(),
		TotalRevenue: big.NewInt(0),
		Status:       common.StatusActive,
	}
	if err := e.state.RegistryNamePut(NamespaceCreator, name, caller); err != nil {
		return nil, err
	}
	if err := e.state.RegistryCreatorPut(creator); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(creatorRegisteredEvent(creator)))
	return creator.Clone(), nil
}

// UpdateCreator renames the caller's creator record.
func (e *Engine) UpdateCreator(caller [20]byte, name string) (*Creator, error) {
	creator, err := e.ownedCreator(caller)
	if err != nil {
		return nil, err
	}
	name = NormalizeName(name)
	if !validName(name) {
		return nil, fmt.Errorf("registry: creator name must be 1-%d characters: %w", MaxNameLength, common.ErrInvalidInput)
	}
	previous := creator.Name
	if err := e.rename(NamespaceCreator, caller, previous, name, common.ErrInvalidInput); err != nil {
		return nil, err
	}
	creator.Name = name
	if err := e.state.RegistryCreatorPut(creator); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(creatorUpdatedEvent(creator, previous)))
	return creator.Clone(), nil
}

// RegisterAgent registers an agent for the caller. fee is the attached
// payment already held by the registry vault; it is forwarded in full to the
// platform operator.
func (e *Engine) RegisterAgent(caller [20]byte, name, description, capabilities string, fee *big.Int) (*Agent, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if e.params == nil {
		return nil, errNilParams
	}
	if e.bank == nil {
		return nil, errNilBank
	}
	if e.custody == nil {
		return nil, errNilCustody
	}
	if e.vault == ([20]byte{}) {
		return nil, errVaultNotSet
	}
	cfg, err := e.params.Params()
	if err != nil {
		return nil, err
	}
	if fee == nil {
		fee = big.NewInt(0)
	}
	if fee.Cmp(cfg.RegistrationFee) < 0 {
		return nil, fmt.Errorf("registry: fee %s below registration fee %s: %w", fee, cfg.RegistrationFee, common.ErrInsufficientFee)
	}
	if _, exists, err := e.state.RegistryAgentGet(caller); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("registry: wallet already owns an agent: %w", common.ErrAlreadyRegistered)
	}
	name = NormalizeName(name)
	if !validName(name) {
		return nil, fmt.Errorf("registry: agent name must be 1-%d characters: %w", MaxNameLength, common.ErrInvalidInput)
	}
	if _, taken, err := e.state.RegistryNameGet(NamespaceAgent, name); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("registry: agent name %q: %w", name, common.ErrNameTaken)
	}
	custodyID, err := e.custody.Open(caller)
	if err != nil {
		return nil, err
	}
	now := e.nowFn()
	agent := &Agent{
		Address:      caller,
		Name:         name,
		Description:  description,
		Capabilities: capabilities,
		TotalSpent:   big.NewInt(0),
		RegisteredAt: now,
		LastActiveAt: now,
		Status:       common.StatusActive,
		CustodyID:    custodyID,
	}
	if err := e.state.RegistryNamePut(NamespaceAgent, name, caller); err != nil {
		return nil, err
	}
	if err := e.state.RegistryAgentPut(agent); err != nil {
		return nil, err
	}
	if fee.Sign() > 0 {
		if cfg.Operator == ([20]byte{}) {
			return nil, errOperatorUnset
		}
		if err := e.bank.Transfer(e.vault, cfg.Operator, fee); err != nil {
			return nil, err
		}
		split := fees.Split{Gross: fee, Fee: fee, Net: big.NewInt(0)}
		if err := fees.Record(e.state, fees.DomainRegistration, cfg.Operator, split); err != nil {
			return nil, err
		}
	}
	e.emitter.Emit(events.Wrap(agentRegisteredEvent(agent, events.FormatAmount(fee))))
	return agent.Clone(), nil
}

// UpdateAgent applies the non-empty fields of update to the caller's agent.
// A rename releases the old name and claims the new one in the same step.
func (e *Engine) UpdateAgent(caller [20]byte, update AgentUpdate) (*Agent, error) {
	agent, err := e.ownedAgent(caller)
	if err != nil {
		return nil, err
	}
	changed := false
	if name := NormalizeName(update.Name); name != "" {
		if !validName(name) {
			return nil, fmt.Errorf("registry: agent name must be 1-%d characters: %w", MaxNameLength, common.ErrInvalidInput)
		}
		if err := e.rename(NamespaceAgent, caller, agent.Name, name, common.ErrNameTaken); err != nil {
			return nil, err
		}
		agent.Name = name
		changed = true
	}
	if update.Description != "" {
		agent.Description = update.Description
		changed = true
	}
	if update.Capabilities != "" {
		agent.Capabilities = update.Capabilities
		changed = true
	}
	if !changed {
		return agent.Clone(), nil
	}
	if err := e.state.RegistryAgentPut(agent); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(agentUpdatedEvent(agent)))
	return agent.Clone(), nil
}

// SetAgentStatus deactivates or reactivates the caller's agent.
func (e *Engine) SetAgentStatus(caller [20]byte, active bool) (*Agent, error) {
	agent, err := e.ownedAgent(caller)
	if err != nil {
		return nil, err
	}
	next, err := common.Transition(agent.Status, active)
	if err != nil {
		return nil, fmt.Errorf("registry: agent: %w", err)
	}
	agent.Status = next
	if err := e.state.RegistryAgentPut(agent); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(statusChangedEvent(NamespaceAgent, caller, next)))
	return agent.Clone(), nil
}

// SetCreatorStatus deactivates or reactivates the caller's creator record.
func (e *Engine) SetCreatorStatus(caller [20]byte, active bool) (*Creator, error) {
	creator, err := e.ownedCreator(caller)
	if err != nil {
		return nil, err
	}
	next, err := common.Transition(creator.Status, active)
	if err != nil {
		return nil, fmt.Errorf("registry: creator: %w", err)
	}
	creator.Status = next
	if err := e.state.RegistryCreatorPut(creator); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(statusChangedEvent(NamespaceCreator, caller, next)))
	return creator.Clone(), nil
}

// Creator returns the creator registered at addr.
func (e *Engine) Creator(addr [20]byte) (*Creator, error) {
	if e.state == nil {
		return nil, errNilState
	}
	creator, ok, err := e.state.RegistryCreatorGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("registry: creator: %w", common.ErrNotFound)
	}
	return creator, nil
}

// Agent returns the agent owned by addr.
func (e *Engine) Agent(addr [20]byte) (*Agent, error) {
	if e.state == nil {
		return nil, errNilState
	}
	agent, ok, err := e.state.RegistryAgentGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("registry: agent: %w", common.ErrNotFound)
	}
	return agent, nil
}

// CreatorByName resolves a creator by display name, case-insensitively.
func (e *Engine) CreatorByName(name string) (*Creator, error) {
	owner, err := e.resolveName(NamespaceCreator, name)
	if err != nil {
		return nil, err
	}
	return e.Creator(owner)
}

// AgentByName resolves an agent by name, case-insensitively.
func (e *Engine) AgentByName(name string) (*Agent, error) {
	owner, err := e.resolveName(NamespaceAgent, name)
	if err != nil {
		return nil, err
	}
	return e.Agent(owner)
}

func (e *Engine) resolveName(namespace, name string) ([20]byte, error) {
	if e.state == nil {
		return [20]byte{}, errNilState
	}
	owner, ok, err := e.state.RegistryNameGet(namespace, NormalizeName(name))
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, fmt.Errorf("registry: %s name %q: %w", namespace, name, common.ErrNotFound)
	}
	return owner, nil
}

func (e *Engine) ownedCreator(caller [20]byte) (*Creator, error) {
	if e.state == nil {
		return nil, errNilState
	}
	creator, ok, err := e.state.RegistryCreatorGet(caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("registry: caller has no creator record: %w", common.ErrUnauthorized)
	}
	return creator, nil
}

func (e *Engine) ownedAgent(caller [20]byte) (*Agent, error) {
	if e.state == nil {
		return nil, errNilState
	}
	agent, ok, err := e.state.RegistryAgentGet(caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("registry: caller owns no agent: %w", common.ErrUnauthorized)
	}
	return agent, nil
}

// rename moves a name claim from previous to next. Renaming to a different
// casing of the same name keeps the existing claim.
func (e *Engine) rename(namespace string, owner [20]byte, previous, next string, takenErr error) error {
	holder, taken, err := e.state.RegistryNameGet(namespace, next)
	if err != nil {
		return err
	}
	if taken && holder != owner {
		return fmt.Errorf("registry: %s name %q: %w", namespace, next, takenErr)
	}
	if err := e.state.RegistryNameDelete(namespace, previous); err != nil {
		return err
	}
	return e.state.RegistryNamePut(namespace, next, owner)
}
