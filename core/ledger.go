package core

import (
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"agentpay/core/events"
	ledgerstate "agentpay/core/state"
	"agentpay/core/types"
	"agentpay/crypto"
	"agentpay/native/access"
	"agentpay/native/bank"
	"agentpay/native/campaign"
	"agentpay/native/catalog"
	nativecommon "agentpay/native/common"
	"agentpay/native/custody"
	"agentpay/native/fees"
	"agentpay/native/params"
	"agentpay/native/registry"
	"agentpay/observability"
	"agentpay/storage/trie"
)

// Module vaults. Value attached to a payable call is moved into the vault of
// the module serving it before the call body runs.
var (
	RegistryVault = crypto.ModuleAddress(params.ModuleRegistry)
	AccessVault   = crypto.ModuleAddress(params.ModuleAccess)
	CustodyVault  = crypto.ModuleAddress(params.ModuleCustody)
	CampaignVault = crypto.ModuleAddress(params.ModuleCampaign)
)

// Ledger is the settlement state machine. Every mutating entry point runs
// against a snapshot and either commits as a whole, publishing its buffered
// events, or reverts as a whole.
//
// Ledger is not safe for concurrent use; Node serializes access to it.
type Ledger struct {
	state     *ledgerstate.Manager
	buffer    *events.Buffer
	emitter   events.Emitter
	guard     nativecommon.ReentrancyGuard
	logger    *slog.Logger
	metrics   *observability.LedgerMetricsRegistry
	now       func() int64
	published []*types.Event

	Bank     *bank.Engine
	Params   *params.Engine
	Registry *registry.Engine
	Catalog  *catalog.Engine
	Access   *access.Engine
	Custody  *custody.Engine
	Campaign *campaign.Engine
}

// NewLedger wires every module engine onto the state held by tr.
func NewLedger(tr *trie.Trie) *Ledger {
	l := &Ledger{
		state:    ledgerstate.NewManager(tr),
		buffer:   &events.Buffer{},
		emitter:  events.NoopEmitter{},
		logger:   slog.Default(),
		metrics:  observability.LedgerMetrics(),
		now:      func() int64 { return time.Now().Unix() },
		Bank:     bank.NewEngine(),
		Params:   params.NewEngine(),
		Registry: registry.NewEngine(),
		Catalog:  catalog.NewEngine(),
		Access:   access.NewEngine(),
		Custody:  custody.NewEngine(),
		Campaign: campaign.NewEngine(),
	}
	clock := func() int64 { return l.now() }

	l.Bank.SetState(l.state)
	l.Bank.SetEmitter(l.buffer)

	l.Params.SetState(l.state)
	l.Params.SetEmitter(l.buffer)
	l.Params.SetPriceGuard(l.Catalog.CheckBounds)

	l.Custody.SetState(l.state)
	l.Custody.SetBank(l.Bank)
	l.Custody.SetVault(CustodyVault)
	l.Custody.SetReservedTargets(RegistryVault, AccessVault, CustodyVault, CampaignVault)
	l.Custody.SetEmitter(l.buffer)
	l.Custody.SetNowFunc(clock)

	l.Registry.SetState(l.state)
	l.Registry.SetParams(l.Params)
	l.Registry.SetBank(l.Bank)
	l.Registry.SetCustody(l.Custody)
	l.Registry.SetVault(RegistryVault)
	l.Registry.SetEmitter(l.buffer)
	l.Registry.SetNowFunc(clock)

	l.Catalog.SetState(l.state)
	l.Catalog.SetParams(l.Params)
	l.Catalog.SetEmitter(l.buffer)
	l.Catalog.SetNowFunc(clock)

	l.Access.SetState(l.state)
	l.Access.SetParams(l.Params)
	l.Access.SetBank(l.Bank)
	l.Access.SetVault(AccessVault)
	l.Access.SetEmitter(l.buffer)
	l.Access.SetNowFunc(clock)

	l.Campaign.SetState(l.state)
	l.Campaign.SetParams(l.Params)
	l.Campaign.SetBank(l.Bank)
	l.Campaign.SetVault(CampaignVault)
	l.Campaign.SetEmitter(l.buffer)
	l.Campaign.SetNowFunc(clock)
	return l
}

// SetEmitter configures where committed events are published.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetLogger overrides the logger used for operation outcomes.
func (l *Ledger) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	l.logger = logger
}

// SetNowFunc overrides the clock used to stamp records.
func (l *Ledger) SetNowFunc(now func() int64) {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	l.now = now
}

// RegisterReceiver installs a receive hook for a contract address. See
// bank.Engine.RegisterReceiver.
func (l *Ledger) RegisterReceiver(addr [20]byte, r bank.Receiver) {
	l.Bank.RegisterReceiver(addr, r)
}

// StateRoot returns the root hash including uncommitted mutations.
func (l *Ledger) StateRoot() common.Hash { return l.state.Hash() }

// CommittedRoot returns the last root persisted with Commit.
func (l *Ledger) CommittedRoot() common.Hash { return l.state.Root() }

// Commit persists every applied operation and returns the new root.
func (l *Ledger) Commit(height uint64) (common.Hash, error) {
	if l.guard.Held() {
		return common.Hash{}, nativecommon.ErrReentrantCall
	}
	return l.state.Commit(height)
}

// Reset discards uncommitted mutations and reloads state at root.
func (l *Ledger) Reset(root common.Hash) error {
	if l.guard.Held() {
		return nativecommon.ErrReentrantCall
	}
	return l.state.Reset(root)
}

// Published returns the events emitted by the most recent committed call.
func (l *Ledger) Published() []*types.Event {
	out := make([]*types.Event, len(l.published))
	copy(out, l.published)
	return out
}

type call struct {
	op     string
	caller [20]byte
	module string
	vault  [20]byte
	value  *big.Int
}

func (l *Ledger) execute(c call, body func() error) (err error) {
	start := time.Now()
	defer func() { l.observe(c, err, time.Since(start)) }()

	if err := l.guard.Enter(); err != nil {
		return fmt.Errorf("%s: %w", c.op, err)
	}
	defer l.guard.Exit()
	l.published = nil

	if err := nativecommon.Guard(l.Params, c.module); err != nil {
		return err
	}

	snap := l.state.Snapshot()
	fail := func(cause error) error {
		l.state.Revert(snap)
		l.buffer.Discard()
		return cause
	}
	if c.value != nil && c.value.Sign() > 0 {
		if err := l.Bank.Transfer(c.caller, c.vault, c.value); err != nil {
			return fail(fmt.Errorf("%s: attach value: %w", c.op, err))
		}
	}
	if err := body(); err != nil {
		return fail(err)
	}
	for _, evt := range l.buffer.Flush(l.emitter) {
		if payload := events.Unwrap(evt); payload != nil {
			l.published = append(l.published, payload)
		}
	}
	return nil
}

func (l *Ledger) observe(c call, err error, elapsed time.Duration) {
	reason := nativecommon.Reason(err)
	l.metrics.Observe(c.op, reason, elapsed)
	caller := crypto.FormatAddress(c.caller)
	if err != nil {
		l.logger.Info("ledger operation reverted",
			slog.String("operation", c.op),
			slog.String("caller", caller),
			slog.String("reason", reason),
			slog.Any("error", err))
		return
	}
	l.logger.Debug("ledger operation committed",
		slog.String("operation", c.op),
		slog.String("caller", caller))
}

// Transfer moves amount between two accounts.
func (l *Ledger) Transfer(caller, to [20]byte, amount *big.Int) error {
	return l.execute(call{op: "transfer", caller: caller, module: params.ModuleBank}, func() error {
		if amount == nil || amount.Sign() <= 0 {
			return fmt.Errorf("transfer: %w", nativecommon.ErrInvalidAmount)
		}
		return l.Bank.Transfer(caller, to, amount)
	})
}

// RegisterCreator registers the caller as a content creator.
func (l *Ledger) RegisterCreator(caller [20]byte, name string) (*registry.Creator, error) {
	var out *registry.Creator
	err := l.execute(call{op: "registerCreator", caller: caller, module: params.ModuleRegistry}, func() (err error) {
		out, err = l.Registry.RegisterCreator(caller, name)
		return err
	})
	return out, err
}

// UpdateCreator renames the caller's creator record.
func (l *Ledger) UpdateCreator(caller [20]byte, name string) (*registry.Creator, error) {
	var out *registry.Creator
	err := l.execute(call{op: "updateCreator", caller: caller, module: params.ModuleRegistry}, func() (err error) {
		out, err = l.Registry.UpdateCreator(caller, name)
		return err
	})
	return out, err
}

// SetCreatorStatus deactivates or reactivates the caller's creator record.
func (l *Ledger) SetCreatorStatus(caller [20]byte, active bool) (*registry.Creator, error) {
	op := "deactivateCreator"
	if active {
		op = "reactivateCreator"
	}
	var out *registry.Creator
	err := l.execute(call{op: op, caller: caller, module: params.ModuleRegistry}, func() (err error) {
		out, err = l.Registry.SetCreatorStatus(caller, active)
		return err
	})
	return out, err
}

// RegisterAgent registers the caller's agent. fee is attached to the call and
// forwarded to the platform operator.
func (l *Ledger) RegisterAgent(caller [20]byte, name, description, capabilities string, fee *big.Int) (*registry.Agent, error) {
	var out *registry.Agent
	c := call{op: "registerAgent", caller: caller, module: params.ModuleRegistry, vault: RegistryVault, value: fee}
	err := l.execute(c, func() (err error) {
		out, err = l.Registry.RegisterAgent(caller, name, description, capabilities, fee)
		return err
	})
	return out, err
}

// UpdateAgent applies the non-empty fields of update to the caller's agent.
func (l *Ledger) UpdateAgent(caller [20]byte, update registry.AgentUpdate) (*registry.Agent, error) {
	var out *registry.Agent
	err := l.execute(call{op: "updateAgent", caller: caller, module: params.ModuleRegistry}, func() (err error) {
		out, err = l.Registry.UpdateAgent(caller, update)
		return err
	})
	return out, err
}

// SetAgentStatus deactivates or reactivates the caller's agent.
func (l *Ledger) SetAgentStatus(caller [20]byte, active bool) (*registry.Agent, error) {
	op := "deactivateAgent"
	if active {
		op = "reactivateAgent"
	}
	var out *registry.Agent
	err := l.execute(call{op: op, caller: caller, module: params.ModuleRegistry}, func() (err error) {
		out, err = l.Registry.SetAgentStatus(caller, active)
		return err
	})
	return out, err
}

// RegisterContent registers a content item owned by the caller.
func (l *Ledger) RegisterContent(caller [20]byte, title, description, fingerprint string, price *big.Int) (*catalog.Content, error) {
	var out *catalog.Content
	err := l.execute(call{op: "registerContent", caller: caller, module: params.ModuleCatalog}, func() (err error) {
		out, err = l.Catalog.RegisterContent(caller, title, description, fingerprint, price)
		return err
	})
	return out, err
}

// UpdateContent applies update to a content item owned by the caller.
func (l *Ledger) UpdateContent(caller [20]byte, id uint64, update catalog.ContentUpdate) (*catalog.Content, error) {
	var out *catalog.Content
	err := l.execute(call{op: "updateContent", caller: caller, module: params.ModuleCatalog}, func() (err error) {
		out, err = l.Catalog.UpdateContent(caller, id, update)
		return err
	})
	return out, err
}

// AccessContent settles a paid access by the caller's agent. payment is
// attached to the call.
func (l *Ledger) AccessContent(caller [20]byte, contentID uint64, agentTag string, payment *big.Int) (*access.Settlement, error) {
	var out *access.Settlement
	c := call{op: "accessContent", caller: caller, module: params.ModuleAccess, vault: AccessVault, value: payment}
	err := l.execute(c, func() (err error) {
		out, err = l.Access.AccessContent(caller, contentID, agentTag, payment)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.metrics.RecordVolume("creator", out.CreatorPayment)
	l.metrics.RecordVolume("platform", out.PlatformFee)
	return out, nil
}

// Deposit credits the attached amount to a custody account owned by the
// caller.
func (l *Ledger) Deposit(caller [20]byte, accountID uint64, amount *big.Int) (*custody.Account, error) {
	var out *custody.Account
	c := call{op: "deposit", caller: caller, module: params.ModuleCustody, vault: CustodyVault, value: amount}
	err := l.execute(c, func() (err error) {
		out, err = l.Custody.Deposit(caller, accountID, amount)
		return err
	})
	return out, err
}

// Withdraw returns custodied funds to the caller.
func (l *Ledger) Withdraw(caller [20]byte, accountID uint64, amount *big.Int) (*custody.Account, error) {
	var out *custody.Account
	err := l.execute(call{op: "withdraw", caller: caller, module: params.ModuleCustody}, func() (err error) {
		out, err = l.Custody.Withdraw(caller, accountID, amount)
		return err
	})
	return out, err
}

// ExecuteTransaction spends custodied funds on an outbound call to target.
func (l *Ledger) ExecuteTransaction(caller [20]byte, accountID uint64, target [20]byte, payload []byte, value *big.Int) (*custody.Account, error) {
	var out *custody.Account
	err := l.execute(call{op: "executeTransaction", caller: caller, module: params.ModuleCustody}, func() (err error) {
		out, err = l.Custody.ExecuteTransaction(caller, accountID, target, payload, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.metrics.RecordVolume("custody", value)
	return out, nil
}

// CreateCampaign opens a campaign funded by the attached payment.
func (l *Ledger) CreateCampaign(caller [20]byte, campaignType string, budget, payment *big.Int) (*campaign.Campaign, error) {
	var out *campaign.Campaign
	c := call{op: "createCampaign", caller: caller, module: params.ModuleCampaign, vault: CampaignVault, value: payment}
	err := l.execute(c, func() (err error) {
		out, err = l.Campaign.Create(caller, campaignType, budget, payment)
		return err
	})
	return out, err
}

// ExecuteCampaign records spend and performance for an active campaign.
func (l *Ledger) ExecuteCampaign(caller [20]byte, id uint64, spent *big.Int, performanceBps uint64) (*campaign.Campaign, error) {
	var out *campaign.Campaign
	err := l.execute(call{op: "executeCampaign", caller: caller, module: params.ModuleCampaign}, func() (err error) {
		out, err = l.Campaign.Execute(caller, id, spent, performanceBps)
		return err
	})
	return out, err
}

// CompleteCampaign closes a campaign and pays the performance bonus when due
// and covered by the campaign vault.
func (l *Ledger) CompleteCampaign(caller [20]byte, id uint64) (*campaign.Campaign, error) {
	var out *campaign.Campaign
	err := l.execute(call{op: "completeCampaign", caller: caller, module: params.ModuleCampaign}, func() (err error) {
		out, err = l.Campaign.Complete(caller, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out.Bonus != nil && out.Bonus.Sign() > 0 {
		l.metrics.RecordBonus(out.BonusPaid)
		if out.BonusPaid {
			l.metrics.RecordVolume("bonus", out.Bonus)
		}
	}
	return out, nil
}

func (l *Ledger) admin(op string, caller [20]byte, apply func() error) error {
	return l.execute(call{op: op, caller: caller}, apply)
}

// SetPlatformFee sets the platform fee rate, interpreted in the current fee
// mode.
func (l *Ledger) SetPlatformFee(caller [20]byte, rate uint64) error {
	return l.admin("setPlatformFee", caller, func() error { return l.Params.SetPlatformFee(caller, rate) })
}

// SetFeeMode switches between basis-point and percentage-point fees.
func (l *Ledger) SetFeeMode(caller [20]byte, mode fees.Mode) error {
	return l.admin("setFeeMode", caller, func() error { return l.Params.SetFeeMode(caller, mode) })
}

// SetRegistrationFee sets the minimum agent registration fee.
func (l *Ledger) SetRegistrationFee(caller [20]byte, amount *big.Int) error {
	return l.admin("setRegistrationFee", caller, func() error { return l.Params.SetRegistrationFee(caller, amount) })
}

// SetPriceBounds sets the content price bounds.
func (l *Ledger) SetPriceBounds(caller [20]byte, min, max *big.Int) error {
	return l.admin("setPriceBounds", caller, func() error { return l.Params.SetPriceBounds(caller, min, max) })
}

// SetCampaignBasePrice sets the minimum campaign payment.
func (l *Ledger) SetCampaignBasePrice(caller [20]byte, amount *big.Int) error {
	return l.admin("setCampaignBasePrice", caller, func() error { return l.Params.SetCampaignBasePrice(caller, amount) })
}

// SetPerformanceFee sets the campaign bonus rate in basis points.
func (l *Ledger) SetPerformanceFee(caller [20]byte, bps uint64) error {
	return l.admin("setPerformanceFee", caller, func() error { return l.Params.SetPerformanceFee(caller, bps) })
}

// SetOperator sets the wallet receiving platform fees.
func (l *Ledger) SetOperator(caller [20]byte, operator [20]byte) error {
	return l.admin("setOperator", caller, func() error { return l.Params.SetOperator(caller, operator) })
}

// SetCampaignAgent sets the wallet allowed to execute campaigns.
func (l *Ledger) SetCampaignAgent(caller [20]byte, agent [20]byte) error {
	return l.admin("setCampaignAgent", caller, func() error { return l.Params.SetCampaignAgent(caller, agent) })
}

// TransferAdmin hands the administrator role to another wallet.
func (l *Ledger) TransferAdmin(caller [20]byte, admin [20]byte) error {
	return l.admin("transferAdmin", caller, func() error { return l.Params.TransferAdmin(caller, admin) })
}

// SetPauses replaces the set of paused modules.
func (l *Ledger) SetPauses(caller [20]byte, modules []string) error {
	return l.admin("setPauses", caller, func() error { return l.Params.SetPauses(caller, modules) })
}
