package custody

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"agentpay/core/events"
	"agentpay/native/common"
	"agentpay/native/registry"
)

var (
	errNilState    = errors.New("custody engine: state not configured")
	errNilBank     = errors.New("custody engine: bank not configured")
	errVaultNotSet = errors.New("custody engine: vault not configured")
)

const (
	reasonDeposit  = "deposit"
	reasonWithdraw = "withdraw"
	reasonExecute  = "execute"
)

type engineState interface {
	CustodyAccountGet(id uint64) (*Account, bool, error)
	CustodyAccountPut(account *Account) error
	CustodyNextID() (uint64, error)
	CustodyOwnerGet(owner [20]byte) (uint64, bool, error)
	CustodyOwnerPut(owner [20]byte, id uint64) error
	RegistryAgentGet(addr [20]byte) (*registry.Agent, bool, error)
}

type caller interface {
	Transfer(from, to [20]byte, amount *big.Int) error
	Call(from, to [20]byte, amount *big.Int, data []byte) error
}

// Engine manages agent custody accounts.
type Engine struct {
	state   engineState
	bank    caller
	vault   [20]byte
	emitter events.Emitter
	nowFn   func() int64
	// reserved holds ledger-owned accounts outbound calls may not pay.
	reserved map[[20]byte]struct{}
}

// NewEngine constructs a custody engine with default dependencies.
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

// SetBank configures the balance mover used for withdrawals and outbound
// calls.
func (e *Engine) SetBank(b caller) { e.bank = b }

// SetVault configures the module account holding custodied funds.
func (e *Engine) SetVault(vault [20]byte) { e.vault = vault }

// SetReservedTargets lists ledger module accounts that outbound calls may not
// target. The custody vault itself is always reserved.
func (e *Engine) SetReservedTargets(addrs ...[20]byte) {
	e.reserved = make(map[[20]byte]struct{}, len(addrs))
	for _, addr := range addrs {
		e.reserved[addr] = struct{}{}
	}
}

func (e *Engine) isReserved(target [20]byte) bool {
	if target == e.vault || target == ([20]byte{}) {
		return true
	}
	_, ok := e.reserved[target]
	return ok
}

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

// Open creates the custody account for owner with a zero balance.
func (e *Engine) Open(owner [20]byte) (uint64, error) {
	if e.state == nil {
		return 0, errNilState
	}
	if _, exists, err := e.state.CustodyOwnerGet(owner); err != nil {
		return 0, err
	} else if exists {
		return 0, fmt.Errorf("custody: owner already holds an account: %w", common.ErrAlreadyRegistered)
	}
	id, err := e.state.CustodyNextID()
	if err != nil {
		return 0, err
	}
	now := e.nowFn()
	account := &Account{
		ID:           id,
		Owner:        owner,
		Balance:      big.NewInt(0),
		TxVolume:     big.NewInt(0),
		Deposited:    big.NewInt(0),
		Withdrawn:    big.NewInt(0),
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := e.state.CustodyAccountPut(account); err != nil {
		return 0, err
	}
	if err := e.state.CustodyOwnerPut(owner, id); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.Wrap(accountOpenedEvent(account)))
	return id, nil
}

func (e *Engine) owned(caller [20]byte, id uint64) (*Account, error) {
	if e.state == nil {
		return nil, errNilState
	}
	account, ok, err := e.state.CustodyAccountGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("custody: account %d: %w", id, common.ErrNotFound)
	}
	if account.Owner != caller {
		return nil, fmt.Errorf("custody: account %d not owned by caller: %w", id, common.ErrUnauthorized)
	}
	return account, nil
}

// Deposit credits amount, already held by the custody vault, to the caller's
// account.
func (e *Engine) Deposit(caller [20]byte, id uint64, amount *big.Int) (*Account, error) {
	account, err := e.owned(caller, id)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("custody: deposit must be positive: %w", common.ErrInvalidAmount)
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	account.Deposited = new(big.Int).Add(account.Deposited, amount)
	account.LastActiveAt = e.nowFn()
	if err := e.state.CustodyAccountPut(account); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(balanceUpdatedEvent(account, reasonDeposit, amount)))
	return account.Clone(), nil
}

// Withdraw debits amount from the caller's account and returns it to the
// caller's wallet.
func (e *Engine) Withdraw(caller [20]byte, id uint64, amount *big.Int) (*Account, error) {
	if e.bank == nil {
		return nil, errNilBank
	}
	if e.vault == ([20]byte{}) {
		return nil, errVaultNotSet
	}
	account, err := e.owned(caller, id)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("custody: withdrawal must be positive: %w", common.ErrInvalidAmount)
	}
	if amount.Cmp(account.Balance) > 0 {
		return nil, fmt.Errorf("custody: withdraw %s exceeds balance %s: %w", amount, account.Balance, common.ErrInsufficientBalance)
	}
	account.Balance = new(big.Int).Sub(account.Balance, amount)
	account.Withdrawn = new(big.Int).Add(account.Withdrawn, amount)
	account.LastActiveAt = e.nowFn()
	if err := e.state.CustodyAccountPut(account); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.vault, caller, amount); err != nil {
		return nil, wrapTransfer(err)
	}
	e.emitter.Emit(events.Wrap(balanceUpdatedEvent(account, reasonWithdraw, new(big.Int).Neg(amount))))
	return account.Clone(), nil
}

// ExecuteTransaction sends value from the caller's custody balance to target
// and dispatches payload to it. The balance is debited before the call is
// dispatched.
func (e *Engine) ExecuteTransaction(caller [20]byte, id uint64, target [20]byte, payload []byte, value *big.Int) (*Account, error) {
	if e.bank == nil {
		return nil, errNilBank
	}
	if e.vault == ([20]byte{}) {
		return nil, errVaultNotSet
	}
	if e.state == nil {
		return nil, errNilState
	}
	agent, ok, err := e.state.RegistryAgentGet(caller)
	if err != nil {
		return nil, err
	}
	if !ok || !agent.Active() {
		return nil, fmt.Errorf("custody: caller is not an active agent: %w", common.ErrUnauthorized)
	}
	account, err := e.owned(caller, id)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = big.NewInt(0)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("custody: value must not be negative: %w", common.ErrInvalidAmount)
	}
	if e.isReserved(target) {
		return nil, fmt.Errorf("custody: target %s is a ledger account: %w", events.FormatAddress(target), common.ErrInvalidInput)
	}
	if value.Cmp(account.Balance) > 0 {
		return nil, fmt.Errorf("custody: value %s exceeds balance %s: %w", value, account.Balance, common.ErrInsufficientBalance)
	}
	account.Balance = new(big.Int).Sub(account.Balance, value)
	if err := e.state.CustodyAccountPut(account); err != nil {
		return nil, err
	}
	if err := e.bank.Call(e.vault, target, value, payload); err != nil {
		return nil, wrapTransfer(err)
	}
	account.TxCount++
	account.TxVolume = new(big.Int).Add(account.TxVolume, value)
	account.LastActiveAt = e.nowFn()
	if err := e.state.CustodyAccountPut(account); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(transactionExecutedEvent(account, target, value, len(payload))))
	e.emitter.Emit(events.Wrap(balanceUpdatedEvent(account, reasonExecute, new(big.Int).Neg(value))))
	return account.Clone(), nil
}

func wrapTransfer(err error) error {
	if errors.Is(err, common.ErrTransferFailed) {
		return fmt.Errorf("custody: %w", err)
	}
	return fmt.Errorf("custody: %w: %w", common.ErrTransferFailed, err)
}

// Account returns the custody account with the given id.
func (e *Engine) Account(id uint64) (*Account, error) {
	if e.state == nil {
		return nil, errNilState
	}
	account, ok, err := e.state.CustodyAccountGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("custody: account %d: %w", id, common.ErrNotFound)
	}
	return account, nil
}

// AccountByOwner returns the custody account bound to owner.
func (e *Engine) AccountByOwner(owner [20]byte) (*Account, error) {
	if e.state == nil {
		return nil, errNilState
	}
	id, ok, err := e.state.CustodyOwnerGet(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("custody: owner account: %w", common.ErrNotFound)
	}
	return e.Account(id)
}
