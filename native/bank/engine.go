package bank

import (
	"errors"
	"fmt"
	"math/big"

	"agentpay/core/events"
	"agentpay/core/types"
	"agentpay/native/common"
)

var (
	errNilState      = errors.New("bank engine: state not configured")
	errNegativeValue = errors.New("bank engine: amount must not be negative")
)

type engineState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Receiver is implemented by contract recipients that run code when they are
// paid. The hook runs synchronously inside the paying operation; returning an
// error fails the transfer and reverts the operation.
type Receiver interface {
	OnReceive(from [20]byte, amount *big.Int, data []byte) error
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(from [20]byte, amount *big.Int, data []byte) error

// OnReceive implements Receiver.
func (f ReceiverFunc) OnReceive(from [20]byte, amount *big.Int, data []byte) error {
	return f(from, amount, data)
}

// Engine moves native balances between accounts and module vaults.
type Engine struct {
	state     engineState
	emitter   events.Emitter
	receivers map[[20]byte]Receiver
}

// NewEngine constructs a bank engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}, receivers: make(map[[20]byte]Receiver)}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// RegisterReceiver installs a receive hook for addr. A nil receiver removes
// the hook.
func (e *Engine) RegisterReceiver(addr [20]byte, r Receiver) {
	if r == nil {
		delete(e.receivers, addr)
		return
	}
	e.receivers[addr] = r
}

// Balance returns the spendable balance of addr.
func (e *Engine) Balance(addr [20]byte) (*big.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	account, err := e.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.Balance), nil
}

// Credit mints amount into addr. It is only used for genesis allocations.
func (e *Engine) Credit(addr [20]byte, amount *big.Int) error {
	if e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return errNegativeValue
	}
	account, err := e.state.GetAccount(addr[:])
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return e.state.PutAccount(addr[:], account)
}

// Transfer moves amount from one account to another and runs the recipient's
// receive hook, if any. A zero amount is a no-op.
func (e *Engine) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	return e.Call(from, to, amount, nil)
}

// Call moves amount to the target and dispatches data to its receive hook.
// Unlike Transfer a zero amount still reaches the hook.
func (e *Engine) Call(from, to [20]byte, amount *big.Int, data []byte) error {
	if e.state == nil {
		return errNilState
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return errNegativeValue
	}
	if amount.Sign() > 0 {
		if err := e.move(from, to, amount); err != nil {
			return err
		}
		e.emitter.Emit(events.Wrap(transferEvent(from, to, amount)))
	}
	receiver, ok := e.receivers[to]
	if !ok {
		return nil
	}
	if err := receiver.OnReceive(from, new(big.Int).Set(amount), data); err != nil {
		return fmt.Errorf("%w: receiver %s: %w", common.ErrTransferFailed, events.FormatAddress(to), err)
	}
	return nil
}

func (e *Engine) move(from, to [20]byte, amount *big.Int) error {
	sender, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	if sender.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("bank: %s holds %s, needs %s: %w", events.FormatAddress(from), sender.Balance, amount, common.ErrInsufficientBalance)
	}
	if from == to {
		return nil
	}
	sender.Balance = new(big.Int).Sub(sender.Balance, amount)
	if err := e.state.PutAccount(from[:], sender); err != nil {
		return err
	}
	recipient, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	recipient.Balance = new(big.Int).Add(recipient.Balance, amount)
	return e.state.PutAccount(to[:], recipient)
}
