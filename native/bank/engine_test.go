package bank

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"agentpay/core/events"
	"agentpay/core/types"
	"agentpay/native/common"
)

type mockState struct {
	accounts map[[20]byte]*types.Account
}

func newMockState() *mockState {
	return &mockState{accounts: make(map[[20]byte]*types.Account)}
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	var key [20]byte
	copy(key[:], addr)
	if acc, ok := m.accounts[key]; ok {
		return &types.Account{Nonce: acc.Nonce, Balance: new(big.Int).Set(acc.Balance)}, nil
	}
	return &types.Account{Balance: big.NewInt(0)}, nil
}

func (m *mockState) PutAccount(addr []byte, account *types.Account) error {
	var key [20]byte
	copy(key[:], addr)
	m.accounts[key] = &types.Account{Nonce: account.Nonce, Balance: new(big.Int).Set(account.Balance)}
	return nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func newTestEngine(t *testing.T) (*Engine, *captureEmitter) {
	t.Helper()
	engine := NewEngine()
	engine.SetState(newMockState())
	emitter := &captureEmitter{}
	engine.SetEmitter(emitter)
	return engine, emitter
}

func TestTransferMovesBalance(t *testing.T) {
	engine, emitter := newTestEngine(t)
	alice, bob := [20]byte{0x01}, [20]byte{0x02}
	require.NoError(t, engine.Credit(alice, big.NewInt(100)))

	require.NoError(t, engine.Transfer(alice, bob, big.NewInt(40)))
	aliceBal, err := engine.Balance(alice)
	require.NoError(t, err)
	bobBal, err := engine.Balance(bob)
	require.NoError(t, err)
	require.Equal(t, int64(60), aliceBal.Int64())
	require.Equal(t, int64(40), bobBal.Int64())
	require.Len(t, emitter.events, 1)
	require.Equal(t, EventTypeTransfer, emitter.events[0].EventType())
}

func TestTransferInsufficientBalance(t *testing.T) {
	engine, _ := newTestEngine(t)
	alice, bob := [20]byte{0x01}, [20]byte{0x02}
	require.NoError(t, engine.Credit(alice, big.NewInt(10)))

	err := engine.Transfer(alice, bob, big.NewInt(11))
	require.ErrorIs(t, err, common.ErrInsufficientBalance)
	require.NoError(t, engine.Transfer(alice, bob, big.NewInt(0)))
}

func TestReceiverHookFailureWrapsTransferFailed(t *testing.T) {
	engine, _ := newTestEngine(t)
	alice, contract := [20]byte{0x01}, [20]byte{0xC0}
	require.NoError(t, engine.Credit(alice, big.NewInt(10)))

	var seen []byte
	engine.RegisterReceiver(contract, ReceiverFunc(func(from [20]byte, amount *big.Int, data []byte) error {
		seen = data
		if amount.Sign() == 0 {
			return errors.New("refusing empty call")
		}
		return nil
	}))

	require.NoError(t, engine.Call(alice, contract, big.NewInt(5), []byte("ping")))
	require.Equal(t, []byte("ping"), seen)

	err := engine.Call(alice, contract, big.NewInt(0), []byte("pong"))
	require.ErrorIs(t, err, common.ErrTransferFailed)

	engine.RegisterReceiver(contract, nil)
	require.NoError(t, engine.Call(alice, contract, big.NewInt(0), nil))
}
