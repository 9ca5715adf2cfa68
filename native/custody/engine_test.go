package custody

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"agentpay/core/events"
	"agentpay/native/common"
	"agentpay/native/registry"
)

type mockState struct {
	accounts map[uint64]*Account
	owners   map[[20]byte]uint64
	lastID   uint64
	agents   map[[20]byte]*registry.Agent
}

func newMockState() *mockState {
	return &mockState{
		accounts: make(map[uint64]*Account),
		owners:   make(map[[20]byte]uint64),
		agents:   make(map[[20]byte]*registry.Agent),
	}
}

func (m *mockState) CustodyAccountGet(id uint64) (*Account, bool, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, false, nil
	}
	return a.Clone(), true, nil
}

func (m *mockState) CustodyAccountPut(a *Account) error {
	m.accounts[a.ID] = a.Clone()
	return nil
}

func (m *mockState) CustodyNextID() (uint64, error) {
	m.lastID++
	return m.lastID, nil
}

func (m *mockState) CustodyOwnerGet(owner [20]byte) (uint64, bool, error) {
	id, ok := m.owners[owner]
	return id, ok, nil
}

func (m *mockState) CustodyOwnerPut(owner [20]byte, id uint64) error {
	m.owners[owner] = id
	return nil
}

func (m *mockState) RegistryAgentGet(addr [20]byte) (*registry.Agent, bool, error) {
	a, ok := m.agents[addr]
	if !ok {
		return nil, false, nil
	}
	return a.Clone(), true, nil
}

type call struct {
	to     [20]byte
	amount int64
	data   []byte
}

type stubBank struct {
	calls []call
	err   error
	// observe runs while the call is in flight.
	observe  func()
	observed *big.Int
}

func (b *stubBank) Transfer(from, to [20]byte, amount *big.Int) error {
	return b.Call(from, to, amount, nil)
}

func (b *stubBank) Call(from, to [20]byte, amount *big.Int, data []byte) error {
	if b.observe != nil {
		b.observe()
	}
	if b.err != nil {
		return b.err
	}
	b.calls = append(b.calls, call{to: to, amount: amount.Int64(), data: data})
	return nil
}

type captureEmitter struct {
	types []string
}

func (c *captureEmitter) Emit(evt events.Event) { c.types = append(c.types, evt.EventType()) }

func newTestEngine(t *testing.T) (*Engine, *mockState, *stubBank, [20]byte, uint64) {
	t.Helper()
	state := newMockState()
	bank := &stubBank{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetBank(bank)
	engine.SetVault([20]byte{0xEE})
	engine.SetNowFunc(func() int64 { return 99 })

	owner := [20]byte{0xA1}
	state.agents[owner] = &registry.Agent{Address: owner, Name: "scout", TotalSpent: big.NewInt(0), Status: common.StatusActive}
	id, err := engine.Open(owner)
	require.NoError(t, err)
	return engine, state, bank, owner, id
}

func TestOpenIsOnePerOwner(t *testing.T) {
	engine, _, _, owner, id := newTestEngine(t)
	require.Equal(t, uint64(1), id)

	_, err := engine.Open(owner)
	require.ErrorIs(t, err, common.ErrAlreadyRegistered)

	account, err := engine.AccountByOwner(owner)
	require.NoError(t, err)
	require.Zero(t, account.Balance.Sign())

	_, err = engine.Account(42)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDepositAndWithdraw(t *testing.T) {
	engine, _, bank, owner, id := newTestEngine(t)
	emitter := &captureEmitter{}
	engine.SetEmitter(emitter)

	_, err := engine.Deposit(owner, id, big.NewInt(0))
	require.ErrorIs(t, err, common.ErrInvalidAmount)
	_, err = engine.Deposit([20]byte{0x99}, id, big.NewInt(10))
	require.ErrorIs(t, err, common.ErrUnauthorized)

	account, err := engine.Deposit(owner, id, big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, int64(100), account.Balance.Int64())

	_, err = engine.Withdraw(owner, id, big.NewInt(150))
	require.ErrorIs(t, err, common.ErrInsufficientBalance)
	stored, err := engine.Account(id)
	require.NoError(t, err)
	require.Equal(t, int64(100), stored.Balance.Int64())

	account, err = engine.Withdraw(owner, id, big.NewInt(40))
	require.NoError(t, err)
	require.Equal(t, int64(60), account.Balance.Int64())
	require.Equal(t, int64(40), account.Withdrawn.Int64())
	require.Equal(t, []call{{to: owner, amount: 40}}, bank.calls)
	require.Equal(t, []string{EventTypeBalanceUpdated, EventTypeBalanceUpdated}, emitter.types)
}

func TestExecuteTransactionDebitsBeforeDispatch(t *testing.T) {
	engine, state, bank, owner, id := newTestEngine(t)
	_, err := engine.Deposit(owner, id, big.NewInt(100))
	require.NoError(t, err)

	bank.observe = func() { bank.observed = new(big.Int).Set(state.accounts[id].Balance) }
	target := [20]byte{0x7A}
	account, err := engine.ExecuteTransaction(owner, id, target, []byte("call()"), big.NewInt(30))
	require.NoError(t, err)
	require.Equal(t, int64(70), bank.observed.Int64())
	require.Equal(t, int64(70), account.Balance.Int64())
	require.Equal(t, uint64(1), account.TxCount)
	require.Equal(t, int64(30), account.TxVolume.Int64())
	require.Equal(t, []byte("call()"), bank.calls[0].data)
}

func TestExecuteTransactionRejections(t *testing.T) {
	engine, state, bank, owner, id := newTestEngine(t)
	_, err := engine.Deposit(owner, id, big.NewInt(100))
	require.NoError(t, err)
	target := [20]byte{0x7A}

	_, err = engine.ExecuteTransaction(owner, id, target, nil, big.NewInt(150))
	require.ErrorIs(t, err, common.ErrInsufficientBalance)

	bank.err = errors.New("target reverted")
	_, err = engine.ExecuteTransaction(owner, id, target, nil, big.NewInt(10))
	require.ErrorIs(t, err, common.ErrTransferFailed)
	bank.err = nil

	state.agents[owner].Status = common.StatusInactive
	_, err = engine.ExecuteTransaction(owner, id, target, nil, big.NewInt(10))
	require.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = engine.ExecuteTransaction([20]byte{0x99}, id, target, nil, big.NewInt(10))
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestExecuteTransactionRejectsReservedTargets(t *testing.T) {
	engine, state, bank, owner, id := newTestEngine(t)
	_, err := engine.Deposit(owner, id, big.NewInt(100))
	require.NoError(t, err)
	accessVault := [20]byte{0xAC}
	engine.SetReservedTargets(accessVault)

	for _, target := range [][20]byte{{0xEE}, accessVault, {}} {
		_, err = engine.ExecuteTransaction(owner, id, target, nil, big.NewInt(10))
		require.ErrorIs(t, err, common.ErrInvalidInput)
	}
	require.Empty(t, bank.calls)
	require.Equal(t, int64(100), state.accounts[id].Balance.Int64())
}
