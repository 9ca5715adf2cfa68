package registry

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"agentpay/core/events"
	"agentpay/native/common"
	"agentpay/native/fees"
	"agentpay/native/params"
)

type mockState struct {
	creators map[[20]byte]*Creator
	agents   map[[20]byte]*Agent
	names    map[string][20]byte
	totals   map[string]*fees.Totals
}

func newMockState() *mockState {
	return &mockState{
		creators: make(map[[20]byte]*Creator),
		agents:   make(map[[20]byte]*Agent),
		names:    make(map[string][20]byte),
		totals:   make(map[string]*fees.Totals),
	}
}

func nameKey(namespace, name string) string {
	return namespace + "/" + strings.ToLower(strings.TrimSpace(name))
}

func (m *mockState) RegistryCreatorGet(addr [20]byte) (*Creator, bool, error) {
	c, ok := m.creators[addr]
	if !ok {
		return nil, false, nil
	}
	return c.Clone(), true, nil
}

func (m *mockState) RegistryCreatorPut(c *Creator) error {
	m.creators[c.Address] = c.Clone()
	return nil
}

func (m *mockState) RegistryAgentGet(addr [20]byte) (*Agent, bool, error) {
	a, ok := m.agents[addr]
	if !ok {
		return nil, false, nil
	}
	return a.Clone(), true, nil
}

func (m *mockState) RegistryAgentPut(a *Agent) error {
	m.agents[a.Address] = a.Clone()
	return nil
}

func (m *mockState) RegistryNameGet(namespace, name string) ([20]byte, bool, error) {
	owner, ok := m.names[nameKey(namespace, name)]
	return owner, ok, nil
}

func (m *mockState) RegistryNamePut(namespace, name string, owner [20]byte) error {
	m.names[nameKey(namespace, name)] = owner
	return nil
}

func (m *mockState) RegistryNameDelete(namespace, name string) error {
	delete(m.names, nameKey(namespace, name))
	return nil
}

func (m *mockState) FeeTotalsGet(domain string) (*fees.Totals, bool, error) {
	t, ok := m.totals[domain]
	return t, ok, nil
}

func (m *mockState) FeeTotalsPut(t *fees.Totals) error {
	m.totals[t.Domain] = t
	return nil
}

type staticParams params.Params

func (s staticParams) Params() (params.Params, error) { return params.Params(s), nil }

type transferCall struct {
	from, to [20]byte
	amount   *big.Int
}

type stubBank struct {
	calls []transferCall
	err   error
}

func (b *stubBank) Transfer(from, to [20]byte, amount *big.Int) error {
	if b.err != nil {
		return b.err
	}
	b.calls = append(b.calls, transferCall{from: from, to: to, amount: new(big.Int).Set(amount)})
	return nil
}

type stubCustody struct {
	next   uint64
	owners map[[20]byte]uint64
}

func (c *stubCustody) Open(owner [20]byte) (uint64, error) {
	if c.owners == nil {
		c.owners = make(map[[20]byte]uint64)
	}
	if _, ok := c.owners[owner]; ok {
		return 0, common.ErrAlreadyRegistered
	}
	c.next++
	c.owners[owner] = c.next
	return c.next, nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

type fixture struct {
	engine   *Engine
	state    *mockState
	bank     *stubBank
	emitter  *captureEmitter
	operator [20]byte
	vault    [20]byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := params.Default()
	cfg.RegistrationFee = big.NewInt(100)
	cfg.Operator = [20]byte{0x0F}

	f := &fixture{
		engine:   NewEngine(),
		state:    newMockState(),
		bank:     &stubBank{},
		emitter:  &captureEmitter{},
		operator: cfg.Operator,
		vault:    [20]byte{0xEE},
	}
	f.engine.SetState(f.state)
	f.engine.SetParams(staticParams(cfg))
	f.engine.SetBank(f.bank)
	f.engine.SetCustody(&stubCustody{})
	f.engine.SetVault(f.vault)
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	return f
}

func TestRegisterCreator(t *testing.T) {
	f := newFixture(t)
	alice, bob := [20]byte{0x01}, [20]byte{0x02}

	creator, err := f.engine.RegisterCreator(alice, "  Alice ")
	require.NoError(t, err)
	require.Equal(t, "Alice", creator.Name)
	require.Equal(t, common.StatusActive, creator.Status)
	require.Zero(t, creator.TotalRevenue.Sign())
	require.Equal(t, int64(1_700_000_000), creator.RegisteredAt)

	_, err = f.engine.RegisterCreator(alice, "Other")
	require.ErrorIs(t, err, common.ErrAlreadyRegistered)
	_, err = f.engine.RegisterCreator(bob, "alice")
	require.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = f.engine.RegisterCreator(bob, "   ")
	require.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = f.engine.RegisterCreator(bob, strings.Repeat("x", MaxNameLength+1))
	require.ErrorIs(t, err, common.ErrInvalidInput)

	byName, err := f.engine.CreatorByName("ALICE")
	require.NoError(t, err)
	require.Equal(t, alice, byName.Address)
	require.Len(t, f.emitter.events, 1)
	require.Equal(t, EventTypeCreatorRegistered, f.emitter.events[0].EventType())
}

func TestRegisterAgentForwardsFee(t *testing.T) {
	f := newFixture(t)
	owner := [20]byte{0x0A}

	agent, err := f.engine.RegisterAgent(owner, "scout", "crawler", `{"read":true}`, big.NewInt(150))
	require.NoError(t, err)
	require.Equal(t, uint64(1), agent.CustodyID)
	require.Len(t, f.bank.calls, 1)
	require.Equal(t, f.vault, f.bank.calls[0].from)
	require.Equal(t, f.operator, f.bank.calls[0].to)
	require.Equal(t, int64(150), f.bank.calls[0].amount.Int64())
	require.Equal(t, int64(150), f.state.totals[fees.DomainRegistration].Fee.Int64())
}

func TestRegisterAgentFailureOrder(t *testing.T) {
	f := newFixture(t)
	owner, other := [20]byte{0x0A}, [20]byte{0x0B}

	_, err := f.engine.RegisterAgent(owner, "scout", "", "", big.NewInt(99))
	require.ErrorIs(t, err, common.ErrInsufficientFee)

	_, err = f.engine.RegisterAgent(owner, "scout", "", "", big.NewInt(100))
	require.NoError(t, err)

	_, err = f.engine.RegisterAgent(owner, "another", "", "", big.NewInt(100))
	require.ErrorIs(t, err, common.ErrAlreadyRegistered)

	_, err = f.engine.RegisterAgent(other, "Scout", "", "", big.NewInt(100))
	require.ErrorIs(t, err, common.ErrNameTaken)

	_, err = f.engine.RegisterAgent(other, "", "", "", big.NewInt(100))
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRegisterAgentBankFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.bank.err = errors.New("vault drained")
	_, err := f.engine.RegisterAgent([20]byte{0x0A}, "scout", "", "", big.NewInt(100))
	require.Error(t, err)
}

func TestUpdateAgentRenameReleasesOldName(t *testing.T) {
	f := newFixture(t)
	owner, other := [20]byte{0x0A}, [20]byte{0x0B}
	_, err := f.engine.RegisterAgent(owner, "scout", "v1", "", big.NewInt(100))
	require.NoError(t, err)
	_, err = f.engine.RegisterAgent(other, "ranger", "", "", big.NewInt(100))
	require.NoError(t, err)

	_, err = f.engine.UpdateAgent(owner, AgentUpdate{Name: "RANGER"})
	require.ErrorIs(t, err, common.ErrNameTaken)

	updated, err := f.engine.UpdateAgent(owner, AgentUpdate{Name: "pathfinder"})
	require.NoError(t, err)
	require.Equal(t, "pathfinder", updated.Name)
	require.Equal(t, "v1", updated.Description)

	_, err = f.engine.AgentByName("scout")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.engine.RegisterAgent([20]byte{0x0C}, "scout", "", "", big.NewInt(100))
	require.NoError(t, err)

	same, err := f.engine.UpdateAgent(owner, AgentUpdate{Name: "PathFinder", Capabilities: "search"})
	require.NoError(t, err)
	require.Equal(t, "PathFinder", same.Name)
	require.Equal(t, "search", same.Capabilities)

	_, err = f.engine.UpdateAgent([20]byte{0x99}, AgentUpdate{Description: "x"})
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestUpdateAgentEmptyFieldsAreNoop(t *testing.T) {
	f := newFixture(t)
	owner := [20]byte{0x0A}
	_, err := f.engine.RegisterAgent(owner, "scout", "desc", "caps", big.NewInt(100))
	require.NoError(t, err)
	before := len(f.emitter.events)

	agent, err := f.engine.UpdateAgent(owner, AgentUpdate{})
	require.NoError(t, err)
	require.Equal(t, "scout", agent.Name)
	require.Equal(t, "desc", agent.Description)
	require.Len(t, f.emitter.events, before)
}

func TestStatusFlips(t *testing.T) {
	f := newFixture(t)
	owner := [20]byte{0x0A}
	_, err := f.engine.RegisterAgent(owner, "scout", "", "", big.NewInt(100))
	require.NoError(t, err)
	_, err = f.engine.RegisterCreator(owner, "maker")
	require.NoError(t, err)

	_, err = f.engine.SetAgentStatus(owner, true)
	require.ErrorIs(t, err, common.ErrInvalidInput)
	agent, err := f.engine.SetAgentStatus(owner, false)
	require.NoError(t, err)
	require.Equal(t, common.StatusInactive, agent.Status)
	_, err = f.engine.SetAgentStatus(owner, false)
	require.ErrorIs(t, err, common.ErrInvalidInput)

	creator, err := f.engine.SetCreatorStatus(owner, false)
	require.NoError(t, err)
	require.False(t, creator.Active())
	creator, err = f.engine.SetCreatorStatus(owner, true)
	require.NoError(t, err)
	require.True(t, creator.Active())

	_, err = f.engine.SetCreatorStatus([20]byte{0x77}, false)
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestUpdateCreatorRename(t *testing.T) {
	f := newFixture(t)
	alice, bob := [20]byte{0x01}, [20]byte{0x02}
	_, err := f.engine.RegisterCreator(alice, "alice")
	require.NoError(t, err)
	_, err = f.engine.RegisterCreator(bob, "bob")
	require.NoError(t, err)

	_, err = f.engine.UpdateCreator(alice, "Bob")
	require.ErrorIs(t, err, common.ErrInvalidInput)

	updated, err := f.engine.UpdateCreator(alice, "alicia")
	require.NoError(t, err)
	require.Equal(t, "alicia", updated.Name)
	_, err = f.engine.CreatorByName("alice")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestQueriesReportNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Creator([20]byte{0x42})
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.engine.Agent([20]byte{0x42})
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.engine.AgentByName("ghost")
	require.ErrorIs(t, err, common.ErrNotFound)
}
