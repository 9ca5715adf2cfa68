package catalog

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"agentpay/core/events"
	"agentpay/native/common"
	"agentpay/native/params"
	"agentpay/native/registry"
)

type mockState struct {
	contents     map[uint64]*Content
	lastID       uint64
	fingerprints map[string]uint64
	byCreator    map[[20]byte][]uint64
	creators     map[[20]byte]*registry.Creator
}

func newMockState() *mockState {
	return &mockState{
		contents:     make(map[uint64]*Content),
		fingerprints: make(map[string]uint64),
		byCreator:    make(map[[20]byte][]uint64),
		creators:     make(map[[20]byte]*registry.Creator),
	}
}

func (m *mockState) CatalogContentGet(id uint64) (*Content, bool, error) {
	c, ok := m.contents[id]
	if !ok {
		return nil, false, nil
	}
	return c.Clone(), true, nil
}

func (m *mockState) CatalogContentPut(c *Content) error {
	m.contents[c.ID] = c.Clone()
	return nil
}

func (m *mockState) CatalogNextID() (uint64, error) {
	m.lastID++
	return m.lastID, nil
}

func (m *mockState) CatalogLastID() (uint64, error) { return m.lastID, nil }

func (m *mockState) CatalogFingerprintGet(fp string) (uint64, bool, error) {
	id, ok := m.fingerprints[fp]
	return id, ok, nil
}

func (m *mockState) CatalogFingerprintPut(fp string, id uint64) error {
	m.fingerprints[fp] = id
	return nil
}

func (m *mockState) CatalogCreatorContents(creator [20]byte) ([]uint64, error) {
	return append([]uint64{}, m.byCreator[creator]...), nil
}

func (m *mockState) CatalogCreatorContentAppend(creator [20]byte, id uint64) error {
	m.byCreator[creator] = append(m.byCreator[creator], id)
	return nil
}

func (m *mockState) RegistryCreatorGet(addr [20]byte) (*registry.Creator, bool, error) {
	c, ok := m.creators[addr]
	if !ok {
		return nil, false, nil
	}
	return c.Clone(), true, nil
}

func (m *mockState) RegistryCreatorPut(c *registry.Creator) error {
	m.creators[c.Address] = c.Clone()
	return nil
}

type staticParams params.Params

func (s staticParams) Params() (params.Params, error) { return params.Params(s), nil }

func newTestEngine(t *testing.T) (*Engine, *mockState, [20]byte) {
	t.Helper()
	cfg := params.Default()
	cfg.MinPrice = big.NewInt(10)
	cfg.MaxPrice = big.NewInt(10_000)

	state := newMockState()
	creator := [20]byte{0xC1}
	state.creators[creator] = &registry.Creator{Address: creator, Name: "maker", TotalRevenue: big.NewInt(0), Status: common.StatusActive}

	engine := NewEngine()
	engine.SetState(state)
	engine.SetParams(staticParams(cfg))
	engine.SetNowFunc(func() int64 { return 42 })
	return engine, state, creator
}

func TestRegisterContentAssignsSequentialIDs(t *testing.T) {
	engine, state, creator := newTestEngine(t)

	first, err := engine.RegisterContent(creator, "Paper", "", Fingerprint([]byte("paper")), big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, uint64(1), first.ID)
	require.True(t, first.Active())
	require.Zero(t, first.AccessCount)

	second, err := engine.RegisterContent(creator, "Dataset", "csv", "fp-2", big.NewInt(10))
	require.NoError(t, err)
	require.Equal(t, uint64(2), second.ID)

	require.Equal(t, uint64(2), state.creators[creator].ContentCount)
	ids, err := engine.CreatorContents(creator)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, ids)

	found, err := engine.ContentByFingerprint(" fp-2 ")
	require.NoError(t, err)
	require.Equal(t, uint64(2), found.ID)
}

func TestRegisterContentValidation(t *testing.T) {
	engine, state, creator := newTestEngine(t)

	_, err := engine.RegisterContent([20]byte{0x99}, "t", "", "fp", big.NewInt(100))
	require.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = engine.RegisterContent(creator, "", "", "fp", big.NewInt(100))
	require.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = engine.RegisterContent(creator, "t", "", "  ", big.NewInt(100))
	require.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = engine.RegisterContent(creator, "t", "", "fp", big.NewInt(9))
	require.ErrorIs(t, err, common.ErrPriceOutOfRange)
	_, err = engine.RegisterContent(creator, "t", "", "fp", big.NewInt(10_001))
	require.ErrorIs(t, err, common.ErrPriceOutOfRange)

	_, err = engine.RegisterContent(creator, "t", "", "fp", big.NewInt(100))
	require.NoError(t, err)
	_, err = engine.RegisterContent(creator, "t2", "", "fp", big.NewInt(100))
	require.ErrorIs(t, err, common.ErrDuplicateContent)

	state.creators[creator].Status = common.StatusInactive
	_, err = engine.RegisterContent(creator, "t3", "", "fp3", big.NewInt(100))
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestUpdateContent(t *testing.T) {
	engine, _, creator := newTestEngine(t)
	content, err := engine.RegisterContent(creator, "Paper", "v1", "fp", big.NewInt(1000))
	require.NoError(t, err)

	_, err = engine.UpdateContent([20]byte{0x99}, content.ID, ContentUpdate{Title: "x"})
	require.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = engine.UpdateContent(creator, 77, ContentUpdate{})
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = engine.UpdateContent(creator, content.ID, ContentUpdate{Price: big.NewInt(5)})
	require.ErrorIs(t, err, common.ErrPriceOutOfRange)

	inactive := false
	updated, err := engine.UpdateContent(creator, content.ID, ContentUpdate{Price: big.NewInt(2000), Active: &inactive})
	require.NoError(t, err)
	require.Equal(t, int64(2000), updated.Price.Int64())
	require.Equal(t, "Paper", updated.Title)
	require.Equal(t, "v1", updated.Description)
	require.False(t, updated.Active())
}

type countingEmitter struct{ count int }

func (c *countingEmitter) Emit(events.Event) { c.count++ }

func TestUpdateContentWithoutChangesIsNoop(t *testing.T) {
	engine, state, creator := newTestEngine(t)
	content, err := engine.RegisterContent(creator, "Paper", "v1", "fp", big.NewInt(1000))
	require.NoError(t, err)
	emitter := &countingEmitter{}
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() int64 { return 99 })

	active := true
	updated, err := engine.UpdateContent(creator, content.ID, ContentUpdate{Title: "Paper", Price: big.NewInt(1000), Active: &active})
	require.NoError(t, err)
	require.Equal(t, content.UpdatedAt, updated.UpdatedAt)
	require.Equal(t, content.UpdatedAt, state.contents[content.ID].UpdatedAt)
	require.Zero(t, emitter.count)

	updated, err = engine.UpdateContent(creator, content.ID, ContentUpdate{Description: "v2"})
	require.NoError(t, err)
	require.Equal(t, int64(99), updated.UpdatedAt)
	require.Equal(t, 1, emitter.count)
}

func TestCheckBounds(t *testing.T) {
	engine, _, creator := newTestEngine(t)
	_, err := engine.RegisterContent(creator, "Paper", "", "fp", big.NewInt(1000))
	require.NoError(t, err)

	require.NoError(t, engine.CheckBounds(big.NewInt(1), big.NewInt(1000)))
	require.ErrorIs(t, engine.CheckBounds(big.NewInt(1001), big.NewInt(5000)), common.ErrPriceOutOfRange)
	require.ErrorIs(t, engine.CheckBounds(big.NewInt(1), big.NewInt(999)), common.ErrPriceOutOfRange)
}

func TestFingerprintIsStableHex(t *testing.T) {
	fp := Fingerprint([]byte("hello"))
	require.Len(t, fp, 64)
	require.Equal(t, fp, Fingerprint([]byte("hello")))
	require.NotEqual(t, fp, Fingerprint([]byte("hello!")))
}
