package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"agentpay/core/types"
	"agentpay/native/access"
	"agentpay/native/campaign"
	"agentpay/native/catalog"
	"agentpay/native/common"
	"agentpay/native/custody"
	"agentpay/native/fees"
	"agentpay/native/registry"
	"agentpay/storage"
	"agentpay/storage/trie"
)

func newTestManager(t *testing.T, db storage.Database) *Manager {
	t.Helper()
	tr, err := trie.NewTrie(db, nil)
	require.NoError(t, err)
	return NewManager(tr)
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func accountKey(b byte) []byte {
	a := addr(b)
	return a[:]
}

func TestSnapshotRevertDiscardsMutations(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	m := newTestManager(t, db)

	require.NoError(t, m.PutAccount(accountKey(1), &types.Account{Balance: big.NewInt(100)}))
	before := m.Hash()
	snap := m.Snapshot()

	require.NoError(t, m.PutAccount(accountKey(1), &types.Account{Balance: big.NewInt(1)}))
	require.NoError(t, m.PutAccount(accountKey(2), &types.Account{Balance: big.NewInt(99)}))
	require.NotEqual(t, before, m.Hash())

	m.Revert(snap)
	require.Equal(t, before, m.Hash())
	acct, err := m.GetAccount(accountKey(1))
	require.NoError(t, err)
	require.Equal(t, int64(100), acct.Balance.Int64())
	other, err := m.GetAccount(accountKey(2))
	require.NoError(t, err)
	require.Zero(t, other.Balance.Sign())
}

func TestPutAccountRejectsNegativeBalance(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	m := newTestManager(t, db)
	require.Error(t, m.PutAccount(accountKey(1), &types.Account{Balance: big.NewInt(-1)}))

	tooLarge := new(big.Int).Lsh(big.NewInt(1), 256)
	require.ErrorIs(t, m.PutAccount(accountKey(1), &types.Account{Balance: tooLarge}), ErrBalanceOverflow)
}

func TestCounterStartsAtOne(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	m := newTestManager(t, db)

	last, err := m.CatalogLastID()
	require.NoError(t, err)
	require.Zero(t, last)

	first, err := m.CatalogNextID()
	require.NoError(t, err)
	require.Equal(t, uint64(1), first)
	second, err := m.CatalogNextID()
	require.NoError(t, err)
	require.Equal(t, uint64(2), second)

	custodyID, err := m.CustodyNextID()
	require.NoError(t, err)
	require.Equal(t, uint64(1), custodyID)
}

func TestRegistryRecordsRoundTrip(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	m := newTestManager(t, db)

	agent := &registry.Agent{
		Address:      addr(3),
		Name:         "Scout",
		Capabilities: "search",
		TotalSpent:   big.NewInt(42),
		RegisteredAt: 1700000000,
		Status:       common.StatusActive,
		CustodyID:    7,
	}
	require.NoError(t, m.RegistryAgentPut(agent))
	loaded, ok, err := m.RegistryAgentGet(addr(3))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, agent.Name, loaded.Name)
	require.Equal(t, agent.CustodyID, loaded.CustodyID)
	require.Equal(t, agent.RegisteredAt, loaded.RegisteredAt)
	require.Equal(t, 0, agent.TotalSpent.Cmp(loaded.TotalSpent))
	require.Equal(t, common.StatusActive, loaded.Status)

	_, ok, err = m.RegistryCreatorGet(addr(3))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.RegistryNamePut(registry.NamespaceAgent, "Scout", addr(3)))
	owner, ok, err := m.RegistryNameGet(registry.NamespaceAgent, " scout ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, addr(3), owner)
	_, ok, err = m.RegistryNameGet(registry.NamespaceCreator, "scout")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.RegistryNameDelete(registry.NamespaceAgent, "SCOUT"))
	_, ok, err = m.RegistryNameGet(registry.NamespaceAgent, "scout")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRegistryRejectsInvalidStatus(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	m := newTestManager(t, db)
	require.Error(t, m.RegistryCreatorPut(&registry.Creator{Address: addr(1), Name: "x"}))
}

func TestCatalogIndexes(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	m := newTestManager(t, db)

	content := &catalog.Content{
		ID:          1,
		Creator:     addr(4),
		Title:       "Report",
		Fingerprint: "abc",
		Price:       big.NewInt(1000),
		Status:      common.StatusActive,
	}
	require.NoError(t, m.CatalogContentPut(content))
	require.NoError(t, m.CatalogFingerprintPut("abc", 1))
	require.NoError(t, m.CatalogCreatorContentAppend(addr(4), 1))
	require.NoError(t, m.CatalogCreatorContentAppend(addr(4), 1))
	require.NoError(t, m.CatalogCreatorContentAppend(addr(4), 2))

	loaded, ok, err := m.CatalogContentGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Report", loaded.Title)
	require.Zero(t, loaded.TotalRevenue.Sign())

	id, ok, err := m.CatalogFingerprintGet("abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), id)

	ids, err := m.CatalogCreatorContents(addr(4))
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, ids)

	empty, err := m.CatalogCreatorContents(addr(5))
	require.NoError(t, err)
	require.Empty(t, empty)

	require.Error(t, m.CatalogContentPut(&catalog.Content{Status: common.StatusActive}))
}

func TestAccessCustodyAndCampaignRecords(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	m := newTestManager(t, db)

	require.NoError(t, m.AccessGrantPut(&access.Grant{Agent: addr(6), ContentID: 9, AccessCount: 2, TotalPaid: big.NewInt(20), LastTag: "daily"}))
	grant, ok, err := m.AccessGrantGet(addr(6), 9)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), grant.AccessCount)
	require.Equal(t, "daily", grant.LastTag)
	_, ok, err = m.AccessGrantGet(addr(6), 10)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.CustodyAccountPut(&custody.Account{ID: 1, Owner: addr(6), Balance: big.NewInt(5)}))
	require.NoError(t, m.CustodyOwnerPut(addr(6), 1))
	id, ok, err := m.CustodyOwnerGet(addr(6))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), id)
	acct, ok, err := m.CustodyAccountGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(5), acct.Balance.Int64())
	require.Error(t, m.CustodyAccountPut(&custody.Account{ID: 2, Balance: big.NewInt(-1)}))

	stats, err := m.CampaignStatsGet()
	require.NoError(t, err)
	require.NotNil(t, stats.TotalBonusesPaid)
	require.Zero(t, stats.TotalCampaigns)

	require.NoError(t, m.CampaignPut(&campaign.Campaign{
		ID:       1,
		Client:   addr(7),
		Type:     "awareness",
		Budget:   big.NewInt(1000),
		Payment:  big.NewInt(1000),
		Executed: true,
		Status:   campaign.StatusCompleted,
		Bonus:    big.NewInt(50),
	}))
	c, ok, err := m.CampaignGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, c.Executed)
	require.Equal(t, campaign.StatusCompleted, c.Status)
	require.Zero(t, c.Spent.Sign())

	stats.TotalCampaigns = 1
	stats.TotalBonusesPaid = big.NewInt(50)
	require.NoError(t, m.CampaignStatsPut(stats))
	reloaded, err := m.CampaignStatsGet()
	require.NoError(t, err)
	require.Equal(t, uint64(1), reloaded.TotalCampaigns)
	require.Equal(t, int64(50), reloaded.TotalBonusesPaid.Int64())
}

func TestFeeTotalsAndParams(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	m := newTestManager(t, db)

	require.NoError(t, fees.Record(m, fees.DomainAccess, addr(8), fees.Apply(big.NewInt(1000), 500, fees.ModeBps)))
	require.NoError(t, fees.Record(m, fees.DomainAccess, addr(8), fees.Apply(big.NewInt(1000), 500, fees.ModeBps)))
	totals, ok, err := m.FeeTotalsGet(fees.DomainAccess)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2000), totals.Gross.Int64())
	require.Equal(t, int64(100), totals.Fee.Int64())
	require.Equal(t, int64(1900), totals.Net.Int64())
	require.Equal(t, addr(8), totals.Wallet)

	require.NoError(t, m.ParamStoreSet("system/ledger", []byte{0x01, 0x02}))
	raw, ok, err := m.ParamStoreGet("system/ledger")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{0x01, 0x02}, raw)
	_, ok, err = m.ParamStoreGet("system/missing")
	require.NoError(t, err)
	require.False(t, ok)
	require.Error(t, m.ParamStoreSet(" ", nil))
}

func TestCommitPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	m := newTestManager(t, db)

	require.NoError(t, m.PutAccount(accountKey(1), &types.Account{Nonce: 3, Balance: big.NewInt(77)}))
	require.NoError(t, m.RegistryCreatorPut(&registry.Creator{Address: addr(1), Name: "Ada", TotalRevenue: big.NewInt(0), Status: common.StatusActive}))
	root, err := m.Commit(1)
	require.NoError(t, err)
	db.Close()

	reopened, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer reopened.Close()
	tr, err := trie.NewTrie(reopened, root.Bytes())
	require.NoError(t, err)
	restored := NewManager(tr)

	acct, err := restored.GetAccount(accountKey(1))
	require.NoError(t, err)
	require.Equal(t, int64(77), acct.Balance.Int64())
	require.Equal(t, uint64(3), acct.Nonce)
	creator, ok, err := restored.RegistryCreatorGet(addr(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Ada", creator.Name)
}
