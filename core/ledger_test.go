package core

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"agentpay/core/genesis"
	"agentpay/core/types"
	"agentpay/crypto"
	"agentpay/native/access"
	"agentpay/native/bank"
	"agentpay/native/catalog"
	nativecommon "agentpay/native/common"
	"agentpay/native/params"
	"agentpay/native/registry"
	"agentpay/storage"
	"agentpay/storage/trie"
)

const testNow = int64(1_700_000_000)

var (
	adminAddr    = fixedAddr(0xA1)
	operatorAddr = fixedAddr(0xA2)
	bonusAddr    = fixedAddr(0xA3)
	creatorAddr  = fixedAddr(0xC1)
	agentAddr    = fixedAddr(0xD1)
	clientAddr   = fixedAddr(0xE1)
)

func fixedAddr(b byte) [20]byte {
	var out [20]byte
	for i := range out {
		out[i] = b
	}
	return out
}

type ledgerOptions struct {
	campaignBasePrice string
}

func testGenesis(opts ledgerOptions) *genesis.GenesisSpec {
	base := opts.campaignBasePrice
	if base == "" {
		base = "100"
	}
	return &genesis.GenesisSpec{
		Admin:         crypto.FormatAddress(adminAddr),
		Operator:      crypto.FormatAddress(operatorAddr),
		CampaignAgent: crypto.FormatAddress(bonusAddr),
		Params: &genesis.ParamsSpec{
			RegistrationFee:   "10",
			MinPrice:          "100",
			MaxPrice:          "100000",
			CampaignBasePrice: base,
		},
		Alloc: map[string]string{
			crypto.FormatAddress(creatorAddr): "1000",
			crypto.FormatAddress(agentAddr):   "100000",
			crypto.FormatAddress(clientAddr):  "100000",
		},
	}
}

func newTestLedger(t *testing.T, opts ledgerOptions) *Ledger {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	root, err := genesis.BuildGenesisFromSpec(testGenesis(opts), db)
	require.NoError(t, err)
	tr, err := trie.NewTrie(db, root.Bytes())
	require.NoError(t, err)
	l := NewLedger(tr)
	l.SetNowFunc(func() int64 { return testNow })
	return l
}

func balanceOf(t *testing.T, l *Ledger, addr [20]byte) int64 {
	t.Helper()
	bal, err := l.Balance(addr)
	require.NoError(t, err)
	return bal.Int64()
}

// setupMarketplace registers a creator with one content item priced at 1000
// and an agent. It returns the content id.
func setupMarketplace(t *testing.T, l *Ledger) uint64 {
	t.Helper()
	_, err := l.RegisterCreator(creatorAddr, "Ada")
	require.NoError(t, err)
	content, err := l.RegisterContent(creatorAddr, "Market report", "Q3 numbers", catalog.Fingerprint([]byte("report-q3")), big.NewInt(1000))
	require.NoError(t, err)
	_, err = l.RegisterAgent(agentAddr, "scout", "research agent", "search,summarize", big.NewInt(10))
	require.NoError(t, err)
	return content.ID
}

func eventTypes(evts []*types.Event) []string {
	out := make([]string, 0, len(evts))
	for _, evt := range evts {
		out = append(out, evt.Type)
	}
	return out
}

func TestAccessContentHappyPath(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	contentID := setupMarketplace(t, l)
	require.Equal(t, int64(10), balanceOf(t, l, operatorAddr), "registration fee forwarded in full")

	settlement, err := l.AccessContent(agentAddr, contentID, "daily-digest", big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, int64(50), settlement.PlatformFee.Int64())
	require.Equal(t, int64(950), settlement.CreatorPayment.Int64())
	require.Contains(t, eventTypes(l.Published()), access.EventTypeContentAccessed)
	require.Contains(t, eventTypes(l.Published()), access.EventTypePaymentProcessed)

	content, err := l.Catalog.Content(contentID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), content.TotalRevenue.Int64())
	require.Equal(t, uint64(1), content.AccessCount)

	creator, err := l.Registry.Creator(creatorAddr)
	require.NoError(t, err)
	require.Equal(t, int64(950), creator.TotalRevenue.Int64())

	agent, err := l.Registry.Agent(agentAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), agent.AccessCount)
	require.Equal(t, int64(1000), agent.TotalSpent.Int64())

	require.Equal(t, int64(1000+950), balanceOf(t, l, creatorAddr))
	require.Equal(t, int64(10+50), balanceOf(t, l, operatorAddr))
	require.Equal(t, int64(100000-10-1000), balanceOf(t, l, agentAddr))
	require.Zero(t, balanceOf(t, l, AccessVault))

	ok, err := l.Access.HasAccess(agentAddr, contentID)
	require.NoError(t, err)
	require.True(t, ok)

	totals, err := l.FeeTotals("access")
	require.NoError(t, err)
	require.Equal(t, int64(50), totals.Fee.Int64())
	require.Equal(t, operatorAddr, totals.Wallet)
}

func TestAccessContentWrongPaymentLeavesNoTrace(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	contentID := setupMarketplace(t, l)
	before := l.StateRoot()
	agentBefore := balanceOf(t, l, agentAddr)

	_, err := l.AccessContent(agentAddr, contentID, "daily-digest", big.NewInt(999))
	require.ErrorIs(t, err, nativecommon.ErrIncorrectAmount)
	require.Equal(t, before, l.StateRoot())
	require.Equal(t, agentBefore, balanceOf(t, l, agentAddr))
	require.Empty(t, l.Published())

	content, err := l.Catalog.Content(contentID)
	require.NoError(t, err)
	require.Zero(t, content.AccessCount)
	require.Zero(t, content.TotalRevenue.Sign())
}

func TestRegisterContentRejectsDuplicateFingerprint(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	setupMarketplace(t, l)

	_, err := l.RegisterContent(creatorAddr, "Copy", "", catalog.Fingerprint([]byte("report-q3")), big.NewInt(2000))
	require.ErrorIs(t, err, nativecommon.ErrDuplicateContent)

	creator, err := l.Registry.Creator(creatorAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), creator.ContentCount)
	ids, err := l.Catalog.CreatorContents(creatorAddr)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, ids)
}

func TestCustodyOverdraftRejected(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	setupMarketplace(t, l)
	agent, err := l.Registry.Agent(agentAddr)
	require.NoError(t, err)

	_, err = l.Deposit(agentAddr, agent.CustodyID, big.NewInt(100))
	require.NoError(t, err)
	_, err = l.Withdraw(agentAddr, agent.CustodyID, big.NewInt(150))
	require.ErrorIs(t, err, nativecommon.ErrInsufficientBalance)

	account, err := l.Custody.Account(agent.CustodyID)
	require.NoError(t, err)
	require.Equal(t, int64(100), account.Balance.Int64())
	require.Equal(t, int64(100), balanceOf(t, l, CustodyVault))

	account, err = l.Withdraw(agentAddr, agent.CustodyID, big.NewInt(40))
	require.NoError(t, err)
	require.Equal(t, int64(60), account.Balance.Int64())
	require.Equal(t, int64(60), balanceOf(t, l, CustodyVault))
}

func TestExecuteTransactionPaysTargetFromCustody(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	setupMarketplace(t, l)
	agent, err := l.Registry.Agent(agentAddr)
	require.NoError(t, err)
	_, err = l.Deposit(agentAddr, agent.CustodyID, big.NewInt(500))
	require.NoError(t, err)

	target := fixedAddr(0x7A)
	var received []byte
	l.RegisterReceiver(target, bank.ReceiverFunc(func(from [20]byte, amount *big.Int, data []byte) error {
		received = append([]byte(nil), data...)
		return nil
	}))

	account, err := l.ExecuteTransaction(agentAddr, agent.CustodyID, target, []byte("order:42"), big.NewInt(200))
	require.NoError(t, err)
	require.Equal(t, int64(300), account.Balance.Int64())
	require.Equal(t, uint64(1), account.TxCount)
	require.Equal(t, []byte("order:42"), received)
	require.Equal(t, int64(200), balanceOf(t, l, target))

	l.RegisterReceiver(target, bank.ReceiverFunc(func([20]byte, *big.Int, []byte) error {
		return errors.New("rejected")
	}))
	before := l.StateRoot()
	_, err = l.ExecuteTransaction(agentAddr, agent.CustodyID, target, nil, big.NewInt(100))
	require.ErrorIs(t, err, nativecommon.ErrTransferFailed)
	require.Equal(t, before, l.StateRoot())
}

func TestExecuteTransactionRejectsModuleVaultTargets(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	setupMarketplace(t, l)
	agent, err := l.Registry.Agent(agentAddr)
	require.NoError(t, err)
	_, err = l.Deposit(agentAddr, agent.CustodyID, big.NewInt(500))
	require.NoError(t, err)

	for _, vault := range [][20]byte{CustodyVault, AccessVault, RegistryVault, CampaignVault, {}} {
		before := l.StateRoot()
		_, err := l.ExecuteTransaction(agentAddr, agent.CustodyID, vault, nil, big.NewInt(100))
		require.ErrorIs(t, err, nativecommon.ErrInvalidInput)
		require.Equal(t, before, l.StateRoot())
	}

	account, err := l.Custody.Account(agent.CustodyID)
	require.NoError(t, err)
	require.Equal(t, int64(500), account.Balance.Int64())
	require.Equal(t, int64(500), balanceOf(t, l, CustodyVault))
	require.Zero(t, account.TxCount)
}

func TestQueriesDoNotChangeState(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	contentID := setupMarketplace(t, l)
	root := l.StateRoot()

	firstContent, err := l.Catalog.Content(contentID)
	require.NoError(t, err)
	firstCreator, err := l.Registry.Creator(creatorAddr)
	require.NoError(t, err)
	firstAgent, err := l.Registry.Agent(agentAddr)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		content, err := l.Catalog.Content(contentID)
		require.NoError(t, err)
		require.Equal(t, firstContent, content)
		creator, err := l.Registry.Creator(creatorAddr)
		require.NoError(t, err)
		require.Equal(t, firstCreator, creator)
		agent, err := l.Registry.Agent(agentAddr)
		require.NoError(t, err)
		require.Equal(t, firstAgent, agent)
		require.Equal(t, root, l.StateRoot())
	}
}

func TestCampaignBonusPaidWhenVaultCovers(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	created, err := l.CreateCampaign(clientAddr, "awareness", big.NewInt(2000), big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, int64(100), balanceOf(t, l, CampaignVault))

	_, err = l.ExecuteCampaign(adminAddr, created.ID, big.NewInt(1000), 8000)
	require.NoError(t, err)
	completed, err := l.CompleteCampaign(clientAddr, created.ID)
	require.NoError(t, err)
	require.True(t, completed.BonusPaid)
	require.Equal(t, int64(50), completed.Bonus.Int64())
	require.Equal(t, int64(50), balanceOf(t, l, bonusAddr))
	require.Equal(t, int64(50), balanceOf(t, l, CampaignVault))

	stats, err := l.Campaign.Stats()
	require.NoError(t, err)
	require.Equal(t, uint64(8000), stats.AveragePerformance)
	require.Equal(t, int64(50), stats.TotalBonusesPaid.Int64())

	_, err = l.CompleteCampaign(clientAddr, created.ID)
	require.ErrorIs(t, err, nativecommon.ErrAlreadyCompleted)
}

func TestCampaignBonusSkippedWhenVaultShort(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{campaignBasePrice: "40"})
	created, err := l.CreateCampaign(clientAddr, "awareness", big.NewInt(2000), big.NewInt(40))
	require.NoError(t, err)
	_, err = l.ExecuteCampaign(adminAddr, created.ID, big.NewInt(1000), 8000)
	require.NoError(t, err)

	completed, err := l.CompleteCampaign(clientAddr, created.ID)
	require.NoError(t, err)
	require.False(t, completed.BonusPaid)
	require.Zero(t, balanceOf(t, l, bonusAddr))
	require.Equal(t, int64(40), balanceOf(t, l, CampaignVault))

	stats, err := l.Campaign.Stats()
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.BonusesSkipped)
}

func TestReentrantPayeeIsRejected(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	contentID := setupMarketplace(t, l)
	before := l.StateRoot()

	var nestedErr error
	var observedAccesses uint64
	l.RegisterReceiver(creatorAddr, bank.ReceiverFunc(func([20]byte, *big.Int, []byte) error {
		content, err := l.Catalog.Content(contentID)
		if err != nil {
			return err
		}
		observedAccesses = content.AccessCount
		_, nestedErr = l.AccessContent(agentAddr, contentID, "again", big.NewInt(1000))
		return nestedErr
	}))

	_, err := l.AccessContent(agentAddr, contentID, "daily-digest", big.NewInt(1000))
	require.ErrorIs(t, err, nativecommon.ErrTransferFailed)
	require.ErrorIs(t, nestedErr, nativecommon.ErrReentrantCall)
	require.Equal(t, uint64(1), observedAccesses, "reads inside the callback see the call in flight")
	require.Equal(t, before, l.StateRoot())

	content, err := l.Catalog.Content(contentID)
	require.NoError(t, err)
	require.Zero(t, content.AccessCount)

	l.RegisterReceiver(creatorAddr, nil)
	_, err = l.AccessContent(agentAddr, contentID, "daily-digest", big.NewInt(1000))
	require.NoError(t, err)
}

func TestAttachedValueRevertedOnFailure(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	agentBefore := balanceOf(t, l, agentAddr)

	_, err := l.RegisterAgent(agentAddr, "scout", "", "", big.NewInt(9))
	require.ErrorIs(t, err, nativecommon.ErrInsufficientFee)
	require.Equal(t, agentBefore, balanceOf(t, l, agentAddr))
	require.Zero(t, balanceOf(t, l, RegistryVault))

	_, err = l.CreateCampaign(creatorAddr, "awareness", big.NewInt(10), big.NewInt(5000))
	require.ErrorIs(t, err, nativecommon.ErrInsufficientBalance)
}

func TestPausedModuleRejectsMutations(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	contentID := setupMarketplace(t, l)

	require.ErrorIs(t, l.SetPauses(agentAddr, []string{params.ModuleAccess}), nativecommon.ErrUnauthorized)
	require.NoError(t, l.SetPauses(adminAddr, []string{params.ModuleAccess}))

	_, err := l.AccessContent(agentAddr, contentID, "daily-digest", big.NewInt(1000))
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
	_, err = l.Catalog.Content(contentID)
	require.NoError(t, err, "queries keep working while paused")

	require.NoError(t, l.SetPauses(adminAddr, nil))
	_, err = l.AccessContent(agentAddr, contentID, "daily-digest", big.NewInt(1000))
	require.NoError(t, err)
}

func TestAdminChangesApplyToSubsequentCalls(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	contentID := setupMarketplace(t, l)

	require.ErrorIs(t, l.SetPlatformFee(creatorAddr, 100), nativecommon.ErrUnauthorized)
	require.ErrorIs(t, l.SetPlatformFee(adminAddr, 2001), nativecommon.ErrInvalidInput)
	require.NoError(t, l.SetPlatformFee(adminAddr, 2000))

	settlement, err := l.AccessContent(agentAddr, contentID, "daily-digest", big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, int64(200), settlement.PlatformFee.Int64())

	err = l.SetPriceBounds(adminAddr, big.NewInt(2000), big.NewInt(5000))
	require.ErrorIs(t, err, nativecommon.ErrPriceOutOfRange, "existing content would be stranded")
	require.ErrorIs(t, l.SetPriceBounds(adminAddr, big.NewInt(500), big.NewInt(100)), nativecommon.ErrInvalidInput)
}

func TestRenameReleasesOldName(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	setupMarketplace(t, l)
	other := fixedAddr(0xD2)
	require.NoError(t, l.Transfer(agentAddr, other, big.NewInt(100)))

	_, err := l.RegisterAgent(other, "Scout", "", "", big.NewInt(10))
	require.ErrorIs(t, err, nativecommon.ErrNameTaken)

	_, err = l.UpdateAgent(agentAddr, registry.AgentUpdate{Name: "pathfinder"})
	require.NoError(t, err)
	_, err = l.RegisterAgent(other, "Scout", "", "", big.NewInt(10))
	require.NoError(t, err)

	found, err := l.Registry.AgentByName("PATHFINDER")
	require.NoError(t, err)
	require.Equal(t, agentAddr, found.Address)
}

func TestTransferRejectsZeroAmount(t *testing.T) {
	l := newTestLedger(t, ledgerOptions{})
	require.ErrorIs(t, l.Transfer(agentAddr, clientAddr, big.NewInt(0)), nativecommon.ErrInvalidAmount)
	require.ErrorIs(t, l.Transfer(creatorAddr, clientAddr, big.NewInt(1001)), nativecommon.ErrInsufficientBalance)
}
