package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"agentpay/storage"
)

func TestTrieCommitFlushPersistsData(t *testing.T) {
	dir := t.TempDir()

	db1, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	tr, err := NewTrie(db1, nil)
	require.NoError(t, err)

	key := crypto.Keccak256Hash([]byte("key"))
	value := []byte("value")

	require.NoError(t, tr.Update(key.Bytes(), value))
	root, err := tr.Commit(0)
	require.NoError(t, err)

	db1.Close()

	db2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	restored, err := NewTrie(db2, root.Bytes())
	require.NoError(t, err)

	got, err := restored.Get(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestTrieCopyIsolatesMutations(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)

	key := crypto.Keccak256([]byte("balance"))
	require.NoError(t, tr.Update(key, []byte{0x01}))
	before := tr.Hash()

	snapshot := tr.Copy()
	require.NoError(t, tr.Update(key, []byte{0x02}))
	require.NotEqual(t, before, tr.Hash())

	got, err := snapshot.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, got)
	require.Equal(t, before, snapshot.Hash())
}

func TestTrieMissingKeyReturnsNil(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)

	got, err := tr.Get(crypto.Keccak256([]byte("absent")))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTrieResetDropsPendingMutations(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)
	key := crypto.Keccak256([]byte("nonce"))
	require.NoError(t, tr.Update(key, []byte{0x01}))
	committed, err := tr.Commit(1)
	require.NoError(t, err)
	require.Equal(t, committed, tr.Root())

	require.NoError(t, tr.Update(key, []byte{0x02}))
	require.NoError(t, tr.Reset(tr.Root()))
	got, err := tr.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, got)
	require.Equal(t, committed, tr.Hash())
}
