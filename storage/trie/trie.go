package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
	"github.com/ethereum/go-ethereum/triedb"

	"agentpay/storage"
)

// Trie is the ledger's Merkle Patricia state. Mutations stay in memory until
// Commit writes them through the trie database at a height; Reset and Copy
// give the ledger its revert points.
//
// Keys are expected to be keccak256 hashed by the caller.
//
// Trie is not safe for concurrent use, including reads: resolving nodes
// mutates the in-memory trie.
type Trie struct {
	db   *triedb.Database
	trie *gethtrie.Trie
	root common.Hash
}

// NewTrie opens the trie at root on store. A nil or empty root opens the
// empty trie.
func NewTrie(store storage.Database, root []byte) (*Trie, error) {
	rootHash := gethtypes.EmptyRootHash
	if len(root) > 0 {
		rootHash = common.BytesToHash(root)
	}
	t := &Trie{db: store.TrieDB()}
	if err := t.open(rootHash); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trie) open(root common.Hash) error {
	underlying, err := gethtrie.New(gethtrie.TrieID(root), t.db)
	if err != nil {
		return fmt.Errorf("open state at %s: %w", root.Hex(), err)
	}
	t.trie = underlying
	t.root = root
	return nil
}

// Get returns the value under key, or nil when the key is absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	return t.trie.Get(key)
}

func (t *Trie) Update(key, value []byte) error {
	return t.trie.Update(key, value)
}

func (t *Trie) Delete(key []byte) error {
	return t.trie.Delete(key)
}

// Hash returns the root including uncommitted mutations.
func (t *Trie) Hash() common.Hash {
	return t.trie.Hash()
}

// Root returns the last committed root.
func (t *Trie) Root() common.Hash {
	return t.root
}

// Reset drops uncommitted mutations and reopens the trie at root.
func (t *Trie) Reset(root common.Hash) error {
	return t.open(root)
}

// Copy returns an independent copy-on-write image sharing the same trie
// database. Mutating either side leaves the other untouched.
func (t *Trie) Copy() *Trie {
	return &Trie{db: t.db, trie: t.trie.Copy(), root: t.root}
}

// Commit flushes pending mutations as the state of height and reopens the
// trie at the new root. A commit with nothing pending returns the current
// root unchanged.
func (t *Trie) Commit(height uint64) (common.Hash, error) {
	parent := t.root
	newRoot, nodes := t.trie.Commit(false)
	if nodes != nil {
		merged := trienode.NewMergedNodeSet()
		if err := merged.Merge(nodes); err != nil {
			return common.Hash{}, err
		}
		if err := t.db.Update(newRoot, parent, height, merged, nil); err != nil {
			return common.Hash{}, fmt.Errorf("update trie db at height %d: %w", height, err)
		}
		if err := t.db.Commit(newRoot, false); err != nil {
			return common.Hash{}, fmt.Errorf("commit root %s: %w", newRoot.Hex(), err)
		}
	}
	if err := t.open(newRoot); err != nil {
		return common.Hash{}, err
	}
	return newRoot, nil
}
