package state

import (
	"fmt"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"agentpay/storage/trie"
)

// Manager reads and writes ledger records in the state trie. Every record is
// RLP encoded under a keccak256 hashed key.
//
// Manager is not safe for concurrent use.
type Manager struct {
	trie *trie.Trie
}

// NewManager creates a state manager operating on the provided trie.
func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr}
}

// Snapshot is a copy-on-write image of the state taken before a speculative
// execution.
type Snapshot struct {
	trie *trie.Trie
}

// Snapshot captures the current in-memory state. Mutations made afterwards
// can be discarded with Revert.
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{trie: m.trie.Copy()}
}

// Revert restores the state captured by snap.
func (m *Manager) Revert(snap Snapshot) {
	if snap.trie == nil {
		return
	}
	m.trie = snap.trie
}

// Hash returns the root hash reflecting all in-memory mutations.
func (m *Manager) Hash() common.Hash {
	return m.trie.Hash()
}

// Root returns the last committed root.
func (m *Manager) Root() common.Hash {
	return m.trie.Root()
}

// Commit persists pending mutations and returns the new root.
func (m *Manager) Commit(height uint64) (common.Hash, error) {
	return m.trie.Commit(height)
}

// Reset discards in-memory mutations and reloads state at root.
func (m *Manager) Reset(root common.Hash) error {
	return m.trie.Reset(root)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is automatically hashed with keccak256 to match the requirements of
// the underlying trie implementation.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.trie.Update(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.trie.Get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.trie.Delete(kvKey(key))
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.trie.Get(kvKey(key))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}

func (m *Manager) loadCounter(key []byte) (uint64, error) {
	var v uint64
	if _, err := m.KVGet(key, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// nextID increments the counter stored under key and returns the new value.
// Identifiers therefore start at 1.
func (m *Manager) nextID(key []byte) (uint64, error) {
	current, err := m.loadCounter(key)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := m.KVPut(key, next); err != nil {
		return 0, err
	}
	return next, nil
}
