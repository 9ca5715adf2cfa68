package storage

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	gethleveldb "github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Database is a generic interface for a key-value store.
// This allows the ledger to use any database backend (in-memory or persistent).
// TrieDB exposes the node database shared by every state trie opened on the
// store.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	TrieDB() *triedb.Database
	Close() // A way to gracefully shut down the database connection.
}

type kvStore struct {
	disk   ethdb.Database
	trieDB *triedb.Database
}

func newKVStore(disk ethdb.Database) *kvStore {
	return &kvStore{
		disk:   disk,
		trieDB: triedb.NewDatabase(disk, triedb.HashDefaults),
	}
}

func (s *kvStore) Put(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("storage: key must not be empty")
	}
	return s.disk.Put(key, value)
}

func (s *kvStore) Get(key []byte) ([]byte, error) {
	ok, err := s.disk.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	value, err := s.disk.Get(key)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *kvStore) TrieDB() *triedb.Database { return s.trieDB }

func (s *kvStore) Close() {
	_ = s.trieDB.Close()
	_ = s.disk.Close()
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	*kvStore
}

func NewMemDB() *MemDB {
	return &MemDB{kvStore: newKVStore(rawdb.NewMemoryDatabase())}
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	*kvStore
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	kv, err := gethleveldb.NewCustom(path, "agentpay/db/", func(options *opt.Options) {
		options.OpenFilesCacheCapacity = 64
		options.BlockCacheCapacity = 16 * opt.MiB
		options.WriteBuffer = 8 * opt.MiB
	})
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDB{kvStore: newKVStore(rawdb.NewDatabase(kv))}, nil
}
