// core/genesis/loader.go
package genesis

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"agentpay/core/state"
	"agentpay/core/types"
	"agentpay/native/params"
	"agentpay/storage"
	"agentpay/storage/trie"
)

// Apply writes the genesis parameters, pauses and allocations into manager.
func Apply(spec *GenesisSpec, manager *state.Manager) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if manager == nil {
		return fmt.Errorf("state manager must not be nil")
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	store := params.NewStore(manager)
	if err := store.SetParams(spec.ResolvedParams()); err != nil {
		return fmt.Errorf("store params: %w", err)
	}
	if err := store.SetPauses(spec.ResolvedPauses()); err != nil {
		return fmt.Errorf("store pauses: %w", err)
	}
	for _, alloc := range spec.Allocations() {
		if err := manager.PutAccount(alloc.Address[:], &types.Account{Balance: alloc.Amount}); err != nil {
			return fmt.Errorf("alloc: %w", err)
		}
	}
	return nil
}

// BuildGenesisFromSpec applies spec to an empty trie on db and commits it
// at height 0.
func BuildGenesisFromSpec(spec *GenesisSpec, db storage.Database) (common.Hash, error) {
	if db == nil {
		return common.Hash{}, fmt.Errorf("database must not be nil")
	}
	stateTrie, err := trie.NewTrie(db, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("init state trie: %w", err)
	}
	manager := state.NewManager(stateTrie)
	if err := Apply(spec, manager); err != nil {
		return common.Hash{}, err
	}
	root, err := manager.Commit(0)
	if err != nil {
		return common.Hash{}, fmt.Errorf("commit genesis: %w", err)
	}
	return root, nil
}
