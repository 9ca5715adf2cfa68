package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"agentpay/core/types"
)

// ErrBalanceOverflow is returned when a balance does not fit in 256 bits.
var ErrBalanceOverflow = errors.New("state: balance exceeds 256 bits")

const accountPrefix = "account/"

// accountRecord is the stored form of an account. Balances are bounded to
// 256 bits on write.
type accountRecord struct {
	Nonce   uint64
	Balance *uint256.Int
}

// GetAccount loads the account stored under addr. Unknown accounts are
// returned zeroed.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("state: address must not be empty")
	}
	data, err := m.trie.Get(kvKey(accountStoreKey(addr)))
	if err != nil {
		return nil, err
	}
	account := &types.Account{Balance: big.NewInt(0)}
	if len(data) == 0 {
		return account, nil
	}
	var rec accountRecord
	if err := rlp.DecodeBytes(data, &rec); err != nil {
		return nil, fmt.Errorf("state: decode account %x: %w", addr, err)
	}
	account.Nonce = rec.Nonce
	if rec.Balance != nil {
		account.Balance = rec.Balance.ToBig()
	}
	return account, nil
}

// PutAccount stores account under addr. Negative balances are rejected.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) == 0 {
		return fmt.Errorf("state: address must not be empty")
	}
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	rec := accountRecord{Nonce: account.Nonce, Balance: new(uint256.Int)}
	if account.Balance != nil {
		if account.Balance.Sign() < 0 {
			return fmt.Errorf("state: negative balance for %x", addr)
		}
		balance, overflow := uint256.FromBig(account.Balance)
		if overflow {
			return ErrBalanceOverflow
		}
		rec.Balance = balance
	}
	encoded, err := rlp.EncodeToBytes(&rec)
	if err != nil {
		return err
	}
	return m.trie.Update(kvKey(accountStoreKey(addr)), encoded)
}

func accountStoreKey(addr []byte) []byte {
	return append([]byte(accountPrefix), addr...)
}
