package types

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestTransactionSignAndRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx := &Transaction{Type: TxTypeAccessContent, Nonce: 3, Value: big.NewInt(1000), Data: []byte(`{"contentId":1}`)}
	require.NoError(t, tx.Sign(key))

	from, err := tx.From()
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Bytes(), from)
}

func TestTransactionHashCoversPayload(t *testing.T) {
	a := &Transaction{Type: TxTypeDeposit, Nonce: 1, Value: big.NewInt(5)}
	b := &Transaction{Type: TxTypeDeposit, Nonce: 1, Value: big.NewInt(6)}
	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	require.NotEqual(t, ha, hb)

	zero := &Transaction{Type: TxTypeDeposit, Nonce: 1}
	explicit := &Transaction{Type: TxTypeDeposit, Nonce: 1, Value: new(big.Int)}
	hz, err := zero.Hash()
	require.NoError(t, err)
	he, err := explicit.Hash()
	require.NoError(t, err)
	require.Equal(t, hz, he)
}

func TestTransactionFromRequiresSignature(t *testing.T) {
	tx := &Transaction{Type: TxTypeWithdraw}
	_, err := tx.From()
	require.Error(t, err)
}

func TestTxTypeNames(t *testing.T) {
	parsed, err := ParseTxType("accessContent")
	require.NoError(t, err)
	require.Equal(t, TxTypeAccessContent, parsed)
	require.True(t, parsed.Payable())
	require.False(t, TxTypeWithdraw.Payable())
	require.False(t, TxType(0xff).Valid())

	_, err = ParseTxType("mint")
	require.Error(t, err)
}
