package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// TxType defines the purpose of a transaction. Each type maps to exactly one
// ledger entry point.
type TxType byte

const (
	TxTypeTransfer           TxType = 0x01 // Plain value transfer between accounts
	TxTypeRegisterCreator    TxType = 0x10
	TxTypeUpdateCreator      TxType = 0x11
	TxTypeDeactivateCreator  TxType = 0x12
	TxTypeReactivateCreator  TxType = 0x13
	TxTypeRegisterAgent      TxType = 0x14 // Payable: registration fee
	TxTypeUpdateAgent        TxType = 0x15
	TxTypeDeactivateAgent    TxType = 0x16
	TxTypeReactivateAgent    TxType = 0x17
	TxTypeRegisterContent    TxType = 0x20
	TxTypeUpdateContent      TxType = 0x21
	TxTypeAccessContent      TxType = 0x30 // Payable: content price
	TxTypeDeposit            TxType = 0x40 // Payable: deposited amount
	TxTypeWithdraw           TxType = 0x41
	TxTypeExecuteTransaction TxType = 0x42
	TxTypeCreateCampaign     TxType = 0x50 // Payable: campaign base price
	TxTypeExecuteCampaign    TxType = 0x51
	TxTypeCompleteCampaign   TxType = 0x52
	TxTypeSetPlatformFee     TxType = 0x60
	TxTypeSetFeeMode         TxType = 0x61
	TxTypeSetRegistrationFee TxType = 0x62
	TxTypeSetPriceBounds     TxType = 0x63
	TxTypeSetCampaignPrice   TxType = 0x64
	TxTypeSetPerformanceFee  TxType = 0x65
	TxTypeSetOperator        TxType = 0x66
	TxTypeSetCampaignAgent   TxType = 0x67
	TxTypeTransferAdmin      TxType = 0x68
	TxTypeSetPauses          TxType = 0x69
)

var txTypeNames = map[TxType]string{
	TxTypeTransfer:           "transfer",
	TxTypeRegisterCreator:    "registerCreator",
	TxTypeUpdateCreator:      "updateCreator",
	TxTypeDeactivateCreator:  "deactivateCreator",
	TxTypeReactivateCreator:  "reactivateCreator",
	TxTypeRegisterAgent:      "registerAgent",
	TxTypeUpdateAgent:        "updateAgent",
	TxTypeDeactivateAgent:    "deactivateAgent",
	TxTypeReactivateAgent:    "reactivateAgent",
	TxTypeRegisterContent:    "registerContent",
	TxTypeUpdateContent:      "updateContent",
	TxTypeAccessContent:      "accessContent",
	TxTypeDeposit:            "deposit",
	TxTypeWithdraw:           "withdraw",
	TxTypeExecuteTransaction: "executeTransaction",
	TxTypeCreateCampaign:     "createCampaign",
	TxTypeExecuteCampaign:    "executeCampaign",
	TxTypeCompleteCampaign:   "completeCampaign",
	TxTypeSetPlatformFee:     "setPlatformFee",
	TxTypeSetFeeMode:         "setFeeMode",
	TxTypeSetRegistrationFee: "setRegistrationFee",
	TxTypeSetPriceBounds:     "setPriceBounds",
	TxTypeSetCampaignPrice:   "setCampaignBasePrice",
	TxTypeSetPerformanceFee:  "setPerformanceFee",
	TxTypeSetOperator:        "setOperator",
	TxTypeSetCampaignAgent:   "setCampaignAgent",
	TxTypeTransferAdmin:      "transferAdmin",
	TxTypeSetPauses:          "setPauses",
}

// String returns the entry point name of the transaction type.
func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(t))
}

// Valid reports whether the type maps to a known entry point.
func (t TxType) Valid() bool {
	_, ok := txTypeNames[t]
	return ok
}

// Payable reports whether the entry point accepts attached value.
func (t TxType) Payable() bool {
	switch t {
	case TxTypeTransfer, TxTypeRegisterAgent, TxTypeAccessContent, TxTypeDeposit, TxTypeCreateCampaign:
		return true
	default:
		return false
	}
}

// ParseTxType resolves an entry point name into its transaction type.
func ParseTxType(name string) (TxType, error) {
	for t, n := range txTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction type %q", name)
}

var errMissingSignature = errors.New("transaction: missing signature")

// Transaction is a signed call against one ledger entry point. Data carries
// the JSON encoded operation payload.
type Transaction struct {
	Type  TxType   `json:"type"`
	Nonce uint64   `json:"nonce"`
	Value *big.Int `json:"value"`
	Data  []byte   `json:"data"`

	// Signature
	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

// Hash returns keccak256 over the RLP encoding of the unsigned fields.
func (tx *Transaction) Hash() ([]byte, error) {
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}
	encoded, err := rlp.EncodeToBytes(struct {
		Type  uint8
		Nonce uint64
		Value *big.Int
		Data  []byte
	}{uint8(tx.Type), tx.Nonce, value, tx.Data})
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(encoded), nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the signer address. The result is cached on the transaction.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, errMissingSignature
	}
	if tx.R.BitLen() > 256 || tx.S.BitLen() > 256 || tx.V.Uint64() < 27 {
		return nil, fmt.Errorf("transaction: malformed signature")
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 65)
	copy(sig[32-len(tx.R.Bytes()):32], tx.R.Bytes())
	copy(sig[64-len(tx.S.Bytes()):64], tx.S.Bytes())
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return tx.from, nil
}
