package types

// Receipt records the outcome of an applied transaction. Failed transactions
// still consume their nonce and carry the stable reason code of the error.
type Receipt struct {
	TxHash  []byte   `json:"txHash"`
	Type    TxType   `json:"type"`
	Success bool     `json:"success"`
	Reason  string   `json:"reason,omitempty"`
	Error   string   `json:"error,omitempty"`
	Result  string   `json:"result,omitempty"`
	Events  []*Event `json:"events,omitempty"`
	Root    []byte   `json:"root"`
}
