package events

import (
	"math/big"
	"strconv"

	"agentpay/crypto"
)

// FormatAmount renders an amount as a decimal string.
func FormatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// FormatAddress renders an account address in bech32 form.
func FormatAddress(addr [20]byte) string {
	return crypto.FormatAddress(addr)
}

// FormatUint renders an identifier or counter.
func FormatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// FormatBool renders a flag as "true" or "false".
func FormatBool(v bool) string {
	return strconv.FormatBool(v)
}
