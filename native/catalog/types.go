package catalog

import (
	"encoding/hex"
	"math/big"
	"strings"

	"lukechampine.com/blake3"

	"agentpay/native/common"
)

// MaxTitleLength bounds content titles, in bytes.
const MaxTitleLength = 256

// Content is a priced item owned by a creator.
type Content struct {
	ID           uint64
	Creator      [20]byte
	Title        string
	Description  string
	Fingerprint  string
	Price        *big.Int
	Status       common.Status
	AccessCount  uint64
	TotalRevenue *big.Int
	CreatedAt    int64
	UpdatedAt    int64
}

// Active reports whether the content can be accessed.
func (c *Content) Active() bool { return c != nil && c.Status == common.StatusActive }

// Clone returns a deep copy of the content record.
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	out := *c
	out.Price = cloneAmount(c.Price)
	out.TotalRevenue = cloneAmount(c.TotalRevenue)
	return &out
}

// ContentUpdate carries optional content changes. Empty fields are left
// untouched.
type ContentUpdate struct {
	Title       string
	Description string
	Price       *big.Int
	Active      *bool
}

// Fingerprint returns the hex encoded BLAKE3-256 digest of a content
// payload.
func Fingerprint(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NormalizeFingerprint trims surrounding whitespace from a fingerprint.
func NormalizeFingerprint(fp string) string {
	return strings.TrimSpace(fp)
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
