package state

import (
	"strconv"
	"strings"
)

var (
	paramsPrefix          = "params/"
	feeTotalsPrefix       = "fees/totals/"
	creatorPrefix         = "registry/creator/"
	agentPrefix           = "registry/agent/"
	namePrefix            = "registry/name/"
	contentPrefix         = "catalog/content/"
	contentLastIDKey      = []byte("catalog/last-id")
	fingerprintPrefix     = "catalog/fingerprint/"
	creatorContentsPrefix = "catalog/by-creator/"
	grantPrefix           = "access/grant/"
	custodyPrefix         = "custody/account/"
	custodyLastIDKey      = []byte("custody/last-id")
	custodyOwnerPrefix    = "custody/owner/"
	campaignPrefix        = "campaign/record/"
	campaignLastIDKey     = []byte("campaign/last-id")
	campaignStatsKey      = []byte("campaign/stats")
)

// ParamStoreKey returns the state key for a named parameter.
func ParamStoreKey(name string) []byte {
	return []byte(paramsPrefix + strings.TrimSpace(name))
}

func addressKey(prefix string, addr [20]byte) []byte {
	buf := make([]byte, len(prefix)+len(addr))
	copy(buf, prefix)
	copy(buf[len(prefix):], addr[:])
	return buf
}

func idKey(prefix string, id uint64) []byte {
	return []byte(prefix + strconv.FormatUint(id, 10))
}

// NameKey returns the state key for a claimed name within a namespace. Names
// are matched case-insensitively.
func NameKey(namespace, name string) []byte {
	return []byte(namePrefix + namespace + "/" + strings.ToLower(strings.TrimSpace(name)))
}

func fingerprintKey(fp string) []byte {
	return []byte(fingerprintPrefix + strings.TrimSpace(fp))
}

func grantKey(agent [20]byte, contentID uint64) []byte {
	return append(addressKey(grantPrefix, agent), []byte("/"+strconv.FormatUint(contentID, 10))...)
}

func feeTotalsKey(domain string) []byte {
	return []byte(feeTotalsPrefix + strings.ToLower(strings.TrimSpace(domain)))
}
