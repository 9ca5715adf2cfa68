package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// allowlist keys are never masked, whatever they contain.
var allowlist = map[string]struct{}{
	"service":    {},
	"env":        {},
	"message":    {},
	"severity":   {},
	"timestamp":  {},
	"error":      {},
	"reason":     {},
	"component":  {},
	"operation":  {},
	"caller":     {},
	"module":     {},
	"method":     {},
	"request_id": {},
}

var sensitiveKeys = map[string]struct{}{
	"key":           {},
	"privatekey":    {},
	"seed":          {},
	"secret":        {},
	"token":         {},
	"authorization": {},
	"headers":       {},
	"password":      {},
}

var sensitiveSuffixes = []string{"_key", "_secret", "_token", "_password"}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// IsAllowlisted reports whether key is exempt from redaction.
func IsAllowlisted(key string) bool {
	_, ok := allowlist[normalizeKey(key)]
	return ok
}

// IsSensitive reports whether values under key are always masked. Keys such
// as "admin_key" or "otlp_token" match by suffix.
func IsSensitive(key string) bool {
	normalized := normalizeKey(key)
	if _, ok := sensitiveKeys[normalized]; ok {
		return true
	}
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(normalized, suffix) {
			return true
		}
	}
	return false
}

// MaskField returns key with its value masked unless the key is allowlisted.
// Blank values pass through so empty fields stay visible.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// Redact masks sensitive attributes, descending into groups.
func Redact(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		out := make([]any, 0, len(group))
		for _, member := range group {
			out = append(out, Redact(member))
		}
		return slog.Group(attr.Key, out...)
	}
	if !IsSensitive(attr.Key) {
		return attr
	}
	return MaskField(attr.Key, attr.Value.String())
}
