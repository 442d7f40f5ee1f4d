package logger

import (
	"log/slog"
	"strings"
)

// Key fragments that mark a preference or attribute as secret.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"auth",
	"bearer",
	"apikey",
	"api_key",
}

const redactedValue = "***REDACTED***"

// redactSensitive hides string values whose key name looks secret.
// Groups are walked recursively.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if a.Value.String() != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// IsSensitiveKey reports whether a key name suggests secret content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// PrefAttr builds a log attribute for a preference entry. The value is
// replaced with a placeholder when the preference name looks secret, since
// the attribute key itself ("value") would not trigger redaction.
func PrefAttr(name string, value any) slog.Attr {
	if IsSensitiveKey(name) {
		return slog.Group("pref", slog.String("name", name), slog.String("value", redactedValue))
	}
	return slog.Group("pref", slog.String("name", name), slog.Any("value", value))
}
