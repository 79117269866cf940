package logger

import (
	"regexp"
	"strings"
)

// RedactEmail keeps the first two characters of the local part:
// "john.doe@example.com" becomes "jo***@example.com". Local parts of two
// characters or fewer are fully masked.
func RedactEmail(email string) string {
	local, host, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(host, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + host
	}
	return "***@" + host
}

var secretKeys = []string{"secret", "signature", "authorization", "token", "password"}

// isSecretKey reports whether a field with this key must never be logged.
func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// redactPIIValue masks the whole value for address-bearing keys and any
// embedded address elsewhere.
func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	if (strings.Contains(key, "email") || strings.Contains(key, "recipient")) && strings.Contains(val, "@") {
		return RedactEmail(val)
	}
	return emailPattern.ReplaceAllStringFunc(val, RedactEmail)
}
