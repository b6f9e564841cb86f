package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeEmail trims and lower cases an email address. Every email that
// enters the engine goes through here before it reaches a gateway.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// localPartName turns "jane.doe@example.com" into "Jane.doe"
func localPartName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.TrimSpace(local)
	if local == "" {
		return ""
	}

	r, size := utf8.DecodeRuneInString(local)
	return string(unicode.ToUpper(r)) + local[size:]
}
