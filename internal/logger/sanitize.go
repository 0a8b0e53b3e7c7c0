package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength caps logged URL paths
	MaxPathLength = 500
	// MaxGeneralStringLength caps other logged strings such as user agents
	MaxGeneralStringLength = 2000
)

// SanitizePath prepares a URL path for logging
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeString strips non-printable runes from attacker-influenced strings
// and truncates them, so log lines cannot be forged or bloated.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' {
			b.WriteRune(r)
		}
	}
	s = b.String()

	if len(s) > maxLength {
		return s[:maxLength] + "..."
	}
	return s
}
