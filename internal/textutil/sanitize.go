package textutil

import "strings"

// SanitizeBaseName reduces a clip title to a filesystem-safe basename.
// Letters, digits, hyphens, and underscores pass through, spaces become
// underscores, and everything else is dropped. Returns "" when nothing
// safe remains so callers can pick a fallback.
func SanitizeBaseName(value string) string {
	value = strings.TrimSpace(value)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, value)
}
