package common

import "unicode/utf8"

// Truncate shortens s to at most max bytes plus an ellipsis, backing off to
// the previous rune boundary so multi-byte characters are never split.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max < 0 {
		max = 0
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
