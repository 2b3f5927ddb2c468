// Package utils provides shared utilities for text, math, retries, and logging.
package utils

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// Truncation counts runes so multi-byte characters are never split.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// RuneCount returns the number of characters in s.
func RuneCount(s string) int {
	return len([]rune(s))
}
