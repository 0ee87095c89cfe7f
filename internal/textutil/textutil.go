package textutil

import "strings"

const nbsp = "\u00a0"

// ContainsCJK reports whether s contains a character from the CJK Unified
// Ideographs block (U+4E00..U+9FFF).
func ContainsCJK(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}

// UnescapeLiterals collapses a literal `\\` into `\`, then turns a literal
// `\n` into a newline.
func UnescapeLiterals(s string) string {
	s = strings.ReplaceAll(s, `\\`, `\`)
	return strings.ReplaceAll(s, `\n`, "\n")
}

// NonBreakingSpaces replaces every ASCII space with U+00A0.
func NonBreakingSpaces(s string) string {
	return strings.ReplaceAll(s, " ", nbsp)
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
