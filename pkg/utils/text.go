package utils

// ClampRunes truncates s to at most max user-perceived characters.
// Truncation operates on runes, never on raw bytes, so multi-byte
// characters are kept whole.
func ClampRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
