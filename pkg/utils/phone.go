package utils

import (
	"regexp"
	"strings"
)

var handlePattern = regexp.MustCompile(`^\+\d{10,15}$`)

// NormalizeHandle converts a raw contact identifier into the canonical
// E.164-like form used as the user handle: a leading "+" followed by
// 10 to 15 digits. Spaces, dashes and parentheses are stripped and a
// missing "+" prefix is added. Returns false when the input cannot be
// normalized to that shape.
func NormalizeHandle(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	cleaned = replacer.Replace(cleaned)
	if cleaned == "" {
		return "", false
	}
	if !strings.HasPrefix(cleaned, "+") {
		cleaned = "+" + cleaned
	}
	if !handlePattern.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}
