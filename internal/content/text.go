package content

import (
	"strings"
	"unicode/utf8"
)

// TruncateString truncates a string to the specified length and adds "..." if truncated.
// It ensures UTF-8 characters are not broken.
func TruncateString(s string, maxLength int) string {
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}

	// convert to runes to handle multi-byte characters properly
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}

	return string(runes[:maxLength]) + "..."
}

// TruncateTitle trims whitespace and hard-caps a title at maxLength runes.
// Unlike TruncateString it adds no ellipsis, so the stored title never
// exceeds the limit.
func TruncateTitle(s string, maxLength int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	return strings.TrimSpace(string(runes[:maxLength]))
}
