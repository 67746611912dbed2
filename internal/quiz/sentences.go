package quiz

import (
	"regexp"
	"strings"
)

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// extractSentences splits text on sentence-terminal punctuation and keeps
// usable candidates: trimmed, within the length bounds, document order
// preserved, capped at maxSentences.
func extractSentences(text string) []string {
	parts := sentenceSplitRe.Split(text, -1)

	var sentences []string
	for _, part := range parts {
		s := strings.TrimSpace(part)
		if len(s) > minSentenceLength && len(s) < maxSentenceLength {
			sentences = append(sentences, s)
		}
		if len(sentences) >= maxSentences {
			break
		}
	}
	return sentences
}

// truncate cuts s to max runes and appends "..." when something was dropped
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// titleCase uppercases the first letter of every word, used to make keyword
// options read like answers
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
