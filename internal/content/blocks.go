package content

import (
	"regexp"
	"strings"
	"unicode"
)

// BlockKind classifies a structural block recovered from plain text.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockList
)

// Block is one structural unit of reassembled content: a paragraph, a heading
// with its level, or a list with its items.
type Block struct {
	Kind    BlockKind
	Text    string   // paragraph or heading text
	Level   int      // heading level, 2 or 3
	Items   []string // list items
	Ordered bool     // numbered list vs bulleted
}

var (
	bulletRe   = regexp.MustCompile(`^\s*[•\-*]\s+`)
	numberedRe = regexp.MustCompile(`^\s*\d+[.)]\s+`)
)

// top-level markers get h2, chapter-style markers get h3
var (
	topHeadingWords     = []string{"introduction", "summary", "overview", "conclusion"}
	sectionHeadingWords = []string{"chapter", "section", "part"}
)

// ParseBlocks converts extracted plain text into a sequence of structural
// blocks. Contiguous non-blank lines form a paragraph, blank lines flush it,
// runs of bulleted or numbered lines become lists, and short shouty or
// title-case lines become headings.
func ParseBlocks(text string) []Block {
	lines := strings.Split(text, "\n")
	var blocks []Block
	var buf []string

	flush := func() {
		if len(buf) == 0 {
			return
		}
		joined := strings.TrimSpace(strings.Join(buf, " "))
		singleLine := len(buf) == 1
		buf = nil
		if joined == "" {
			return
		}
		if singleLine && isHeading(joined) {
			blocks = append(blocks, Block{Kind: BlockHeading, Text: joined, Level: headingLevel(joined)})
			return
		}
		blocks = append(blocks, Block{Kind: BlockParagraph, Text: joined})
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if line == "" {
			flush()
			continue
		}

		if bulletRe.MatchString(line) || numberedRe.MatchString(line) {
			flush()
			ordered := numberedRe.MatchString(line)
			var items []string
			for i < len(lines) {
				item := strings.TrimSpace(lines[i])
				var matched bool
				if ordered {
					matched = numberedRe.MatchString(item)
				} else {
					matched = bulletRe.MatchString(item)
				}
				if !matched {
					break
				}
				if ordered {
					items = append(items, strings.TrimSpace(numberedRe.ReplaceAllString(item, "")))
				} else {
					items = append(items, strings.TrimSpace(bulletRe.ReplaceAllString(item, "")))
				}
				i++
			}
			i-- // the outer loop advances past the first non-matching line
			blocks = append(blocks, Block{Kind: BlockList, Items: items, Ordered: ordered})
			continue
		}

		buf = append(buf, line)
	}
	flush()

	return blocks
}

// isHeading reports whether a flushed single-chunk line looks like a heading:
// short and shaped like one, or carrying a structural marker word.
func isHeading(line string) bool {
	if containsHeadingWord(line) {
		return true
	}
	if len(line) >= headingMaxLength {
		return false
	}
	return isAllCaps(line) || isTitleCase(line) ||
		strings.HasSuffix(line, ":") || !strings.Contains(line, ".")
}

// headingLevel maps semantic markers to levels; h1 is never emitted so the
// page keeps a single top-level heading of its own.
func headingLevel(line string) int {
	lower := strings.ToLower(line)
	for _, w := range topHeadingWords {
		if strings.Contains(lower, w) {
			return 2
		}
	}
	for _, w := range sectionHeadingWords {
		if strings.Contains(lower, w) {
			return 3
		}
	}
	return 3
}

func containsHeadingWord(line string) bool {
	lower := strings.ToLower(line)
	for _, w := range append(append([]string{}, topHeadingWords...), sectionHeadingWords...) {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}

func isTitleCase(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		r := []rune(w)[0]
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
