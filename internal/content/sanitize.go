package content

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer reduces reassembled HTML to a fixed allow-list of tags, attributes
// and inline style properties. Anything outside the list, script tags
// included, is stripped.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds the allow-list policy once; the policy is safe for
// concurrent use.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"strong", "em", "u", "b", "i",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
		"div", "span",
	)

	p.AllowStandardURLs()
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowAttrs("src", "alt", "title", "width", "height", "loading").OnElements("img")
	p.AllowAttrs("class").OnElements("div", "span")

	// inline styles go through bluemonday's CSS validation; unknown or
	// malformed properties are dropped rather than forwarded
	p.AllowStyles(
		"max-width", "height", "margin", "text-align",
		"border-radius", "box-shadow", "display",
	).OnElements("img", "div")

	return &Sanitizer{policy: p}
}

// Sanitize returns the input reduced to the allowed tag set.
func (s *Sanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
