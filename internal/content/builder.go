package content

import (
	"fmt"
	"html"
	"path"
	"strings"
)

// Builder reassembles extracted plain text into sanitized HTML with the
// downloaded images interleaved between content blocks.
type Builder struct {
	sanitizer    *Sanitizer
	resourceBase string // URL path prefix the images are served under
}

// NewBuilder creates a builder serving images from resourceBase
// (DefaultResourceBase when empty).
func NewBuilder(resourceBase string) *Builder {
	if resourceBase == "" {
		resourceBase = DefaultResourceBase
	}
	return &Builder{sanitizer: NewSanitizer(), resourceBase: resourceBase}
}

// Build converts plain text into structured HTML, places images at a bounded
// cadence between blocks, appends any leftover images at the end and
// sanitizes the result.
func (b *Builder) Build(text string, images []string) string {
	blocks := ParseBlocks(text)

	var out strings.Builder
	nextImage := 0
	for n, block := range blocks {
		b.renderBlock(&out, block)

		// count is 1-based so the first block never gets an image directly
		count := n + 1
		if nextImage < len(images) && (count%3 == 0 || count%2 == 0) {
			b.renderImage(&out, images[nextImage])
			nextImage++
		}
	}

	// whatever did not fit between blocks goes at the end
	for ; nextImage < len(images); nextImage++ {
		b.renderImage(&out, images[nextImage])
	}

	return b.sanitizer.Sanitize(out.String())
}

func (b *Builder) renderBlock(out *strings.Builder, block Block) {
	switch block.Kind {
	case BlockHeading:
		fmt.Fprintf(out, "<h%d>%s</h%d>\n", block.Level, html.EscapeString(block.Text), block.Level)
	case BlockList:
		tag := "ul"
		if block.Ordered {
			tag = "ol"
		}
		fmt.Fprintf(out, "<%s>\n", tag)
		for _, item := range block.Items {
			fmt.Fprintf(out, "<li>%s</li>\n", html.EscapeString(item))
		}
		fmt.Fprintf(out, "</%s>\n", tag)
	default:
		fmt.Fprintf(out, "<p>%s</p>\n", html.EscapeString(block.Text))
	}
}

func (b *Builder) renderImage(out *strings.Builder, filename string) {
	src := path.Join(b.resourceBase, filename)
	fmt.Fprintf(out,
		`<div class="content-image" style="text-align: center; margin: 20px 0;">`+
			`<img src="%s" alt="Imported image" loading="lazy" `+
			`style="max-width: 100%%; height: auto; border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,0.15)"></div>`+"\n",
		html.EscapeString(src))
}
