package content

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// ErrNoContent is returned when no readable text can be extracted from a page.
var ErrNoContent = errors.New("no readable content found")

// Extracted is the result of boilerplate removal on a fetched page.
type Extracted struct {
	Text  string            // main article text, plain
	Title string            // best-effort title, capped at MaxTitleLength
	Doc   *goquery.Document // parsed tree, used downstream for image discovery
}

// Extractor pulls the main article text and title out of raw HTML.
type Extractor struct{}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract runs readability over the raw HTML and falls back to paragraph
// scraping when readability finds nothing. srcURL is used to resolve relative
// links inside readability and for the synthesized title fallback.
func (e *Extractor) Extract(rawHTML []byte, srcURL *url.URL) (*Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	text := ""
	article, err := readability.FromReader(bytes.NewReader(rawHTML), srcURL)
	if err == nil {
		text = strings.TrimSpace(article.TextContent)
	}
	if text == "" {
		text = e.extractParagraphs(doc)
	}
	if text == "" {
		return nil, ErrNoContent
	}

	return &Extracted{
		Text:  text,
		Title: e.extractTitle(doc, srcURL),
		Doc:   doc,
	}, nil
}

// extractTitle prefers the document title, then the first h1, then a
// synthesized fallback from the source hostname.
func (e *Extractor) extractTitle(doc *goquery.Document, srcURL *url.URL) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" && srcURL != nil {
		title = "Content from " + srcURL.Hostname()
	}
	return TruncateTitle(title, MaxTitleLength)
}

// extractParagraphs extracts article text the crude way, used when the
// readability pass yields nothing
func (e *Extractor) extractParagraphs(doc *goquery.Document) string {
	var articleText strings.Builder

	// first try to find article content in common containers
	article := doc.Find("article, .article, .post, .content, main")
	if article.Length() > 0 {
		article.Find("p").Each(func(_ int, s *goquery.Selection) {
			articleText.WriteString(strings.TrimSpace(s.Text()))
			articleText.WriteString("\n\n")
		})
	} else {
		// fallback to all paragraphs
		doc.Find("p").Each(func(_ int, s *goquery.Selection) {
			// skip very short paragraphs which are likely not article content
			if len(s.Text()) > 50 {
				articleText.WriteString(strings.TrimSpace(s.Text()))
				articleText.WriteString("\n\n")
			}
		})
	}

	return strings.TrimSpace(articleText.String())
}
