package importer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/coursekit/coursekit/internal/content"
	"github.com/coursekit/coursekit/internal/fetch"
	"github.com/coursekit/coursekit/internal/images"
)

// default ceiling for the top-level document fetch
const DefaultMaxDocumentSize = 5 * 1024 * 1024

// ScrapedContent is the result of importing a web page: extracted plain text,
// reassembled sanitized HTML, the filenames of downloaded images in placement
// order, the page title and the source URL. The caller owns persistence.
type ScrapedContent struct {
	Text   string   `json:"text"`
	HTML   string   `json:"html"`
	Images []string `json:"images"`
	Title  string   `json:"title"`
	URL    string   `json:"url"`
}

// Importer runs the full import pipeline: secure fetch, readability
// extraction, image download and HTML reassembly.
type Importer struct {
	fetcher   *fetch.Fetcher
	extractor *content.Extractor
	pipeline  *images.Pipeline
	builder   *content.Builder
	maxDoc    int64
	log       zerolog.Logger
}

// NewImporter wires the pipeline stages together. maxDocSize caps the
// top-level document fetch; zero means the default.
func NewImporter(fetcher *fetch.Fetcher, pipeline *images.Pipeline, builder *content.Builder, maxDocSize int64, log zerolog.Logger) *Importer {
	if maxDocSize <= 0 {
		maxDocSize = DefaultMaxDocumentSize
	}
	return &Importer{
		fetcher:   fetcher,
		extractor: content.NewExtractor(),
		pipeline:  pipeline,
		builder:   builder,
		maxDoc:    maxDocSize,
		log:       log,
	}
}

// Scrape fetches the URL, extracts the main article text and reassembles it
// into sanitized HTML, optionally downloading and interleaving the page's
// images. Fetch, security and extraction failures are fatal; individual image
// failures only reduce the image set.
func (imp *Importer) Scrape(ctx context.Context, rawURL string, includeImages bool) (*ScrapedContent, error) {
	srcURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	imp.log.Info().Str("url", rawURL).Bool("images", includeImages).Msg("scraping content")

	rawHTML, err := imp.fetcher.Get(ctx, rawURL, imp.maxDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	extracted, err := imp.extractor.Extract(rawHTML, srcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	var imported []string
	if includeImages {
		imported = imp.pipeline.Download(ctx, extracted.Doc, srcURL)
	}

	html := imp.builder.Build(extracted.Text, imported)

	imp.log.Info().
		Str("title", content.TruncateString(extracted.Title, content.DisplayTruncateLength)).
		Int("images", len(imported)).
		Int("text_len", len(extracted.Text)).
		Msg("scrape complete")

	return &ScrapedContent{
		Text:   extracted.Text,
		HTML:   html,
		Images: imported,
		Title:  extracted.Title,
		URL:    rawURL,
	}, nil
}
