package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	// register the WEBP decoder so sniffing sees webp payloads
	_ "golang.org/x/image/webp"

	"github.com/coursekit/coursekit/internal/fetch"
)

// pipeline defaults
const (
	DefaultMaxImages    = 10
	DefaultMaxImageSize = 2 * 1024 * 1024

	// canonical size every accepted image is normalized to
	canonicalWidth  = 800
	canonicalHeight = 600

	// two encode candidates, the byte-smaller one wins
	primaryJPEGQuality   = 90
	secondaryJPEGQuality = 70
)

var (
	errUnsupportedFormat = errors.New("unsupported image format")
	errFormatMismatch    = errors.New("sniffed format disagrees with file extension")
)

// formats accepted after sniffing the actual bytes; SVG and friends never
// decode and are rejected by construction
var allowedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
}

// extension spellings mapped to the sniffed format name
var extFormats = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
	".webp": "webp",
}

var slugRe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Options configures a Pipeline.
type Options struct {
	MaxImages    int
	MaxImageSize int64
}

// Pipeline discovers img elements in a parsed document, downloads each one
// through the secure fetcher, verifies the real byte format, normalizes the
// image to a canonical size and persists it under a collision-resistant name.
// A failing image is skipped; it never aborts the rest of the batch and never
// leaves a file behind.
type Pipeline struct {
	fetcher *fetch.Fetcher
	dir     string // resource directory images are written into
	opts    Options
	log     zerolog.Logger
	nowFunc func() time.Time
}

// NewPipeline creates an image pipeline writing into dir.
func NewPipeline(fetcher *fetch.Fetcher, dir string, opts Options, log zerolog.Logger) *Pipeline {
	if opts.MaxImages <= 0 {
		opts.MaxImages = DefaultMaxImages
	}
	if opts.MaxImageSize <= 0 {
		opts.MaxImageSize = DefaultMaxImageSize
	}
	return &Pipeline{fetcher: fetcher, dir: dir, opts: opts, log: log, nowFunc: time.Now}
}

// Download walks up to MaxImages img elements in document order and returns
// the filenames of the images that made it through validation, normalization
// and persistence. Individual failures are logged and skipped.
func (p *Pipeline) Download(ctx context.Context, doc *goquery.Document, baseURL *url.URL) []string {
	var saved []string

	// only the first MaxImages img elements are considered, in document order
	doc.Find("img").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= p.opts.MaxImages {
			return false
		}

		src, ok := sel.Attr("src")
		if !ok || src == "" {
			// lazy-loaded images keep the real URL in data-src
			src, ok = sel.Attr("data-src")
			if !ok || src == "" {
				return true
			}
		}

		filename, err := p.downloadOne(ctx, src, baseURL)
		if err != nil {
			p.log.Warn().Err(err).Str("src", src).Msg("skipping image")
			return true
		}
		p.log.Info().Str("file", filename).Str("src", src).Msg("downloaded image")
		saved = append(saved, filename)
		return true
	})

	return saved
}

// downloadOne fetches, validates, normalizes and persists a single image. The
// bytes stay in memory until every check has passed, so a rejected image
// never touches the disk, partial or otherwise.
func (p *Pipeline) downloadOne(ctx context.Context, src string, baseURL *url.URL) (string, error) {
	imgURL, err := p.resolve(src, baseURL)
	if err != nil {
		return "", err
	}

	// the fetcher re-validates the URL and every redirect hop, and enforces
	// the per-image byte ceiling while streaming
	raw, contentType, err := p.fetcher.GetWithType(ctx, imgURL.String(), p.opts.MaxImageSize)
	if err != nil {
		return "", err
	}

	if !supportedContentType(contentType) {
		return "", fmt.Errorf("%w: content type %q", errUnsupportedFormat, contentType)
	}

	// trust the bytes, not the header: decode config sniffs the real format
	format, err := sniffFormat(raw)
	if err != nil {
		return "", err
	}
	if err := checkExtension(imgURL.Path, format); err != nil {
		return "", err
	}

	normalized, ext, err := p.normalize(raw, format)
	if err != nil {
		return "", fmt.Errorf("failed to normalize image: %w", err)
	}

	filename := p.buildFilename(imgURL.Path, ext)
	target := filepath.Join(p.dir, filename)
	if err := os.WriteFile(target, normalized, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return filename, nil
}

func (p *Pipeline) resolve(src string, baseURL *url.URL) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return nil, fmt.Errorf("invalid image URL %q: %w", src, err)
	}
	abs := baseURL.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", errUnsupportedFormat, abs.Scheme)
	}
	return abs, nil
}

// supportedContentType pre-filters on the declared type; an empty header is
// tolerated because the sniff step still decides
func supportedContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	if ct == "" {
		return true
	}
	for _, t := range []string{"image/jpeg", "image/png", "image/gif", "image/webp"} {
		if strings.Contains(ct, t) {
			return true
		}
	}
	return false
}

// sniffFormat decodes the image header from the actual bytes and rejects
// anything outside the allow-list. Vector formats fail to decode here no
// matter what the server claimed.
func sniffFormat(raw []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: not a decodable raster image", errUnsupportedFormat)
	}
	if !allowedFormats[format] {
		return "", fmt.Errorf("%w: %s", errUnsupportedFormat, format)
	}
	return format, nil
}

// checkExtension rejects images whose URL extension names a different format
// than the bytes decode as. Missing or unknown extensions are fine, the sniff
// already decided the real format.
func checkExtension(urlPath, sniffed string) error {
	ext := strings.ToLower(path.Ext(urlPath))
	want, known := extFormats[ext]
	if !known {
		return nil
	}
	if want != sniffed {
		return fmt.Errorf("%w: extension %s, bytes are %s", errFormatMismatch, ext, sniffed)
	}
	return nil
}

// normalize fits and crops the image to the canonical size, then picks the
// byte-smaller of two encode candidates. GIF keeps its own encoding; WEBP is
// re-encoded as JPEG because the standard library cannot encode it.
func (p *Pipeline) normalize(raw []byte, format string) (data []byte, ext string, err error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}

	// aspect-preserving fill, center anchored: no stretching
	fitted := imaging.Fill(img, canonicalWidth, canonicalHeight, imaging.Center, imaging.Lanczos)

	switch format {
	case "png":
		var buf bytes.Buffer
		if err := png.Encode(&buf, fitted); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ".png", nil
	case "gif":
		var buf bytes.Buffer
		if err := gif.Encode(&buf, fitted, nil); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ".gif", nil
	default: // jpeg, webp
		primary, err := encodeJPEG(fitted, primaryJPEGQuality)
		if err != nil {
			return nil, "", err
		}
		secondary, err := encodeJPEG(fitted, secondaryJPEGQuality)
		if err != nil {
			return nil, "", err
		}
		return smallerOf(primary, secondary), ".jpg", nil
	}
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// smallerOf picks the byte-smaller candidate; a pure comparison so nothing is
// written until the winner is known
func smallerOf(a, b []byte) []byte {
	if len(b) < len(a) {
		return b
	}
	return a
}

// buildFilename produces "<timestamp>_<slug>_<uuid8><ext>". The uuid suffix
// keeps two images saved within the same second from colliding.
func (p *Pipeline) buildFilename(urlPath, ext string) string {
	base := path.Base(urlPath)
	base = strings.TrimSuffix(base, path.Ext(base))
	slug := slugRe.ReplaceAllString(base, "_")
	slug = strings.Trim(slug, "_")
	if slug == "" || slug == "." || slug == "/" {
		slug = "image"
	}
	if len(slug) > 60 {
		slug = slug[:60]
	}

	timestamp := p.nowFunc().Format("20060102_150405")
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s_%s_%s%s", timestamp, slug, suffix, ext)
}
