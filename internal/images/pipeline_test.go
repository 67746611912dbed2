package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/coursekit/internal/fetch"
)

func testImagePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testImageJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newTestPipeline(t *testing.T, opts Options) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	validator, err := fetch.NewValidatorWithCIDRs(nil, nil) // loopback allowed for httptest
	require.NoError(t, err)
	fetcher := fetch.NewFetcher(validator, fetch.Options{}, zerolog.Nop())
	return NewPipeline(fetcher, dir, opts, zerolog.Nop()), dir
}

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestPipeline_Download(t *testing.T) {
	pngBytes := testImagePNG(t, 1000, 700)
	jpegBytes := testImageJPEG(t, 640, 480)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		case "/shot.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(jpegBytes)
		case "/fake.png":
			// claims png, serves svg markup
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`))
		case "/mislabeled.png":
			// real jpeg bytes behind a png extension
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(jpegBytes)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	base, err := url.Parse(server.URL + "/article")
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("valid images saved in document order", func(t *testing.T) {
		p, dir := newTestPipeline(t, Options{})
		doc := docFromHTML(t, `<img src="/photo.png"><img src="`+server.URL+`/shot.jpg">`)

		saved := p.Download(ctx, doc, base)
		require.Len(t, saved, 2)
		assert.True(t, strings.HasSuffix(saved[0], ".png"))
		assert.True(t, strings.HasSuffix(saved[1], ".jpg"))
		assert.Len(t, dirEntries(t, dir), 2)

		// normalized to the canonical size
		f, err := os.Open(filepath.Join(dir, saved[0]))
		require.NoError(t, err)
		defer f.Close()
		cfg, _, err := image.DecodeConfig(f)
		require.NoError(t, err)
		assert.Equal(t, 800, cfg.Width)
		assert.Equal(t, 600, cfg.Height)
	})

	t.Run("data-src fallback used", func(t *testing.T) {
		p, dir := newTestPipeline(t, Options{})
		doc := docFromHTML(t, `<img data-src="/photo.png">`)

		saved := p.Download(ctx, doc, base)
		assert.Len(t, saved, 1)
		assert.Len(t, dirEntries(t, dir), 1)
	})

	t.Run("svg behind png content type rejected without residue", func(t *testing.T) {
		p, dir := newTestPipeline(t, Options{})
		doc := docFromHTML(t, `<img src="/fake.png">`)

		saved := p.Download(ctx, doc, base)
		assert.Empty(t, saved)
		assert.Empty(t, dirEntries(t, dir))
	})

	t.Run("extension format mismatch rejected", func(t *testing.T) {
		p, dir := newTestPipeline(t, Options{})
		doc := docFromHTML(t, `<img src="/mislabeled.png">`)

		saved := p.Download(ctx, doc, base)
		assert.Empty(t, saved)
		assert.Empty(t, dirEntries(t, dir))
	})

	t.Run("non-image content type rejected", func(t *testing.T) {
		p, dir := newTestPipeline(t, Options{})
		doc := docFromHTML(t, `<img src="/page.html">`)

		saved := p.Download(ctx, doc, base)
		assert.Empty(t, saved)
		assert.Empty(t, dirEntries(t, dir))
	})

	t.Run("oversized image skipped and siblings survive", func(t *testing.T) {
		// ceiling sits between the small jpeg and the much larger noisy png
		require.Greater(t, len(pngBytes), len(jpegBytes)+10)
		p, dir := newTestPipeline(t, Options{MaxImageSize: int64(len(jpegBytes) + 10)})
		doc := docFromHTML(t, `<img src="/photo.png"><img src="/shot.jpg">`)

		saved := p.Download(ctx, doc, base)
		require.Len(t, saved, 1)
		assert.True(t, strings.HasSuffix(saved[0], ".jpg"))
		assert.Len(t, dirEntries(t, dir), 1)
	})

	t.Run("max images bounds scanning", func(t *testing.T) {
		p, _ := newTestPipeline(t, Options{MaxImages: 1})
		doc := docFromHTML(t, `<img src="/photo.png"><img src="/shot.jpg">`)

		saved := p.Download(ctx, doc, base)
		assert.Len(t, saved, 1)
	})

	t.Run("broken image url skipped", func(t *testing.T) {
		p, dir := newTestPipeline(t, Options{})
		doc := docFromHTML(t, `<img src="/nope.png"><img src="/photo.png">`)

		saved := p.Download(ctx, doc, base)
		require.Len(t, saved, 1)
		assert.Len(t, dirEntries(t, dir), 1)
	})

	t.Run("image without any src skipped", func(t *testing.T) {
		p, _ := newTestPipeline(t, Options{})
		doc := docFromHTML(t, `<img alt="no source"><img src="/photo.png">`)

		saved := p.Download(ctx, doc, base)
		assert.Len(t, saved, 1)
	})
}

func TestPipeline_DownloadBlockedImageHost(t *testing.T) {
	// page images pointing at internal addresses are skipped, not fatal
	pngBytes := testImagePNG(t, 100, 100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	defer server.Close()

	dir := t.TempDir()
	// block TEST-NET-1 but not loopback, so the test server stays reachable
	validator, err := fetch.NewValidatorWithCIDRs(nil, []string{"192.0.2.0/24"})
	require.NoError(t, err)
	fetcher := fetch.NewFetcher(validator, fetch.Options{}, zerolog.Nop())
	p := NewPipeline(fetcher, dir, Options{}, zerolog.Nop())

	base, err := url.Parse(server.URL)
	require.NoError(t, err)
	doc := docFromHTML(t, `<img src="http://192.0.2.9/internal.png"><img src="/ok.png">`)

	saved := p.Download(context.Background(), doc, base)
	require.Len(t, saved, 1)
	assert.Len(t, dirEntries(t, dir), 1)
}

func TestPipeline_Filenames(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})
	p.nowFunc = func() time.Time { return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC) }

	t.Run("timestamp slug and extension", func(t *testing.T) {
		name := p.buildFilename("/images/My Photo (1).png", ".png")
		assert.True(t, strings.HasPrefix(name, "20250314_150926_My_Photo_1_"), name)
		assert.True(t, strings.HasSuffix(name, ".png"))
	})

	t.Run("same second does not collide", func(t *testing.T) {
		a := p.buildFilename("/x/pic.jpg", ".jpg")
		b := p.buildFilename("/x/pic.jpg", ".jpg")
		assert.NotEqual(t, a, b)
	})

	t.Run("empty basename falls back", func(t *testing.T) {
		name := p.buildFilename("/", ".jpg")
		assert.Contains(t, name, "_image_")
	})
}

func TestSmallerOf(t *testing.T) {
	a := []byte("aaaa")
	b := []byte("bb")
	assert.Equal(t, b, smallerOf(a, b))
	assert.Equal(t, b, smallerOf(b, a))
	assert.Equal(t, a, smallerOf(a, a))
}

func TestCheckExtension(t *testing.T) {
	tests := []struct {
		path    string
		sniffed string
		wantErr bool
	}{
		{path: "/a/pic.jpg", sniffed: "jpeg", wantErr: false},
		{path: "/a/pic.jpeg", sniffed: "jpeg", wantErr: false},
		{path: "/a/pic.png", sniffed: "png", wantErr: false},
		{path: "/a/pic.png", sniffed: "jpeg", wantErr: true},
		{path: "/a/pic.gif", sniffed: "png", wantErr: true},
		{path: "/a/no-extension", sniffed: "png", wantErr: false},
		{path: "/a/pic.bin", sniffed: "jpeg", wantErr: false},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s as %s", tc.path, tc.sniffed), func(t *testing.T) {
			err := checkExtension(tc.path, tc.sniffed)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
