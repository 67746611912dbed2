package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder("")

	t.Run("heading paragraph list order", func(t *testing.T) {
		text := "INTRODUCTION\n\nThis opening paragraph describes the topic in detail.\n\n• one\n• two\n• three"
		html := b.Build(text, nil)

		h2 := strings.Index(html, "<h2>INTRODUCTION</h2>")
		p := strings.Index(html, "<p>This opening paragraph")
		ul := strings.Index(html, "<ul>")
		require.NotEqual(t, -1, h2)
		require.NotEqual(t, -1, p)
		require.NotEqual(t, -1, ul)
		assert.Less(t, h2, p)
		assert.Less(t, p, ul)
		assert.Equal(t, 3, strings.Count(html, "<li>"))
	})

	t.Run("script tag never survives", func(t *testing.T) {
		text := "Safe paragraph before the payload.\n\n<script>alert('xss')</script> inline attempt."
		html := b.Build(text, nil)
		assert.NotContains(t, html, "<script")
		assert.NotContains(t, html, "alert('xss')")
	})

	t.Run("images interleaved and exhausted", func(t *testing.T) {
		text := "One full paragraph right here.\n\nTwo, another paragraph of text.\n\nThree, a third paragraph follows.\n\nFour, and a fourth one too."
		html := b.Build(text, []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"})

		// every image is placed exactly once, leftovers appended at the end
		assert.Equal(t, 5, strings.Count(html, "<img"))
		for _, name := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"} {
			assert.Contains(t, html, "/static/resources/"+name)
		}
		assert.Contains(t, html, `loading="lazy"`)
	})

	t.Run("first image lands after the second block", func(t *testing.T) {
		text := "First paragraph of the piece.\n\nSecond paragraph of the piece.\n\nThird paragraph of the piece."
		html := b.Build(text, []string{"x.png"})

		second := strings.Index(html, "Second paragraph")
		img := strings.Index(html, "<img")
		third := strings.Index(html, "Third paragraph")
		require.NotEqual(t, -1, img)
		assert.Less(t, second, img)
		assert.Less(t, img, third)
	})

	t.Run("custom resource base", func(t *testing.T) {
		custom := NewBuilder("/media")
		html := custom.Build("Just one simple paragraph here.\n\nAnd then one more to follow.", []string{"pic.jpg"})
		assert.Contains(t, html, `src="/media/pic.jpg"`)
	})

	t.Run("no images produces plain structure", func(t *testing.T) {
		html := b.Build("Only a paragraph, nothing else.", nil)
		assert.NotContains(t, html, "<img")
		assert.Contains(t, html, "<p>Only a paragraph, nothing else.</p>")
	})
}

func TestSanitizer_Sanitize(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:        "script stripped",
			input:       `<p>ok</p><script>alert(1)</script>`,
			contains:    []string{"<p>ok</p>"},
			notContains: []string{"script", "alert"},
		},
		{
			name:        "event handlers stripped",
			input:       `<p onclick="steal()">text</p>`,
			contains:    []string{"<p>text</p>"},
			notContains: []string{"onclick"},
		},
		{
			name:        "iframe stripped",
			input:       `<iframe src="https://evil.example"></iframe><p>kept</p>`,
			contains:    []string{"<p>kept</p>"},
			notContains: []string{"iframe"},
		},
		{
			name:     "allowed structure kept",
			input:    `<h2>Head</h2><ul><li>a</li></ul><blockquote>q</blockquote>`,
			contains: []string{"<h2>Head</h2>", "<li>a</li>", "<blockquote>q</blockquote>"},
		},
		{
			name:        "disallowed style property dropped",
			input:       `<div style="position: fixed; text-align: center">x</div>`,
			contains:    []string{"text-align: center"},
			notContains: []string{"position"},
		},
		{
			name:        "javascript href dropped",
			input:       `<a href="javascript:alert(1)">link</a>`,
			notContains: []string{"javascript:"},
		},
		{
			name:     "img attributes kept",
			input:    `<img src="/static/resources/a.jpg" alt="pic" loading="lazy" width="800" height="600">`,
			contains: []string{`src="/static/resources/a.jpg"`, `alt="pic"`, `loading="lazy"`},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := s.Sanitize(tc.input)
			for _, want := range tc.contains {
				assert.Contains(t, out, want)
			}
			for _, bad := range tc.notContains {
				assert.NotContains(t, out, bad)
			}
		})
	}
}
