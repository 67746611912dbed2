package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func buildZip(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestArchiver_Export(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.json", `{"site_title":"Biology"}`)
	writeFile(t, root, "data/courses.json", `{"modules":[]}`)
	writeFile(t, root, "data/modules/content_0.html", "<p>hello</p>")
	writeFile(t, root, "static/resources/photo.jpg", "jpegbytes")
	// files outside the layout must not leak into the export
	writeFile(t, root, "data/progress.json", `{}`)

	a := NewArchiver(root)
	a.nowFunc = func() time.Time {
		return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	}

	data, filename, err := a.Export()
	require.NoError(t, err)
	assert.Equal(t, "course_export_20250314_150926.zip", filename)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{
		"config.json",
		"data/courses.json",
		"data/modules/content_0.html",
		"static/resources/photo.jpg",
	}, names)
}

func TestArchiver_ExportEmptyDirectory(t *testing.T) {
	a := NewArchiver(t.TempDir())

	data, _, err := a.Export()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Empty(t, zr.File)
}

func TestArchiver_ImportRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "config.json", `{"site_title":"Biology"}`)
	writeFile(t, src, "data/courses.json", `{"modules":[{"title":"Intro"}]}`)
	writeFile(t, src, "data/modules/content_0.html", "<p>hello</p>")
	writeFile(t, src, "static/resources/photo.jpg", "jpegbytes")

	data, _, err := NewArchiver(src).Export()
	require.NoError(t, err)

	dst := t.TempDir()
	require.NoError(t, NewArchiver(dst).Import(data))

	for rel, want := range map[string]string{
		"config.json":                 `{"site_title":"Biology"}`,
		"data/courses.json":           `{"modules":[{"title":"Intro"}]}`,
		"data/modules/content_0.html": "<p>hello</p>",
		"static/resources/photo.jpg":  "jpegbytes",
	} {
		got, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		assert.Equal(t, want, string(got), rel)
	}
}

func TestArchiver_ImportSkipsTraversalAndForeignMembers(t *testing.T) {
	data := buildZip(t, map[string]string{
		"../evil.txt":                      "outside",
		"data/modules/../../escape.html":   "outside",
		"data/progress.json":               "not allowed",
		"data/modules/nested/deep.html":    "too deep",
		"static/resources/ok.png":          "fine",
		"completely/unrelated/path.txt":    "skip",
		"data/modules/content_0.html":      "<p>ok</p>",
		`data\modules\content_1.html`:      "<p>backslash</p>",
		"static/resources/weird name!.png": "sanitized",
	})

	root := t.TempDir()
	require.NoError(t, NewArchiver(root).Import(data))

	// allowed members landed
	for _, rel := range []string{
		"static/resources/ok.png",
		"data/modules/content_0.html",
		"data/modules/content_1.html",
		"static/resources/weird_name_.png",
	} {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		assert.NoError(t, err, rel)
	}

	// nothing else did
	for _, rel := range []string{
		"evil.txt",
		"escape.html",
		"data/progress.json",
		"data/modules/nested/deep.html",
		"completely",
	} {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		assert.True(t, os.IsNotExist(err), rel)
	}
	_, err := os.Stat(filepath.Join(filepath.Dir(root), "evil.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestArchiver_ImportRejectsGarbage(t *testing.T) {
	err := NewArchiver(t.TempDir()).Import([]byte("definitely not a zip"))
	assert.Error(t, err)
}

func TestDestination(t *testing.T) {
	tests := []struct {
		name    string
		member  string
		want    string
		allowed bool
	}{
		{"config", "config.json", "config.json", true},
		{"courses", "data/courses.json", "data/courses.json", true},
		{"module file", "data/modules/content_3.html", "data/modules/content_3.html", true},
		{"resource", "static/resources/a.png", "static/resources/a.png", true},
		{"nested module", "data/modules/x/y.html", "", false},
		{"bare dir prefix", "data/modules/", "", false},
		{"other data file", "data/feedback.json", "", false},
		{"root stray", "notes.txt", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := destination(tt.member)
			assert.Equal(t, tt.allowed, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
