// Package archive exports and imports a course data directory as a ZIP file.
//
// An export bundles the site config, the course list, module content files
// and uploaded resources. Import is restricted to that same layout: anything
// outside the allow list, containing parent-directory segments or nested
// deeper than the expected directories is silently skipped.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const maxMemberSize = 50 << 20 // 50 MiB per archive member

// allowed single files at the archive root, relative to the data root.
var allowedFiles = map[string]bool{
	"config.json":       true,
	"data/courses.json": true,
}

// allowed member directories; only flat files directly inside them are
// extracted.
var allowedDirs = []string{
	"data/modules/",
	"static/resources/",
}

// Archiver exports and imports course archives rooted at a data directory.
type Archiver struct {
	root    string
	nowFunc func() time.Time
}

// NewArchiver creates an archiver rooted at dir.
func NewArchiver(dir string) *Archiver {
	return &Archiver{root: dir, nowFunc: time.Now}
}

// Export bundles the course into a ZIP and returns its bytes together with
// the suggested download filename. Missing optional parts are skipped.
func (a *Archiver) Export() ([]byte, string, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for name := range allowedFiles {
		if err := a.addFile(zw, name); err != nil {
			return nil, "", err
		}
	}
	for _, dir := range allowedDirs {
		if err := a.addDir(zw, strings.TrimSuffix(dir, "/")); err != nil {
			return nil, "", err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize archive: %w", err)
	}

	filename := fmt.Sprintf("course_export_%s.zip", a.nowFunc().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}

func (a *Archiver) addFile(zw *zip.Writer, name string) error {
	data, err := os.ReadFile(filepath.Join(a.root, filepath.FromSlash(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func (a *Archiver) addDir(zw *zip.Writer, dir string) error {
	entries, err := os.ReadDir(filepath.Join(a.root, filepath.FromSlash(dir)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := a.addFile(zw, dir+"/"+entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

// Import extracts an exported archive back into the data directory. Members
// outside the allowed layout are skipped rather than rejected, so a partially
// foreign archive imports what it legitimately carries.
func (a *Archiver) Import(data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}

	rootAbs, err := filepath.Abs(a.root)
	if err != nil {
		return err
	}

	for _, member := range zr.File {
		name := strings.ReplaceAll(member.Name, `\`, "/")
		if member.FileInfo().IsDir() || strings.Contains(name, "..") {
			continue
		}

		rel, ok := destination(name)
		if !ok {
			continue
		}

		destPath := filepath.Join(rootAbs, filepath.FromSlash(rel))
		if !strings.HasPrefix(destPath, rootAbs+string(os.PathSeparator)) {
			continue
		}

		if err := a.extractMember(member, destPath); err != nil {
			return err
		}
	}
	return nil
}

// destination maps an archive member name to its path relative to the data
// root, or reports that the member is not part of the allowed layout.
func destination(name string) (string, bool) {
	if allowedFiles[name] {
		return name, true
	}
	for _, prefix := range allowedDirs {
		if strings.HasPrefix(name, prefix) {
			rel := name[len(prefix):]
			// only flat files directly inside the allowed directory
			if rel != "" && !strings.Contains(rel, "/") {
				return prefix + sanitizeName(rel), true
			}
		}
	}
	return "", false
}

// sanitizeName keeps only characters safe for a stored filename.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (a *Archiver) extractMember(member *zip.File, destPath string) error {
	src, err := member.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive member %s: %w", member.Name, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", member.Name, err)
	}

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer dst.Close()

	// cap decompressed size to defuse zip bombs
	if _, err := io.Copy(dst, io.LimitReader(src, maxMemberSize)); err != nil {
		return fmt.Errorf("failed to extract %s: %w", member.Name, err)
	}
	return nil
}
