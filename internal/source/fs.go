// Package source provides the filesystem collaborators used by the assembler:
// variant directory listing, fragment reading and output writing, all backed
// by an afero filesystem so builds can run against the OS or an in-memory tree.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// FS implements assembler.Source and assembler.OutputWriter on an afero.Fs.
type FS struct {
	fs afero.Fs
}

// New wraps an afero filesystem.
func New(fs afero.Fs) *FS {
	return &FS{fs: fs}
}

// OS returns an FS backed by the host filesystem.
func OS() *FS {
	return New(afero.NewOsFs())
}

// Afero exposes the underlying filesystem.
func (s *FS) Afero() afero.Fs {
	return s.fs
}

// ListEntries returns the directory entries of dir sorted by name.
func (s *FS) ListEntries(dir string) ([]os.FileInfo, error) {
	return afero.ReadDir(s.fs, dir)
}

// Exists reports whether path exists.
func (s *FS) Exists(path string) bool {
	ok, err := afero.Exists(s.fs, path)
	return err == nil && ok
}

// ReadText reads the file at path as text. A missing file is reported with
// found=false and a nil error. A leading byte order mark is removed so it
// never ends up in the middle of a concatenated document; UTF-16 input with a
// BOM is transcoded to UTF-8.
func (s *FS) ReadText(path string) (string, bool, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", false, err
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("%s is a directory", path)
	}

	r := transform.NewReader(f, unicode.BOMOverride(encoding.Nop.NewDecoder()))
	data, err := io.ReadAll(r)
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", path, err)
	}

	return string(data), true, nil
}

// EnsureDirectory creates path and any parents. Existing directories are fine.
func (s *FS) EnsureDirectory(path string) error {
	return s.fs.MkdirAll(path, 0755)
}

// WriteText creates or truncates the file at path with content.
func (s *FS) WriteText(path, content string) error {
	return afero.WriteFile(s.fs, path, []byte(content), 0644)
}
