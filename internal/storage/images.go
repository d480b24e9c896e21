// Package storage persists generated images under the outputs directory and
// serves them back by relative path.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"imaged/internal/common/fsutil"
)

// ErrNotFound is returned for missing files and for paths outside the store.
var ErrNotFound = errors.New("storage: image not found")

// URLPrefix is the route images are served under.
const URLPrefix = "/image/"

// Images is a flat directory of PNG files.
type Images struct {
	dir string
}

// NewImages creates dir if needed.
func NewImages(dir string) (*Images, error) {
	d, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(d)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create outputs dir: %w", err)
	}
	return &Images{dir: abs}, nil
}

// Dir returns the absolute outputs directory.
func (s *Images) Dir() string { return s.dir }

// Save writes data as <id>.png and returns its path relative to Dir.
func (s *Images) Save(id string, data []byte) (string, error) {
	rel := id + ".png"
	p, err := fsutil.Within(s.dir, rel)
	if err != nil {
		return "", err
	}
	if err := fsutil.WriteFileAtomic(p, data, 0o644); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return rel, nil
}

// Open returns the file for rel. Anything outside the store, directories
// and missing files are all ErrNotFound.
func (s *Images) Open(rel string) (*os.File, os.FileInfo, error) {
	p, err := fsutil.Within(s.dir, rel)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		f.Close()
		return nil, nil, ErrNotFound
	}
	return f, st, nil
}

// URL returns the public URL for a stored relative path.
func URL(rel string) string { return URLPrefix + path.Clean(filepath.ToSlash(rel)) }
