// Package registry discovers models available on disk.
package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"imaged/internal/common/fsutil"
	"imaged/pkg/types"
)

// Scanner finds single-file checkpoints and diffusers bundles.
type Scanner struct {
	// Extensions maps a lower-case file suffix to the reported model type.
	Extensions map[string]string
	// BundleMarker identifies a bundle directory.
	BundleMarker string
}

// NewScanner returns a scanner for .safetensors, .ckpt and diffusers bundles.
func NewScanner() *Scanner {
	return &Scanner{
		Extensions:   map[string]string{".safetensors": "safetensors", ".ckpt": "ckpt"},
		BundleMarker: "model_index.json",
	}
}

// Scan walks dir recursively for checkpoint files and reports immediate
// subdirectories that contain the bundle marker. A missing dir yields an
// empty list. Files inside a bundle are not reported separately.
func (s *Scanner) Scan(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if !fsutil.PathExists(abs) {
		return []types.Model{}, nil
	}

	models := []types.Model{}
	bundles := map[string]bool{}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p := filepath.Join(abs, e.Name())
		if fsutil.PathExists(filepath.Join(p, s.BundleMarker)) {
			bundles[p] = true
			models = append(models, types.Model{Name: e.Name(), Path: p, Type: "diffusers"})
		}
	}

	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if bundles[p] {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		typ, ok := s.Extensions[ext]
		if !ok {
			return nil
		}
		name := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		models = append(models, types.Model{Name: name, Path: p, Type: typ})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	sort.SliceStable(models, func(i, j int) bool { return models[i].Path < models[j].Path })
	return models, nil
}

// LoadDir scans dir with the default scanner.
func LoadDir(dir string) ([]types.Model, error) { return NewScanner().Scan(dir) }
