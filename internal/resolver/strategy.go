package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"imaged/internal/backend"
	"imaged/internal/common/fsutil"
)

// Hint narrows resolution. An empty Hint lets the resolver decide.
type Hint struct {
	Format backend.Format
	Family backend.Family
}

// ParseHint accepts a storage format (safetensors, ckpt, bin, diffusers) or
// a family (sd15, sdxl). The empty string is no hint.
func ParseHint(s string) (Hint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Hint{}, nil
	case "safetensors":
		return Hint{Format: backend.FormatSafetensors}, nil
	case "ckpt":
		return Hint{Format: backend.FormatCkpt}, nil
	case "bin":
		return Hint{Format: backend.FormatBin}, nil
	case "diffusers":
		return Hint{Format: backend.FormatDiffusers}, nil
	case "sd15", "sd1", "base":
		return Hint{Family: backend.FamilyBase}, nil
	case "sdxl", "xl", "large":
		return Hint{Family: backend.FamilyLarge}, nil
	default:
		return Hint{}, fmt.Errorf("resolver: unknown model type %q", s)
	}
}

// baseFamilyTokens mark hub ids that should try the base family first.
var baseFamilyTokens = []string{"stable-diffusion-v1", "sd-v1"}

func prefersBaseFamily(ref string) bool {
	l := strings.ToLower(ref)
	for _, tok := range baseFamilyTokens {
		if strings.Contains(l, tok) {
			return true
		}
	}
	return false
}

type hubStep struct {
	family backend.Family
	format backend.Format
}

var (
	hubBaseFirst = []hubStep{
		{backend.FamilyBase, backend.FormatSafetensors},
		{backend.FamilyBase, backend.FormatBin},
		{backend.FamilyGeneric, backend.FormatSafetensors},
		{backend.FamilyGeneric, backend.FormatBin},
	}
	hubLargeFirst = []hubStep{
		{backend.FamilyLarge, backend.FormatSafetensors},
		{backend.FamilyBase, backend.FormatSafetensors},
		{backend.FamilyGeneric, backend.FormatSafetensors},
		{backend.FamilyGeneric, backend.FormatBin},
	}
)

// hubPlan returns the ordered descriptors to try for a remote id.
func hubPlan(ref string, h Hint) []backend.Descriptor {
	steps := hubLargeFirst
	if prefersBaseFamily(ref) {
		steps = hubBaseFirst
	}
	if h.Family != "" {
		steps = []hubStep{{h.Family, backend.FormatSafetensors}, {h.Family, backend.FormatBin}}
	}
	out := make([]backend.Descriptor, 0, len(steps))
	for _, s := range steps {
		out = append(out, backend.Descriptor{
			Ref:      ref,
			Source:   backend.SourceRemote,
			Layout:   backend.LayoutHub,
			Format:   s.format,
			Family:   s.family,
			Pipeline: s.family.Pipeline(),
			Strategy: fmt.Sprintf("hub %s with %s", s.family, s.format),
		})
	}
	return out
}

func looksLocal(ref string) bool {
	if filepath.IsAbs(ref) || strings.HasPrefix(ref, "~") || strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") {
		return true
	}
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".safetensors", ".ckpt":
		return true
	}
	return false
}

// localPath finds ref on disk, directly or relative to modelsDir.
func (r *Resolver) localPath(ref string) (string, bool) {
	p, err := fsutil.ExpandHome(ref)
	if err != nil {
		return "", false
	}
	candidates := []string{p}
	if !filepath.IsAbs(p) && r.modelsDir != "" {
		candidates = append(candidates, filepath.Join(r.modelsDir, p))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			if abs, err := filepath.Abs(c); err == nil {
				return abs, true
			}
			return c, true
		}
	}
	return "", false
}

// localPlan builds the single descriptor for an on-disk model.
func (r *Resolver) localPlan(ref, path string, h Hint) ([]backend.Descriptor, []Attempt) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, []Attempt{{Strategy: "stat", Err: err}}
	}
	d := backend.Descriptor{Ref: path, Source: backend.SourceLocal}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case st.IsDir():
		fam, class, err := bundleFamily(path)
		if err != nil {
			return nil, []Attempt{{Strategy: "bundle", Err: err}}
		}
		if h.Family != "" {
			fam = h.Family
		}
		d.Layout, d.Format, d.Family = backend.LayoutBundle, backend.FormatDiffusers, fam
		d.Pipeline = class
		if d.Pipeline == "" {
			d.Pipeline = fam.Pipeline()
		}
		d.Strategy = "bundle " + string(fam)
	case ext == ".ckpt" || (ext != ".safetensors" && h.Format == backend.FormatCkpt):
		fam := backend.FamilyBase
		if h.Family != "" {
			fam = h.Family
		}
		d.Layout, d.Format, d.Family, d.Pipeline = backend.LayoutSingleFile, backend.FormatCkpt, fam, fam.Pipeline()
		d.Strategy = "single-file ckpt " + string(fam)
	case ext == ".safetensors" || h.Format == backend.FormatSafetensors:
		fam := h.Family
		how := "hint"
		if fam == "" {
			how = r.detector.Name()
			fam, err = r.detector.Detect(path)
			if err != nil {
				return nil, []Attempt{{Strategy: "detect " + how, Err: err}}
			}
		}
		d.Layout, d.Format, d.Family, d.Pipeline = backend.LayoutSingleFile, backend.FormatSafetensors, fam, fam.Pipeline()
		d.Strategy = fmt.Sprintf("single-file safetensors %s (%s)", fam, how)
	default:
		return nil, []Attempt{{Strategy: "local", Err: fmt.Errorf("%w: %s", errUnsupportedFile, ref)}}
	}
	return []backend.Descriptor{d}, nil
}
