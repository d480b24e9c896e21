package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, p string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
}

func TestScanner_ScanFindsCheckpointsAndBundles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.safetensors"))
	touch(t, filepath.Join(dir, "B.CKPT")) // case-insensitive
	touch(t, filepath.Join(dir, "nested", "deep", "c.safetensors"))
	touch(t, filepath.Join(dir, "not-model.txt"))
	touch(t, filepath.Join(dir, "model.gguf"))
	touch(t, filepath.Join(dir, "bundle", "model_index.json"))
	touch(t, filepath.Join(dir, "bundle", "unet", "diffusion_pytorch_model.safetensors"))

	models, err := NewScanner().Scan(dir)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	got := map[string]string{}
	for _, m := range models {
		got[m.Name] = m.Type
	}
	want := map[string]string{"a": "safetensors", "B": "ckpt", "c": "safetensors", "bundle": "diffusers"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %+v", want, models)
	}
	for n, typ := range want {
		if got[n] != typ {
			t.Fatalf("model %s: type %q want %q (all=%+v)", n, got[n], typ, models)
		}
	}
}

func TestScanner_MissingDirIsEmpty(t *testing.T) {
	models, err := NewScanner().Scan(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(models) != 0 {
		t.Fatalf("unexpected: %+v", models)
	}
}

func TestScanner_ExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	touch(t, filepath.Join(home, "sd", "x.safetensors"))
	models, err := NewScanner().Scan("~/sd")
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(models) != 1 || models[0].Name != "x" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestLoadDirWrapper(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "m.ckpt"))
	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(models) != 1 || models[0].Name != "m" || models[0].Path != filepath.Join(dir, "m.ckpt") {
		t.Fatalf("unexpected: %+v", models)
	}
}
