package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"imaged/internal/backend"
	"imaged/internal/config"
	"imaged/internal/dedup"
)

func TestResolveConfig_Layering(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "imaged.yaml")
	if err := os.WriteFile(cfgPath, []byte("addr: \":9000\"\nmax_concurrent: 2\ndevice: cuda\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IMAGED_MAX_CONCURRENT", "3")

	cmd := newServeCmd(&rootFlags{configPath: cfgPath, envFile: filepath.Join(dir, "missing.env")})
	if err := cmd.Flags().Parse([]string{"--addr", ":9100"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := resolveConfig(&rootFlags{configPath: cfgPath, envFile: filepath.Join(dir, "missing.env")}, cmd.Flags())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":9100" {
		t.Fatalf("flag should win, addr=%q", cfg.Addr)
	}
	if cfg.MaxConcurrent != 3 {
		t.Fatalf("env should beat file, max_concurrent=%d", cfg.MaxConcurrent)
	}
	if cfg.Device != "cuda" {
		t.Fatalf("file value lost, device=%q", cfg.Device)
	}
	if cfg.OutputsDir != config.Defaults().OutputsDir {
		t.Fatalf("default lost, outputs=%q", cfg.OutputsDir)
	}
}

func TestResolveConfig_Invalid(t *testing.T) {
	cmd := newServeCmd(&rootFlags{})
	if err := cmd.Flags().Parse([]string{"--backend", "http"}); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveConfig(&rootFlags{envFile: filepath.Join(t.TempDir(), "none")}, cmd.Flags()); err == nil {
		t.Fatal("expected validation error for http backend without url")
	}
}

func TestApplyFlags_CORSOrigins(t *testing.T) {
	cmd := newServeCmd(&rootFlags{})
	if err := cmd.Flags().Parse([]string{"--cors-origins", "http://a, http://b"}); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	applyFlags(&cfg, cmd.Flags())
	if !cfg.CORSEnabled || len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b" {
		t.Fatalf("cors: enabled=%v origins=%v", cfg.CORSEnabled, cfg.CORSOrigins)
	}
}

func TestBuildBackend(t *testing.T) {
	cfg := config.Defaults()
	be, err := buildBackend(context.Background(), cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := be.(*backend.Synthetic); !ok || !be.Ready() {
		t.Fatalf("expected ready synthetic backend, got %T", be)
	}

	cfg.Backend = "gpu-farm"
	if _, err := buildBackend(context.Background(), cfg, nil, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg.Backend = config.BackendHTTP
	cfg.BackendURL = "http://127.0.0.1:1"
	be, err = buildBackend(ctx, cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if be.Ready() {
		t.Fatal("unreachable remote must not be ready")
	}
}

func TestBuildDedup_Memory(t *testing.T) {
	dd, closeFn, err := buildDedup(context.Background(), config.Defaults())
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	if _, ok := dd.(*dedup.MemoryStore); !ok {
		t.Fatalf("got %T", dd)
	}
	cfg := config.Defaults()
	cfg.DedupBackend = "memcached"
	if _, _, err := buildDedup(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown dedup backend")
	}
}

func TestApplyFlags_LoadTimeout(t *testing.T) {
	cmd := newServeCmd(&rootFlags{})
	if err := cmd.Flags().Parse([]string{"--load-timeout-seconds", "7"}); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	applyFlags(&cfg, cmd.Flags())
	if cfg.LoadTimeout() != 7*time.Second {
		t.Fatalf("load timeout=%v", cfg.LoadTimeout())
	}
}
