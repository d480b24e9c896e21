package imagectl

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imaged/internal/backend"
	"imaged/internal/httpapi"
	"imaged/internal/manager"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mgr, err := manager.New(manager.Config{
		Backend:      backend.NewSynthetic(backend.SyntheticConfig{Log: zerolog.Nop()}),
		ModelsDir:    t.TempDir(),
		OutputsDir:   t.TempDir(),
		DefaultModel: "runwayml/stable-diffusion-v1-5",
		Log:          zerolog.Nop(),
	})
	require.NoError(t, err)
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Shutdown(ctx)
	})
	return srv
}

func runCLI(t *testing.T, server string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	cfg := &Config{Server: server, Timeout: 10 * time.Second, LogLvl: "info", NoColor: true}
	code := run(args, &out, &errOut, cfg)
	return code, out.String(), errOut.String()
}

func TestCLI_Health(t *testing.T) {
	srv := newServer(t)
	code, out, _ := runCLI(t, srv.URL, "health")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "healthy")
	assert.Contains(t, out, "cpu")
}

func TestCLI_Samplers(t *testing.T) {
	srv := newServer(t)
	code, out, _ := runCLI(t, srv.URL, "samplers")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "DPM++ 2M Karras")
	assert.Contains(t, out, "(lcm)")
}

func TestCLI_GenerateWaitDownload(t *testing.T) {
	srv := newServer(t)
	dir := filepath.Join(t.TempDir(), "imgs")
	code, out, errOut := runCLI(t, srv.URL, "generate", "a lighthouse", "--width", "64", "--height", "64", "--steps", "2", "--seed", "7", "--wait", "--poll", "10ms", "--out", dir)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "/image/")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".png"))
}

func TestCLI_StatusUnknownJob(t *testing.T) {
	srv := newServer(t)
	code, _, errOut := runCLI(t, srv.URL, "status", "does-not-exist")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "404")
}

func TestCLI_LoadModel(t *testing.T) {
	srv := newServer(t)
	code, out, errOut := runCLI(t, srv.URL, "load-model", "stabilityai/stable-diffusion-xl-base-1.0")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "loaded successfully")

	code, _, _ = runCLI(t, srv.URL, "load-model", "x", "--type", "not-a-type")
	assert.Equal(t, 1, code)
}

func TestCLI_LoadModelReload(t *testing.T) {
	srv := newServer(t)
	var got []string
	rec := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.Query().Get("reload"))
		proxy, err := http.NewRequestWithContext(r.Context(), r.Method, srv.URL+r.URL.RequestURI(), r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		resp, err := http.DefaultClient.Do(proxy)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}))
	t.Cleanup(rec.Close)

	code, _, errOut := runCLI(t, rec.URL, "load-model", "org/model")
	require.Equal(t, 0, code, errOut)
	code, out, errOut := runCLI(t, rec.URL, "load-model", "org/model", "--reload")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "loaded successfully")
	assert.Equal(t, []string{"", "true"}, got)
}

func TestCLI_ArgsValidation(t *testing.T) {
	code, _, _ := runCLI(t, "http://127.0.0.1:1", "status")
	assert.Equal(t, 1, code)
	code, _, _ = runCLI(t, "http://127.0.0.1:1", "generate")
	assert.Equal(t, 1, code)
}

func TestGenerateOpts_Request(t *testing.T) {
	img := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o644))
	g := &generateOpts{prompt: "p", seed: 5, seedSet: true, strength: 0.4, initImage: img}
	req, err := g.request()
	require.NoError(t, err)
	require.NotNil(t, req.Seed)
	assert.Equal(t, int64(5), *req.Seed)
	require.NotNil(t, req.Strength)
	assert.InDelta(t, 0.4, *req.Strength, 1e-9)
	assert.Equal(t, "cG5n", req.InitImage)

	g = &generateOpts{prompt: "p", seed: -1, strength: -1}
	req, err = g.request()
	require.NoError(t, err)
	assert.Nil(t, req.Seed)
	assert.Nil(t, req.Strength)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, levelDebug, parseLevel(" DEBUG "))
	assert.Equal(t, levelWarn, parseLevel("warning"))
	assert.Equal(t, levelError, parseLevel("err"))
	assert.Equal(t, levelInfo, parseLevel("bogus"))
}

func TestPrinter_LevelFilter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := newPrinter(&out, &errOut, "warn")
	p.info("hidden")
	p.warn("shown")
	assert.NotContains(t, errOut.String(), "hidden")
	assert.Contains(t, errOut.String(), "shown")
}
