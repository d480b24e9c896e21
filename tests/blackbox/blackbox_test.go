package blackbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"
	"time"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping blackbox test in short mode")
	}
	binPath := filepath.Join(t.TempDir(), "imaged")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/imaged")
	cmd.Dir = projectRootFromThisFile(t)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

func createTempModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(""), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", n, err)
		}
	}
	return dir
}

type serverProc struct {
	cmd  *exec.Cmd
	base string
	done chan error
}

func startServer(t *testing.T, bin, modelsDir string, extra ...string) *serverProc {
	t.Helper()
	port := findFreePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	args := append([]string{
		"serve",
		"--env-file", filepath.Join(t.TempDir(), "none.env"),
		"--addr", fmt.Sprintf("127.0.0.1:%d", port),
		"--models-dir", modelsDir,
		"--outputs-dir", t.TempDir(),
		"--default-model", "runwayml/stable-diffusion-v1-5",
		"--log-level", "warn",
	}, extra...)
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	sp := &serverProc{cmd: cmd, base: base, done: make(chan error, 1)}
	go func() { sp.done <- cmd.Wait() }()
	t.Cleanup(func() { _ = cmd.Process.Kill() })

	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(base + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return sp
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func postJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

type jobStatus struct {
	Status  string   `json:"status"`
	Results []string `json:"results"`
	Error   string   `json:"error"`
}

func submitAndWait(t *testing.T, base string, body string) jobStatus {
	t.Helper()
	resp, b := postJSON(t, base+"/generate", []byte(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/generate %d %s", resp.StatusCode, b)
	}
	var sub struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(b, &sub); err != nil || sub.JobID == "" {
		t.Fatalf("/generate json: %v body=%s", err, b)
	}
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, b = get(t, base+"/job/"+sub.JobID)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("/job %d %s", resp.StatusCode, b)
		}
		var st jobStatus
		if err := json.Unmarshal(b, &st); err != nil {
			t.Fatalf("/job json: %v body=%s", err, b)
		}
		if st.Status == "completed" || st.Status == "failed" {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish; last=%s", b)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func TestBlackbox_Flow(t *testing.T) {
	bin := buildBinary(t)
	sp := startServer(t, bin, createTempModelsDir(t, "alpha.safetensors", "beta.ckpt", "notes.txt"))

	resp, body := get(t, sp.base+"/models")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/models %d %s", resp.StatusCode, body)
	}
	var models struct {
		Available []struct {
			Name string `json:"name"`
		} `json:"available"`
	}
	if err := json.Unmarshal(body, &models); err != nil {
		t.Fatalf("/models json: %v body=%s", err, body)
	}
	if len(models.Available) != 2 {
		t.Fatalf("expected 2 models, got %s", body)
	}

	resp, body = get(t, sp.base+"/samplers")
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte("Euler a")) {
		t.Fatalf("/samplers %d %s", resp.StatusCode, body)
	}

	st := submitAndWait(t, sp.base, `{"prompt":"hello","width":64,"height":64,"steps":2}`)
	if st.Status != "completed" || len(st.Results) != 1 {
		t.Fatalf("unexpected job: %+v", st)
	}
	resp, body = get(t, sp.base+st.Results[0])
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("image %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Fatalf("not a png")
	}

	resp, body = get(t, sp.base+"/metrics")
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte("imaged_jobs_submitted_total")) {
		t.Fatalf("/metrics %d", resp.StatusCode)
	}
}

func TestBlackbox_MissingLocalModelFailsJob(t *testing.T) {
	bin := buildBinary(t)
	sp := startServer(t, bin, createTempModelsDir(t))

	st := submitAndWait(t, sp.base, `{"prompt":"hi","model":"./missing.safetensors","steps":1,"width":64,"height":64}`)
	if st.Status != "failed" || st.Error == "" {
		t.Fatalf("expected failed job with error, got %+v", st)
	}
}

func TestBlackbox_GracefulShutdown(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("SIGTERM not supported")
	}
	bin := buildBinary(t)
	sp := startServer(t, bin, createTempModelsDir(t))
	if err := sp.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal: %v", err)
	}
	select {
	case err := <-sp.done:
		if err != nil {
			t.Fatalf("server exited with error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after SIGTERM")
	}
}
