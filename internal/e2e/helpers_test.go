package e2e

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"imaged/internal/backend"
	"imaged/internal/client"
	"imaged/internal/httpapi"
	"imaged/internal/manager"
)

const defaultModel = "runwayml/stable-diffusion-v1-5"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// newStack starts a manager behind the full HTTP mux. mutate may adjust the
// manager config before construction.
func newStack(t *testing.T, be backend.Backend, mutate func(*manager.Config)) (*httptest.Server, *manager.Manager) {
	t.Helper()
	if be == nil {
		be = backend.NewSynthetic(backend.SyntheticConfig{Log: zerolog.Nop()})
	}
	cfg := manager.Config{
		Backend:      be,
		ModelsDir:    t.TempDir(),
		OutputsDir:   t.TempDir(),
		DefaultModel: defaultModel,
		Log:          zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	mgr, err := manager.New(cfg)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Shutdown(ctx)
	})
	return srv, mgr
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitDone(t *testing.T, c *client.Client, id string) {
	t.Helper()
	st, err := c.Wait(ctxT(t), id, 5*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("wait %s: %v", id, err)
	}
	if !st.Status.Terminal() {
		t.Fatalf("job %s not terminal: %s", id, st.Status)
	}
}
