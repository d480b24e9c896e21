package manager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"imaged/internal/backend"
)

// fakeBackend is a controllable in-memory backend.
type fakeBackend struct {
	ready atomic.Bool
	calls atomic.Int32
	loads atomic.Int32

	// steps overrides the reported progress sequence; nil reports 1..Steps.
	steps []int
	// gate, when set, holds every generation until closed.
	gate chan struct{}
	// started receives one value per generation entering the backend.
	started chan struct{}
	err     error
	panics  bool

	mu     sync.Mutex
	params []backend.Params
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{started: make(chan struct{}, 16)}
	b.ready.Store(true)
	return b
}

func (b *fakeBackend) Ready() bool    { return b.ready.Load() }
func (b *fakeBackend) Device() string { return "cpu" }

func (b *fakeBackend) LoadModel(_ context.Context, d backend.Descriptor) (backend.Model, error) {
	if !b.Ready() {
		return nil, backend.ErrNotReady
	}
	b.loads.Add(1)
	return backend.NewHandle(d), nil
}

func (b *fakeBackend) RunGeneration(ctx context.Context, _ backend.Model, p backend.Params, sink backend.ProgressSink) ([]backend.ImageResult, error) {
	b.calls.Add(1)
	b.mu.Lock()
	b.params = append(b.params, p)
	b.mu.Unlock()
	select {
	case b.started <- struct{}{}:
	default:
	}

	steps := b.steps
	if steps == nil {
		for i := 1; i <= p.Steps; i++ {
			steps = append(steps, i)
		}
	}
	for _, s := range steps {
		sink.Step(s, p.Steps)
	}
	if b.gate != nil {
		select {
		case <-b.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.panics {
		panic("boom")
	}
	if b.err != nil {
		return nil, b.err
	}
	out := make([]backend.ImageResult, 0, p.BatchSize)
	for i := 0; i < p.BatchSize; i++ {
		out = append(out, backend.ImageResult{
			Data:     []byte("png"),
			Seed:     p.Seed + int64(i),
			Width:    p.Width,
			Height:   p.Height,
			Metadata: map[string]string{"batch_index": "x"},
		})
	}
	return out, nil
}

func (b *fakeBackend) lastParams() backend.Params {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.params) == 0 {
		return backend.Params{}
	}
	return b.params[len(b.params)-1]
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newTestManager builds a manager over be with a temp outputs dir.
func newTestManager(t *testing.T, be backend.Backend, mutate func(*Config)) *Manager {
	t.Helper()
	cfg := Config{
		Backend:      be,
		OutputsDir:   t.TempDir(),
		ModelsDir:    t.TempDir(),
		DefaultModel: "runwayml/stable-diffusion-v1-5",
		Log:          zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m
}

// waitTerminal polls until the job reaches a terminal state.
func waitTerminal(t *testing.T, m *Manager, id string) Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		j, err := m.Job(id)
		if err != nil {
			t.Fatalf("job %s: %v", id, err)
		}
		if j.State.Terminal() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return Job{}
}

func waitStarted(t *testing.T, b *fakeBackend) {
	t.Helper()
	select {
	case <-b.started:
	case <-time.After(3 * time.Second):
		t.Fatalf("generation did not start")
	}
}

var errBackend = errors.New("out of memory")
