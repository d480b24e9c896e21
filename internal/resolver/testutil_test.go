package resolver

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"imaged/internal/backend"
)

// fakeBackend records every descriptor it is asked to load and fails the
// ones whose Strategy is listed in fail.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []backend.Descriptor
	fail    map[string]bool
	failAll bool
	gate    chan struct{}
	entered chan struct{}
	ready   bool
}

func newFakeBackend() *fakeBackend { return &fakeBackend{fail: map[string]bool{}, ready: true} }

func (f *fakeBackend) Ready() bool    { return f.ready }
func (f *fakeBackend) Device() string { return "test" }

func (f *fakeBackend) LoadModel(ctx context.Context, d backend.Descriptor) (backend.Model, error) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.calls = append(f.calls, d)
	f.mu.Unlock()
	if !f.ready {
		return nil, backend.ErrNotReady
	}
	if f.failAll || f.fail[d.Strategy] {
		return nil, errors.New("cannot load via " + d.Strategy)
	}
	return backend.NewHandle(d), nil
}

func (f *fakeBackend) RunGeneration(context.Context, backend.Model, backend.Params, backend.ProgressSink) ([]backend.ImageResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeBackend) Calls() []backend.Descriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.Descriptor(nil), f.calls...)
}

// writeSafetensors writes a header-only safetensors file.
func writeSafetensors(t *testing.T, dir, name string, tensors map[string]TensorInfo) string {
	t.Helper()
	hdr := map[string]any{"__metadata__": map[string]string{"format": "pt"}}
	for k, v := range tensors {
		hdr[k] = v
	}
	b, err := json.Marshal(hdr)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	buf := make([]byte, 8, 8+len(b))
	binary.LittleEndian.PutUint64(buf, uint64(len(b)))
	buf = append(buf, b...)
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func inputConv(channels int64) map[string]TensorInfo {
	return map[string]TensorInfo{
		firstInputBlock: {DType: "F16", Shape: []int64{320, channels, 3, 3}, DataOffsets: [2]int64{0, 0}},
	}
}
