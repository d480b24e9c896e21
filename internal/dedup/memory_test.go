package dedup

import (
	"context"
	"sync"
	"testing"
	"time"

	"imaged/pkg/types"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestFingerprintStableAndSelective(t *testing.T) {
	base := types.GenerateRequest{Prompt: "a cat", Width: 500, Height: 500, Steps: 20, Sampler: "Euler"}
	if Fingerprint(base) != Fingerprint(base) {
		t.Fatalf("fingerprint must be deterministic")
	}
	seed := int64(5)
	withSeed := base
	withSeed.Seed = &seed
	withSeed.BatchSize = 3
	if Fingerprint(withSeed) != Fingerprint(base) {
		t.Fatalf("seed and batch size are not significant")
	}
	for name, mut := range map[string]func(*types.GenerateRequest){
		"prompt":  func(r *types.GenerateRequest) { r.Prompt = "a dog" },
		"width":   func(r *types.GenerateRequest) { r.Width = 504 },
		"steps":   func(r *types.GenerateRequest) { r.Steps = 21 },
		"sampler": func(r *types.GenerateRequest) { r.Sampler = "DDIM" },
		"model":   func(r *types.GenerateRequest) { r.Model = "other" },
		"cfg":     func(r *types.GenerateRequest) { r.CFGScale = 9 },
	} {
		r := base
		mut(&r)
		if Fingerprint(r) == Fingerprint(base) {
			t.Fatalf("changing %s must change the fingerprint", name)
		}
	}
	if len(Fingerprint(base)) != 64 {
		t.Fatalf("expected hex sha256")
	}
}

func TestMemoryStoreWindow(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := NewMemoryStore(30*time.Second, clk.Now)
	ctx := context.Background()
	if err := s.Remember(ctx, "fp", "job-1"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	clk.Advance(29 * time.Second)
	if id, ok, _ := s.Lookup(ctx, "fp"); !ok || id != "job-1" {
		t.Fatalf("entry should be live: %q %v", id, ok)
	}
	clk.Advance(2 * time.Second)
	if _, ok, _ := s.Lookup(ctx, "fp"); ok {
		t.Fatalf("entry should have expired")
	}
	if s.Len() != 0 {
		t.Fatalf("expired entry should be dropped on lookup")
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := NewMemoryStore(10*time.Second, clk.Now)
	ctx := context.Background()
	_ = s.Remember(ctx, "old", "job-1")
	clk.Advance(8 * time.Second)
	_ = s.Remember(ctx, "new", "job-2")
	clk.Advance(3 * time.Second)
	n, err := s.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("sweep removed %d err=%v", n, err)
	}
	if _, ok, _ := s.Lookup(ctx, "new"); !ok {
		t.Fatalf("fresh entry must survive sweep")
	}
}

func TestMemoryStoreForgetJob(t *testing.T) {
	s := NewMemoryStore(time.Minute, nil)
	ctx := context.Background()
	_ = s.Remember(ctx, "a", "job-1")
	_ = s.Remember(ctx, "b", "job-1")
	_ = s.Remember(ctx, "c", "job-2")
	if err := s.ForgetJob(ctx, "job-1"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, ok, _ := s.Lookup(ctx, "a"); ok {
		t.Fatalf("a should be gone")
	}
	if _, ok, _ := s.Lookup(ctx, "b"); ok {
		t.Fatalf("b should be gone")
	}
	if id, ok, _ := s.Lookup(ctx, "c"); !ok || id != "job-2" {
		t.Fatalf("c should remain")
	}
}

func TestMemoryStoreRememberReplaces(t *testing.T) {
	s := NewMemoryStore(time.Minute, nil)
	ctx := context.Background()
	_ = s.Remember(ctx, "fp", "job-1")
	_ = s.Remember(ctx, "fp", "job-2")
	// forgetting the replaced job must not drop the new mapping
	_ = s.ForgetJob(ctx, "job-1")
	if id, ok, _ := s.Lookup(ctx, "fp"); !ok || id != "job-2" {
		t.Fatalf("got %q %v", id, ok)
	}
}
