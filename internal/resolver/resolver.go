// Package resolver turns a model reference (local path or hub id) into a
// loaded backend model. It tries an ordered list of loading strategies,
// caches the first success per reference, and collapses concurrent first
// loads of the same reference into a single backend call.
package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"imaged/internal/backend"
	"imaged/internal/common/fsutil"
)

var (
	modelLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imaged",
		Subsystem: "resolver",
		Name:      "model_loads_total",
		Help:      "Model resolutions by result",
	}, []string{"result"})
	modelsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "imaged",
		Subsystem: "resolver",
		Name:      "models_loaded",
		Help:      "Model handles currently cached",
	})
)

func init() {
	prometheus.MustRegister(modelLoadsTotal, modelsLoaded)
}

// Config configures a Resolver.
type Config struct {
	Backend backend.Backend
	// Detector guesses the family of raw checkpoints. Nil uses ChannelSniffer.
	Detector FamilyDetector
	// ModelsDir anchors relative local references.
	ModelsDir string
	Log       zerolog.Logger
}

// Resolver is safe for concurrent use.
type Resolver struct {
	be        backend.Backend
	detector  FamilyDetector
	modelsDir string
	log       zerolog.Logger

	group singleflight.Group

	mu      sync.RWMutex
	handles map[string]backend.Model
	hints   map[string]Hint
	order   []string
	current string
}

func New(cfg Config) *Resolver {
	det := cfg.Detector
	if det == nil {
		det = ChannelSniffer{}
	}
	dir := cfg.ModelsDir
	if d, err := fsutil.ExpandHome(dir); err == nil {
		dir = d
	}
	return &Resolver{
		be:        cfg.Backend,
		detector:  det,
		modelsDir: dir,
		log:       cfg.Log,
		handles:   make(map[string]backend.Model),
		hints:     make(map[string]Hint),
	}
}

// Resolve returns the cached handle for ref or loads it. The resolved model
// becomes the current model. A non-empty hint that differs from the one the
// cached handle was loaded with forces a reload.
//
// The load itself is detached from ctx and shared by every concurrent caller
// for the same ref and hint. Cancelling ctx only stops this caller waiting.
func (r *Resolver) Resolve(ctx context.Context, ref string, h Hint) (backend.Model, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &ResolutionError{Attempts: []Attempt{{Strategy: "select", Err: errEmptyRef}}}
	}
	m, ok, stale := r.cached(ref, h)
	if ok {
		r.setCurrent(ref)
		return m, nil
	}
	if stale {
		r.log.Info().Str("ref", ref).Str("family", string(h.Family)).Str("format", string(h.Format)).Msg("model type changed, reloading")
		r.forget(ref)
	}
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(flightKey(ref, h), func() (any, error) {
		if m, ok, _ := r.cached(ref, h); ok {
			return m, nil
		}
		m, err := r.load(loadCtx, ref, h)
		if err != nil {
			modelLoadsTotal.WithLabelValues("failure").Inc()
			return nil, err
		}
		modelLoadsTotal.WithLabelValues("success").Inc()
		r.store(ref, h, m)
		return m, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			r.log.Debug().Str("ref", ref).Msg("joined in-flight model load")
		}
		r.setCurrent(ref)
		return res.Val.(backend.Model), nil
	}
}

func flightKey(ref string, h Hint) string {
	return ref + "\x00" + string(h.Family) + "\x00" + string(h.Format)
}

// cached reports the handle for ref. stale is true when a handle exists but
// was loaded with a different non-empty hint.
func (r *Resolver) cached(ref string, h Hint) (m backend.Model, ok, stale bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, found := r.handles[ref]
	if !found {
		return nil, false, false
	}
	if h != (Hint{}) && h != r.hints[ref] {
		return nil, false, true
	}
	return m, true, false
}

// ResolveOrCurrent resolves ref, or the current model when ref is empty.
func (r *Resolver) ResolveOrCurrent(ctx context.Context, ref string, h Hint) (backend.Model, error) {
	if strings.TrimSpace(ref) == "" {
		ref = r.Current()
		if ref == "" {
			return nil, &ResolutionError{Attempts: []Attempt{{Strategy: "select", Err: errNoModel}}}
		}
	}
	return r.Resolve(ctx, ref, h)
}

// Reload drops any cached handle for ref and resolves it again.
func (r *Resolver) Reload(ctx context.Context, ref string, h Hint) (backend.Model, error) {
	ref = strings.TrimSpace(ref)
	r.forget(ref)
	return r.Resolve(ctx, ref, h)
}

func (r *Resolver) forget(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[ref]; !ok {
		return
	}
	delete(r.handles, ref)
	delete(r.hints, ref)
	for i, o := range r.order {
		if o == ref {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	modelsLoaded.Set(float64(len(r.handles)))
}

// Get returns a cached handle without loading.
func (r *Resolver) Get(ref string) (backend.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.handles[ref]
	return m, ok
}

// Loaded lists cached references in load order.
func (r *Resolver) Loaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.order...)
}

// Current returns the most recently resolved reference.
func (r *Resolver) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func (r *Resolver) setCurrent(ref string) {
	r.mu.Lock()
	r.current = ref
	r.mu.Unlock()
}

func (r *Resolver) store(ref string, h Hint, m backend.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[ref]; !ok {
		r.order = append(r.order, ref)
	}
	r.handles[ref] = m
	r.hints[ref] = h
	modelsLoaded.Set(float64(len(r.handles)))
}

func (r *Resolver) plan(ref string, h Hint) ([]backend.Descriptor, []Attempt) {
	if path, ok := r.localPath(ref); ok {
		return r.localPlan(ref, path, h)
	}
	if looksLocal(ref) {
		return nil, []Attempt{{Strategy: "local", Err: errLocalMissing}}
	}
	return hubPlan(ref, h), nil
}

func (r *Resolver) load(ctx context.Context, ref string, h Hint) (backend.Model, error) {
	descs, failed := r.plan(ref, h)
	if len(descs) == 0 {
		return nil, &ResolutionError{Ref: ref, Attempts: failed}
	}
	attempts := failed
	for _, d := range descs {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Strategy: d.Strategy, Err: err})
			break
		}
		m, err := r.be.LoadModel(ctx, d)
		if err == nil {
			r.log.Info().Str("ref", ref).Str("strategy", d.Strategy).Str("pipeline", d.Pipeline).Msg("model loaded")
			return m, nil
		}
		if errors.Is(err, backend.ErrNotReady) {
			return nil, err
		}
		r.log.Debug().Err(err).Str("ref", ref).Str("strategy", d.Strategy).Msg("load strategy failed")
		attempts = append(attempts, Attempt{Strategy: d.Strategy, Err: err})
	}
	r.log.Warn().Str("ref", ref).Int("attempts", len(attempts)).Msg("all load strategies failed")
	return nil, &ResolutionError{Ref: ref, Attempts: attempts}
}
