package manager

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"imaged/internal/backend"
	"imaged/internal/dedup"
	"imaged/internal/resolver"
	"imaged/internal/scheduler"
	"imaged/internal/storage"
)

type Manager struct {
	be     backend.Backend
	res    *resolver.Resolver
	sched  *scheduler.Registry
	dd     dedup.Store
	images *storage.Images
	log    zerolog.Logger
	events EventPublisher
	now    func() time.Time

	modelsDir    string
	defaultModel string
	retention    time.Duration
	sweepEvery   time.Duration

	// slots bounds concurrent backend generations
	slots chan struct{}

	mu   sync.RWMutex
	jobs map[string]*jobRecord

	// submitMu serializes dedup lookup and registration
	submitMu sync.Mutex
	closing  bool

	// workers run under baseCtx; Shutdown cancels it after draining
	baseCtx   context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time
}

// New constructs a Manager from cfg, filling unset fields with defaults.
func New(cfg Config) (*Manager, error) {
	if cfg.Backend == nil {
		return nil, errNoBackend
	}
	cfg = cfg.withDefaults()
	images, err := storage.NewImages(cfg.OutputsDir)
	if err != nil {
		return nil, err
	}
	log := cfg.Log.With().Str("component", "manager").Logger()
	m := &Manager{
		be:           cfg.Backend,
		res:          cfg.Resolver,
		sched:        cfg.Schedulers,
		dd:           cfg.Dedup,
		images:       images,
		log:          log,
		events:       cfg.Events,
		now:          cfg.Now,
		modelsDir:    cfg.ModelsDir,
		defaultModel: cfg.DefaultModel,
		retention:    cfg.Retention,
		sweepEvery:   cfg.SweepInterval,
		slots:        make(chan struct{}, cfg.MaxConcurrent),
		jobs:         make(map[string]*jobRecord),
	}
	if m.res == nil {
		m.res = resolver.New(resolver.Config{Backend: cfg.Backend, ModelsDir: cfg.ModelsDir, Log: cfg.Log})
	}
	if m.sched == nil {
		m.sched = scheduler.NewRegistry(cfg.Log)
	}
	if m.dd == nil {
		m.dd = dedup.NewMemoryStore(cfg.DedupWindow, cfg.Now)
	}
	m.baseCtx, m.cancel = context.WithCancel(context.Background())
	m.startTime = time.Now()
	return m, nil
}

// Ready reports whether the backend accepts work.
func (m *Manager) Ready() bool { return m.be.Ready() }

// Images returns the image store generated files are written to.
func (m *Manager) Images() *storage.Images { return m.images }

// OpenImage opens a stored image by its path relative to the outputs dir.
func (m *Manager) OpenImage(rel string) (*os.File, os.FileInfo, error) { return m.images.Open(rel) }

// Uptime returns the time since construction.
func (m *Manager) Uptime() time.Duration { return time.Since(m.startTime) }

// Shutdown waits for running jobs until ctx is done, then cancels whatever
// is still in flight.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.submitMu.Lock()
	m.closing = true
	m.submitMu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	defer m.cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
