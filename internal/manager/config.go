package manager

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"imaged/internal/backend"
	"imaged/internal/dedup"
	"imaged/internal/resolver"
	"imaged/internal/scheduler"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultRetention     = 3 * time.Minute
	defaultSweepInterval = 30 * time.Second
	defaultMaxConcurrent = 1
	defaultOutputsDir    = "outputs"
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Backend is required.
	Backend backend.Backend
	// Resolver defaults to one built over Backend and ModelsDir.
	Resolver *resolver.Resolver
	// Schedulers defaults to the builtin registry.
	Schedulers *scheduler.Registry
	// Dedup defaults to an in-memory store with DedupWindow.
	Dedup dedup.Store

	ModelsDir    string
	OutputsDir   string
	DefaultModel string

	// Retention is how long a job stays queryable after it was created.
	Retention     time.Duration
	SweepInterval time.Duration
	DedupWindow   time.Duration
	// MaxConcurrent bounds generations running on the backend at once.
	MaxConcurrent int

	// Now is the clock used for job timestamps and retention. Defaults to time.Now.
	Now    func() time.Time
	Log    zerolog.Logger
	Events EventPublisher
}

var errNoBackend = errors.New("manager: backend is required")

func (c Config) withDefaults() Config {
	if c.Retention <= 0 {
		c.Retention = defaultRetention
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaultSweepInterval
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = dedup.DefaultWindow
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = defaultMaxConcurrent
	}
	if c.OutputsDir == "" {
		c.OutputsDir = defaultOutputsDir
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Events == nil {
		c.Events = noopPublisher{}
	}
	return c
}
