package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"imaged/internal/client"
	"imaged/pkg/types"
)

const defaultPollInterval = 500 * time.Millisecond

// Remote forwards work to another worker that exposes the same HTTP API.
type Remote struct {
	c    *client.Client
	poll time.Duration
	log  zerolog.Logger

	mu     sync.RWMutex
	ready  bool
	device string
}

// NewRemote wraps c. Call CheckHealth before serving so Ready reflects the worker.
func NewRemote(c *client.Client, poll time.Duration, log zerolog.Logger) *Remote {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &Remote{c: c, poll: poll, log: log}
}

// CheckHealth queries the worker's /health and records readiness and device.
func (r *Remote) CheckHealth(ctx context.Context) error {
	h, err := r.c.Health(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.ready = false
		return fmt.Errorf("health %s: %w", r.c.BaseURL(), err)
	}
	r.ready = true
	r.device = h.Device
	return nil
}

func (r *Remote) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

func (r *Remote) Device() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.device == "" {
		return "remote"
	}
	return r.device
}

func (r *Remote) LoadModel(ctx context.Context, d Descriptor) (Model, error) {
	if !r.Ready() {
		return nil, ErrNotReady
	}
	hint := string(d.Format)
	if d.Layout == LayoutHub {
		hint = ""
	}
	if _, err := r.c.LoadModel(ctx, d.Ref, hint); err != nil {
		return nil, fmt.Errorf("remote load %s: %w", d.Ref, err)
	}
	return NewHandle(d), nil
}

func (r *Remote) RunGeneration(ctx context.Context, m Model, p Params, sink ProgressSink) ([]ImageResult, error) {
	if !r.Ready() {
		return nil, ErrNotReady
	}
	seed := p.Seed
	strength := p.Strength
	req := types.GenerateRequest{
		Prompt:         p.Prompt,
		NegativePrompt: p.NegativePrompt,
		Width:          p.Width,
		Height:         p.Height,
		Steps:          p.Steps,
		CFGScale:       p.CFGScale,
		Sampler:        p.Scheduler.Name,
		Seed:           &seed,
		BatchSize:      p.BatchSize,
		Model:          m.Descriptor().Ref,
		LoRAs:          p.LoRAs,
		ClipSkip:       p.ClipSkip,
		EnableLCM:      p.Scheduler.IsLCM(),
	}
	if len(p.InitImage) > 0 {
		req.InitImage = base64.StdEncoding.EncodeToString(p.InitImage)
		req.Strength = &strength
	}
	sub, err := r.c.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("remote submit: %w", err)
	}
	log := r.log.With().Str("remote_job", sub.JobID).Logger()
	log.Debug().Msg("remote job submitted")

	last := 0
	st, err := r.c.Wait(ctx, sub.JobID, r.poll, func(s types.JobStatusResponse) {
		if sink != nil && s.CurrentStep > last {
			last = s.CurrentStep
			sink.Step(s.CurrentStep, s.TotalSteps)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("remote job %s: %w", sub.JobID, err)
	}
	if st.Status == types.JobFailed {
		msg := st.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, errors.New("remote generation failed: " + msg)
	}

	out := make([]ImageResult, 0, len(st.Images))
	for _, img := range st.Images {
		data, err := r.c.Image(ctx, img.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", img.ImageURL, err)
		}
		out = append(out, ImageResult{Data: data, Seed: img.Seed, Width: img.Width, Height: img.Height, Metadata: img.Metadata})
	}
	return out, nil
}

// Watch rechecks the worker every interval until ctx is done so Ready
// follows the worker's availability.
func (r *Remote) Watch(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 5 * time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			was := r.Ready()
			if err := r.CheckHealth(ctx); err != nil {
				if was {
					r.log.Warn().Err(err).Msg("remote worker unavailable")
				}
				continue
			}
			if !was {
				r.log.Info().Str("url", r.c.BaseURL()).Msg("remote worker ready")
			}
		}
	}
}
