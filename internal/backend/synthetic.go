package backend

import (
	"context"
	"fmt"
	"image"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const defaultDevice = "cpu"

// SyntheticConfig tunes the in-process renderer.
type SyntheticConfig struct {
	Device string
	// StepDelay is slept between progress steps; zero runs as fast as possible.
	StepDelay time.Duration
	Log       zerolog.Logger
}

// Synthetic renders deterministic placeholder images. It honours the full
// backend contract (progress, batch seeds, img2img strength) without any
// model runtime, which makes it the default for development and tests.
type Synthetic struct {
	cfg   SyntheticConfig
	ready atomic.Bool
	loads atomic.Int64
}

// NewSynthetic returns a ready synthetic backend.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	if cfg.Device == "" {
		cfg.Device = defaultDevice
	}
	s := &Synthetic{cfg: cfg}
	s.ready.Store(true)
	return s
}

func (s *Synthetic) Ready() bool    { return s.ready.Load() }
func (s *Synthetic) Device() string { return s.cfg.Device }

// SetReady toggles readiness; used to exercise not-ready paths.
func (s *Synthetic) SetReady(v bool) { s.ready.Store(v) }

// Loads returns how many LoadModel calls succeeded.
func (s *Synthetic) Loads() int64 { return s.loads.Load() }

func (s *Synthetic) LoadModel(ctx context.Context, d Descriptor) (Model, error) {
	if !s.Ready() {
		return nil, ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Source == SourceLocal {
		if _, err := os.Stat(d.Ref); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, d.Ref)
		}
	}
	s.loads.Add(1)
	s.cfg.Log.Debug().Str("ref", d.Ref).Str("strategy", d.Strategy).Str("family", string(d.Family)).Msg("synthetic model loaded")
	return NewHandle(d), nil
}

func (s *Synthetic) RunGeneration(ctx context.Context, m Model, p Params, sink ProgressSink) ([]ImageResult, error) {
	if !s.Ready() {
		return nil, ErrNotReady
	}
	if m == nil {
		return nil, fmt.Errorf("%w: nil model", ErrUnsupportedModel)
	}
	if p.Width <= 0 || p.Height <= 0 || p.Width%8 != 0 || p.Height%8 != 0 {
		return nil, fmt.Errorf("backend: invalid dimensions %dx%d", p.Width, p.Height)
	}
	var init image.Image
	if len(p.InitImage) > 0 {
		img, err := decodeInitImage(p.InitImage)
		if err != nil {
			return nil, err
		}
		init = img
	}

	for step := 1; step <= p.Steps; step++ {
		if s.cfg.StepDelay > 0 {
			t := time.NewTimer(s.cfg.StepDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sink != nil {
			sink.Step(step, p.Steps)
		}
	}

	batch := p.BatchSize
	if batch <= 0 {
		batch = 1
	}
	d := m.Descriptor()
	out := make([]ImageResult, 0, batch)
	for i := 0; i < batch; i++ {
		seed := p.Seed + int64(i)
		data, err := renderPNG(p.Width, p.Height, seed, p.Prompt, init, p.Strength)
		if err != nil {
			return nil, err
		}
		out = append(out, ImageResult{
			Data:   data,
			Seed:   seed,
			Width:  p.Width,
			Height: p.Height,
			Metadata: map[string]string{
				"pipeline":    d.Pipeline,
				"family":      string(d.Family),
				"device":      s.cfg.Device,
				"batch_index": strconv.Itoa(i),
			},
		})
	}
	return out, nil
}
