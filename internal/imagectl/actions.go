package imagectl

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"imaged/internal/common/fsutil"
	"imaged/pkg/types"
)

func (s *session) fnHealth(parent context.Context) error {
	ctx, cancel := s.context(parent)
	defer cancel()
	h, err := s.c.Health(ctx)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	s.p.field("status", okText(h.Status))
	s.p.field("message", h.Message)
	s.p.field("device", h.Device)
	s.p.field("models", strings.Join(h.ModelsLoaded, ", "))
	return nil
}

func (s *session) fnSamplers(parent context.Context) error {
	ctx, cancel := s.context(parent)
	defer cancel()
	r, err := s.c.Samplers(ctx)
	if err != nil {
		return fmt.Errorf("samplers: %w", err)
	}
	for _, n := range r.Samplers {
		s.p.line("%s", n)
	}
	for _, n := range r.LCMSamplers {
		s.p.line("%s (lcm)", n)
	}
	return nil
}

func (s *session) fnModels(parent context.Context) error {
	ctx, cancel := s.context(parent)
	defer cancel()
	r, err := s.c.Models(ctx)
	if err != nil {
		return fmt.Errorf("models: %w", err)
	}
	s.p.field("loaded", strings.Join(r.Loaded, ", "))
	if len(r.Available) == 0 {
		s.p.info("no models found in the server's models directory")
	}
	for _, m := range r.Available {
		s.p.line("%-12s %-32s %s", m.Type, m.Name, m.Path)
	}
	return nil
}

func (s *session) fnLoadModel(parent context.Context, ref, typ string, reload bool) error {
	ctx, cancel := s.context(parent)
	defer cancel()
	load := s.c.LoadModel
	if reload {
		load = s.c.ReloadModel
		s.p.info("reloading %s", ref)
	} else {
		s.p.info("loading %s", ref)
	}
	r, err := load(ctx, ref, typ)
	if err != nil {
		return fmt.Errorf("load-model: %w", err)
	}
	s.p.field("status", okText(r.Status))
	s.p.field("message", r.Message)
	return nil
}

func (s *session) fnStatus(parent context.Context, id string) error {
	ctx, cancel := s.context(parent)
	defer cancel()
	st, err := s.c.Job(ctx, id)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	s.printJob(st)
	return nil
}

type generateOpts struct {
	prompt    string
	negative  string
	width     int
	height    int
	steps     int
	cfgScale  float64
	sampler   string
	seed      int64
	seedSet   bool
	batch     int
	model     string
	lcm       bool
	initImage string
	strength  float64
	wait      bool
	poll      time.Duration
	outDir    string
}

func (g *generateOpts) request() (types.GenerateRequest, error) {
	req := types.GenerateRequest{
		Prompt:         g.prompt,
		NegativePrompt: g.negative,
		Width:          g.width,
		Height:         g.height,
		Steps:          g.steps,
		CFGScale:       g.cfgScale,
		Sampler:        g.sampler,
		BatchSize:      g.batch,
		Model:          g.model,
		EnableLCM:      g.lcm,
	}
	if g.seedSet {
		seed := g.seed
		req.Seed = &seed
	}
	if g.strength >= 0 {
		st := g.strength
		req.Strength = &st
	}
	if g.initImage != "" {
		b, err := os.ReadFile(g.initImage)
		if err != nil {
			return req, fmt.Errorf("read init image: %w", err)
		}
		req.InitImage = base64.StdEncoding.EncodeToString(b)
	}
	return req, nil
}

func (s *session) fnGenerate(parent context.Context, g *generateOpts) error {
	req, err := g.request()
	if err != nil {
		return err
	}
	ctx, cancel := s.context(parent)
	defer cancel()
	r, err := s.c.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	s.p.field("job_id", r.JobID)
	s.p.field("message", r.Message)
	if !g.wait {
		return nil
	}

	last := -1
	st, err := s.c.Wait(ctx, r.JobID, g.poll, func(st types.JobStatusResponse) {
		if st.CurrentStep != last {
			last = st.CurrentStep
			s.p.debug("%s %d/%d (%.0f%%)", st.Status, st.CurrentStep, st.TotalSteps, st.Progress)
		}
	})
	if err != nil {
		return fmt.Errorf("wait: %w", err)
	}
	s.printJob(st)
	if st.Status == types.JobFailed {
		return fmt.Errorf("job %s failed: %s", st.JobID, st.Error)
	}
	if g.outDir != "" {
		return s.download(ctx, st, g.outDir)
	}
	return nil
}

func (s *session) download(ctx context.Context, st types.JobStatusResponse, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	for _, u := range st.Results {
		b, err := s.c.Image(ctx, u)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", u, err)
		}
		dst := filepath.Join(dir, path.Base(u))
		if err := fsutil.WriteFileAtomic(dst, b, 0o644); err != nil {
			return err
		}
		s.p.info("saved %s", dst)
	}
	return nil
}

func (s *session) printJob(st types.JobStatusResponse) {
	state := string(st.Status)
	switch st.Status {
	case types.JobCompleted:
		state = okText(state)
	case types.JobFailed:
		state = badText(state)
	}
	s.p.field("job_id", st.JobID)
	s.p.field("status", state)
	s.p.field("progress", fmt.Sprintf("%.0f%% (%d/%d)", st.Progress, st.CurrentStep, st.TotalSteps))
	if st.Message != "" {
		s.p.field("message", st.Message)
	}
	if st.Error != "" {
		s.p.field("error", st.Error)
	}
	for _, u := range st.Results {
		s.p.field("image", u)
	}
}
