package manager

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"imaged/internal/backend"
	"imaged/internal/resolver"
	"imaged/internal/storage"
	"imaged/pkg/types"
)

// execute runs one job to a terminal state. Exactly one of complete/fail
// takes effect, whatever the backend does.
func (m *Manager) execute(rec *jobRecord) {
	defer m.wg.Done()
	defer jobsActive.Dec()
	defer func() {
		if r := recover(); r != nil {
			m.fail(rec, fmt.Errorf("generation panicked: %v", r))
		}
	}()

	release, err := m.acquire(m.baseCtx)
	if err != nil {
		m.fail(rec, err)
		return
	}
	defer release()

	if !rec.start(m.now()) {
		return
	}
	m.log.Info().Str("job_id", rec.id).Msg("job processing")
	m.publish(EventJobProcessing, rec.id, nil)

	model, params, meta, err := m.prepare(m.baseCtx, rec)
	if err != nil {
		m.fail(rec, err)
		return
	}

	begin := time.Now()
	results, err := m.runGeneration(m.baseCtx, model, params, progressSink{rec: rec})
	generationSeconds.Observe(time.Since(begin).Seconds())
	if err != nil {
		m.fail(rec, err)
		return
	}

	if _, live := m.lookup(rec.id); !live {
		resultsDiscarded.Inc()
		m.log.Debug().Str("job_id", rec.id).Int("images", len(results)).Msg("job evicted before completion; discarding results")
		return
	}

	images, err := m.store(rec, results, meta)
	if err != nil {
		m.fail(rec, err)
		return
	}
	m.complete(rec, images)
}

// runGeneration converts a backend panic into an error.
func (m *Manager) runGeneration(ctx context.Context, model backend.Model, p backend.Params, sink backend.ProgressSink) (out []backend.ImageResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation panicked: %v", r)
		}
	}()
	return m.be.RunGeneration(ctx, model, p, sink)
}

// prepare resolves the model and scheduler and fixes the backend params.
func (m *Manager) prepare(ctx context.Context, rec *jobRecord) (backend.Model, backend.Params, map[string]string, error) {
	req := rec.req
	ref := req.Model
	if ref == "" {
		ref = m.defaultModel
	}
	model, err := m.res.ResolveOrCurrent(ctx, ref, resolver.Hint{})
	if err != nil {
		return nil, backend.Params{}, nil, err
	}

	spec := m.sched.Resolve(req.Sampler)
	if req.EnableLCM {
		spec = m.sched.LCM()
	}

	var initImage []byte
	if req.InitImage != "" {
		if initImage, err = decodeInitImage(req.InitImage); err != nil {
			return nil, backend.Params{}, nil, fmt.Errorf("decode init image: %w", err)
		}
	}
	strength := DefaultStrength
	if req.Strength != nil {
		strength = *req.Strength
	}

	p := backend.Params{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          roundDown8(req.Width),
		Height:         roundDown8(req.Height),
		Steps:          effectiveSteps(req),
		CFGScale:       req.CFGScale,
		Seed:           rec.seed,
		BatchSize:      req.BatchSize,
		Scheduler:      spec,
		LoRAs:          req.LoRAs,
		InitImage:      initImage,
		Strength:       strength,
		ClipSkip:       req.ClipSkip,
	}
	d := model.Descriptor()
	meta := map[string]string{
		"job_id":           rec.id,
		"prompt":           req.Prompt,
		"negative_prompt":  req.NegativePrompt,
		"sampler":          spec.Name,
		"scheduler":        string(spec.Solver),
		"steps":            strconv.Itoa(p.Steps),
		"cfg_scale":        strconv.FormatFloat(p.CFGScale, 'f', -1, 64),
		"requested_width":  strconv.Itoa(req.Width),
		"requested_height": strconv.Itoa(req.Height),
		"width":            strconv.Itoa(p.Width),
		"height":           strconv.Itoa(p.Height),
		"clip_skip":        strconv.Itoa(p.ClipSkip),
		"model":            d.Ref,
		"strategy":         d.Strategy,
	}
	if len(initImage) > 0 {
		meta["strength"] = strconv.FormatFloat(strength, 'f', -1, 64)
	}
	if req.EnableLCM {
		meta["lcm"] = "true"
	}
	return model, p, meta, nil
}

// store writes each image and builds its public description.
func (m *Manager) store(rec *jobRecord, results []backend.ImageResult, meta map[string]string) ([]types.ImageResult, error) {
	out := make([]types.ImageResult, 0, len(results))
	for _, r := range results {
		id := uuid.NewString()
		rel, err := m.images.Save(id, r.Data)
		if err != nil {
			return nil, err
		}
		md := make(map[string]string, len(meta)+len(r.Metadata)+1)
		for k, v := range r.Metadata {
			md[k] = v
		}
		for k, v := range meta {
			md[k] = v
		}
		md["seed"] = strconv.FormatInt(r.Seed, 10)
		out = append(out, types.ImageResult{
			ImageID:  id,
			ImageURL: storage.URL(rel),
			Path:     rel,
			Seed:     r.Seed,
			Width:    r.Width,
			Height:   r.Height,
			Metadata: md,
		})
	}
	return out, nil
}

func (m *Manager) complete(rec *jobRecord, images []types.ImageResult) {
	msg := fmt.Sprintf("Generated %d image(s)", len(images))
	if !rec.finish(types.JobCompleted, images, "", msg, m.now()) {
		return
	}
	jobsFinished.WithLabelValues(string(types.JobCompleted)).Inc()
	m.log.Info().Str("job_id", rec.id).Int("images", len(images)).Msg("job completed")
	m.publish(EventJobCompleted, rec.id, map[string]any{"images": len(images)})
}

// errUnknownFailure stands in for errors that carry no text.
const errUnknownFailure = "generation failed"

func (m *Manager) fail(rec *jobRecord, err error) {
	text := ""
	if err != nil {
		text = strings.TrimSpace(err.Error())
	}
	if text == "" {
		text = errUnknownFailure
	}
	if !rec.finish(types.JobFailed, nil, text, "Generation failed", m.now()) {
		return
	}
	jobsFinished.WithLabelValues(string(types.JobFailed)).Inc()
	m.log.Error().Err(err).Str("job_id", rec.id).Msg("job failed")
	m.publish(EventJobFailed, rec.id, map[string]any{"error": text})
}
