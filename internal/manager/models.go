package manager

import (
	"context"
	"fmt"
	"strings"

	"imaged/internal/registry"
	"imaged/internal/resolver"
	"imaged/pkg/types"
)

// LoadModel resolves and loads path, making it the current model. typ is an
// optional format or family hint. reload discards any cached handle first.
func (m *Manager) LoadModel(ctx context.Context, path, typ string, reload bool) (types.LoadModelResponse, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return types.LoadModelResponse{}, invalid("model_path is required")
	}
	hint, err := resolver.ParseHint(typ)
	if err != nil {
		return types.LoadModelResponse{}, invalid(err.Error())
	}
	if !m.be.Ready() {
		return types.LoadModelResponse{}, ErrEngineNotReady
	}
	resolve := m.res.Resolve
	if reload {
		resolve = m.res.Reload
	}
	model, err := resolve(ctx, path, hint)
	if err != nil {
		m.log.Warn().Err(err).Str("ref", path).Msg("model load failed")
		m.publish(EventModelLoadFailed, "", map[string]any{"ref": path, "error": err.Error()})
		return types.LoadModelResponse{}, err
	}
	d := model.Descriptor()
	m.log.Info().Str("ref", path).Str("strategy", d.Strategy).Str("pipeline", d.Pipeline).Msg("model loaded")
	m.publish(EventModelLoaded, "", map[string]any{"ref": path, "strategy": d.Strategy, "reload": reload})
	return types.LoadModelResponse{
		Status:  "success",
		Message: fmt.Sprintf("Model %s loaded successfully", path),
	}, nil
}

// Preload loads the configured default model. Failures are logged only.
func (m *Manager) Preload(ctx context.Context) {
	if m.defaultModel == "" {
		return
	}
	if _, err := m.LoadModel(ctx, m.defaultModel, "", false); err != nil {
		m.log.Warn().Err(err).Str("ref", m.defaultModel).Msg("default model preload failed")
	}
}

// ListModels reports loaded refs and the models found in the models dir.
func (m *Manager) ListModels() (types.ModelsResponse, error) {
	if !m.be.Ready() {
		return types.ModelsResponse{}, ErrEngineNotReady
	}
	avail, err := registry.LoadDir(m.modelsDir)
	if err != nil {
		return types.ModelsResponse{}, fmt.Errorf("scan models dir: %w", err)
	}
	return types.ModelsResponse{Loaded: m.res.Loaded(), Available: avail}, nil
}

// Samplers lists the sampler names accepted by Submit.
func (m *Manager) Samplers() types.SamplersResponse {
	return types.SamplersResponse{Samplers: m.sched.Names(), LCMSamplers: m.sched.LCMNames()}
}

// Health reports backend state. ok is false while the backend is not ready.
func (m *Manager) Health() (resp types.HealthResponse, ok bool) {
	jobs := map[string]int{}
	for state, n := range m.Counts() {
		jobs[string(state)] = n
	}
	resp = types.HealthResponse{
		Device:        m.be.Device(),
		UptimeSeconds: m.Uptime().Seconds(),
		Jobs:          jobs,
	}
	if !m.be.Ready() {
		resp.Status = "unhealthy"
		resp.Message = ErrEngineNotReady.Error()
		resp.ModelsLoaded = []string{}
		return resp, false
	}
	resp.Status = "healthy"
	resp.Message = "Inference service is running"
	resp.ModelsLoaded = m.res.Loaded()
	return resp, true
}
