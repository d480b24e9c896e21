package manager

import (
	"context"
	"math/rand/v2"

	"github.com/google/uuid"

	"imaged/internal/dedup"
	"imaged/pkg/types"
)

// Messages returned with a submission.
const (
	MsgQueued    = "Generation job queued successfully"
	MsgDuplicate = "Duplicate request within dedup window; returning existing job"
)

// SubmitResult identifies the job a submission maps to.
type SubmitResult struct {
	JobID        string
	Deduplicated bool
	Message      string
}

// Submit validates req and enqueues a job. An identical request inside the
// dedup window returns the id of the job it already created.
func (m *Manager) Submit(ctx context.Context, req types.GenerateRequest) (SubmitResult, error) {
	if !m.be.Ready() {
		return SubmitResult{}, ErrEngineNotReady
	}
	norm, err := normalize(req)
	if err != nil {
		return SubmitResult{}, err
	}
	fp := dedup.Fingerprint(norm)

	m.submitMu.Lock()
	defer m.submitMu.Unlock()
	if m.closing {
		return SubmitResult{}, errShuttingDown
	}

	if id, ok, err := m.dd.Lookup(ctx, fp); err != nil {
		m.log.Warn().Err(err).Msg("dedup lookup failed; treating as miss")
	} else if ok {
		if _, live := m.lookup(id); live {
			jobsDeduplicated.Inc()
			m.log.Info().Str("job_id", id).Msg("duplicate request; returning existing job")
			m.publish(EventJobDeduplicated, id, map[string]any{"fingerprint": fp})
			return SubmitResult{JobID: id, Deduplicated: true, Message: MsgDuplicate}, nil
		}
	}

	seed := RandomSeed
	if norm.Seed != nil {
		seed = *norm.Seed
	}
	if seed == RandomSeed {
		seed = rand.Int64N(1 << 32)
	}
	rec := &jobRecord{
		id:          uuid.NewString(),
		fingerprint: fp,
		req:         norm,
		seed:        seed,
		createdAt:   m.now(),
		state:       types.JobPending,
		total:       effectiveSteps(norm),
		message:     "Queued",
	}

	m.mu.Lock()
	m.jobs[rec.id] = rec
	m.mu.Unlock()
	if err := m.dd.Remember(ctx, fp, rec.id); err != nil {
		m.log.Warn().Err(err).Str("job_id", rec.id).Msg("dedup remember failed")
	}

	jobsSubmitted.Inc()
	jobsActive.Inc()
	m.log.Info().Str("job_id", rec.id).Int("width", norm.Width).Int("height", norm.Height).
		Int("steps", rec.total).Str("sampler", norm.Sampler).Str("model", norm.Model).Msg("job queued")
	m.publish(EventJobSubmitted, rec.id, map[string]any{"fingerprint": fp})

	m.wg.Add(1)
	go m.execute(rec)
	return SubmitResult{JobID: rec.id, Message: MsgQueued}, nil
}

// lookup returns a job that is present and not past retention.
func (m *Manager) lookup(id string) (*jobRecord, bool) {
	m.mu.RLock()
	r, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok || m.expired(r, m.now()) {
		return nil, false
	}
	return r, true
}
