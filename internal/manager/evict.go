package manager

import (
	"context"
	"time"
)

// expired reports whether rec is past retention at now. Age is measured
// from creation whatever the job state.
func (m *Manager) expired(rec *jobRecord, now time.Time) bool {
	return now.Sub(rec.createdAt) > m.retention
}

// Sweep evicts every job past retention, drops its dedup entries and
// returns how many jobs were removed. A running generation is not
// cancelled; its results are discarded when it finishes.
func (m *Manager) Sweep(ctx context.Context) int {
	now := m.now()
	m.mu.Lock()
	var evicted []*jobRecord
	for id, rec := range m.jobs {
		if m.expired(rec, now) {
			delete(m.jobs, id)
			evicted = append(evicted, rec)
		}
	}
	m.mu.Unlock()

	for _, rec := range evicted {
		if err := m.dd.ForgetJob(ctx, rec.id); err != nil {
			m.log.Warn().Err(err).Str("job_id", rec.id).Msg("dedup forget failed")
		}
		state := rec.snapshot().State
		jobsEvicted.Inc()
		m.log.Debug().Str("job_id", rec.id).Str("state", string(state)).Msg("job evicted")
		m.publish(EventJobEvicted, rec.id, map[string]any{"state": string(state)})
	}
	if n, err := m.dd.Sweep(ctx); err != nil {
		m.log.Warn().Err(err).Msg("dedup sweep failed")
	} else if n > 0 {
		m.log.Debug().Int("entries", n).Msg("dedup entries expired")
	}
	if len(evicted) > 0 {
		m.log.Info().Int("jobs", len(evicted)).Msg("retention sweep")
	}
	return len(evicted)
}

// Run sweeps on every SweepInterval tick until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	t := time.NewTicker(m.sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep(ctx)
		}
	}
}
