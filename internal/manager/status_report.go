package manager

import "imaged/pkg/types"

// Job returns a snapshot of the job. Evicted, expired and unknown ids are
// all reported as not found.
func (m *Manager) Job(id string) (Job, error) {
	rec, ok := m.lookup(id)
	if !ok {
		return Job{}, ErrJobNotFound(id)
	}
	return rec.snapshot(), nil
}

// JobStatus builds the response for GET /job/{id}.
func (m *Manager) JobStatus(id string) (types.JobStatusResponse, error) {
	j, err := m.Job(id)
	if err != nil {
		return types.JobStatusResponse{}, err
	}
	return j.Response(), nil
}

// Counts returns the number of retained jobs per state.
func (m *Manager) Counts() map[types.JobState]int {
	m.mu.RLock()
	recs := make([]*jobRecord, 0, len(m.jobs))
	for _, r := range m.jobs {
		recs = append(recs, r)
	}
	m.mu.RUnlock()
	out := map[types.JobState]int{}
	for _, r := range recs {
		r.mu.Lock()
		out[r.state]++
		r.mu.Unlock()
	}
	return out
}
