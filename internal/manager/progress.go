package manager

import "imaged/pkg/types"

// progressSink records backend step callbacks on a job. Step counts and the
// percentage never go backwards and the percentage stays within [0,100].
type progressSink struct{ rec *jobRecord }

func (s progressSink) Step(step, total int) {
	r := s.rec
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != types.JobProcessing {
		return
	}
	// a smaller total than the step already reached is ignored
	if total > 0 && total != r.total && total >= r.step {
		r.total = total
	}
	if r.total > 0 && step > r.total {
		step = r.total
	}
	if step > r.step {
		r.step = step
	}
	if r.total <= 0 {
		return
	}
	pct := float64(r.step) / float64(r.total) * 100
	if pct > 100 {
		pct = 100
	}
	if pct > r.progress {
		r.progress = pct
	}
}
