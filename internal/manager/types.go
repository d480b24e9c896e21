package manager

import (
	"sync"
	"time"

	"imaged/pkg/types"
)

// jobRecord is the mutable state of one job. Fields below mu are guarded
// by it; the rest are fixed at submission.
type jobRecord struct {
	id          string
	fingerprint string
	req         types.GenerateRequest
	seed        int64
	createdAt   time.Time

	mu          sync.Mutex
	state       types.JobState
	step        int
	total       int
	progress    float64
	message     string
	images      []types.ImageResult
	err         string
	startedAt   time.Time
	completedAt time.Time
}

// Job is a read-only snapshot of a job.
type Job struct {
	ID          string
	State       types.JobState
	Progress    float64
	CurrentStep int
	TotalSteps  int
	Message     string
	Images      []types.ImageResult
	Error       string
	Seed        int64
	Request     types.GenerateRequest
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

func (r *jobRecord) snapshot() Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := Job{
		ID:          r.id,
		State:       r.state,
		Progress:    r.progress,
		CurrentStep: r.step,
		TotalSteps:  r.total,
		Message:     r.message,
		Error:       r.err,
		Seed:        r.seed,
		Request:     r.req,
		CreatedAt:   r.createdAt,
		StartedAt:   r.startedAt,
		CompletedAt: r.completedAt,
	}
	if len(r.images) > 0 {
		j.Images = make([]types.ImageResult, len(r.images))
		copy(j.Images, r.images)
	}
	return j
}

// start moves a pending job to processing.
func (r *jobRecord) start(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != types.JobPending {
		return false
	}
	r.state = types.JobProcessing
	r.message = "Generating"
	r.startedAt = now
	return true
}

// finish performs the single terminal transition. Later calls are no-ops.
func (r *jobRecord) finish(state types.JobState, images []types.ImageResult, errText, message string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return false
	}
	r.state = state
	r.images = images
	r.err = errText
	r.message = message
	r.completedAt = now
	if state == types.JobCompleted {
		r.step = r.total
		r.progress = 100
	}
	return true
}

// Response renders the job for GET /job/{id}.
func (j Job) Response() types.JobStatusResponse {
	resp := types.JobStatusResponse{
		JobID:       j.ID,
		Status:      j.State,
		Progress:    j.Progress,
		CurrentStep: j.CurrentStep,
		TotalSteps:  j.TotalSteps,
		Message:     j.Message,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
	}
	if !j.CompletedAt.IsZero() {
		t := j.CompletedAt
		resp.CompletedAt = &t
	}
	if j.State == types.JobCompleted {
		resp.Images = j.Images
		resp.Results = make([]string, 0, len(j.Images))
		for _, img := range j.Images {
			resp.Results = append(resp.Results, img.ImageURL)
		}
	}
	return resp
}
