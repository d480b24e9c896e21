package types

// JobState is the lifecycle state of a generation job.
type JobState string

const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s JobState) Terminal() bool { return s == JobCompleted || s == JobFailed }

// Model represents a checkpoint or bundle discovered on disk.
type Model struct {
	// File or directory name.
	// example: dreamshaper_8.safetensors
	Name string `json:"name" example:"dreamshaper_8.safetensors"`
	// Absolute path on disk.
	// example: /srv/models/dreamshaper_8.safetensors
	Path string `json:"path" example:"/srv/models/dreamshaper_8.safetensors"`
	// Storage format: safetensors, ckpt or diffusers.
	// example: safetensors
	Type string `json:"type" example:"safetensors"`
}
