package manager

// Event represents a job or model lifecycle event.
// Minimal and stable: name + job ID and optional fields via key/values.
type Event struct {
	Name   string
	JobID  string
	Fields map[string]any
}

// Event names.
const (
	EventJobSubmitted    = "job_submitted"
	EventJobDeduplicated = "job_deduplicated"
	EventJobProcessing   = "job_processing"
	EventJobCompleted    = "job_completed"
	EventJobFailed       = "job_failed"
	EventJobEvicted      = "job_evicted"
	EventModelLoaded     = "model_loaded"
	EventModelLoadFailed = "model_load_failed"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

func (m *Manager) publish(name, jobID string, fields map[string]any) {
	m.events.Publish(Event{Name: name, JobID: jobID, Fields: fields})
}

// SetEventPublisher replaces the publisher. Nil restores the no-op default.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.events = p
}
