package dedup

import (
	"context"
	"sync"
	"time"
)

// Entry is one remembered fingerprint.
type Entry struct {
	Fingerprint string
	JobID       string
	CreatedAt   time.Time
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
	byJob   map[string]map[string]struct{}
}

// NewMemoryStore returns a store with the given window. now may be nil.
func NewMemoryStore(window time.Duration, now func() time.Time) *MemoryStore {
	if window <= 0 {
		window = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		window:  window,
		now:     now,
		entries: make(map[string]Entry),
		byJob:   make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) expired(e Entry, now time.Time) bool {
	return now.Sub(e.CreatedAt) >= s.window
}

func (s *MemoryStore) Lookup(_ context.Context, fp string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[fp]
	if !ok {
		return "", false, nil
	}
	if s.expired(e, s.now()) {
		s.removeLocked(fp)
		return "", false, nil
	}
	return e.JobID, true, nil
}

func (s *MemoryStore) Remember(_ context.Context, fp, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(fp)
	s.entries[fp] = Entry{Fingerprint: fp, JobID: jobID, CreatedAt: s.now()}
	set := s.byJob[jobID]
	if set == nil {
		set = make(map[string]struct{})
		s.byJob[jobID] = set
	}
	set[fp] = struct{}{}
	return nil
}

func (s *MemoryStore) ForgetJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for fp := range s.byJob[jobID] {
		s.removeLocked(fp)
	}
	delete(s.byJob, jobID)
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for fp, e := range s.entries {
		if s.expired(e, now) {
			s.removeLocked(fp)
			n++
		}
	}
	return n, nil
}

// Len returns the number of entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) removeLocked(fp string) {
	e, ok := s.entries[fp]
	if !ok {
		return
	}
	delete(s.entries, fp)
	if set := s.byJob[e.JobID]; set != nil {
		delete(set, fp)
		if len(set) == 0 {
			delete(s.byJob, e.JobID)
		}
	}
}
