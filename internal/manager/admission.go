package manager

import "context"

// acquire blocks until a generation slot frees up. Jobs wait here in
// pending state. Returns a release func to be deferred.
func (m *Manager) acquire(ctx context.Context) (func(), error) {
	select {
	case m.slots <- struct{}{}:
		return func() { <-m.slots }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
}

// InFlight returns the number of generations currently holding a slot.
func (m *Manager) InFlight() int { return len(m.slots) }
