package bulletin

import "sync"

// DefaultCapacity is the number of bulletins a Repository keeps when no
// capacity is given.
const DefaultCapacity = 1000

// Repository is an in-memory Sink that keeps the most recent bulletins.
type Repository struct {
	mu       sync.RWMutex
	capacity int
	items    []Bulletin
	next     int
	full     bool
}

// NewRepository creates a repository holding at most capacity bulletins.
func NewRepository(capacity int) *Repository {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Repository{
		capacity: capacity,
		items:    make([]Bulletin, capacity),
	}
}

// Report implements Sink.
func (r *Repository) Report(category string, severity Severity, message string) {
	r.Add(New(category, severity, message))
}

// Add stores a bulletin, evicting the oldest one when full.
func (r *Repository) Add(b Bulletin) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.next] = b
	r.next = (r.next + 1) % r.capacity
	if r.next == 0 {
		r.full = true
	}
}

// Bulletins returns the stored bulletins, oldest first.
func (r *Repository) Bulletins() []Bulletin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full {
		out := make([]Bulletin, r.next)
		copy(out, r.items[:r.next])
		return out
	}
	out := make([]Bulletin, 0, r.capacity)
	out = append(out, r.items[r.next:]...)
	out = append(out, r.items[:r.next]...)
	return out
}

// Len returns the number of stored bulletins.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return r.capacity
	}
	return r.next
}
