// Package orderlock serializes settlement and monitor work on the same
// order within this process.
package orderlock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Registry hands out one mutex per order id. Entries are reference
// counted and evicted on final unlock so the map does not grow with
// every order a long-lived daemon ever touched.
type Registry struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

// NewRegistry returns an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{locks: map[int64]*entry{}}
}

// Lock acquires the mutex for the given order, creating it on first use.
// The returned func releases it.
func (r *Registry) Lock(orderID int64) func() {
	r.mu.Lock()
	e, ok := r.locks[orderID]
	if !ok {
		e = &entry{}
		r.locks[orderID] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		r.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(r.locks, orderID)
		}
		r.mu.Unlock()
	}
}

func (r *Registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
