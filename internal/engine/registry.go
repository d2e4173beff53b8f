package engine

import (
	"sync"
)

// registry is a subscription list with opaque unsubscribe handles, so
// listeners are not tracked by reference identity.
type registry[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]T
	order  []int
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{subs: make(map[int]T)}
}

// add registers a subscriber and returns its unsubscribe handle
func (r *registry[T]) add(fn T) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.order = append(r.order, id)

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// snapshot returns the live subscribers in registration order
func (r *registry[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, 0, len(r.subs))
	live := r.order[:0]
	for _, id := range r.order {
		if fn, ok := r.subs[id]; ok {
			out = append(out, fn)
			live = append(live, id)
		}
	}
	r.order = live
	return out
}

// clear drops every subscription
func (r *registry[T]) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = make(map[int]T)
	r.order = nil
}
