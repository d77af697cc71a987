package buffer

import (
	"errors"
	"sync"
)

// ErrInvalidCapacity is returned when a ring buffer is created without room
// for at least one element.
var ErrInvalidCapacity = errors.New("ring buffer capacity must be positive")

// Ring is a fixed-capacity circular buffer that overwrites its oldest element
// once full. It is safe for concurrent use.
type Ring[T any] struct {
	mu     sync.Mutex
	items  []T
	cursor uint64 // total number of writes
}

// NewRing creates a ring buffer holding at most capacity elements.
func NewRing[T any](capacity int) (*Ring[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Ring[T]{items: make([]T, capacity)}, nil
}

// MustRing is like NewRing but panics on an invalid capacity.
func MustRing[T any](capacity int) *Ring[T] {
	r, err := NewRing[T](capacity)
	if err != nil {
		panic(err)
	}
	return r
}

// Add appends v, evicting the oldest element when the buffer is full.
// It reports whether an element was evicted.
func (r *Ring[T]) Add(v T) (evicted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := uint64(len(r.items))
	evicted = r.cursor >= n
	r.items[r.cursor%n] = v
	r.cursor++
	return evicted
}

// Snapshot returns a copy of the retained elements, oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := uint64(len(r.items))
	if r.cursor <= n {
		out := make([]T, r.cursor)
		copy(out, r.items[:r.cursor])
		return out
	}

	out := make([]T, 0, n)
	start := r.cursor % n
	out = append(out, r.items[start:]...)
	out = append(out, r.items[:start]...)
	return out
}

// Last returns the most recently added element.
func (r *Ring[T]) Last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if r.cursor == 0 {
		return zero, false
	}
	return r.items[(r.cursor-1)%uint64(len(r.items))], true
}

// Len returns the number of retained elements
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor < uint64(len(r.items)) {
		return int(r.cursor)
	}
	return len(r.items)
}

// Cap returns the fixed capacity
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Writes returns the total number of Add calls since creation or Clear.
func (r *Ring[T]) Writes() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// Clear drops every element.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.cursor = 0
}
