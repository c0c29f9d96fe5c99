package device

import (
	"sort"
	"sync"

	"skywatch-sim/internal/simerr"
)

// Identified is anything keyed by a device id.
type Identified interface {
	ID() string
}

// Registry holds devices by id. It is safe for concurrent use.
type Registry[T Identified] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewRegistry returns an empty registry.
func NewRegistry[T Identified]() *Registry[T] {
	return &Registry[T]{items: make(map[string]T)}
}

// Add registers v. Duplicate ids are rejected.
func (r *Registry[T]) Add(v T) error {
	id := v.ID()
	if id == "" {
		return simerr.Validation("cannot register device without id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; ok {
		return simerr.Validation("device %s already registered", id)
	}
	r.items[id] = v
	return nil
}

// Get looks up id.
func (r *Registry[T]) Get(id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[id]
	if !ok {
		var zero T
		return zero, simerr.NotFound("device %s", id)
	}
	return v, nil
}

// Remove unregisters id and reports whether it existed.
func (r *Registry[T]) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[id]
	delete(r.items, id)
	return ok
}

// List returns all devices sorted by id.
func (r *Registry[T]) List() []T {
	r.mu.RLock()
	out := make([]T, 0, len(r.items))
	for _, v := range r.items {
		out = append(out, v)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len returns the number of devices.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
