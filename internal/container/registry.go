package container

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Registry is a concurrency-safe table that remembers insertion order.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	order   []K
}

func NewRegistry[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register stores value under key, replacing a previous value in place.
func (r *Registry[K, V]) Register(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, key)
	}
	r.entries[key] = value
}

// GetOrCreate returns the stored value or stores the one built by create.
// The boolean reports whether create ran.
func (r *Registry[K, V]) GetOrCreate(key K, create func() V) (V, bool) {
	r.mu.RLock()
	value, exists := r.entries[key]
	r.mu.RUnlock()
	if exists {
		return value, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if value, exists = r.entries[key]; exists {
		return value, false
	}
	value = create()
	r.entries[key] = value
	r.order = append(r.order, key)
	return value, true
}

func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, exists := r.entries[key]
	return value, exists
}

func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.entries[key]
	return exists
}

func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

func (r *Registry[K, V]) Values() []V {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(key K, _ int) V { return r.entries[key] })
}

func (r *Registry[K, V]) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

func (r *Registry[K, V]) Remove(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; !exists {
		return
	}
	delete(r.entries, key)
	r.order = lo.Without(r.order, key)
}

func (r *Registry[K, V]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[K]V)
	r.order = nil
}
