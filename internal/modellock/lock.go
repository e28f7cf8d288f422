// Package modellock serializes orchestration per model. Deployments,
// rollbacks and their traffic writes for the same model must not
// interleave; operations on different models proceed concurrently.
package modellock

import (
	"sync"
)

// Registry hands out one mutex per model name. Locks are never
// released from the map; the set of models is small and long-lived.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry creates an empty lock registry
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the given model, creating it on first use
func (r *Registry) Lock(modelName string) {
	r.get(modelName).Lock()
}

// Unlock releases the mutex for the given model
func (r *Registry) Unlock(modelName string) {
	r.get(modelName).Unlock()
}

func (r *Registry) get(modelName string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[modelName]
	if !ok {
		m = &sync.Mutex{}
		r.locks[modelName] = m
	}
	return m
}
