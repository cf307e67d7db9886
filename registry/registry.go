// Package registry holds the known job specs a worker can be constructed
// from.
package registry

import (
	"sync"

	"github.com/queueworks/consumer/errors"
	"github.com/queueworks/consumer/job"
)

// Registry is a thread-safe job spec registry.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]job.Spec
}

// NewRegistry creates a new registry
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]job.Spec),
	}
}

// Register adds a job spec. The spec's style is fixed here from the perform
// capability it exposes; a spec with neither capability is rejected.
func (r *Registry) Register(spec job.Spec) error {
	resolved, err := spec.Resolved()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.specs[resolved.Name] = resolved
	return nil
}

// RegisterFunc registers a class-style job under name.
func (r *Registry) RegisterFunc(name string, perform job.PerformFunc, opts job.ListenOptions) error {
	if perform == nil {
		return errors.ErrNilPerform
	}
	return r.Register(job.Spec{Name: name, Perform: perform, Options: opts})
}

// RegisterFactory registers an instance-style job under name.
func (r *Registry) RegisterFactory(name string, factory job.Factory, opts job.ListenOptions) error {
	if factory == nil {
		return errors.ErrNilFactory
	}
	return r.Register(job.Spec{Name: name, New: factory, Options: opts})
}

// Lookup retrieves a job spec by name
func (r *Registry) Lookup(name string) (job.Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[name]
	return spec, ok
}

// List returns all registered job names
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}

	return names
}

// Remove unregisters a job spec
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.specs, name)
}

// Clear removes all registered job specs
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.specs = make(map[string]job.Spec)
}
