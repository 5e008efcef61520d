// Package parametrize provides named parametrization callbacks for the truncator.
package parametrize

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/qcal/pkg/ports"
)

// Registry manages the available parametrizers.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]ports.Parametrizer
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]ports.Parametrizer),
	}
}

// Default returns a registry holding the built-in parametrizers.
func Default() *Registry {
	r := NewRegistry()
	r.Register("gate", Gate)
	r.Register("rotation", Rotation)
	r.Register("pulse", Pulse)
	return r
}

// Register adds a parametrizer. An existing entry with the same name is overwritten.
func (r *Registry) Register(name string, fn ports.Parametrizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Get looks up a parametrizer by name.
func (r *Registry) Get(name string) (ports.Parametrizer, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("parametrizer not found: %s", name)
	}
	return fn, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.funcs))
}
