package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry manages engine registration and lookup. It is the central
// point for discovering which analysis domains are available.
//
// Registering under a name that is already taken replaces the previous
// engine; GUI and script callers re-register idempotently on reload.
// Replacement does not disturb tasks already dispatched with the old
// engine.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*registration
}

type registration struct {
	engine       Engine
	registeredAt time.Time
}

// NewRegistry creates an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]*registration),
	}
}

// Register adds an engine under its Name. Returns true when the
// registration replaced an existing engine of the same name.
func (r *Registry) Register(e Engine) (bool, error) {
	if e == nil {
		return false, fmt.Errorf("engine cannot be nil")
	}
	name := e.Name()
	if name == "" {
		return false, fmt.Errorf("engine name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced := r.engines[name]
	r.engines[name] = &registration{
		engine:       e,
		registeredAt: time.Now().UTC(),
	}
	return replaced, nil
}

// Unregister removes the engine for a domain. Returns false when no
// engine is registered under the name.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[name]; !exists {
		return false
	}
	delete(r.engines, name)
	return true
}

// Get returns the engine registered for a domain.
func (r *Registry) Get(name string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.engines[name]
	if !ok {
		return nil, false
	}
	return reg.engine, true
}

// IsRegistered checks if a domain has an engine.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.engines[name]
	return ok
}

// Names returns all registered domain names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns descriptors for all registered engines, sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.engines))
	for name, reg := range r.engines {
		descriptors = append(descriptors, Descriptor{
			Name:         name,
			Description:  reg.engine.Description(),
			RegisteredAt: reg.registeredAt,
		})
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})
	return descriptors
}

// Count returns the number of registered engines.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}
