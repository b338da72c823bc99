package registry

import (
	"fmt"
	"sync"

	"github.com/WyZzYx/Jobsight/internal/model"
)

// Registry holds the configured providers in registration order.
type Registry struct {
	mu        sync.RWMutex
	providers []model.Provider
}

// New returns a registry holding ps in order. It panics on duplicate names,
// which is a wiring bug.
func New(ps ...model.Provider) *Registry {
	r := &Registry{}
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Register appends p. Names must be unique because they key breakers and metrics.
func (r *Registry) Register(p model.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.providers {
		if existing.Name() == p.Name() {
			return fmt.Errorf("provider %q already registered", p.Name())
		}
	}
	r.providers = append(r.providers, p)
	return nil
}

// All returns the providers enabled right now, in registration order.
func (r *Registry) All() []model.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enabled := make([]model.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		if p.Enabled() {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

// Providers returns every registered provider, enabled or not.
func (r *Registry) Providers() []model.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Apply sets the enabled flag of each named provider and returns the names
// whose flag changed. Unknown names are ignored.
func (r *Registry) Apply(enabled map[string]bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var changed []string
	for _, p := range r.providers {
		on, ok := enabled[p.Name()]
		if !ok || p.Enabled() == on {
			continue
		}
		p.SetEnabled(on)
		changed = append(changed, p.Name())
	}
	return changed
}
