package vade

import "sync"

// Registry is an ordered, append-only collection of plugins. Registration
// order is dispatch order and is never changed; there is no removal and no
// deduplication. Reads take a snapshot so a dispatch in flight never
// observes a concurrent append.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends plugin to the registry. It never fails; nil plugins are
// ignored.
func (r *Registry) Register(plugin Plugin) {
	if plugin == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, plugin)
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// snapshot returns the registered plugins in registration order. The
// returned slice is a copy; callers must not mutate plugins through it.
func (r *Registry) snapshot() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}
