package provider

import (
	"sync"
	"time"
)

// registered pairs a binding with its checker and live stats.
type registered struct {
	binding Binding
	checker Checker
	stats   Stats
}

// Registry holds provider bindings and their call statistics.
type Registry struct {
	mu             sync.RWMutex
	providers      map[string]*registered
	order          []string // registration order, for stable listings
	defaultTimeout time.Duration
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers:      make(map[string]*registered),
		defaultTimeout: DefaultTimeout,
	}
}

// SetDefaultTimeout changes the timeout applied to bindings registered
// without one. Non-positive values are ignored.
func (r *Registry) SetDefaultTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultTimeout = d
}

// Register adds a provider binding. The name must be unique.
func (r *Registry) Register(binding Binding, checker Checker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[binding.Name]; ok {
		return ErrProviderExists
	}
	if binding.Timeout <= 0 {
		binding.Timeout = r.defaultTimeout
	}
	if binding.Weight <= 0 {
		binding.Weight = 1.0
	}

	r.providers[binding.Name] = &registered{binding: binding, checker: checker}
	r.order = append(r.order, binding.Name)
	return nil
}

// SetEnabled enables or disables a provider without unregistering it.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[name]
	if !ok {
		return ErrProviderNotFound
	}
	p.binding.Enabled = enabled
	return nil
}

// Get returns a provider's binding.
func (r *Registry) Get(name string) (Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return Binding{}, ErrProviderNotFound
	}
	return p.binding, nil
}

// target is an enabled provider ready for one aggregation round.
type target struct {
	binding Binding
	checker Checker
}

// enabledTargets snapshots every enabled provider in registration order.
func (r *Registry) enabledTargets() []target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]target, 0, len(r.order))
	for _, name := range r.order {
		p := r.providers[name]
		if p.binding.Enabled {
			targets = append(targets, target{binding: p.binding, checker: p.checker})
		}
	}
	return targets
}

// RecordCall updates a provider's call counters and rolling average
// response time. Called after every provider call, success or failure.
func (r *Registry) RecordCall(name string, success bool, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[name]
	if !ok {
		return
	}

	p.stats.Calls++
	if success {
		p.stats.Successes++
	} else {
		p.stats.Failures++
	}
	// Incremental rolling average.
	ms := float64(elapsed.Milliseconds())
	p.stats.AvgResponseMs += (ms - p.stats.AvgResponseMs) / float64(p.stats.Calls)
}

// StatsFor returns a provider's call statistics.
func (r *Registry) StatsFor(name string) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return Stats{}, ErrProviderNotFound
	}
	return p.stats, nil
}

// ProviderInfo is a binding plus its stats, for listings.
type ProviderInfo struct {
	Binding
	Stats Stats `json:"stats"`
}

// List returns all providers with their stats in registration order.
func (r *Registry) List() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(r.order))
	for _, name := range r.order {
		p := r.providers[name]
		infos = append(infos, ProviderInfo{Binding: p.binding, Stats: p.stats})
	}
	return infos
}

// EnabledCount returns how many providers are currently enabled.
func (r *Registry) EnabledCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, p := range r.providers {
		if p.binding.Enabled {
			n++
		}
	}
	return n
}
