package submission

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps step names to their implementations.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{steps: make(map[string]Step)}
}

// Register adds a step. Panics on duplicate name to surface misconfiguration early.
func (r *Registry) Register(s Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.steps[s.Name()]; exists {
		panic(fmt.Sprintf("submission registry: duplicate step %q", s.Name()))
	}
	r.steps[s.Name()] = s
}

// Get returns the step registered under name.
func (r *Registry) Get(name string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.steps[name]
	if !ok {
		return nil, fmt.Errorf("no step registered with name %q", name)
	}
	return s, nil
}

// Names returns all registered step names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.steps))
	for k := range r.steps {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Sequence resolves names into an ordered step list.
func (r *Registry) Sequence(names []string) ([]Step, error) {
	out := make([]Step, 0, len(names))
	for _, n := range names {
		s, err := r.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
