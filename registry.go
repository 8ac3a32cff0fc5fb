package passwordless

import (
	"sync"

	"github.com/goliatone/go-errors"
)

// Registry holds configured strategies keyed by resource subject name and
// strategy name. Registration happens at startup; dispatch-time access is
// read-only, so the registry is safe to share across concurrent requests.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	order      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: map[string]Strategy{}}
}

func registryKey(resource, name string) string {
	return resource + "/" + name
}

// Register adds a strategy. The name + resource pair must be unique.
func (r *Registry) Register(s Strategy) error {
	if s == nil {
		return errors.New("strategy must not be nil", errors.CategoryBadInput)
	}

	key := registryKey(s.Resource().SubjectName, s.Name())

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[key]; exists {
		return errors.New("strategy already registered", errors.CategoryConflict).
			WithCode(errors.CodeConflict).
			WithMetadata(map[string]any{
				"strategy": s.Name(),
				"resource": s.Resource().SubjectName,
			})
	}

	r.strategies[key] = s
	r.order = append(r.order, key)
	return nil
}

// Lookup finds a strategy by resource subject name and strategy name.
func (r *Registry) Lookup(resource, name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[registryKey(resource, name)]
	return s, ok
}

// Strategies returns registered strategies in registration order.
func (r *Registry) Strategies() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Strategy, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.strategies[key])
	}
	return out
}
