package resilience

import (
	"sort"
	"sync"

	"github.com/sony/gobreaker/v2"
)

// Health is the breaker status of one guarded dependency.
type Health struct {
	Name         string
	CircuitState gobreaker.State
	Counts       gobreaker.Counts
}

// IsHealthy returns true if the circuit is closed.
func (h Health) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded returns true if the circuit is half-open.
func (h Health) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// Registry tracks guards so their state can be reported by the ops endpoints.
type Registry struct {
	mu     sync.RWMutex
	guards map[string]*Guard
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{guards: make(map[string]*Guard)}
}

// Register adds g under its name, replacing any previous guard with that name.
func (r *Registry) Register(g *Guard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards[g.Name()] = g
}

// Health returns the status of every registered guard, sorted by name.
func (r *Registry) Health() []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]Health, 0, len(r.guards))
	for name, g := range r.guards {
		health = append(health, Health{
			Name:         name,
			CircuitState: g.State(),
			Counts:       g.Counts(),
		})
	}
	sort.Slice(health, func(i, j int) bool { return health[i].Name < health[j].Name })
	return health
}
