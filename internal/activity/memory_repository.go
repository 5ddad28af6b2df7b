package activity

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// It backs tests and the CLI, which loads definitions from a file.
type InMemoryRepository struct {
	mu         sync.RWMutex
	activities map[string]Activity
}

// NewInMemoryRepository creates a repository seeded with the given activities.
func NewInMemoryRepository(seed ...Activity) *InMemoryRepository {
	r := &InMemoryRepository{activities: make(map[string]Activity, len(seed))}
	for _, a := range seed {
		r.activities[a.ID] = cloneActivity(a)
	}
	return r
}

// Get retrieves an activity by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.activities[id]
	if !ok {
		return nil, ErrActivityNotFound
	}
	cpy := cloneActivity(a)
	return &cpy, nil
}

// List retrieves all activities ordered by priority, then ID.
func (r *InMemoryRepository) List(_ context.Context) ([]Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Activity, 0, len(r.activities))
	for _, a := range r.activities {
		out = append(out, cloneActivity(a))
	}
	sortActivities(out)
	return out, nil
}

// Upsert creates or replaces an activity.
func (r *InMemoryRepository) Upsert(_ context.Context, a *Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.activities[a.ID] = cloneActivity(*a)
	return nil
}

// Delete deletes an activity by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.activities[id]; !ok {
		return ErrActivityNotFound
	}
	delete(r.activities, id)
	return nil
}

// Ping always succeeds.
func (r *InMemoryRepository) Ping(_ context.Context) error {
	return nil
}

// cloneActivity copies the constraint slice so callers cannot alias stored state.
// Constraint values are immutable once decoded, so a shallow copy of each is enough.
func cloneActivity(a Activity) Activity {
	cpy := a
	if a.Constraints != nil {
		cpy.Constraints = append(Constraints(nil), a.Constraints...)
	}
	return cpy
}

func sortActivities(list []Activity) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority > list[j].Priority
		}
		return list[i].ID < list[j].ID
	})
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
