package activity

import "context"

// Repository defines the interface for activity definition persistence.
type Repository interface {
	// Get retrieves an activity by ID.
	// Returns ErrActivityNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*Activity, error)

	// List retrieves all activities ordered by priority (highest first), then ID.
	List(ctx context.Context) ([]Activity, error)

	// Upsert creates or replaces an activity.
	Upsert(ctx context.Context, a *Activity) error

	// Delete deletes an activity by ID.
	// Returns ErrActivityNotFound if it doesn't exist.
	Delete(ctx context.Context, id string) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
