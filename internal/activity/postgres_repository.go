package activity

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
//
// Schema:
//
//	CREATE TABLE activities (
//		id          TEXT PRIMARY KEY,
//		name        TEXT NOT NULL,
//		description TEXT NOT NULL DEFAULT '',
//		priority    SMALLINT NOT NULL,
//		constraints JSONB NOT NULL DEFAULT '[]',
//		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL activity repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves an activity by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Activity, error) {
	query := `
		SELECT id, name, description, priority, constraints
		FROM activities
		WHERE id = $1
	`

	a, err := scanActivity(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return a, nil
}

// List retrieves all activities ordered by priority, then ID.
func (r *PostgresRepository) List(ctx context.Context) ([]Activity, error) {
	query := `
		SELECT id, name, description, priority, constraints
		FROM activities
		ORDER BY priority DESC, id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return activities, nil
}

// Upsert creates or replaces an activity.
func (r *PostgresRepository) Upsert(ctx context.Context, a *Activity) error {
	constraints, err := json.Marshal(a.Constraints)
	if err != nil {
		return fmt.Errorf("encode constraints: %w", err)
	}

	query := `
		INSERT INTO activities (id, name, description, priority, constraints, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			priority = EXCLUDED.priority,
			constraints = EXCLUDED.constraints,
			updated_at = now()
	`

	_, err = r.pool.Exec(ctx, query, a.ID, a.Name, a.Description, a.Priority, constraints)
	return err
}

// Delete deletes an activity by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// Ping verifies the database connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanActivity(row pgx.Row) (*Activity, error) {
	var (
		a           Activity
		constraints []byte
	)

	if err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Priority, &constraints); err != nil {
		return nil, err
	}

	if len(constraints) > 0 {
		if err := json.Unmarshal(constraints, &a.Constraints); err != nil {
			return nil, fmt.Errorf("decode constraints for %s: %w", a.ID, err)
		}
	}

	return &a, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
