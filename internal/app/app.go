// Package app wires the services shared by the tidewise binaries.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/tidewise/tidewise/internal/activity"
	"github.com/tidewise/tidewise/internal/config"
	"github.com/tidewise/tidewise/internal/database"
	"github.com/tidewise/tidewise/internal/resilience"
	"github.com/tidewise/tidewise/internal/scoring"
	"github.com/tidewise/tidewise/internal/suggest"
)

// Catalog is the activity catalog service together with the resources it owns.
type Catalog struct {
	*activity.Service

	// Guard protects repository calls and is reported on the status endpoint.
	Guard *resilience.Guard

	pool *pgxpool.Pool
}

// OpenCatalog builds the activity catalog. With the database enabled it is
// backed by PostgreSQL; otherwise by an in-memory repository seeded from
// catalog.seed_file when set.
func OpenCatalog(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Catalog, error) {
	guard := resilience.NewGuard(resilience.GuardConfig{
		Name:       "catalog",
		MaxRetries: cfg.Catalog.MaxRetries,
	})

	var (
		repo activity.Repository
		pool *pgxpool.Pool
	)
	if cfg.Database.Enabled {
		var err error
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		repo = activity.NewPostgresRepository(pool)

		logger.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	} else {
		var seed []activity.Activity
		if cfg.Catalog.SeedFile != "" {
			var err error
			seed, err = activity.LoadSeedFile(cfg.Catalog.SeedFile)
			if err != nil {
				return nil, err
			}
		}
		repo = activity.NewInMemoryRepository(seed...)

		logger.Warn().
			Int("activities", len(seed)).
			Str("seed_file", cfg.Catalog.SeedFile).
			Msg("database disabled, using in-memory catalog")
	}

	svc := activity.NewService(activity.ServiceConfig{
		Repository: repo,
		Logger:     logger,
		CacheTTL:   cfg.Catalog.CacheTTL,
		Guard:      guard,
	})

	return &Catalog{Service: svc, Guard: guard, pool: pool}, nil
}

// Close releases the database pool, if any.
func (c *Catalog) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// NewSuggester builds the suggestion service with the configured scoring policy.
func NewSuggester(cfg *config.Config, catalog suggest.Catalog, logger zerolog.Logger) (*suggest.Service, error) {
	scorer, err := scoring.NewScorer(cfg.Scoring.Policy)
	if err != nil {
		return nil, err
	}

	engine := scoring.NewEngine(scoring.EngineConfig{
		Scorer:      scorer,
		Concurrency: cfg.Scoring.Concurrency,
		Logger:      logger,
	})

	return suggest.NewService(suggest.ServiceConfig{
		Catalog: catalog,
		Engine:  engine,
		Logger:  logger,
	})
}
