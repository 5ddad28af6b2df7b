package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tidewise/tidewise/internal/resilience"
)

// ServiceConfig holds configuration for the activity catalog service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL is how long the full catalog is kept in memory.
	CacheTTL time.Duration

	// Guard wraps repository calls. Nil runs them unguarded.
	Guard *resilience.Guard
}

// Service serves activity definitions with an in-memory cache in front of
// the repository.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration
	guard    *resilience.Guard

	mu          sync.RWMutex
	cache       []Activity
	cacheExpiry time.Time
}

// NewService creates a new activity catalog service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Minute
	}

	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
		guard:    cfg.Guard,
	}
}

// List returns every activity in the catalog, ordered by priority then ID.
func (s *Service) List(ctx context.Context) ([]Activity, error) {
	if cached, ok := s.getCached(); ok {
		return cached, nil
	}

	activities, err := resilience.Execute(ctx, s.guard, s.repo.List)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	s.mu.Lock()
	s.cache = activities
	s.cacheExpiry = time.Now().Add(s.cacheTTL)
	s.mu.Unlock()

	s.logger.Debug().Int("count", len(activities)).Msg("activity catalog refreshed")

	return copyActivities(activities), nil
}

// Get returns a single activity.
func (s *Service) Get(ctx context.Context, id string) (*Activity, error) {
	if cached, ok := s.getCached(); ok {
		for _, a := range cached {
			if a.ID == id {
				return &a, nil
			}
		}
		return nil, ErrActivityNotFound
	}

	return resilience.Execute(ctx, s.guard, func(ctx context.Context) (*Activity, error) {
		a, err := s.repo.Get(ctx, id)
		if errors.Is(err, ErrActivityNotFound) {
			return nil, resilience.Permanent(err)
		}
		return a, err
	})
}

// GetMany returns the activities with the given IDs in the order requested.
// Unknown IDs fail with ErrActivityNotFound.
func (s *Service) GetMany(ctx context.Context, ids []string) ([]Activity, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Activity, len(all))
	for _, a := range all {
		byID[a.ID] = a
	}

	out := make([]Activity, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		a, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, id)
		}
		seen[id] = true
		out = append(out, a)
	}
	return out, nil
}

// Upsert validates and stores an activity.
func (s *Service) Upsert(ctx context.Context, a *Activity) error {
	if err := a.Validate(); err != nil {
		return err
	}

	if err := s.guard.Do(ctx, func(ctx context.Context) error {
		return s.repo.Upsert(ctx, a)
	}); err != nil {
		return fmt.Errorf("upsert activity %s: %w", a.ID, err)
	}

	s.InvalidateCache()
	s.logger.Info().Str("activity_id", a.ID).Msg("activity stored")
	return nil
}

// Delete removes an activity.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		err := s.repo.Delete(ctx, id)
		if errors.Is(err, ErrActivityNotFound) {
			return resilience.Permanent(err)
		}
		return err
	})
	if err != nil {
		return err
	}

	s.InvalidateCache()
	s.logger.Info().Str("activity_id", id).Msg("activity deleted")
	return nil
}

// Ping checks that the underlying store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// InvalidateCache clears the cached catalog, forcing a refresh on next access.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
	s.cacheExpiry = time.Time{}
}

func (s *Service) getCached() ([]Activity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cacheExpiry.IsZero() || time.Now().After(s.cacheExpiry) {
		return nil, false
	}
	return copyActivities(s.cache), true
}

func copyActivities(in []Activity) []Activity {
	out := make([]Activity, len(in))
	for i, a := range in {
		out[i] = cloneActivity(a)
	}
	return out
}
