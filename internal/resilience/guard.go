package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Guard errors.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrMaxRetriesExceeded is returned when all retry attempts have been exhausted.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// GuardConfig holds configuration for a Guard.
type GuardConfig struct {
	// Name identifies the guarded dependency.
	Name string

	// MaxRetries is the maximum number of retry attempts.
	// Default: 3
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 2 seconds
	MaxInterval time.Duration

	// CircuitBreaker overrides DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig
}

// Guard runs operations through a circuit breaker with retries.
type Guard struct {
	config  GuardConfig
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewGuard creates a Guard, filling in defaults for zero fields.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	cbConfig := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
		if cbConfig.Name == "" {
			cbConfig.Name = cfg.Name
		}
		if cbConfig.ReadyToTrip == nil {
			cbConfig.ReadyToTrip = DefaultReadyToTrip
		}
	}

	return &Guard{
		config:  cfg,
		breaker: newCircuitBreaker(cbConfig),
	}
}

// Name returns the guarded dependency name.
func (g *Guard) Name() string {
	return g.config.Name
}

// State returns the current circuit breaker state.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

// Counts returns the current circuit breaker counts.
func (g *Guard) Counts() gobreaker.Counts {
	return g.breaker.Counts()
}

// Do runs op until it succeeds, returns a permanent error, the retries are
// exhausted or ctx is done. A nil Guard runs op once.
func (g *Guard) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if g == nil {
		return op(ctx)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.config.InitialInterval
	bo.MaxInterval = g.config.MaxInterval
	bo.MaxElapsedTime = 0 // retries are bounded by WithMaxRetries

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, g.config.MaxRetries), ctx)

	stopped := false
	operation := func() error {
		_, err := g.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, op(ctx)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			stopped = true
			return backoff.Permanent(ErrCircuitOpen)
		case IsPermanent(err):
			stopped = true
			return backoff.Permanent(unwrapPermanent(err))
		default:
			return err
		}
	}

	err := backoff.Retry(operation, policy)
	if err == nil {
		return nil
	}
	if stopped || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%s: %w: %w", g.config.Name, ErrMaxRetriesExceeded, err)
}

// Execute is Do for operations that produce a value.
func Execute[T any](ctx context.Context, g *Guard, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := g.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. It does not count as a breaker failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

func unwrapPermanent(err error) error {
	var pe *permanentError
	if errors.As(err, &pe) {
		return pe.err
	}
	return err
}
