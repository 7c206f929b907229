package retry

import (
	"context"
	"math"
	"time"
)

// Config controls the backoff schedule
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration
}

// DefaultConfig is the schedule used for outbound channel calls:
// 3 attempts, 1s initial delay, doubling, capped at 30s
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		BackoffFactor: 2,
		MaxDelay:      30 * time.Second,
	}
}

// Result reports the outcome of a retried operation
type Result[T any] struct {
	Value    T
	Err      error
	Success  bool
	Attempts int
	Elapsed  time.Duration
}

// Observer receives explicit callbacks on each retry and on the final
// outcome. Callbacks replace implicit listener registration so observation
// order is the call order. Nil callbacks are skipped.
type Observer struct {
	OnRetry   func(attempt int, nextDelay time.Duration, err error)
	OnSuccess func(attempts int, elapsed time.Duration)
	OnFailure func(attempts int, elapsed time.Duration, err error)
}

// Execute runs op until it succeeds, attempts are exhausted, or the context
// is cancelled. The delay before attempt n+1 is
// min(InitialDelay * BackoffFactor^(n-1), MaxDelay).
func Execute[T any](ctx context.Context, cfg Config, obs Observer, op func(context.Context) (T, error)) Result[T] {
	start := time.Now()

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 1
	}

	var lastErr error
	var zero T
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		value, err := op(ctx)
		if err == nil {
			elapsed := time.Since(start)
			if obs.OnSuccess != nil {
				obs.OnSuccess(attempt, elapsed)
			}
			return Result[T]{Value: value, Success: true, Attempts: attempt, Elapsed: elapsed}
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoffDelay(cfg, attempt)
		if obs.OnRetry != nil {
			obs.OnRetry(attempt, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			lastErr = err
			elapsed := time.Since(start)
			if obs.OnFailure != nil {
				obs.OnFailure(attempt, elapsed, lastErr)
			}
			return Result[T]{Value: zero, Err: lastErr, Attempts: attempt, Elapsed: elapsed}
		}
	}

	elapsed := time.Since(start)
	if obs.OnFailure != nil {
		obs.OnFailure(cfg.MaxAttempts, elapsed, lastErr)
	}
	return Result[T]{Value: zero, Err: lastErr, Attempts: cfg.MaxAttempts, Elapsed: elapsed}
}

func backoffDelay(cfg Config, attempt int) time.Duration {
	delay := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1)))
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}

// sleep waits for d or until the context is cancelled
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
