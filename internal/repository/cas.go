package repository

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	appErrors "gatherly-backend/pkg/errors"
)

// CASConfig bounds the read-check-conditional-write retry loop. Retries
// are bounded: unbounded wall-clock retry on a contested record hides a
// hot spot instead of surfacing it.
type CASConfig struct {
	MaxAttempts   int           // Maximum attempts including the first
	BaseDelay     time.Duration // Base delay between attempts
	MaxDelay      time.Duration // Cap for the backoff delay
	BackoffFactor float64       // Exponential backoff multiplier
	JitterFactor  float64       // Jitter factor to prevent thundering herd

	// Tunables, when set, overrides MaxAttempts at call time so a config
	// reload reaches loops already holding a copy of this config.
	Tunables *Tunables
}

// maxAttempts resolves the retry bound for one RunCAS call.
func (c CASConfig) maxAttempts() int {
	if c.Tunables != nil {
		return c.Tunables.CASMaxAttempts()
	}
	return c.MaxAttempts
}

// DefaultCASConfig returns the default claim/pointer retry policy.
func DefaultCASConfig() CASConfig {
	return CASConfig{
		MaxAttempts:   4,
		BaseDelay:     25 * time.Millisecond,
		MaxDelay:      1 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

// calculateDelay computes the backoff for the given attempt number.
func (c CASConfig) calculateDelay(attempt int) time.Duration {
	backoff := float64(c.BaseDelay) * math.Pow(c.BackoffFactor, float64(attempt))
	jitter := backoff * c.JitterFactor * (rand.Float64() - 0.5) * 2
	delay := time.Duration(backoff + jitter)
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// RunCAS executes one read-check-conditional-write attempt repeatedly
// until it succeeds, fails with a non-conflict error, or exhausts the
// bounded attempts. The attempt func owns the read, the business check and
// the version-guarded write; RunCAS owns conflict detection and backoff.
//
// Business rejections (capacity exceeded, terminal status) are not
// conflicts and propagate immediately. Exhaustion is rare and logged as
// anomalous before surfacing the final conflict.
func RunCAS(ctx context.Context, cfg CASConfig, logger *zap.Logger, name string, attempt func(ctx context.Context) error) error {
	if cfg.maxAttempts() <= 0 {
		cfg = DefaultCASConfig()
	}
	maxAttempts := cfg.maxAttempts()

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		select {
		case <-ctx.Done():
			return appErrors.Wrap(ctx.Err(), name+" cancelled")
		default:
		}

		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if !appErrors.IsVersionConflict(err) {
			return err
		}
		lastErr = err
		casConflictsTotal.WithLabelValues(name).Inc()

		if i == maxAttempts-1 {
			break
		}
		logger.Debug("conditional write lost a race, retrying",
			zap.String("operation", name),
			zap.Int("attempt", i+1))

		timer := time.NewTimer(cfg.calculateDelay(i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return appErrors.Wrap(ctx.Err(), name+" cancelled")
		case <-timer.C:
		}
	}

	logger.Warn("conditional write retries exhausted",
		zap.String("operation", name),
		zap.Int("attempts", maxAttempts),
		zap.Error(lastErr))
	return appErrors.Wrap(lastErr, name+" exhausted retries")
}
