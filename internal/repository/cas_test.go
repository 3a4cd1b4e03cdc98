package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gatherly-backend/internal/repository"
	appErrors "gatherly-backend/pkg/errors"
)

func fastCAS() repository.CASConfig {
	cfg := repository.DefaultCASConfig()
	cfg.BaseDelay = time.Microsecond
	cfg.MaxDelay = time.Millisecond
	return cfg
}

func TestRunCASFirstAttemptSucceeds(t *testing.T) {
	calls := 0
	err := repository.RunCAS(context.Background(), fastCAS(), zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunCASRetriesOnConflict(t *testing.T) {
	calls := 0
	err := repository.RunCAS(context.Background(), fastCAS(), zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return appErrors.NewVersionConflict("lost the race")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRunCASExhaustsBoundedAttempts(t *testing.T) {
	cfg := fastCAS()
	cfg.MaxAttempts = 3

	calls := 0
	err := repository.RunCAS(context.Background(), cfg, zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		return appErrors.NewVersionConflict("lost the race")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, appErrors.IsVersionConflict(err))
}

func TestRunCASDoesNotRetryBusinessRejections(t *testing.T) {
	calls := 0
	err := repository.RunCAS(context.Background(), fastCAS(), zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		return appErrors.NewCapacityExceeded("full")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "a business rejection must not burn retries")
	assert.True(t, appErrors.IsCapacityExceeded(err))
}

func TestRunCASDoesNotRetryNotFound(t *testing.T) {
	calls := 0
	err := repository.RunCAS(context.Background(), fastCAS(), zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		return appErrors.NewNotFound("gone")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestRunCASStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := repository.RunCAS(ctx, fastCAS(), zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		return appErrors.NewVersionConflict("lost the race")
	})
	require.Error(t, err)
	assert.Equal(t, 0, calls)
}

func TestRunCASReadsLiveTunables(t *testing.T) {
	cfg := fastCAS()
	cfg.Tunables = repository.NewTunables(1, 0)

	calls := 0
	contended := func(ctx context.Context) error {
		calls++
		return appErrors.NewVersionConflict("lost the race")
	}

	err := repository.RunCAS(context.Background(), cfg, zap.NewNop(), "op", contended)
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	// Raising the bound reaches loops already holding a config copy.
	cfg.Tunables.SetCASMaxAttempts(3)
	calls = 0
	err = repository.RunCAS(context.Background(), cfg, zap.NewNop(), "op", contended)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestTunablesClampOutOfRangeValues(t *testing.T) {
	tunables := repository.NewTunables(0, -2)
	assert.Equal(t, 1, tunables.CASMaxAttempts())
	assert.Equal(t, 0, tunables.SyncParallelism())

	tunables.SetCASMaxAttempts(-5)
	assert.Equal(t, 1, tunables.CASMaxAttempts())
}
