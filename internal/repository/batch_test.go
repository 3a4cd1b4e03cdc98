package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gatherly-backend/infrastructure/persistence/memory"
	"gatherly-backend/internal/domain"
	"gatherly-backend/internal/repository"
	appErrors "gatherly-backend/pkg/errors"
)

func putRequests(t *testing.T, n int) []repository.WriteRequest {
	t.Helper()
	reqs := make([]repository.WriteRequest, 0, n)
	for i := 0; i < n; i++ {
		member, err := domain.NewParticipation("group-1", fmt.Sprintf("user-%03d", i), domain.RoleMember)
		require.NoError(t, err)
		reqs = append(reqs, repository.WriteRequest{Put: mustMarshal(t, member)})
	}
	return reqs
}

func TestBatchExecutorChunking(t *testing.T) {
	tests := []struct {
		items      int
		wantChunks int
	}{
		{items: 1, wantChunks: 1},
		{items: 24, wantChunks: 1},
		{items: 25, wantChunks: 1},
		{items: 26, wantChunks: 2},
		{items: 50, wantChunks: 2},
		{items: 51, wantChunks: 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_items", tt.items), func(t *testing.T) {
			store := memory.NewStore()
			exec := repository.NewBatchExecutor(store, zap.NewNop())

			err := exec.Run(context.Background(), putRequests(t, tt.items))
			require.NoError(t, err)
			assert.Equal(t, tt.wantChunks, store.CallCount("BatchWrite"))
			assert.Equal(t, tt.items, store.ItemCount())
		})
	}
}

func TestBatchExecutorEmptyRunIsNoop(t *testing.T) {
	store := memory.NewStore()
	exec := repository.NewBatchExecutor(store, zap.NewNop())

	require.NoError(t, exec.Run(context.Background(), nil))
	assert.Zero(t, store.CallCount("BatchWrite"))
}

func TestBatchExecutorReportsFailedChunk(t *testing.T) {
	store := memory.NewStore()
	exec := repository.NewBatchExecutor(store, zap.NewNop())

	store.SetFailure("BatchWrite", appErrors.NewRepositoryFailure("throttled", nil))
	err := exec.Run(context.Background(), putRequests(t, 30))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk 1/2")
	assert.Contains(t, err.Error(), "0 items submitted")
}

func TestBatchExecutorStopsAfterMidRunFailure(t *testing.T) {
	store := memory.NewStore()
	exec := repository.NewBatchExecutor(store, zap.NewNop())

	// First chunk lands, then the store starts failing.
	require.NoError(t, exec.Run(context.Background(), putRequests(t, 25)))
	store.SetFailure("BatchWrite", appErrors.NewRepositoryFailure("throttled", nil))

	err := exec.Run(context.Background(), putRequests(t, 30))
	require.Error(t, err)
	// Nothing beyond the surviving first run landed.
	assert.Equal(t, 25, store.ItemCount())
}

func TestRunTransactRejectsOversizedWrites(t *testing.T) {
	store := memory.NewStore()
	exec := repository.NewBatchExecutor(store, zap.NewNop())

	items := make([]repository.TransactItem, repository.MaxTransactItems+1)
	for i := range items {
		member, err := domain.NewParticipation("group-1", fmt.Sprintf("user-%03d", i), domain.RoleMember)
		require.NoError(t, err)
		items[i] = repository.TransactItem{Put: mustMarshal(t, member)}
	}

	err := exec.RunTransact(context.Background(), items)
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Zero(t, store.CallCount("TransactWrite"), "an oversized write must be rejected before the store")
}

func TestRunTransactAllOrNothing(t *testing.T) {
	store := memory.NewStore()
	exec := repository.NewBatchExecutor(store, zap.NewNop())

	member, err := domain.NewParticipation("group-1", "user-1", domain.RoleMember)
	require.NoError(t, err)
	require.NoError(t, exec.RunTransact(context.Background(), []repository.TransactItem{
		{Put: mustMarshal(t, member), PutIfNotExists: true},
	}))

	other, err := domain.NewParticipation("group-1", "user-2", domain.RoleMember)
	require.NoError(t, err)

	// Second transaction collides on the first member; the new item must
	// not land either.
	err = exec.RunTransact(context.Background(), []repository.TransactItem{
		{Put: mustMarshal(t, other), PutIfNotExists: true},
		{Put: mustMarshal(t, member), PutIfNotExists: true},
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsTransactionFailed(err))
	assert.Equal(t, 1, store.ItemCount())
}
