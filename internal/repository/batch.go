package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	appErrors "gatherly-backend/pkg/errors"
)

// BatchExecutor splits arbitrarily large logical batches into chunks of at
// most MaxBatchWriteItems and submits them in order. A chunk failure stops
// the run and reports how far it got; remaining chunks are never silently
// skipped.
type BatchExecutor struct {
	store  Store
	logger *zap.Logger
}

// NewBatchExecutor creates a batch executor over the given store.
func NewBatchExecutor(store Store, logger *zap.Logger) *BatchExecutor {
	return &BatchExecutor{store: store, logger: logger}
}

// Run submits the logical batch in chunks. Items the store reports as
// unprocessed are retried once per chunk before the chunk counts as
// failed.
func (e *BatchExecutor) Run(ctx context.Context, reqs []WriteRequest) error {
	if len(reqs) == 0 {
		return nil
	}

	total := (len(reqs) + MaxBatchWriteItems - 1) / MaxBatchWriteItems
	submitted := 0

	for i := 0; i < len(reqs); i += MaxBatchWriteItems {
		end := i + MaxBatchWriteItems
		if end > len(reqs) {
			end = len(reqs)
		}
		chunk := reqs[i:end]
		chunkIdx := i/MaxBatchWriteItems + 1

		unprocessed, err := e.store.BatchWrite(ctx, chunk)
		if err == nil && len(unprocessed) > 0 {
			// One retry for throttled leftovers.
			unprocessed, err = e.store.BatchWrite(ctx, unprocessed)
			if err == nil && len(unprocessed) > 0 {
				err = appErrors.NewRepositoryFailure(
					fmt.Sprintf("%d items still unprocessed after retry", len(unprocessed)), nil)
			}
		}
		if err != nil {
			e.logger.Error("batch chunk failed",
				zap.Int("chunk", chunkIdx),
				zap.Int("chunks_total", total),
				zap.Int("items_submitted", submitted),
				zap.Error(err))
			return appErrors.Wrap(err, fmt.Sprintf(
				"batch chunk %d/%d failed after %d items submitted", chunkIdx, total, submitted))
		}
		submitted += len(chunk)
	}

	return nil
}

// RunTransact executes a small all-or-nothing write. A logical operation
// larger than the store's transactional bound is a design error, not a
// runtime retry case.
func (e *BatchExecutor) RunTransact(ctx context.Context, items []TransactItem) error {
	if len(items) == 0 {
		return nil
	}
	if len(items) > MaxTransactItems {
		return appErrors.NewValidation(fmt.Sprintf(
			"transactional write of %d items exceeds the %d item bound", len(items), MaxTransactItems))
	}
	return e.store.TransactWrite(ctx, items)
}
