// Package repository implements the single-table data-access core: the
// store contract, the polymorphic item registry, typed entity
// repositories, pointer synchronization and the optimistic-concurrency
// machinery on top of it.
package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Store limits per request, fixed by the underlying engine.
const (
	// MaxBatchWriteItems is the per-call batch write/delete item limit.
	MaxBatchWriteItems = 25
	// MaxTransactItems is the per-call all-or-nothing write item limit.
	MaxTransactItems = 25
)

// Secondary index names. Each projects its own key pair, eventually
// consistent with the base table.
const (
	IndexGSI1 = "GSI1" // user -> groups
	IndexGSI2 = "GSI2" // calendar token -> user
	IndexGSI3 = "GSI3" // external id -> series
)

// Item is a raw stored record.
type Item = map[string]types.AttributeValue

// Key is a primary key pair.
type Key struct {
	PK string
	SK string
}

// PutOptions guards a PutItem call.
type PutOptions struct {
	// IfNotExists rejects the write when an item with the same key already
	// exists.
	IfNotExists bool

	// ExpectedVersion, when non-nil, requires the stored item's Version to
	// still match. The caller writes the item with the bumped Version; a
	// mismatch surfaces as a version conflict.
	ExpectedVersion *int
}

// Patch is a field-level update of one item.
type Patch struct {
	// Set maps attribute names to their new values.
	Set map[string]types.AttributeValue

	// Remove lists attribute names to delete.
	Remove []string

	// ExpectedVersion, when non-nil, requires the stored Version to match
	// and atomically bumps it by one.
	ExpectedVersion *int
}

// QuerySpec describes a partition or index range read.
type QuerySpec struct {
	// PartitionKey is the partition key value (base table PK, or the
	// index partition key when IndexName is set).
	PartitionKey string

	// SortKeyPrefix optionally narrows the range to sort keys beginning
	// with this prefix.
	SortKeyPrefix string

	// IndexName selects a secondary index; empty queries the base table.
	IndexName string

	// Limit caps the number of returned items (0 = no cap).
	Limit int32

	// ScanIndexForward orders ascending when nil or true, descending when
	// false.
	ScanIndexForward *bool
}

// WriteRequest is one element of a logical batch: exactly one of Put or
// Delete is set.
type WriteRequest struct {
	Put    Item
	Delete *Key
}

// TransactItem is one element of an all-or-nothing write.
type TransactItem struct {
	Put            Item
	PutIfNotExists bool
	Delete         *Key
}

// Store is the narrow contract of the underlying key-value store. Every
// call is a blocking network round trip carrying its own timeout; no
// in-process lock is held across calls.
type Store interface {
	// PutItem writes one item, optionally condition-guarded.
	PutItem(ctx context.Context, item Item, opts PutOptions) error

	// GetItem reads one item by primary key. Missing items surface as a
	// not-found error.
	GetItem(ctx context.Context, pk, sk string) (Item, error)

	// UpdateItem applies a field-level patch, optionally version-guarded.
	// It returns the item's new state.
	UpdateItem(ctx context.Context, pk, sk string, patch Patch) (Item, error)

	// DeleteItem removes one item. Deleting a missing item is a no-op.
	DeleteItem(ctx context.Context, pk, sk string) error

	// Query returns the ordered items of one partition (or index
	// partition), optionally narrowed by sort-key prefix.
	Query(ctx context.Context, spec QuerySpec) ([]Item, error)

	// BatchWrite executes up to MaxBatchWriteItems puts/deletes and
	// returns any items the store left unprocessed.
	BatchWrite(ctx context.Context, reqs []WriteRequest) ([]WriteRequest, error)

	// TransactWrite executes up to MaxTransactItems writes atomically:
	// either all commit or none do.
	TransactWrite(ctx context.Context, items []TransactItem) error
}
