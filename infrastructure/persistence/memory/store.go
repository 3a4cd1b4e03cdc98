// Package memory provides an in-memory implementation of the store
// contract with the same conditional-write semantics as the real backend.
// It backs the repository tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"gatherly-backend/internal/repository"
	appErrors "gatherly-backend/pkg/errors"
)

var indexKeys = map[string][2]string{
	repository.IndexGSI1: {"GSI1PK", "GSI1SK"},
	repository.IndexGSI2: {"GSI2PK", "GSI2SK"},
	repository.IndexGSI3: {"GSI3PK", "GSI3SK"},
}

// Store is a thread-safe in-memory table. Conditional writes are checked
// atomically under one lock, mirroring the store-level compare-and-swap
// the real backend provides.
type Store struct {
	mu         sync.Mutex
	partitions map[string]map[string]repository.Item

	// Test hooks.
	failures map[string]error
	calls    map[string]int
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		partitions: make(map[string]map[string]repository.Item),
		failures:   make(map[string]error),
		calls:      make(map[string]int),
	}
}

// SetFailure makes every subsequent call of the named operation fail with
// err until cleared.
func (s *Store) SetFailure(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// ClearFailures removes all injected failures.
func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]error)
}

// CallCount returns how many times the named operation ran.
func (s *Store) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// ItemCount returns the total number of stored items.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, part := range s.partitions {
		n += len(part)
	}
	return n
}

func (s *Store) enter(op string) error {
	s.calls[op]++
	if err, ok := s.failures[op]; ok {
		return err
	}
	return nil
}

func cloneItem(item repository.Item) repository.Item {
	out := make(repository.Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (s *Store) putLocked(item repository.Item, opts repository.PutOptions) error {
	key := repository.ItemKey(item)
	if key.PK == "" || key.SK == "" {
		return appErrors.NewValidation("item is missing its primary key")
	}
	part := s.partitions[key.PK]
	existing, exists := part[key.SK]

	if opts.IfNotExists && exists {
		return appErrors.NewVersionConflict(fmt.Sprintf("item %s/%s already exists", key.PK, key.SK))
	}
	if opts.ExpectedVersion != nil {
		if !exists {
			return appErrors.NewNotFound(fmt.Sprintf("item %s/%s not found", key.PK, key.SK))
		}
		current, ok := repository.ItemVersion(existing)
		if !ok || current != *opts.ExpectedVersion {
			return appErrors.NewVersionConflict(fmt.Sprintf(
				"item %s/%s version is %d, expected %d", key.PK, key.SK, current, *opts.ExpectedVersion))
		}
	}

	if part == nil {
		part = make(map[string]repository.Item)
		s.partitions[key.PK] = part
	}
	part[key.SK] = cloneItem(item)
	return nil
}

// PutItem implements repository.Store.
func (s *Store) PutItem(ctx context.Context, item repository.Item, opts repository.PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("PutItem"); err != nil {
		return err
	}
	return s.putLocked(item, opts)
}

// GetItem implements repository.Store.
func (s *Store) GetItem(ctx context.Context, pk, sk string) (repository.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetItem"); err != nil {
		return nil, err
	}
	item, ok := s.partitions[pk][sk]
	if !ok {
		return nil, appErrors.NewNotFound(fmt.Sprintf("item %s/%s not found", pk, sk))
	}
	return cloneItem(item), nil
}

// UpdateItem implements repository.Store.
func (s *Store) UpdateItem(ctx context.Context, pk, sk string, patch repository.Patch) (repository.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateItem"); err != nil {
		return nil, err
	}
	item, ok := s.partitions[pk][sk]
	if !ok {
		return nil, appErrors.NewNotFound(fmt.Sprintf("item %s/%s not found", pk, sk))
	}
	if patch.ExpectedVersion != nil {
		current, hasVersion := repository.ItemVersion(item)
		if !hasVersion || current != *patch.ExpectedVersion {
			return nil, appErrors.NewVersionConflict(fmt.Sprintf(
				"item %s/%s version is %d, expected %d", pk, sk, current, *patch.ExpectedVersion))
		}
	}

	updated := cloneItem(item)
	for name, value := range patch.Set {
		updated[name] = value
	}
	for _, name := range patch.Remove {
		delete(updated, name)
	}
	if patch.ExpectedVersion != nil {
		updated["Version"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", *patch.ExpectedVersion+1)}
	}
	s.partitions[pk][sk] = updated
	return cloneItem(updated), nil
}

// DeleteItem implements repository.Store.
func (s *Store) DeleteItem(ctx context.Context, pk, sk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteItem"); err != nil {
		return err
	}
	delete(s.partitions[pk], sk)
	return nil
}

// Query implements repository.Store.
func (s *Store) Query(ctx context.Context, spec repository.QuerySpec) ([]repository.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Query"); err != nil {
		return nil, err
	}

	var matched []repository.Item
	if spec.IndexName == "" {
		for sk, item := range s.partitions[spec.PartitionKey] {
			if spec.SortKeyPrefix != "" && !hasPrefix(sk, spec.SortKeyPrefix) {
				continue
			}
			matched = append(matched, cloneItem(item))
		}
		sortItems(matched, "SK")
	} else {
		attrs, ok := indexKeys[spec.IndexName]
		if !ok {
			return nil, appErrors.NewValidation(fmt.Sprintf("unknown index %q", spec.IndexName))
		}
		pkAttr, skAttr := attrs[0], attrs[1]
		for _, part := range s.partitions {
			for _, item := range part {
				if repository.ItemString(item, pkAttr) != spec.PartitionKey {
					continue
				}
				if spec.SortKeyPrefix != "" && !hasPrefix(repository.ItemString(item, skAttr), spec.SortKeyPrefix) {
					continue
				}
				matched = append(matched, cloneItem(item))
			}
		}
		sortItems(matched, skAttr)
	}

	if spec.ScanIndexForward != nil && !*spec.ScanIndexForward {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if spec.Limit > 0 && int(spec.Limit) < len(matched) {
		matched = matched[:spec.Limit]
	}
	return matched, nil
}

// BatchWrite implements repository.Store.
func (s *Store) BatchWrite(ctx context.Context, reqs []repository.WriteRequest) ([]repository.WriteRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("BatchWrite"); err != nil {
		return nil, err
	}
	if len(reqs) > repository.MaxBatchWriteItems {
		return nil, appErrors.NewValidation(fmt.Sprintf(
			"batch of %d items exceeds the %d item limit", len(reqs), repository.MaxBatchWriteItems))
	}
	for _, req := range reqs {
		switch {
		case req.Put != nil:
			if err := s.putLocked(req.Put, repository.PutOptions{}); err != nil {
				return nil, err
			}
		case req.Delete != nil:
			delete(s.partitions[req.Delete.PK], req.Delete.SK)
		default:
			return nil, appErrors.NewValidation("write request has neither put nor delete")
		}
	}
	return nil, nil
}

// TransactWrite implements repository.Store. Conditions are validated
// first so either every write applies or none do.
func (s *Store) TransactWrite(ctx context.Context, items []repository.TransactItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("TransactWrite"); err != nil {
		return err
	}
	if len(items) > repository.MaxTransactItems {
		return appErrors.NewValidation(fmt.Sprintf(
			"transaction of %d items exceeds the %d item limit", len(items), repository.MaxTransactItems))
	}

	for _, ti := range items {
		if ti.Put != nil && ti.PutIfNotExists {
			key := repository.ItemKey(ti.Put)
			if _, exists := s.partitions[key.PK][key.SK]; exists {
				return appErrors.NewTransactionFailed(
					fmt.Sprintf("condition failed for item %s/%s", key.PK, key.SK),
					appErrors.NewVersionConflict("item already exists"))
			}
		}
	}

	for _, ti := range items {
		switch {
		case ti.Put != nil:
			if err := s.putLocked(ti.Put, repository.PutOptions{}); err != nil {
				return appErrors.NewTransactionFailed("transactional put failed", err)
			}
		case ti.Delete != nil:
			delete(s.partitions[ti.Delete.PK], ti.Delete.SK)
		default:
			return appErrors.NewValidation("transact item has neither put nor delete")
		}
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func sortItems(items []repository.Item, attr string) {
	sort.SliceStable(items, func(i, j int) bool {
		a := repository.ItemString(items[i], attr)
		b := repository.ItemString(items[j], attr)
		if a == b {
			return repository.ItemString(items[i], "PK") < repository.ItemString(items[j], "PK")
		}
		return a < b
	})
}
