package memory_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherly-backend/infrastructure/persistence/memory"
	"gatherly-backend/internal/repository"
	appErrors "gatherly-backend/pkg/errors"
)

type row struct {
	PK       string
	SK       string
	ItemType string
	GSI1PK   string `dynamodbav:",omitempty"`
	GSI1SK   string `dynamodbav:",omitempty"`
	Version  int
	Payload  string `dynamodbav:",omitempty"`
}

func put(t *testing.T, store *memory.Store, r row) {
	t.Helper()
	item, err := attributevalue.MarshalMap(r)
	require.NoError(t, err)
	require.NoError(t, store.PutItem(context.Background(), item, repository.PutOptions{}))
}

func TestQueryOrdersBySortKey(t *testing.T) {
	store := memory.NewStore()
	put(t, store, row{PK: "GROUP#g1", SK: "MEMBER#b"})
	put(t, store, row{PK: "GROUP#g1", SK: "MEMBER#a"})
	put(t, store, row{PK: "GROUP#g1", SK: "METADATA"})
	put(t, store, row{PK: "GROUP#g2", SK: "METADATA"})

	items, err := store.Query(context.Background(), repository.QuerySpec{PartitionKey: "GROUP#g1"})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "MEMBER#a", repository.ItemString(items[0], "SK"))
	assert.Equal(t, "MEMBER#b", repository.ItemString(items[1], "SK"))
	assert.Equal(t, "METADATA", repository.ItemString(items[2], "SK"))
}

func TestQuerySortKeyPrefixAndLimit(t *testing.T) {
	store := memory.NewStore()
	put(t, store, row{PK: "GROUP#g1", SK: "MEMBER#a"})
	put(t, store, row{PK: "GROUP#g1", SK: "MEMBER#b"})
	put(t, store, row{PK: "GROUP#g1", SK: "METADATA"})

	items, err := store.Query(context.Background(), repository.QuerySpec{
		PartitionKey:  "GROUP#g1",
		SortKeyPrefix: "MEMBER#",
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	desc := false
	items, err = store.Query(context.Background(), repository.QuerySpec{
		PartitionKey:     "GROUP#g1",
		SortKeyPrefix:    "MEMBER#",
		Limit:            1,
		ScanIndexForward: &desc,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "MEMBER#b", repository.ItemString(items[0], "SK"))
}

func TestQuerySecondaryIndex(t *testing.T) {
	store := memory.NewStore()
	put(t, store, row{PK: "GROUP#g1", SK: "MEMBER#u1", GSI1PK: "USER#u1", GSI1SK: "GROUP#g1"})
	put(t, store, row{PK: "GROUP#g2", SK: "MEMBER#u1", GSI1PK: "USER#u1", GSI1SK: "GROUP#g2"})
	put(t, store, row{PK: "GROUP#g1", SK: "MEMBER#u2", GSI1PK: "USER#u2", GSI1SK: "GROUP#g1"})

	items, err := store.Query(context.Background(), repository.QuerySpec{
		PartitionKey: "USER#u1",
		IndexName:    repository.IndexGSI1,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "GROUP#g1", repository.ItemString(items[0], "GSI1SK"))
	assert.Equal(t, "GROUP#g2", repository.ItemString(items[1], "GSI1SK"))
}

func TestConditionalPutSemantics(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	put(t, store, row{PK: "OFFER#o1", SK: "METADATA", Version: 0})

	// IfNotExists collides with the stored row.
	item, err := attributevalue.MarshalMap(row{PK: "OFFER#o1", SK: "METADATA", Version: 0})
	require.NoError(t, err)
	err = store.PutItem(ctx, item, repository.PutOptions{IfNotExists: true})
	assert.True(t, appErrors.IsVersionConflict(err))

	// A stale expected version is rejected.
	stale := 7
	err = store.PutItem(ctx, item, repository.PutOptions{ExpectedVersion: &stale})
	assert.True(t, appErrors.IsVersionConflict(err))

	// The matching version wins.
	current := 0
	bumped, err := attributevalue.MarshalMap(row{PK: "OFFER#o1", SK: "METADATA", Version: 1, Payload: "new"})
	require.NoError(t, err)
	require.NoError(t, store.PutItem(ctx, bumped, repository.PutOptions{ExpectedVersion: &current}))

	got, err := store.GetItem(ctx, "OFFER#o1", "METADATA")
	require.NoError(t, err)
	assert.Equal(t, "new", repository.ItemString(got, "Payload"))

	// Guarding a missing item is not-found, not conflict.
	missing, err := attributevalue.MarshalMap(row{PK: "OFFER#o2", SK: "METADATA", Version: 1})
	require.NoError(t, err)
	err = store.PutItem(ctx, missing, repository.PutOptions{ExpectedVersion: &current})
	assert.True(t, appErrors.IsNotFound(err))
}

func TestUpdateItemVersionGuard(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	put(t, store, row{PK: "USER#u1", SK: "METADATA", Version: 2, Payload: "old"})

	expected := 2
	set := map[string]types.AttributeValue{
		"Payload": &types.AttributeValueMemberS{Value: "new"},
	}
	updated, err := store.UpdateItem(ctx, "USER#u1", "METADATA", repository.Patch{
		Set:             set,
		ExpectedVersion: &expected,
	})
	require.NoError(t, err)
	version, ok := repository.ItemVersion(updated)
	require.True(t, ok)
	assert.Equal(t, 3, version)
	assert.Equal(t, "new", repository.ItemString(updated, "Payload"))

	stale := 2
	_, err = store.UpdateItem(ctx, "USER#u1", "METADATA", repository.Patch{
		Set:             set,
		ExpectedVersion: &stale,
	})
	assert.True(t, appErrors.IsVersionConflict(err))
}
