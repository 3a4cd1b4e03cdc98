package repository_test

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherly-backend/internal/domain"
	"gatherly-backend/internal/repository"
)

func mustMarshal(t *testing.T, entity any) repository.Item {
	t.Helper()
	item, err := attributevalue.MarshalMap(entity)
	require.NoError(t, err)
	return item
}

func TestRegistryDecode(t *testing.T) {
	registry := repository.DefaultRegistry()

	group, err := domain.NewGroup(domain.CreateGroupInput{Name: "climbers", OwnerID: "user-1"})
	require.NoError(t, err)

	decoded, err := registry.Decode(mustMarshal(t, group))
	require.NoError(t, err)

	got, ok := decoded.(*domain.Group)
	require.True(t, ok, "decoded as %T", decoded)
	assert.Equal(t, group.GroupID, got.GroupID)
	assert.Equal(t, "climbers", got.Name)
}

func TestRegistryDecodeAllHeterogeneous(t *testing.T) {
	registry := repository.DefaultRegistry()

	group, err := domain.NewGroup(domain.CreateGroupInput{Name: "climbers", OwnerID: "user-1"})
	require.NoError(t, err)
	member, err := domain.NewParticipation(group.GroupID, "user-2", domain.RoleMember)
	require.NoError(t, err)
	pointer, err := domain.NewHangoutPointer(group.GroupID, "hangout-1")
	require.NoError(t, err)

	items := []repository.Item{
		mustMarshal(t, group),
		mustMarshal(t, member),
		mustMarshal(t, pointer),
	}
	decoded, err := registry.DecodeAll(items)
	require.NoError(t, err)
	require.Len(t, decoded, 3)

	assert.IsType(t, &domain.Group{}, decoded[0])
	assert.IsType(t, &domain.Participation{}, decoded[1])
	assert.IsType(t, &domain.HangoutPointer{}, decoded[2])
}

func TestRegistryDecodeUnknownType(t *testing.T) {
	registry := repository.DefaultRegistry()

	group, err := domain.NewGroup(domain.CreateGroupInput{Name: "climbers", OwnerID: "user-1"})
	require.NoError(t, err)
	group.ItemType = "SOMETHING_NEW"

	_, err = registry.Decode(mustMarshal(t, group))
	assert.Error(t, err)
}

func TestRegistryDecodeMissingItemType(t *testing.T) {
	registry := repository.DefaultRegistry()

	item := mustMarshal(t, struct {
		PK string
		SK string
	}{PK: "GROUP#g1", SK: "METADATA"})

	_, err := registry.Decode(item)
	assert.Error(t, err)
}
