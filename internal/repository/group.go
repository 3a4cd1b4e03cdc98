package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gatherly-backend/internal/domain"
	"gatherly-backend/internal/keys"
	appErrors "gatherly-backend/pkg/errors"
)

// GroupRepository owns group records and the heterogeneous group
// partition: membership rows, invite codes, seasons, and the pointer rows
// the synchronizer maintains.
type GroupRepository struct {
	store    Store
	registry *Registry
	batch    *BatchExecutor
	cas      CASConfig
	logger   *zap.Logger
}

// NewGroupRepository creates a group repository.
func NewGroupRepository(store Store, registry *Registry, cas CASConfig, logger *zap.Logger) *GroupRepository {
	return &GroupRepository{
		store:    store,
		registry: registry,
		batch:    NewBatchExecutor(store, logger),
		cas:      cas,
		logger:   logger,
	}
}

// CreateWithAdmin stores a new group together with its first admin
// membership in one all-or-nothing write: a group without an admin must
// never be observable.
func (r *GroupRepository) CreateWithAdmin(ctx context.Context, group *domain.Group) error {
	admin, err := domain.NewParticipation(group.GroupID, group.OwnerID, domain.RoleAdmin)
	if err != nil {
		return err
	}
	groupItem, err := marshalItem(group)
	if err != nil {
		return err
	}
	adminItem, err := marshalItem(admin)
	if err != nil {
		return err
	}
	err = r.batch.RunTransact(ctx, []TransactItem{
		{Put: groupItem, PutIfNotExists: true},
		{Put: adminItem, PutIfNotExists: true},
	})
	if err != nil {
		return err
	}
	r.logger.Debug("group created",
		zap.String("group_id", group.GroupID),
		zap.String("owner_id", group.OwnerID))
	return nil
}

// Get reads one group by id.
func (r *GroupRepository) Get(ctx context.Context, groupID string) (*domain.Group, error) {
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return nil, err
	}
	item, err := r.store.GetItem(ctx, pk, keys.MetadataSK)
	if err != nil {
		return nil, err
	}
	return unmarshalItem[domain.Group](item)
}

// UpdateGroupInput names the mutable fields of a group. Nil fields are
// left untouched.
type UpdateGroupInput struct {
	Name        *string
	Description *string
}

// Update applies a field-level mutation, stamping UpdatedAt exactly once.
func (r *GroupRepository) Update(ctx context.Context, groupID string, input UpdateGroupInput) (*domain.Group, error) {
	var result *domain.Group
	err := RunCAS(ctx, r.cas, r.logger, "group_update", func(ctx context.Context) error {
		group, err := r.Get(ctx, groupID)
		if err != nil {
			return err
		}
		if input.Name != nil {
			group.Name = *input.Name
		}
		if input.Description != nil {
			group.Description = *input.Description
		}

		expected := group.Version
		group.Version = expected + 1
		group.UpdatedAt = domain.NowISO()

		item, err := marshalItem(group)
		if err != nil {
			return err
		}
		if err := r.store.PutItem(ctx, item, PutOptions{ExpectedVersion: &expected}); err != nil {
			return err
		}
		result = group
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the group and every item in its partition (memberships,
// pointers, invites, seasons), chunked to the store's batch limit.
func (r *GroupRepository) Delete(ctx context.Context, groupID string) error {
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: pk})
	if err != nil {
		return appErrors.Wrap(err, fmt.Sprintf("failed to list items of group %s for deletion", groupID))
	}
	reqs := make([]WriteRequest, 0, len(items))
	for _, item := range items {
		key := ItemKey(item)
		reqs = append(reqs, WriteRequest{Delete: &key})
	}
	return r.batch.Run(ctx, reqs)
}

// AddMember stores one membership row.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID, role string) (*domain.Participation, error) {
	p, err := domain.NewParticipation(groupID, userID, role)
	if err != nil {
		return nil, err
	}
	item, err := marshalItem(p)
	if err != nil {
		return nil, err
	}
	if err := r.store.PutItem(ctx, item, PutOptions{IfNotExists: true}); err != nil {
		return nil, err
	}
	return p, nil
}

// RemoveMember deletes one membership row.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return err
	}
	sk, err := keys.MemberSK(userID)
	if err != nil {
		return err
	}
	return r.store.DeleteItem(ctx, pk, sk)
}

// ListMembers returns a group's memberships. One range query over the
// heterogeneous partition; the sort-key prefix plus the discriminator
// filter keep sibling item types out without a second round trip.
func (r *GroupRepository) ListMembers(ctx context.Context, groupID string) ([]domain.Participation, error) {
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return nil, err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: pk, SortKeyPrefix: keys.MemberSKPrefix})
	if err != nil {
		return nil, err
	}
	members := make([]domain.Participation, 0, len(items))
	for _, item := range items {
		entity, err := r.registry.Decode(item)
		if err != nil {
			return nil, err
		}
		if p, ok := entity.(*domain.Participation); ok {
			members = append(members, *p)
		}
	}
	return members, nil
}

// GroupsForUser returns the memberships of one user across all groups via
// the user→groups index.
func (r *GroupRepository) GroupsForUser(ctx context.Context, userID string) ([]domain.Participation, error) {
	gsi1pk, err := keys.UserGroupsGSI1PK(userID)
	if err != nil {
		return nil, err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: gsi1pk, IndexName: IndexGSI1})
	if err != nil {
		return nil, err
	}
	memberships := make([]domain.Participation, 0, len(items))
	for _, item := range items {
		p, err := unmarshalItem[domain.Participation](item)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, *p)
	}
	return memberships, nil
}

// Feed returns everything in a group's partition as typed entities in
// sort-key order: the item-collection read behind the group feed.
func (r *GroupRepository) Feed(ctx context.Context, groupID string) ([]any, error) {
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return nil, err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: pk})
	if err != nil {
		return nil, err
	}
	return r.registry.DecodeAll(items)
}

// CreateInvite stores an invite code in the group's partition.
func (r *GroupRepository) CreateInvite(ctx context.Context, invite *domain.InviteCode) error {
	item, err := marshalItem(invite)
	if err != nil {
		return err
	}
	return r.store.PutItem(ctx, item, PutOptions{IfNotExists: true})
}

// GetInvite reads one invite code.
func (r *GroupRepository) GetInvite(ctx context.Context, groupID, code string) (*domain.InviteCode, error) {
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.InviteSK(code)
	if err != nil {
		return nil, err
	}
	item, err := r.store.GetItem(ctx, pk, sk)
	if err != nil {
		return nil, err
	}
	return unmarshalItem[domain.InviteCode](item)
}

// DeleteInvite removes one invite code.
func (r *GroupRepository) DeleteInvite(ctx context.Context, groupID, code string) error {
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return err
	}
	sk, err := keys.InviteSK(code)
	if err != nil {
		return err
	}
	return r.store.DeleteItem(ctx, pk, sk)
}

// CreateSeason stores a season row in the group's partition.
func (r *GroupRepository) CreateSeason(ctx context.Context, season *domain.Season) error {
	item, err := marshalItem(season)
	if err != nil {
		return err
	}
	return r.store.PutItem(ctx, item, PutOptions{IfNotExists: true})
}

// ListSeasons returns a group's seasons.
func (r *GroupRepository) ListSeasons(ctx context.Context, groupID string) ([]domain.Season, error) {
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return nil, err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: pk, SortKeyPrefix: keys.SeasonSKPrefix})
	if err != nil {
		return nil, err
	}
	seasons := make([]domain.Season, 0, len(items))
	for _, item := range items {
		season, err := unmarshalItem[domain.Season](item)
		if err != nil {
			return nil, err
		}
		seasons = append(seasons, *season)
	}
	return seasons, nil
}
