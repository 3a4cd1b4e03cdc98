package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gatherly-backend/internal/domain"
	"gatherly-backend/internal/keys"
	appErrors "gatherly-backend/pkg/errors"
)

// HangoutRepository owns canonical hangout records and the child items
// that hang off them in the same partition: polls, votes, cars, ride
// requests, interest levels, and attributes.
type HangoutRepository struct {
	store    Store
	registry *Registry
	batch    *BatchExecutor
	cas      CASConfig
	logger   *zap.Logger
}

// NewHangoutRepository creates a hangout repository.
func NewHangoutRepository(store Store, registry *Registry, cas CASConfig, logger *zap.Logger) *HangoutRepository {
	return &HangoutRepository{
		store:    store,
		registry: registry,
		batch:    NewBatchExecutor(store, logger),
		cas:      cas,
		logger:   logger,
	}
}

// Create stores a new canonical hangout, rejecting id collisions.
func (r *HangoutRepository) Create(ctx context.Context, hangout *domain.Hangout) error {
	item, err := marshalItem(hangout)
	if err != nil {
		return err
	}
	if err := r.store.PutItem(ctx, item, PutOptions{IfNotExists: true}); err != nil {
		return err
	}
	r.logger.Debug("hangout created",
		zap.String("hangout_id", hangout.HangoutID),
		zap.Strings("group_ids", hangout.GroupIDs))
	return nil
}

// Get reads one canonical hangout by id.
func (r *HangoutRepository) Get(ctx context.Context, hangoutID string) (*domain.Hangout, error) {
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return nil, err
	}
	item, err := r.store.GetItem(ctx, pk, keys.MetadataSK)
	if err != nil {
		return nil, err
	}
	return unmarshalItem[domain.Hangout](item)
}

// UpdateHangoutInput names the mutable fields of a hangout. Nil fields
// are left untouched.
type UpdateHangoutInput struct {
	Title     *string
	Location  *string
	StartTime *string
	Status    *string
}

// Update applies a field-level mutation under a version guard. A status
// change is validated against the known lifecycle states.
func (r *HangoutRepository) Update(ctx context.Context, hangoutID string, input UpdateHangoutInput) (*domain.Hangout, error) {
	if input.Status != nil {
		switch *input.Status {
		case domain.HangoutStatusPlanning, domain.HangoutStatusConfirmed, domain.HangoutStatusCancelled:
		default:
			return nil, appErrors.NewValidation(fmt.Sprintf("unknown hangout status %q", *input.Status))
		}
	}
	var result *domain.Hangout
	err := RunCAS(ctx, r.cas, r.logger, "hangout_update", func(ctx context.Context) error {
		hangout, err := r.Get(ctx, hangoutID)
		if err != nil {
			return err
		}
		if input.Title != nil {
			hangout.Title = *input.Title
		}
		if input.Location != nil {
			hangout.Location = *input.Location
		}
		if input.StartTime != nil {
			hangout.StartTime = *input.StartTime
		}
		if input.Status != nil {
			hangout.Status = *input.Status
		}

		expected := hangout.Version
		hangout.Version = expected + 1
		hangout.UpdatedAt = domain.NowISO()

		item, err := marshalItem(hangout)
		if err != nil {
			return err
		}
		if err := r.store.PutItem(ctx, item, PutOptions{ExpectedVersion: &expected}); err != nil {
			return err
		}
		result = hangout
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the canonical hangout and everything in its partition,
// chunked to the store's batch limit. Pointer rows in group partitions
// are the synchronizer's job.
func (r *HangoutRepository) Delete(ctx context.Context, hangoutID string) error {
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: pk})
	if err != nil {
		return appErrors.Wrap(err, fmt.Sprintf("failed to list items of hangout %s for deletion", hangoutID))
	}
	reqs := make([]WriteRequest, 0, len(items))
	for _, item := range items {
		key := ItemKey(item)
		reqs = append(reqs, WriteRequest{Delete: &key})
	}
	return r.batch.Run(ctx, reqs)
}

// HangoutDetail is a canonical hangout plus all of its child items, read
// from one item collection.
type HangoutDetail struct {
	Hangout  *domain.Hangout
	Children domain.HangoutChildren
}

// Detail reads the hangout and every child in a single partition query
// and sorts the rows into their types.
func (r *HangoutRepository) Detail(ctx context.Context, hangoutID string) (*HangoutDetail, error) {
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return nil, err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: pk})
	if err != nil {
		return nil, err
	}
	detail := &HangoutDetail{}
	for _, item := range items {
		entity, err := r.registry.Decode(item)
		if err != nil {
			return nil, err
		}
		switch v := entity.(type) {
		case *domain.Hangout:
			detail.Hangout = v
		case *domain.Poll:
			detail.Children.Polls = append(detail.Children.Polls, *v)
		case *domain.PollOption:
			detail.Children.Options = append(detail.Children.Options, *v)
		case *domain.Vote:
			detail.Children.Votes = append(detail.Children.Votes, *v)
		case *domain.Car:
			detail.Children.Cars = append(detail.Children.Cars, *v)
		case *domain.CarRider:
			detail.Children.Riders = append(detail.Children.Riders, *v)
		case *domain.NeedsRide:
			detail.Children.NeedsRide = append(detail.Children.NeedsRide, *v)
		case *domain.InterestLevel:
			detail.Children.Interest = append(detail.Children.Interest, *v)
		case *domain.HangoutAttribute:
			detail.Children.Attributes = append(detail.Children.Attributes, *v)
		}
	}
	if detail.Hangout == nil {
		return nil, appErrors.NewNotFound(fmt.Sprintf("hangout %s not found", hangoutID))
	}
	return detail, nil
}

// Children reads only the child items of a hangout.
func (r *HangoutRepository) Children(ctx context.Context, hangoutID string) (domain.HangoutChildren, error) {
	detail, err := r.Detail(ctx, hangoutID)
	if err != nil {
		return domain.HangoutChildren{}, err
	}
	return detail.Children, nil
}

// Child items are plain upserts: each row is keyed by its natural ids,
// so saving the same logical child twice overwrites in place.

// SavePoll upserts a poll row.
func (r *HangoutRepository) SavePoll(ctx context.Context, poll *domain.Poll) error {
	return r.putChild(ctx, poll)
}

// SavePollOption upserts a poll option row.
func (r *HangoutRepository) SavePollOption(ctx context.Context, option *domain.PollOption) error {
	return r.putChild(ctx, option)
}

// SaveVote upserts a vote row. The key carries poll, user, and option
// ids, so one user can hold one vote per option.
func (r *HangoutRepository) SaveVote(ctx context.Context, vote *domain.Vote) error {
	return r.putChild(ctx, vote)
}

// DeleteVote removes one vote row.
func (r *HangoutRepository) DeleteVote(ctx context.Context, hangoutID, pollID, userID, optionID string) error {
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return err
	}
	sk, err := keys.VoteSK(pollID, userID, optionID)
	if err != nil {
		return err
	}
	return r.store.DeleteItem(ctx, pk, sk)
}

// SaveCar upserts a car row.
func (r *HangoutRepository) SaveCar(ctx context.Context, car *domain.Car) error {
	return r.putChild(ctx, car)
}

// SaveCarRider upserts a car rider row.
func (r *HangoutRepository) SaveCarRider(ctx context.Context, rider *domain.CarRider) error {
	return r.putChild(ctx, rider)
}

// SaveNeedsRide upserts a ride request row.
func (r *HangoutRepository) SaveNeedsRide(ctx context.Context, needsRide *domain.NeedsRide) error {
	return r.putChild(ctx, needsRide)
}

// SaveInterestLevel upserts a user's interest level row.
func (r *HangoutRepository) SaveInterestLevel(ctx context.Context, interest *domain.InterestLevel) error {
	return r.putChild(ctx, interest)
}

// SaveAttribute upserts a hangout attribute row.
func (r *HangoutRepository) SaveAttribute(ctx context.Context, attr *domain.HangoutAttribute) error {
	return r.putChild(ctx, attr)
}

func (r *HangoutRepository) putChild(ctx context.Context, entity any) error {
	item, err := marshalItem(entity)
	if err != nil {
		return err
	}
	return r.store.PutItem(ctx, item, PutOptions{})
}

// DeletePoll removes a poll together with its options and votes. The
// poll's children share one sort-key prefix, so a single range query
// finds them all without touching sibling polls.
func (r *HangoutRepository) DeletePoll(ctx context.Context, hangoutID, pollID string) error {
	items, err := r.PollItems(ctx, hangoutID, pollID)
	if err != nil {
		return err
	}
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return err
	}
	pollSK, err := keys.PollSK(pollID)
	if err != nil {
		return err
	}
	reqs := []WriteRequest{{Delete: &Key{PK: pk, SK: pollSK}}}
	for _, item := range items {
		key := ItemKey(item)
		if key.SK == pollSK {
			continue
		}
		reqs = append(reqs, WriteRequest{Delete: &key})
	}
	return r.batch.Run(ctx, reqs)
}

// PollItems returns every row under one poll's sort-key prefix.
func (r *HangoutRepository) PollItems(ctx context.Context, hangoutID, pollID string) ([]Item, error) {
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return nil, err
	}
	prefix, err := keys.PollChildrenPrefix(pollID)
	if err != nil {
		return nil, err
	}
	return r.store.Query(ctx, QuerySpec{PartitionKey: pk, SortKeyPrefix: prefix})
}
