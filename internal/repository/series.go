package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gatherly-backend/internal/domain"
	"gatherly-backend/internal/keys"
	appErrors "gatherly-backend/pkg/errors"
)

// SeriesRepository owns canonical event series records and their idea
// list children.
type SeriesRepository struct {
	store  Store
	batch  *BatchExecutor
	cas    CASConfig
	logger *zap.Logger
}

// NewSeriesRepository creates a series repository.
func NewSeriesRepository(store Store, cas CASConfig, logger *zap.Logger) *SeriesRepository {
	return &SeriesRepository{
		store:  store,
		batch:  NewBatchExecutor(store, logger),
		cas:    cas,
		logger: logger,
	}
}

// Create stores a new canonical series, rejecting id collisions.
func (r *SeriesRepository) Create(ctx context.Context, series *domain.EventSeries) error {
	item, err := marshalItem(series)
	if err != nil {
		return err
	}
	return r.store.PutItem(ctx, item, PutOptions{IfNotExists: true})
}

// Get reads one canonical series by id.
func (r *SeriesRepository) Get(ctx context.Context, seriesID string) (*domain.EventSeries, error) {
	pk, err := keys.SeriesPK(seriesID)
	if err != nil {
		return nil, err
	}
	item, err := r.store.GetItem(ctx, pk, keys.MetadataSK)
	if err != nil {
		return nil, err
	}
	return unmarshalItem[domain.EventSeries](item)
}

// FindByExternalID resolves a series from its external show/ticket id
// via the reverse-lookup index.
func (r *SeriesRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.EventSeries, error) {
	gsi3pk, err := keys.ExternalIDGSI3PK(externalID)
	if err != nil {
		return nil, err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: gsi3pk, IndexName: IndexGSI3, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErrors.NewNotFound(fmt.Sprintf("no series with external id %s", externalID))
	}
	return unmarshalItem[domain.EventSeries](items[0])
}

// UpdateSeriesInput names the mutable fields of a series. Nil fields are
// left untouched.
type UpdateSeriesInput struct {
	Title    *string
	Venue    *string
	SeasonID *string
}

// Update applies a field-level mutation under a version guard.
func (r *SeriesRepository) Update(ctx context.Context, seriesID string, input UpdateSeriesInput) (*domain.EventSeries, error) {
	var result *domain.EventSeries
	err := RunCAS(ctx, r.cas, r.logger, "series_update", func(ctx context.Context) error {
		series, err := r.Get(ctx, seriesID)
		if err != nil {
			return err
		}
		if input.Title != nil {
			series.Title = *input.Title
		}
		if input.Venue != nil {
			series.Venue = *input.Venue
		}
		if input.SeasonID != nil {
			series.SeasonID = *input.SeasonID
		}

		expected := series.Version
		series.Version = expected + 1
		series.UpdatedAt = domain.NowISO()

		item, err := marshalItem(series)
		if err != nil {
			return err
		}
		if err := r.store.PutItem(ctx, item, PutOptions{ExpectedVersion: &expected}); err != nil {
			return err
		}
		result = series
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the canonical series and its idea list, chunked to the
// store's batch limit.
func (r *SeriesRepository) Delete(ctx context.Context, seriesID string) error {
	pk, err := keys.SeriesPK(seriesID)
	if err != nil {
		return err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: pk})
	if err != nil {
		return appErrors.Wrap(err, fmt.Sprintf("failed to list items of series %s for deletion", seriesID))
	}
	reqs := make([]WriteRequest, 0, len(items))
	for _, item := range items {
		key := ItemKey(item)
		reqs = append(reqs, WriteRequest{Delete: &key})
	}
	return r.batch.Run(ctx, reqs)
}

// AddIdea stores one idea list entry.
func (r *SeriesRepository) AddIdea(ctx context.Context, idea *domain.IdeaListMember) error {
	item, err := marshalItem(idea)
	if err != nil {
		return err
	}
	return r.store.PutItem(ctx, item, PutOptions{IfNotExists: true})
}

// ListIdeas returns the idea list of a series in insertion-key order.
func (r *SeriesRepository) ListIdeas(ctx context.Context, seriesID string) ([]domain.IdeaListMember, error) {
	pk, err := keys.SeriesPK(seriesID)
	if err != nil {
		return nil, err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: pk, SortKeyPrefix: keys.IdeaSKPrefix})
	if err != nil {
		return nil, err
	}
	ideas := make([]domain.IdeaListMember, 0, len(items))
	for _, item := range items {
		idea, err := unmarshalItem[domain.IdeaListMember](item)
		if err != nil {
			return nil, err
		}
		ideas = append(ideas, *idea)
	}
	return ideas, nil
}

// RemoveIdea deletes one idea list entry.
func (r *SeriesRepository) RemoveIdea(ctx context.Context, seriesID, memberID string) error {
	pk, err := keys.SeriesPK(seriesID)
	if err != nil {
		return err
	}
	sk, err := keys.IdeaSK(memberID)
	if err != nil {
		return err
	}
	return r.store.DeleteItem(ctx, pk, sk)
}
