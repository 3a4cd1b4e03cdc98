package repository

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gatherly-backend/internal/domain"
	"gatherly-backend/internal/keys"
	appErrors "gatherly-backend/pkg/errors"
)

// PointerSynchronizer keeps the denormalized pointer rows in group
// partitions consistent with canonical hangout/series state. Canonical
// state is read once per synchronization; the per-group writes then fan
// out concurrently, each under its own version guard so a sync racing a
// targeted pointer edit retries instead of clobbering it.
type PointerSynchronizer struct {
	store        Store
	hangouts     *HangoutRepository
	series       *SeriesRepository
	cas          CASConfig
	parallelism  int
	lagThreshold time.Duration
	logger       *zap.Logger
}

// NewPointerSynchronizer creates a synchronizer. parallelism bounds the
// number of group partitions written at once; values below 1 mean
// unbounded.
func NewPointerSynchronizer(store Store, hangouts *HangoutRepository, series *SeriesRepository, cas CASConfig, parallelism int, logger *zap.Logger) *PointerSynchronizer {
	return &PointerSynchronizer{
		store:       store,
		hangouts:    hangouts,
		series:      series,
		cas:         cas,
		parallelism: parallelism,
		logger:      logger,
	}
}

// EnableLagLogging turns on warnings for synchronization calls that
// take longer than threshold end to end. Call before serving traffic.
func (s *PointerSynchronizer) EnableLagLogging(threshold time.Duration) {
	s.lagThreshold = threshold
}

// limit resolves the fan-out bound, preferring the live tunable when
// one is attached.
func (s *PointerSynchronizer) limit() int {
	if s.cas.Tunables != nil {
		return s.cas.Tunables.SyncParallelism()
	}
	return s.parallelism
}

func (s *PointerSynchronizer) logLag(op, id string, start time.Time) {
	if s.lagThreshold <= 0 {
		return
	}
	if elapsed := time.Since(start); elapsed > s.lagThreshold {
		s.logger.Warn("pointer sync lagging",
			zap.String("operation", op),
			zap.String("id", id),
			zap.Duration("elapsed", elapsed))
	}
}

// SyncResult reports the per-group outcome of a fan-out. A partial
// failure is data, not an error: the caller decides whether to requeue
// the failed groups.
type SyncResult struct {
	Synced []string
	Failed []string
}

// SyncHangoutPointer rebuilds the pointer row for a hangout in every
// listed group. The canonical partition is read exactly once; a pointer
// whose content already matches is left untouched.
func (s *PointerSynchronizer) SyncHangoutPointer(ctx context.Context, hangoutID string, groupIDs []string) (*SyncResult, error) {
	defer s.logLag("sync_hangout_pointer", hangoutID, time.Now())
	detail, err := s.hangouts.Detail(ctx, hangoutID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if n := s.limit(); n > 0 {
		g.SetLimit(n)
	}
	for _, groupID := range groupIDs {
		groupID := groupID
		g.Go(func() error {
			err := s.syncOneHangout(gctx, groupID, detail)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				pointerSyncFailuresTotal.Inc()
				s.logger.Error("hangout pointer sync failed",
					zap.String("hangout_id", hangoutID),
					zap.String("group_id", groupID),
					zap.Error(err))
				result.Failed = append(result.Failed, groupID)
				return nil
			}
			result.Synced = append(result.Synced, groupID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PointerSynchronizer) syncOneHangout(ctx context.Context, groupID string, detail *HangoutDetail) error {
	return RunCAS(ctx, s.cas, s.logger, "sync_hangout_pointer", func(ctx context.Context) error {
		pk, err := keys.GroupPK(groupID)
		if err != nil {
			return err
		}
		sk, err := keys.HangoutPointerSK(detail.Hangout.HangoutID)
		if err != nil {
			return err
		}
		existing, err := s.store.GetItem(ctx, pk, sk)
		if err != nil {
			if appErrors.IsNotFound(err) {
				pointer, err := domain.NewHangoutPointer(groupID, detail.Hangout.HangoutID)
				if err != nil {
					return err
				}
				pointer.ApplyCanonical(detail.Hangout, detail.Children)
				item, err := marshalItem(pointer)
				if err != nil {
					return err
				}
				return s.store.PutItem(ctx, item, PutOptions{IfNotExists: true})
			}
			return err
		}

		pointer, err := unmarshalItem[domain.HangoutPointer](existing)
		if err != nil {
			return err
		}
		updated := *pointer
		updated.ApplyCanonical(detail.Hangout, detail.Children)
		if updated.ContentEquals(pointer) {
			return nil
		}

		expected := pointer.Version
		updated.Version = expected + 1
		updated.UpdatedAt = domain.NowISO()
		item, err := marshalItem(&updated)
		if err != nil {
			return err
		}
		return s.store.PutItem(ctx, item, PutOptions{ExpectedVersion: &expected})
	})
}

// ApplyVote merges one vote into a group's hangout pointer without
// rereading the canonical partition. The merge touches only that vote's
// entry in the child set, so a concurrent edit to a different child
// survives the race (one side retries and merges over the other's
// result).
func (s *PointerSynchronizer) ApplyVote(ctx context.Context, groupID, hangoutID string, vote *domain.Vote) error {
	return s.patchHangoutPointer(ctx, groupID, hangoutID, func(p *domain.HangoutPointer) {
		p.Votes = domain.MergeChildSet(p.Votes, domain.VoteKey(vote.PollID, vote.UserID, vote.OptionID), domain.VoteSnapshot{
			PollID:   vote.PollID,
			UserID:   vote.UserID,
			OptionID: vote.OptionID,
		})
	})
}

// RemoveVote drops one vote from a group's hangout pointer.
func (s *PointerSynchronizer) RemoveVote(ctx context.Context, groupID, hangoutID, pollID, userID, optionID string) error {
	return s.patchHangoutPointer(ctx, groupID, hangoutID, func(p *domain.HangoutPointer) {
		p.Votes = domain.RemoveFromChildSet(p.Votes, domain.VoteKey(pollID, userID, optionID))
	})
}

// ApplyInterestLevel merges one user's interest level into a group's
// hangout pointer.
func (s *PointerSynchronizer) ApplyInterestLevel(ctx context.Context, groupID, hangoutID, userID, level string) error {
	return s.patchHangoutPointer(ctx, groupID, hangoutID, func(p *domain.HangoutPointer) {
		p.InterestLevels = domain.MergeChildSet(p.InterestLevels, userID, level)
	})
}

// patchHangoutPointer applies a targeted child-set edit under the
// pointer's version guard. A missing pointer falls back to a full
// rebuild for that group, which folds the edit in via the canonical
// read.
func (s *PointerSynchronizer) patchHangoutPointer(ctx context.Context, groupID, hangoutID string, mutate func(*domain.HangoutPointer)) error {
	return RunCAS(ctx, s.cas, s.logger, "patch_hangout_pointer", func(ctx context.Context) error {
		pk, err := keys.GroupPK(groupID)
		if err != nil {
			return err
		}
		sk, err := keys.HangoutPointerSK(hangoutID)
		if err != nil {
			return err
		}
		existing, err := s.store.GetItem(ctx, pk, sk)
		if err != nil {
			if appErrors.IsNotFound(err) {
				detail, err := s.hangouts.Detail(ctx, hangoutID)
				if err != nil {
					return err
				}
				return s.syncOneHangout(ctx, groupID, detail)
			}
			return err
		}
		pointer, err := unmarshalItem[domain.HangoutPointer](existing)
		if err != nil {
			return err
		}
		mutate(pointer)

		expected := pointer.Version
		pointer.Version = expected + 1
		pointer.UpdatedAt = domain.NowISO()
		item, err := marshalItem(pointer)
		if err != nil {
			return err
		}
		return s.store.PutItem(ctx, item, PutOptions{ExpectedVersion: &expected})
	})
}

// RemoveHangoutPointer deletes the pointer row for a hangout from every
// listed group. Partial failure is reported per group, like a sync.
func (s *PointerSynchronizer) RemoveHangoutPointer(ctx context.Context, hangoutID string, groupIDs []string) (*SyncResult, error) {
	result := &SyncResult{}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if n := s.limit(); n > 0 {
		g.SetLimit(n)
	}
	for _, groupID := range groupIDs {
		groupID := groupID
		g.Go(func() error {
			err := func() error {
				pk, err := keys.GroupPK(groupID)
				if err != nil {
					return err
				}
				sk, err := keys.HangoutPointerSK(hangoutID)
				if err != nil {
					return err
				}
				return s.store.DeleteItem(gctx, pk, sk)
			}()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				pointerSyncFailuresTotal.Inc()
				result.Failed = append(result.Failed, groupID)
				return nil
			}
			result.Synced = append(result.Synced, groupID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// SyncSeriesPointer rebuilds the pointer row for an event series in
// every listed group.
func (s *PointerSynchronizer) SyncSeriesPointer(ctx context.Context, seriesID string, groupIDs []string) (*SyncResult, error) {
	defer s.logLag("sync_series_pointer", seriesID, time.Now())
	series, err := s.series.Get(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	ideas, err := s.series.ListIdeas(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if n := s.limit(); n > 0 {
		g.SetLimit(n)
	}
	for _, groupID := range groupIDs {
		groupID := groupID
		g.Go(func() error {
			err := s.syncOneSeries(gctx, groupID, series, ideas)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				pointerSyncFailuresTotal.Inc()
				s.logger.Error("series pointer sync failed",
					zap.String("series_id", seriesID),
					zap.String("group_id", groupID),
					zap.Error(err))
				result.Failed = append(result.Failed, groupID)
				return nil
			}
			result.Synced = append(result.Synced, groupID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveSeriesPointer deletes the pointer row for a series from every
// listed group.
func (s *PointerSynchronizer) RemoveSeriesPointer(ctx context.Context, seriesID string, groupIDs []string) (*SyncResult, error) {
	result := &SyncResult{}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if n := s.limit(); n > 0 {
		g.SetLimit(n)
	}
	for _, groupID := range groupIDs {
		groupID := groupID
		g.Go(func() error {
			err := func() error {
				pk, err := keys.GroupPK(groupID)
				if err != nil {
					return err
				}
				sk, err := keys.SeriesPointerSK(seriesID)
				if err != nil {
					return err
				}
				return s.store.DeleteItem(gctx, pk, sk)
			}()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				pointerSyncFailuresTotal.Inc()
				result.Failed = append(result.Failed, groupID)
				return nil
			}
			result.Synced = append(result.Synced, groupID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PointerSynchronizer) syncOneSeries(ctx context.Context, groupID string, series *domain.EventSeries, ideas []domain.IdeaListMember) error {
	return RunCAS(ctx, s.cas, s.logger, "sync_series_pointer", func(ctx context.Context) error {
		pk, err := keys.GroupPK(groupID)
		if err != nil {
			return err
		}
		sk, err := keys.SeriesPointerSK(series.SeriesID)
		if err != nil {
			return err
		}
		existing, err := s.store.GetItem(ctx, pk, sk)
		if err != nil {
			if appErrors.IsNotFound(err) {
				pointer, err := domain.NewSeriesPointer(groupID, series.SeriesID)
				if err != nil {
					return err
				}
				pointer.ApplyCanonical(series, ideas)
				item, err := marshalItem(pointer)
				if err != nil {
					return err
				}
				return s.store.PutItem(ctx, item, PutOptions{IfNotExists: true})
			}
			return err
		}

		pointer, err := unmarshalItem[domain.SeriesPointer](existing)
		if err != nil {
			return err
		}
		updated := *pointer
		updated.ApplyCanonical(series, ideas)
		if updated.ContentEquals(pointer) {
			return nil
		}

		expected := pointer.Version
		updated.Version = expected + 1
		updated.UpdatedAt = domain.NowISO()
		item, err := marshalItem(&updated)
		if err != nil {
			return err
		}
		return s.store.PutItem(ctx, item, PutOptions{ExpectedVersion: &expected})
	})
}
