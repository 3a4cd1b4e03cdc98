package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gatherly-backend/infrastructure/persistence/memory"
	"gatherly-backend/internal/domain"
	"gatherly-backend/internal/repository"
	appErrors "gatherly-backend/pkg/errors"
)

func newOfferRepo(t *testing.T) (*repository.OfferRepository, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return repository.NewOfferRepository(store, fastCAS(), zap.NewNop()), store
}

func createOffer(t *testing.T, repo *repository.OfferRepository, capacity *int) *domain.ReservationOffer {
	t.Helper()
	offer, err := domain.NewReservationOffer(domain.CreateOfferInput{
		Title:     "4 tickets for Saturday",
		HangoutID: "hangout-1",
		Capacity:  capacity,
		CreatedBy: "user-1",
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), offer))
	return offer
}

func intPtr(n int) *int { return &n }

func TestClaimCapacitySequential(t *testing.T) {
	repo, _ := newOfferRepo(t)
	offer := createOffer(t, repo, intPtr(2))
	ctx := context.Background()

	first, err := repo.ClaimCapacity(ctx, offer.OfferID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, first.ClaimedSpots)

	second, err := repo.ClaimCapacity(ctx, offer.OfferID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, second.ClaimedSpots)

	_, err = repo.ClaimCapacity(ctx, offer.OfferID, "carol")
	require.Error(t, err)
	assert.True(t, appErrors.IsCapacityExceeded(err), "got %v", err)

	// The rejected claim must not have touched the record.
	stored, err := repo.Get(ctx, offer.OfferID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ClaimedSpots)
	assert.ElementsMatch(t, []string{"alice", "bob"}, stored.Claimants)
}

func TestClaimCapacityConcurrent(t *testing.T) {
	repo, _ := newOfferRepo(t)
	offer := createOffer(t, repo, intPtr(2))
	ctx := context.Background()

	claimants := []string{"alice", "bob", "carol"}
	errs := make([]error, len(claimants))
	var wg sync.WaitGroup
	for i, who := range claimants {
		wg.Add(1)
		go func(i int, who string) {
			defer wg.Done()
			_, errs[i] = repo.ClaimCapacity(ctx, offer.OfferID, who)
		}(i, who)
	}
	wg.Wait()

	rejected := 0
	for _, err := range errs {
		if err != nil {
			assert.True(t, appErrors.IsCapacityExceeded(err), "got %v", err)
			rejected++
		}
	}
	assert.Equal(t, 1, rejected)

	stored, err := repo.Get(ctx, offer.OfferID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ClaimedSpots, "spots must never oversell")
	assert.Len(t, stored.Claimants, 2)
}

func TestClaimCapacityUnlimited(t *testing.T) {
	repo, _ := newOfferRepo(t)
	offer := createOffer(t, repo, nil)
	ctx := context.Background()

	for i, who := range []string{"alice", "bob", "carol", "dave"} {
		claimed, err := repo.ClaimCapacity(ctx, offer.OfferID, who)
		require.NoError(t, err)
		assert.Equal(t, i+1, claimed.ClaimedSpots)
	}
}

func TestClaimCapacityRejectsTerminalOffer(t *testing.T) {
	repo, _ := newOfferRepo(t)
	offer := createOffer(t, repo, intPtr(2))
	ctx := context.Background()

	_, err := repo.Complete(ctx, offer.OfferID)
	require.NoError(t, err)

	_, err = repo.ClaimCapacity(ctx, offer.OfferID, "alice")
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err), "got %v", err)
}

func TestOfferTransitionIdempotent(t *testing.T) {
	repo, _ := newOfferRepo(t)
	offer := createOffer(t, repo, intPtr(2))
	ctx := context.Background()

	completed, err := repo.Complete(ctx, offer.OfferID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusCompleted, completed.Status)

	again, err := repo.Complete(ctx, offer.OfferID)
	require.NoError(t, err, "re-running a terminal transition is a no-op")
	assert.Equal(t, completed.Version, again.Version)

	_, err = repo.Cancel(ctx, offer.OfferID)
	require.Error(t, err, "crossing terminal states is not allowed")
	assert.True(t, appErrors.IsValidation(err))
}

func TestOfferVersionMonotonic(t *testing.T) {
	repo, _ := newOfferRepo(t)
	offer := createOffer(t, repo, intPtr(5))
	ctx := context.Background()
	assert.Equal(t, 0, offer.Version)

	for i := 1; i <= 3; i++ {
		claimed, err := repo.ClaimCapacity(ctx, offer.OfferID, "user")
		require.NoError(t, err)
		assert.Equal(t, i, claimed.Version)
	}
}

func TestOfferUpdateRejectsCapacityBelowClaims(t *testing.T) {
	repo, _ := newOfferRepo(t)
	offer := createOffer(t, repo, intPtr(5))
	ctx := context.Background()

	for _, who := range []string{"alice", "bob", "carol"} {
		_, err := repo.ClaimCapacity(ctx, offer.OfferID, who)
		require.NoError(t, err)
	}

	_, err := repo.Update(ctx, offer.OfferID, repository.UpdateOfferInput{Capacity: intPtr(2)})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))

	shrunk, err := repo.Update(ctx, offer.OfferID, repository.UpdateOfferInput{Capacity: intPtr(3)})
	require.NoError(t, err, "shrinking to exactly the claimed count is allowed")
	assert.Equal(t, 3, *shrunk.Capacity)
}

func TestOfferCreateRejectsDuplicate(t *testing.T) {
	repo, _ := newOfferRepo(t)
	offer := createOffer(t, repo, intPtr(2))

	err := repo.Create(context.Background(), offer)
	require.Error(t, err)
	assert.True(t, appErrors.IsVersionConflict(err))
}

func TestOfferGetMissing(t *testing.T) {
	repo, _ := newOfferRepo(t)
	_, err := repo.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}
