package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gatherly-backend/infrastructure/persistence/memory"
	"gatherly-backend/internal/domain"
	"gatherly-backend/internal/repository"
	appErrors "gatherly-backend/pkg/errors"
)

func newHangoutRepo(t *testing.T) (*repository.HangoutRepository, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	repo := repository.NewHangoutRepository(store, repository.DefaultRegistry(), fastCAS(), zap.NewNop())
	return repo, store
}

func createHangout(t *testing.T, repo *repository.HangoutRepository, groupIDs ...string) *domain.Hangout {
	t.Helper()
	if len(groupIDs) == 0 {
		groupIDs = []string{"group-1"}
	}
	hangout, err := domain.NewHangout(domain.CreateHangoutInput{
		Title:     "Saturday climb",
		Location:  "The Crag",
		CreatedBy: "user-1",
		GroupIDs:  groupIDs,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), hangout))
	return hangout
}

func TestHangoutDetailReadsOneItemCollection(t *testing.T) {
	repo, store := newHangoutRepo(t)
	hangout := createHangout(t, repo)
	ctx := context.Background()

	poll, err := domain.NewPoll(hangout.HangoutID, "Which wall?", "user-1")
	require.NoError(t, err)
	require.NoError(t, repo.SavePoll(ctx, poll))
	option, err := domain.NewPollOption(hangout.HangoutID, poll.PollID, "North face")
	require.NoError(t, err)
	require.NoError(t, repo.SavePollOption(ctx, option))
	vote, err := domain.NewVote(hangout.HangoutID, poll.PollID, option.OptionID, "user-2")
	require.NoError(t, err)
	require.NoError(t, repo.SaveVote(ctx, vote))
	car, err := domain.NewCar(hangout.HangoutID, "user-1", 4, "leaving at 9")
	require.NoError(t, err)
	require.NoError(t, repo.SaveCar(ctx, car))
	interest, err := domain.NewInterestLevel(hangout.HangoutID, "user-2", domain.InterestGoing)
	require.NoError(t, err)
	require.NoError(t, repo.SaveInterestLevel(ctx, interest))

	queriesBefore := store.CallCount("Query")
	detail, err := repo.Detail(ctx, hangout.HangoutID)
	require.NoError(t, err)
	assert.Equal(t, queriesBefore+1, store.CallCount("Query"), "detail is one partition query")

	assert.Equal(t, hangout.HangoutID, detail.Hangout.HangoutID)
	assert.Len(t, detail.Children.Polls, 1)
	assert.Len(t, detail.Children.Options, 1)
	assert.Len(t, detail.Children.Votes, 1)
	assert.Len(t, detail.Children.Cars, 1)
	assert.Len(t, detail.Children.Interest, 1)
}

func TestHangoutDetailMissing(t *testing.T) {
	repo, _ := newHangoutRepo(t)
	_, err := repo.Detail(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestPollItemsDoNotLeakAcrossSiblingPrefixes(t *testing.T) {
	repo, _ := newHangoutRepo(t)
	hangout := createHangout(t, repo)
	ctx := context.Background()

	// "p1" is a string prefix of "p10"; the key scheme must still keep
	// their children apart.
	short, err := domain.NewPollOption(hangout.HangoutID, "p1", "short poll option")
	require.NoError(t, err)
	require.NoError(t, repo.SavePollOption(ctx, short))
	long, err := domain.NewPollOption(hangout.HangoutID, "p10", "long poll option")
	require.NoError(t, err)
	require.NoError(t, repo.SavePollOption(ctx, long))

	items, err := repo.PollItems(ctx, hangout.HangoutID, "p1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "short poll option", repository.ItemString(items[0], "Text"))
}

func TestDeletePollRemovesOnlyItsChildren(t *testing.T) {
	repo, store := newHangoutRepo(t)
	hangout := createHangout(t, repo)
	ctx := context.Background()

	doomed, err := domain.NewPoll(hangout.HangoutID, "Which wall?", "user-1")
	require.NoError(t, err)
	require.NoError(t, repo.SavePoll(ctx, doomed))
	doomedOpt, err := domain.NewPollOption(hangout.HangoutID, doomed.PollID, "North face")
	require.NoError(t, err)
	require.NoError(t, repo.SavePollOption(ctx, doomedOpt))
	doomedVote, err := domain.NewVote(hangout.HangoutID, doomed.PollID, doomedOpt.OptionID, "user-2")
	require.NoError(t, err)
	require.NoError(t, repo.SaveVote(ctx, doomedVote))

	survivor, err := domain.NewPoll(hangout.HangoutID, "Dinner after?", "user-1")
	require.NoError(t, err)
	require.NoError(t, repo.SavePoll(ctx, survivor))
	survivorOpt, err := domain.NewPollOption(hangout.HangoutID, survivor.PollID, "Tacos")
	require.NoError(t, err)
	require.NoError(t, repo.SavePollOption(ctx, survivorOpt))

	require.NoError(t, repo.DeletePoll(ctx, hangout.HangoutID, doomed.PollID))

	// Canonical row + surviving poll + its option.
	assert.Equal(t, 3, store.ItemCount())
	detail, err := repo.Detail(ctx, hangout.HangoutID)
	require.NoError(t, err)
	require.Len(t, detail.Children.Polls, 1)
	assert.Equal(t, survivor.PollID, detail.Children.Polls[0].PollID)
	assert.Empty(t, detail.Children.Votes)
}

func TestHangoutUpdateStatus(t *testing.T) {
	repo, _ := newHangoutRepo(t)
	hangout := createHangout(t, repo)
	ctx := context.Background()

	status := domain.HangoutStatusConfirmed
	updated, err := repo.Update(ctx, hangout.HangoutID, repository.UpdateHangoutInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.HangoutStatusConfirmed, updated.Status)
	assert.Equal(t, hangout.Version+1, updated.Version)

	bogus := "PARTYING"
	_, err = repo.Update(ctx, hangout.HangoutID, repository.UpdateHangoutInput{Status: &bogus})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
}

func TestHangoutDeleteCascades(t *testing.T) {
	repo, store := newHangoutRepo(t)
	hangout := createHangout(t, repo)
	ctx := context.Background()

	poll, err := domain.NewPoll(hangout.HangoutID, "Which wall?", "user-1")
	require.NoError(t, err)
	require.NoError(t, repo.SavePoll(ctx, poll))
	ride, err := domain.NewNeedsRide(hangout.HangoutID, "user-3", "near downtown")
	require.NoError(t, err)
	require.NoError(t, repo.SaveNeedsRide(ctx, ride))

	require.NoError(t, repo.Delete(ctx, hangout.HangoutID))
	assert.Equal(t, 0, store.ItemCount())

	_, err = repo.Get(ctx, hangout.HangoutID)
	assert.True(t, appErrors.IsNotFound(err))
}
