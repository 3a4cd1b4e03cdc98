package keys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "gatherly-backend/pkg/errors"
)

func TestPartitionKeys(t *testing.T) {
	tests := []struct {
		name    string
		build   func(string) (string, error)
		id      string
		want    string
		wantErr bool
	}{
		{name: "group", build: GroupPK, id: "g1", want: "GROUP#g1"},
		{name: "hangout", build: HangoutPK, id: "h1", want: "HANGOUT#h1"},
		{name: "series", build: SeriesPK, id: "s1", want: "SERIES#s1"},
		{name: "offer", build: OfferPK, id: "o1", want: "OFFER#o1"},
		{name: "user", build: UserPK, id: "u1", want: "USER#u1"},
		{name: "empty id", build: GroupPK, id: "", wantErr: true},
		{name: "separator in id", build: GroupPK, id: "g#1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.build(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, appErrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortKeys(t *testing.T) {
	sk, err := VoteSK("p1", "u1", "opt1")
	require.NoError(t, err)
	assert.Equal(t, "POLL#p1#VOTE#u1#OPTION#opt1", sk)

	sk, err = PollOptionSK("p1", "opt1")
	require.NoError(t, err)
	assert.Equal(t, "POLL#p1#OPTION#opt1", sk)

	sk, err = CarRiderSK("c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "CAR#c1#RIDER#u1", sk)

	_, err = VoteSK("p1", "", "opt1")
	assert.True(t, appErrors.IsValidation(err))

	_, err = PollOptionSK("p#1", "opt1")
	assert.True(t, appErrors.IsValidation(err))
}

func TestPollChildrenPrefix_SiblingDisjointness(t *testing.T) {
	// "p1" is a string prefix of "p10"; the range prefix must still never
	// match the sibling's keys.
	prefix, err := PollChildrenPrefix("p1")
	require.NoError(t, err)
	assert.Equal(t, "POLL#p1#", prefix)

	siblingVote, err := VoteSK("p10", "u1", "opt1")
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(siblingVote, prefix))

	ownVote, err := VoteSK("p1", "u1", "opt1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ownVote, prefix))

	ownOption, err := PollOptionSK("p1", "opt1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ownOption, prefix))
}

func TestSecondaryIndexKeys(t *testing.T) {
	gsi1pk, err := UserGroupsGSI1PK("u1")
	require.NoError(t, err)
	assert.Equal(t, "USER#u1", gsi1pk)

	gsi1sk, err := UserGroupsGSI1SK("g1")
	require.NoError(t, err)
	assert.Equal(t, "GROUP#g1", gsi1sk)

	gsi2pk, err := CalendarTokenGSI2PK("tok")
	require.NoError(t, err)
	assert.Equal(t, "CALTOKEN#tok", gsi2pk)

	gsi3pk, err := ExternalIDGSI3PK("ext-42")
	require.NoError(t, err)
	assert.Equal(t, "EXTID#ext-42", gsi3pk)
}

func TestSplitPK(t *testing.T) {
	entityType, id, err := SplitPK("GROUP#g1")
	require.NoError(t, err)
	assert.Equal(t, TypeGroup, entityType)
	assert.Equal(t, "g1", id)

	_, _, err = SplitPK("BOGUS#x")
	assert.True(t, appErrors.IsValidation(err))

	_, _, err = SplitPK("GROUP#")
	assert.True(t, appErrors.IsValidation(err))
}

func TestTypedPKParsers(t *testing.T) {
	id, err := GroupIDFromPK("GROUP#g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", id)

	// Wrong entity type for the helper fails fast instead of returning a
	// silently wrong id.
	_, err = GroupIDFromPK("HANGOUT#h1")
	assert.True(t, appErrors.IsValidation(err))

	_, err = OfferIDFromPK("OFFER#")
	assert.True(t, appErrors.IsValidation(err))

	offerID, err := OfferIDFromPK("OFFER#o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", offerID)
}
