// Package domain holds the entities stored in the single table. Every
// entity variant embeds BaseItem by composition; ItemType is the tagged
// discriminator that lets one partition hold many record shapes.
package domain

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Item type discriminators. Immutable after creation; each determines the
// deserialization shape of its item.
const (
	ItemTypeGroup          = "GROUP"
	ItemTypeParticipation  = "PARTICIPATION"
	ItemTypeHangout        = "HANGOUT"
	ItemTypeEventSeries    = "EVENT_SERIES"
	ItemTypeOffer          = "RESERVATION_OFFER"
	ItemTypeInviteCode     = "INVITE_CODE"
	ItemTypeRefreshToken   = "REFRESH_TOKEN"
	ItemTypeUser           = "USER"
	ItemTypeSeason         = "SEASON"
	ItemTypePoll           = "POLL"
	ItemTypePollOption     = "POLL_OPTION"
	ItemTypeVote           = "VOTE"
	ItemTypeCar            = "CAR"
	ItemTypeCarRider       = "CAR_RIDER"
	ItemTypeNeedsRide      = "NEEDS_RIDE"
	ItemTypeInterestLevel  = "INTEREST_LEVEL"
	ItemTypeAttribute      = "HANGOUT_ATTRIBUTE"
	ItemTypeIdeaListMember = "IDEA_LIST_MEMBER"
	ItemTypeHangoutPointer = "HANGOUT_POINTER"
	ItemTypeSeriesPointer  = "SERIES_POINTER"
)

// BaseItem is the shared key and metadata block embedded in every entity.
// (PK, SK) uniquely identifies one item in the table; the three GSI key
// pairs serve the alternate access patterns.
type BaseItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	GSI1PK    string `dynamodbav:"GSI1PK,omitempty"`
	GSI1SK    string `dynamodbav:"GSI1SK,omitempty"`
	GSI2PK    string `dynamodbav:"GSI2PK,omitempty"`
	GSI2SK    string `dynamodbav:"GSI2SK,omitempty"`
	GSI3PK    string `dynamodbav:"GSI3PK,omitempty"`
	GSI3SK    string `dynamodbav:"GSI3SK,omitempty"`
	ItemType  string `dynamodbav:"ItemType"`
	Version   int    `dynamodbav:"Version"`
	CreatedAt string `dynamodbav:"CreatedAt"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// Key returns the item's primary key pair.
func (b BaseItem) Key() (pk, sk string) {
	return b.PK, b.SK
}

// validate is the shared validator instance for create/update inputs.
var validate = validator.New()

// NowISO returns the current time in the stored timestamp format.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// newBaseItem stamps a fresh item. Updates later bump Version and UpdatedAt
// through the repository, never through per-field setters.
func newBaseItem(pk, sk, itemType string) BaseItem {
	now := NowISO()
	return BaseItem{
		PK:        pk,
		SK:        sk,
		ItemType:  itemType,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
