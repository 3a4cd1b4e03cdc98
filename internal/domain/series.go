package domain

import (
	"github.com/google/uuid"

	"gatherly-backend/internal/keys"
)

// EventSeries is the canonical record of a recurring event (e.g. a show
// run, a season of games). It may be pointed to from several groups.
type EventSeries struct {
	BaseItem
	SeriesID   string   `dynamodbav:"SeriesID"`
	Title      string   `dynamodbav:"Title"`
	Venue      string   `dynamodbav:"Venue,omitempty"`
	ExternalID string   `dynamodbav:"ExternalID,omitempty"`
	SeasonID   string   `dynamodbav:"SeasonID,omitempty"`
	CreatedBy  string   `dynamodbav:"CreatedBy"`
	GroupIDs   []string `dynamodbav:"GroupIDs"`
}

// CreateSeriesInput carries the validated fields for a new event series.
type CreateSeriesInput struct {
	Title      string   `validate:"required,max=200"`
	Venue      string   `validate:"max=500"`
	ExternalID string   // external show/ticket id, looked up via GSI3
	SeasonID   string
	CreatedBy  string   `validate:"required"`
	GroupIDs   []string `validate:"required,min=1,dive,required"`
}

// NewEventSeries builds a series with a fresh id. When an external id is
// present the GSI3 keys are stamped for reverse lookup.
func NewEventSeries(input CreateSeriesInput) (*EventSeries, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	seriesID := uuid.New().String()
	pk, err := keys.SeriesPK(seriesID)
	if err != nil {
		return nil, err
	}
	base := newBaseItem(pk, keys.MetadataSK, ItemTypeEventSeries)
	if input.ExternalID != "" {
		gsi3pk, err := keys.ExternalIDGSI3PK(input.ExternalID)
		if err != nil {
			return nil, err
		}
		base.GSI3PK = gsi3pk
		base.GSI3SK = pk
	}
	return &EventSeries{
		BaseItem:   base,
		SeriesID:   seriesID,
		Title:      input.Title,
		Venue:      input.Venue,
		ExternalID: input.ExternalID,
		SeasonID:   input.SeasonID,
		CreatedBy:  input.CreatedBy,
		GroupIDs:   input.GroupIDs,
	}, nil
}

// IdeaListMember is one entry of a series' idea list (candidate dates,
// openers, restaurants). Child of the series partition.
type IdeaListMember struct {
	BaseItem
	SeriesID string `dynamodbav:"SeriesID"`
	MemberID string `dynamodbav:"MemberID"`
	Text     string `dynamodbav:"Text"`
	AddedBy  string `dynamodbav:"AddedBy"`
}

// NewIdeaListMember builds an idea row inside the series partition.
func NewIdeaListMember(seriesID, text, addedBy string) (*IdeaListMember, error) {
	memberID := uuid.New().String()
	pk, err := keys.SeriesPK(seriesID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.IdeaSK(memberID)
	if err != nil {
		return nil, err
	}
	return &IdeaListMember{
		BaseItem: newBaseItem(pk, sk, ItemTypeIdeaListMember),
		SeriesID: seriesID,
		MemberID: memberID,
		Text:     text,
		AddedBy:  addedBy,
	}, nil
}
