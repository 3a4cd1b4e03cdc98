package domain

import (
	"reflect"

	"gatherly-backend/internal/keys"
)

// Pointer records are denormalized, read-optimized copies of a canonical
// hangout/series plus all of its children, stored in each interested
// group's partition so a feed renders from one partition query. A
// pointer's Version is independent of the canonical Version: it guards the
// pointer's own child-set edits against concurrent synchronizations.
//
// Child sets are maps keyed by the child's natural id, so merging a
// concurrent edit to a different child never loses either edit.

// PollSnapshot is the denormalized copy of a poll and its options.
type PollSnapshot struct {
	PollID   string            `dynamodbav:"PollID"`
	Question string            `dynamodbav:"Question"`
	Options  map[string]string `dynamodbav:"Options,omitempty"` // optionID -> text
}

// VoteSnapshot is the denormalized copy of one vote.
type VoteSnapshot struct {
	PollID   string `dynamodbav:"PollID"`
	UserID   string `dynamodbav:"UserID"`
	OptionID string `dynamodbav:"OptionID"`
}

// VoteKey is the natural id of a vote inside a pointer's child set.
func VoteKey(pollID, userID, optionID string) string {
	return pollID + "#" + userID + "#" + optionID
}

// CarSnapshot is the denormalized copy of a car and its riders.
type CarSnapshot struct {
	CarID    string          `dynamodbav:"CarID"`
	DriverID string          `dynamodbav:"DriverID"`
	Seats    int             `dynamodbav:"Seats"`
	Riders   map[string]bool `dynamodbav:"Riders,omitempty"` // userID set
}

// HangoutPointer is the group-partition copy of a hangout.
type HangoutPointer struct {
	BaseItem
	GroupID        string                  `dynamodbav:"GroupID"`
	HangoutID      string                  `dynamodbav:"HangoutID"`
	Title          string                  `dynamodbav:"Title"`
	Location       string                  `dynamodbav:"Location,omitempty"`
	StartTime      string                  `dynamodbav:"StartTime,omitempty"`
	Status         string                  `dynamodbav:"Status"`
	Polls          map[string]PollSnapshot `dynamodbav:"Polls,omitempty"`
	Votes          map[string]VoteSnapshot `dynamodbav:"Votes,omitempty"`
	Cars           map[string]CarSnapshot  `dynamodbav:"Cars,omitempty"`
	NeedsRide      map[string]string       `dynamodbav:"NeedsRide,omitempty"`      // userID -> notes
	InterestLevels map[string]string       `dynamodbav:"InterestLevels,omitempty"` // userID -> level
	Attributes     map[string]string       `dynamodbav:"Attributes,omitempty"`     // name -> value
}

// NewHangoutPointer builds an empty pointer shell for one group.
func NewHangoutPointer(groupID, hangoutID string) (*HangoutPointer, error) {
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.HangoutPointerSK(hangoutID)
	if err != nil {
		return nil, err
	}
	return &HangoutPointer{
		BaseItem:  newBaseItem(pk, sk, ItemTypeHangoutPointer),
		GroupID:   groupID,
		HangoutID: hangoutID,
	}, nil
}

// HangoutChildren is the full child state of a hangout as read from its
// canonical partition.
type HangoutChildren struct {
	Polls      []Poll
	Options    []PollOption
	Votes      []Vote
	Cars       []Car
	Riders     []CarRider
	NeedsRide  []NeedsRide
	Interest   []InterestLevel
	Attributes []HangoutAttribute
}

// ApplyCanonical rebuilds the pointer's content wholesale from canonical
// state. Key and version metadata are left untouched.
func (p *HangoutPointer) ApplyCanonical(h *Hangout, children HangoutChildren) {
	p.Title = h.Title
	p.Location = h.Location
	p.StartTime = h.StartTime
	p.Status = h.Status

	p.Polls = nil
	for _, poll := range children.Polls {
		p.Polls = MergeChildSet(p.Polls, poll.PollID, PollSnapshot{
			PollID:   poll.PollID,
			Question: poll.Question,
		})
	}
	for _, opt := range children.Options {
		snap, ok := p.Polls[opt.PollID]
		if !ok {
			// Option without its poll row; keep it visible anyway.
			snap = PollSnapshot{PollID: opt.PollID}
		}
		snap.Options = MergeChildSet(snap.Options, opt.OptionID, opt.Text)
		p.Polls = MergeChildSet(p.Polls, opt.PollID, snap)
	}

	p.Votes = nil
	for _, v := range children.Votes {
		p.Votes = MergeChildSet(p.Votes, VoteKey(v.PollID, v.UserID, v.OptionID), VoteSnapshot{
			PollID:   v.PollID,
			UserID:   v.UserID,
			OptionID: v.OptionID,
		})
	}

	p.Cars = nil
	for _, c := range children.Cars {
		p.Cars = MergeChildSet(p.Cars, c.CarID, CarSnapshot{
			CarID:    c.CarID,
			DriverID: c.DriverID,
			Seats:    c.Seats,
		})
	}
	for _, r := range children.Riders {
		snap, ok := p.Cars[r.CarID]
		if !ok {
			snap = CarSnapshot{CarID: r.CarID}
		}
		snap.Riders = MergeChildSet(snap.Riders, r.UserID, true)
		p.Cars = MergeChildSet(p.Cars, r.CarID, snap)
	}

	p.NeedsRide = nil
	for _, n := range children.NeedsRide {
		p.NeedsRide = MergeChildSet(p.NeedsRide, n.UserID, n.Notes)
	}

	p.InterestLevels = nil
	for _, il := range children.Interest {
		p.InterestLevels = MergeChildSet(p.InterestLevels, il.UserID, il.Level)
	}

	p.Attributes = nil
	for _, a := range children.Attributes {
		p.Attributes = MergeChildSet(p.Attributes, a.Name, a.Value)
	}
}

// ContentEquals compares denormalized content, ignoring key and version
// metadata. Used to detect that a resynchronization would be a no-op.
func (p *HangoutPointer) ContentEquals(other *HangoutPointer) bool {
	if other == nil {
		return false
	}
	a, b := *p, *other
	a.BaseItem, b.BaseItem = BaseItem{}, BaseItem{}
	return reflect.DeepEqual(a, b)
}

// SeriesPointer is the group-partition copy of an event series.
type SeriesPointer struct {
	BaseItem
	GroupID        string            `dynamodbav:"GroupID"`
	SeriesID       string            `dynamodbav:"SeriesID"`
	Title          string            `dynamodbav:"Title"`
	Venue          string            `dynamodbav:"Venue,omitempty"`
	SeasonID       string            `dynamodbav:"SeasonID,omitempty"`
	Ideas          map[string]string `dynamodbav:"Ideas,omitempty"`          // memberID -> text
	InterestLevels map[string]string `dynamodbav:"InterestLevels,omitempty"` // userID -> level
}

// NewSeriesPointer builds an empty pointer shell for one group.
func NewSeriesPointer(groupID, seriesID string) (*SeriesPointer, error) {
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.SeriesPointerSK(seriesID)
	if err != nil {
		return nil, err
	}
	return &SeriesPointer{
		BaseItem: newBaseItem(pk, sk, ItemTypeSeriesPointer),
		GroupID:  groupID,
		SeriesID: seriesID,
	}, nil
}

// ApplyCanonical rebuilds the pointer's content from canonical state.
func (p *SeriesPointer) ApplyCanonical(s *EventSeries, ideas []IdeaListMember) {
	p.Title = s.Title
	p.Venue = s.Venue
	p.SeasonID = s.SeasonID
	p.Ideas = nil
	for _, idea := range ideas {
		p.Ideas = MergeChildSet(p.Ideas, idea.MemberID, idea.Text)
	}
}

// ContentEquals compares denormalized content, ignoring key and version
// metadata.
func (p *SeriesPointer) ContentEquals(other *SeriesPointer) bool {
	if other == nil {
		return false
	}
	a, b := *p, *other
	a.BaseItem, b.BaseItem = BaseItem{}, BaseItem{}
	return reflect.DeepEqual(a, b)
}

// MergeChildSet upserts one child into a by-natural-id set, allocating the
// set on first use. Every pointer type shares this instead of bespoke
// per-entity merge logic.
func MergeChildSet[V any](set map[string]V, id string, v V) map[string]V {
	if set == nil {
		set = make(map[string]V)
	}
	set[id] = v
	return set
}

// RemoveFromChildSet deletes one child from a by-natural-id set.
func RemoveFromChildSet[V any](set map[string]V, id string) map[string]V {
	delete(set, id)
	return set
}
