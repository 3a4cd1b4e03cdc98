package domain

import (
	"github.com/google/uuid"

	"gatherly-backend/internal/keys"
)

// Hangout statuses.
const (
	HangoutStatusPlanning  = "PLANNING"
	HangoutStatusConfirmed = "CONFIRMED"
	HangoutStatusCancelled = "CANCELLED"
)

// Hangout is the canonical record of a single planned event. Child records
// (polls, votes, cars, attributes, interest levels) live in its partition;
// read-optimized copies live as HangoutPointer rows in group partitions.
type Hangout struct {
	BaseItem
	HangoutID string   `dynamodbav:"HangoutID"`
	Title     string   `dynamodbav:"Title"`
	Location  string   `dynamodbav:"Location,omitempty"`
	StartTime string   `dynamodbav:"StartTime,omitempty"`
	Status    string   `dynamodbav:"Status"`
	CreatedBy string   `dynamodbav:"CreatedBy"`
	GroupIDs  []string `dynamodbav:"GroupIDs"`
	SeriesID  string   `dynamodbav:"SeriesID,omitempty"`
}

// CreateHangoutInput carries the validated fields for a new hangout.
type CreateHangoutInput struct {
	Title     string   `validate:"required,max=200"`
	Location  string   `validate:"max=500"`
	StartTime string   `validate:"omitempty"`
	CreatedBy string   `validate:"required"`
	GroupIDs  []string `validate:"required,min=1,dive,required"`
	SeriesID  string
}

// NewHangout builds a hangout with a fresh id and stamped metadata.
func NewHangout(input CreateHangoutInput) (*Hangout, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	hangoutID := uuid.New().String()
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return nil, err
	}
	return &Hangout{
		BaseItem:  newBaseItem(pk, keys.MetadataSK, ItemTypeHangout),
		HangoutID: hangoutID,
		Title:     input.Title,
		Location:  input.Location,
		StartTime: input.StartTime,
		Status:    HangoutStatusPlanning,
		CreatedBy: input.CreatedBy,
		GroupIDs:  input.GroupIDs,
		SeriesID:  input.SeriesID,
	}, nil
}

// Poll is a question attached to a hangout.
type Poll struct {
	BaseItem
	HangoutID string `dynamodbav:"HangoutID"`
	PollID    string `dynamodbav:"PollID"`
	Question  string `dynamodbav:"Question"`
	CreatedBy string `dynamodbav:"CreatedBy"`
}

// NewPoll builds a poll row inside the hangout's partition.
func NewPoll(hangoutID, question, createdBy string) (*Poll, error) {
	pollID := uuid.New().String()
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.PollSK(pollID)
	if err != nil {
		return nil, err
	}
	return &Poll{
		BaseItem:  newBaseItem(pk, sk, ItemTypePoll),
		HangoutID: hangoutID,
		PollID:    pollID,
		Question:  question,
		CreatedBy: createdBy,
	}, nil
}

// PollOption is one answer choice of a poll.
type PollOption struct {
	BaseItem
	HangoutID string `dynamodbav:"HangoutID"`
	PollID    string `dynamodbav:"PollID"`
	OptionID  string `dynamodbav:"OptionID"`
	Text      string `dynamodbav:"Text"`
}

// NewPollOption builds an option row under its poll's sort-key prefix.
func NewPollOption(hangoutID, pollID, text string) (*PollOption, error) {
	optionID := uuid.New().String()
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.PollOptionSK(pollID, optionID)
	if err != nil {
		return nil, err
	}
	return &PollOption{
		BaseItem:  newBaseItem(pk, sk, ItemTypePollOption),
		HangoutID: hangoutID,
		PollID:    pollID,
		OptionID:  optionID,
		Text:      text,
	}, nil
}

// Vote is one user's vote for one option of one poll. Keyed by its natural
// id triple so a re-vote overwrites and a concurrent vote by another user
// lands on a different sort key.
type Vote struct {
	BaseItem
	HangoutID string `dynamodbav:"HangoutID"`
	PollID    string `dynamodbav:"PollID"`
	OptionID  string `dynamodbav:"OptionID"`
	UserID    string `dynamodbav:"UserID"`
}

// NewVote builds a vote row under its poll's sort-key prefix.
func NewVote(hangoutID, pollID, optionID, userID string) (*Vote, error) {
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.VoteSK(pollID, userID, optionID)
	if err != nil {
		return nil, err
	}
	return &Vote{
		BaseItem:  newBaseItem(pk, sk, ItemTypeVote),
		HangoutID: hangoutID,
		PollID:    pollID,
		OptionID:  optionID,
		UserID:    userID,
	}, nil
}

// Car is a carpool offer attached to a hangout.
type Car struct {
	BaseItem
	HangoutID string `dynamodbav:"HangoutID"`
	CarID     string `dynamodbav:"CarID"`
	DriverID  string `dynamodbav:"DriverID"`
	Seats     int    `dynamodbav:"Seats"`
	Notes     string `dynamodbav:"Notes,omitempty"`
}

// NewCar builds a car row inside the hangout's partition.
func NewCar(hangoutID, driverID string, seats int, notes string) (*Car, error) {
	carID := uuid.New().String()
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.CarSK(carID)
	if err != nil {
		return nil, err
	}
	return &Car{
		BaseItem:  newBaseItem(pk, sk, ItemTypeCar),
		HangoutID: hangoutID,
		CarID:     carID,
		DriverID:  driverID,
		Seats:     seats,
		Notes:     notes,
	}, nil
}

// CarRider is one user's seat in one car.
type CarRider struct {
	BaseItem
	HangoutID string `dynamodbav:"HangoutID"`
	CarID     string `dynamodbav:"CarID"`
	UserID    string `dynamodbav:"UserID"`
}

// NewCarRider builds a rider row under its car's sort-key prefix.
func NewCarRider(hangoutID, carID, userID string) (*CarRider, error) {
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.CarRiderSK(carID, userID)
	if err != nil {
		return nil, err
	}
	return &CarRider{
		BaseItem:  newBaseItem(pk, sk, ItemTypeCarRider),
		HangoutID: hangoutID,
		CarID:     carID,
		UserID:    userID,
	}, nil
}

// NeedsRide flags a user looking for a carpool seat.
type NeedsRide struct {
	BaseItem
	HangoutID string `dynamodbav:"HangoutID"`
	UserID    string `dynamodbav:"UserID"`
	Notes     string `dynamodbav:"Notes,omitempty"`
}

// NewNeedsRide builds a needs-ride row keyed by the user.
func NewNeedsRide(hangoutID, userID, notes string) (*NeedsRide, error) {
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.NeedsRideSK(userID)
	if err != nil {
		return nil, err
	}
	return &NeedsRide{
		BaseItem:  newBaseItem(pk, sk, ItemTypeNeedsRide),
		HangoutID: hangoutID,
		UserID:    userID,
		Notes:     notes,
	}, nil
}

// Interest levels.
const (
	InterestGoing    = "GOING"
	InterestMaybe    = "MAYBE"
	InterestNotGoing = "NOT_GOING"
)

// InterestLevel is one user's RSVP-style signal on a hangout, keyed by the
// user so concurrent updates by different users land on different items.
type InterestLevel struct {
	BaseItem
	HangoutID string `dynamodbav:"HangoutID"`
	UserID    string `dynamodbav:"UserID"`
	Level     string `dynamodbav:"Level"`
}

// NewInterestLevel builds an interest row keyed by the user.
func NewInterestLevel(hangoutID, userID, level string) (*InterestLevel, error) {
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.InterestSK(userID)
	if err != nil {
		return nil, err
	}
	return &InterestLevel{
		BaseItem:  newBaseItem(pk, sk, ItemTypeInterestLevel),
		HangoutID: hangoutID,
		UserID:    userID,
		Level:     level,
	}, nil
}

// HangoutAttribute is a named free-form detail (e.g. "dress code").
type HangoutAttribute struct {
	BaseItem
	HangoutID string `dynamodbav:"HangoutID"`
	Name      string `dynamodbav:"Name"`
	Value     string `dynamodbav:"Value"`
}

// NewHangoutAttribute builds an attribute row keyed by its name.
func NewHangoutAttribute(hangoutID, name, value string) (*HangoutAttribute, error) {
	pk, err := keys.HangoutPK(hangoutID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.AttributeSK(name)
	if err != nil {
		return nil, err
	}
	return &HangoutAttribute{
		BaseItem:  newBaseItem(pk, sk, ItemTypeAttribute),
		HangoutID: hangoutID,
		Name:      name,
		Value:     value,
	}, nil
}
