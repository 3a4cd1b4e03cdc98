package domain

import (
	"github.com/google/uuid"

	"gatherly-backend/internal/keys"
)

// Offer statuses. COMPLETED and CANCELLED are terminal: no further claims
// are accepted once either is reached.
const (
	OfferStatusCollecting = "COLLECTING"
	OfferStatusCompleted  = "COMPLETED"
	OfferStatusCancelled  = "CANCELLED"
)

// ReservationOffer is the one piece of explicitly contended shared state: a
// capacity-limited pool of ticket/reservation spots claimed concurrently.
// Invariants: ClaimedSpots never exceeds a non-nil Capacity, and only
// increases while Status is COLLECTING.
type ReservationOffer struct {
	BaseItem
	OfferID      string `dynamodbav:"OfferID"`
	HangoutID    string `dynamodbav:"HangoutID,omitempty"`
	Title        string `dynamodbav:"Title"`
	Capacity     *int   `dynamodbav:"Capacity,omitempty"` // nil = unlimited
	ClaimedSpots int    `dynamodbav:"ClaimedSpots"`
	Status       string `dynamodbav:"Status"`
	CreatedBy    string `dynamodbav:"CreatedBy"`

	// Claimants records who claimed the spots, in claim order.
	Claimants []string `dynamodbav:"Claimants,omitempty"`
}

// CreateOfferInput carries the validated fields for a new offer.
type CreateOfferInput struct {
	Title     string `validate:"required,max=200"`
	HangoutID string
	Capacity  *int   `validate:"omitempty,min=1"`
	CreatedBy string `validate:"required"`
}

// NewReservationOffer builds an offer in COLLECTING state with a fresh id.
func NewReservationOffer(input CreateOfferInput) (*ReservationOffer, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	offerID := uuid.New().String()
	pk, err := keys.OfferPK(offerID)
	if err != nil {
		return nil, err
	}
	return &ReservationOffer{
		BaseItem:     newBaseItem(pk, keys.MetadataSK, ItemTypeOffer),
		OfferID:      offerID,
		HangoutID:    input.HangoutID,
		Title:        input.Title,
		Capacity:     input.Capacity,
		ClaimedSpots: 0,
		Status:       OfferStatusCollecting,
		CreatedBy:    input.CreatedBy,
	}, nil
}

// Collecting reports whether the offer still accepts claims.
func (o *ReservationOffer) Collecting() bool {
	return o.Status == OfferStatusCollecting
}

// HasCapacityLeft reports whether one more spot can be claimed. An offer
// with nil capacity is unlimited.
func (o *ReservationOffer) HasCapacityLeft() bool {
	if o.Capacity == nil {
		return true
	}
	return o.ClaimedSpots < *o.Capacity
}
