package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gatherly-backend/internal/domain"
	"gatherly-backend/internal/keys"
	appErrors "gatherly-backend/pkg/errors"
)

// OfferRepository owns the canonical ReservationOffer records and the
// capacity-claim protocol. All contention on the claimed-spots counter is
// mediated by the store's conditional write; no in-process lock is held.
type OfferRepository struct {
	store  Store
	cas    CASConfig
	logger *zap.Logger
}

// NewOfferRepository creates an offer repository.
func NewOfferRepository(store Store, cas CASConfig, logger *zap.Logger) *OfferRepository {
	return &OfferRepository{store: store, cas: cas, logger: logger}
}

// Create stores a new offer. An existing offer with the same id is a
// conflict, not an overwrite.
func (r *OfferRepository) Create(ctx context.Context, offer *domain.ReservationOffer) error {
	item, err := marshalItem(offer)
	if err != nil {
		return err
	}
	return r.store.PutItem(ctx, item, PutOptions{IfNotExists: true})
}

// Get reads one offer by id.
func (r *OfferRepository) Get(ctx context.Context, offerID string) (*domain.ReservationOffer, error) {
	pk, err := keys.OfferPK(offerID)
	if err != nil {
		return nil, err
	}
	item, err := r.store.GetItem(ctx, pk, keys.MetadataSK)
	if err != nil {
		return nil, err
	}
	return unmarshalItem[domain.ReservationOffer](item)
}

// ClaimCapacity reserves one spot for the claimant. The loop is the
// standard read-check-conditional-write: a full offer is a business
// rejection surfaced immediately, a lost race re-reads and re-validates
// capacity, since the winner of the race may have exhausted it.
// Unlimited-capacity offers skip the capacity check but still go through
// the version-guarded increment so ClaimedSpots stays accurate.
func (r *OfferRepository) ClaimCapacity(ctx context.Context, offerID, claimantID string) (*domain.ReservationOffer, error) {
	var claimed *domain.ReservationOffer
	err := RunCAS(ctx, r.cas, r.logger, "claim_capacity", func(ctx context.Context) error {
		offer, err := r.Get(ctx, offerID)
		if err != nil {
			return err
		}
		if !offer.Collecting() {
			return appErrors.NewValidation(fmt.Sprintf(
				"offer %s is %s and no longer accepts claims", offerID, offer.Status))
		}
		if !offer.HasCapacityLeft() {
			claimsRejectedTotal.Inc()
			return appErrors.NewCapacityExceeded(fmt.Sprintf(
				"offer %s has all %d spots claimed", offerID, *offer.Capacity))
		}

		expected := offer.Version
		offer.ClaimedSpots++
		offer.Claimants = append(offer.Claimants, claimantID)
		offer.Version = expected + 1
		offer.UpdatedAt = domain.NowISO()

		item, err := marshalItem(offer)
		if err != nil {
			return err
		}
		if err := r.store.PutItem(ctx, item, PutOptions{ExpectedVersion: &expected}); err != nil {
			return err
		}
		claimed = offer
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("capacity claimed",
		zap.String("offer_id", offerID),
		zap.String("claimant_id", claimantID),
		zap.Int("claimed_spots", claimed.ClaimedSpots))
	return claimed, nil
}

// Complete moves a COLLECTING offer to its COMPLETED terminal state.
func (r *OfferRepository) Complete(ctx context.Context, offerID string) (*domain.ReservationOffer, error) {
	return r.transition(ctx, offerID, domain.OfferStatusCompleted)
}

// Cancel moves a COLLECTING offer to its CANCELLED terminal state.
func (r *OfferRepository) Cancel(ctx context.Context, offerID string) (*domain.ReservationOffer, error) {
	return r.transition(ctx, offerID, domain.OfferStatusCancelled)
}

func (r *OfferRepository) transition(ctx context.Context, offerID, target string) (*domain.ReservationOffer, error) {
	var result *domain.ReservationOffer
	err := RunCAS(ctx, r.cas, r.logger, "offer_transition", func(ctx context.Context) error {
		offer, err := r.Get(ctx, offerID)
		if err != nil {
			return err
		}
		if offer.Status == target {
			// Re-running a terminal transition is a no-op.
			result = offer
			return nil
		}
		if !offer.Collecting() {
			return appErrors.NewValidation(fmt.Sprintf(
				"offer %s is %s, cannot move to %s", offerID, offer.Status, target))
		}

		expected := offer.Version
		offer.Status = target
		offer.Version = expected + 1
		offer.UpdatedAt = domain.NowISO()

		item, err := marshalItem(offer)
		if err != nil {
			return err
		}
		if err := r.store.PutItem(ctx, item, PutOptions{ExpectedVersion: &expected}); err != nil {
			return err
		}
		result = offer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateOfferInput names the mutable display fields of an offer. Nil
// fields are left untouched.
type UpdateOfferInput struct {
	Title    *string
	Capacity *int
}

// Update applies a field-level mutation, stamping UpdatedAt exactly once.
// Shrinking capacity below the already-claimed count is rejected.
func (r *OfferRepository) Update(ctx context.Context, offerID string, input UpdateOfferInput) (*domain.ReservationOffer, error) {
	var result *domain.ReservationOffer
	err := RunCAS(ctx, r.cas, r.logger, "offer_update", func(ctx context.Context) error {
		offer, err := r.Get(ctx, offerID)
		if err != nil {
			return err
		}
		if input.Title != nil {
			offer.Title = *input.Title
		}
		if input.Capacity != nil {
			if *input.Capacity < offer.ClaimedSpots {
				return appErrors.NewValidation(fmt.Sprintf(
					"capacity %d is below the %d spots already claimed", *input.Capacity, offer.ClaimedSpots))
			}
			offer.Capacity = input.Capacity
		}

		expected := offer.Version
		offer.Version = expected + 1
		offer.UpdatedAt = domain.NowISO()

		item, err := marshalItem(offer)
		if err != nil {
			return err
		}
		if err := r.store.PutItem(ctx, item, PutOptions{ExpectedVersion: &expected}); err != nil {
			return err
		}
		result = offer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes one offer.
func (r *OfferRepository) Delete(ctx context.Context, offerID string) error {
	pk, err := keys.OfferPK(offerID)
	if err != nil {
		return err
	}
	return r.store.DeleteItem(ctx, pk, keys.MetadataSK)
}
