package repository

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"gatherly-backend/internal/domain"
	appErrors "gatherly-backend/pkg/errors"
)

// DecodeFunc deserializes one raw item into its typed entity.
type DecodeFunc func(Item) (any, error)

// Registry maps the ItemType discriminator to a deserialization strategy,
// letting one partition hold many record shapes resolved at read time.
type Registry struct {
	decoders map[string]DecodeFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]DecodeFunc)}
}

// Register adds a decoder for one item type. Later registrations replace
// earlier ones.
func (r *Registry) Register(itemType string, fn DecodeFunc) {
	r.decoders[itemType] = fn
}

// ItemTypeOf extracts the discriminator of a raw item.
func ItemTypeOf(item Item) (string, error) {
	av, ok := item["ItemType"]
	if !ok {
		return "", appErrors.NewValidation("item has no ItemType discriminator")
	}
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok || s.Value == "" {
		return "", appErrors.NewValidation("item has a malformed ItemType discriminator")
	}
	return s.Value, nil
}

// Decode deserializes one raw item according to its discriminator.
func (r *Registry) Decode(item Item) (any, error) {
	itemType, err := ItemTypeOf(item)
	if err != nil {
		return nil, err
	}
	fn, ok := r.decoders[itemType]
	if !ok {
		return nil, appErrors.NewValidation(fmt.Sprintf("no decoder registered for item type %q", itemType))
	}
	return fn(item)
}

// DecodeAll deserializes a heterogeneous partition result in order,
// skipping nothing: an undecodable item fails the whole read.
func (r *Registry) DecodeAll(items []Item) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		entity, err := r.Decode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// decodeAs builds a DecodeFunc for one concrete entity type.
func decodeAs[T any]() DecodeFunc {
	return func(item Item) (any, error) {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal item")
		}
		return &v, nil
	}
}

// unmarshalItem deserializes a raw item into a known concrete type.
func unmarshalItem[T any](item Item) (*T, error) {
	var v T
	if err := attributevalue.UnmarshalMap(item, &v); err != nil {
		return nil, appErrors.Wrap(err, "failed to unmarshal item")
	}
	return &v, nil
}

// marshalItem serializes an entity for storage.
func marshalItem(entity any) (Item, error) {
	item, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to marshal item")
	}
	return item, nil
}

// DefaultRegistry returns a registry covering every stored entity type.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.ItemTypeGroup, decodeAs[domain.Group]())
	r.Register(domain.ItemTypeParticipation, decodeAs[domain.Participation]())
	r.Register(domain.ItemTypeHangout, decodeAs[domain.Hangout]())
	r.Register(domain.ItemTypeEventSeries, decodeAs[domain.EventSeries]())
	r.Register(domain.ItemTypeOffer, decodeAs[domain.ReservationOffer]())
	r.Register(domain.ItemTypeInviteCode, decodeAs[domain.InviteCode]())
	r.Register(domain.ItemTypeRefreshToken, decodeAs[domain.RefreshToken]())
	r.Register(domain.ItemTypeUser, decodeAs[domain.User]())
	r.Register(domain.ItemTypeSeason, decodeAs[domain.Season]())
	r.Register(domain.ItemTypePoll, decodeAs[domain.Poll]())
	r.Register(domain.ItemTypePollOption, decodeAs[domain.PollOption]())
	r.Register(domain.ItemTypeVote, decodeAs[domain.Vote]())
	r.Register(domain.ItemTypeCar, decodeAs[domain.Car]())
	r.Register(domain.ItemTypeCarRider, decodeAs[domain.CarRider]())
	r.Register(domain.ItemTypeNeedsRide, decodeAs[domain.NeedsRide]())
	r.Register(domain.ItemTypeInterestLevel, decodeAs[domain.InterestLevel]())
	r.Register(domain.ItemTypeAttribute, decodeAs[domain.HangoutAttribute]())
	r.Register(domain.ItemTypeIdeaListMember, decodeAs[domain.IdeaListMember]())
	r.Register(domain.ItemTypeHangoutPointer, decodeAs[domain.HangoutPointer]())
	r.Register(domain.ItemTypeSeriesPointer, decodeAs[domain.SeriesPointer]())
	return r
}
