// Package keys builds and parses the composite partition, sort and
// secondary-index keys of the single-table schema. All functions are pure;
// malformed ids fail fast with a validation error instead of producing a
// corrupt key.
package keys

import (
	"fmt"
	"strings"

	appErrors "gatherly-backend/pkg/errors"
)

const sep = "#"

// Partition key type prefixes. One prefix per canonical aggregate.
const (
	TypeGroup   = "GROUP"
	TypeHangout = "HANGOUT"
	TypeSeries  = "SERIES"
	TypeOffer   = "OFFER"
	TypeUser    = "USER"
)

// MetadataSK is the sort key of every canonical record within its own
// partition.
const MetadataSK = "METADATA"

// Sort key prefixes for items living inside another aggregate's partition.
// Every prefix ends with the separator so that a sibling id which is a
// string prefix of another id can never leak into a range query.
const (
	MemberSKPrefix         = "MEMBER" + sep
	HangoutPointerSKPrefix = "HANGOUT" + sep
	SeriesPointerSKPrefix  = "SERIES" + sep
	InviteSKPrefix         = "INVITE" + sep
	SeasonSKPrefix         = "SEASON" + sep
	PollSKPrefix           = "POLL" + sep
	CarSKPrefix            = "CAR" + sep
	NeedsRideSKPrefix      = "NEEDSRIDE" + sep
	InterestSKPrefix       = "INTEREST" + sep
	AttributeSKPrefix      = "ATTR" + sep
	IdeaSKPrefix           = "IDEA" + sep
	TokenSKPrefix          = "TOKEN" + sep
)

// validateID rejects ids that would corrupt a composite key.
func validateID(kind, id string) error {
	if id == "" {
		return appErrors.NewValidation(fmt.Sprintf("%s id must not be empty", kind))
	}
	if strings.Contains(id, sep) {
		return appErrors.NewValidation(fmt.Sprintf("%s id %q must not contain %q", kind, id, sep))
	}
	return nil
}

func pk(entityType, id string) (string, error) {
	if err := validateID(strings.ToLower(entityType), id); err != nil {
		return "", err
	}
	return entityType + sep + id, nil
}

// Partition keys

func GroupPK(groupID string) (string, error)     { return pk(TypeGroup, groupID) }
func HangoutPK(hangoutID string) (string, error) { return pk(TypeHangout, hangoutID) }
func SeriesPK(seriesID string) (string, error)   { return pk(TypeSeries, seriesID) }
func OfferPK(offerID string) (string, error)     { return pk(TypeOffer, offerID) }
func UserPK(userID string) (string, error)       { return pk(TypeUser, userID) }

// Sort keys within the group partition

// MemberSK locates one user's membership row inside a group partition.
func MemberSK(userID string) (string, error) {
	if err := validateID("user", userID); err != nil {
		return "", err
	}
	return MemberSKPrefix + userID, nil
}

// HangoutPointerSK locates the denormalized copy of a hangout inside a
// group partition.
func HangoutPointerSK(hangoutID string) (string, error) {
	if err := validateID("hangout", hangoutID); err != nil {
		return "", err
	}
	return HangoutPointerSKPrefix + hangoutID, nil
}

// SeriesPointerSK locates the denormalized copy of an event series inside a
// group partition.
func SeriesPointerSK(seriesID string) (string, error) {
	if err := validateID("series", seriesID); err != nil {
		return "", err
	}
	return SeriesPointerSKPrefix + seriesID, nil
}

func InviteSK(code string) (string, error) {
	if err := validateID("invite code", code); err != nil {
		return "", err
	}
	return InviteSKPrefix + code, nil
}

func SeasonSK(seasonID string) (string, error) {
	if err := validateID("season", seasonID); err != nil {
		return "", err
	}
	return SeasonSKPrefix + seasonID, nil
}

// Sort keys within a hangout or series partition

func PollSK(pollID string) (string, error) {
	if err := validateID("poll", pollID); err != nil {
		return "", err
	}
	return PollSKPrefix + pollID, nil
}

func PollOptionSK(pollID, optionID string) (string, error) {
	base, err := PollSK(pollID)
	if err != nil {
		return "", err
	}
	if err := validateID("poll option", optionID); err != nil {
		return "", err
	}
	return base + sep + "OPTION" + sep + optionID, nil
}

// VoteSK keys a single user's vote for one option of one poll.
func VoteSK(pollID, userID, optionID string) (string, error) {
	base, err := PollSK(pollID)
	if err != nil {
		return "", err
	}
	if err := validateID("user", userID); err != nil {
		return "", err
	}
	if err := validateID("poll option", optionID); err != nil {
		return "", err
	}
	return base + sep + "VOTE" + sep + userID + sep + "OPTION" + sep + optionID, nil
}

func CarSK(carID string) (string, error) {
	if err := validateID("car", carID); err != nil {
		return "", err
	}
	return CarSKPrefix + carID, nil
}

func CarRiderSK(carID, userID string) (string, error) {
	base, err := CarSK(carID)
	if err != nil {
		return "", err
	}
	if err := validateID("user", userID); err != nil {
		return "", err
	}
	return base + sep + "RIDER" + sep + userID, nil
}

func NeedsRideSK(userID string) (string, error) {
	if err := validateID("user", userID); err != nil {
		return "", err
	}
	return NeedsRideSKPrefix + userID, nil
}

func InterestSK(userID string) (string, error) {
	if err := validateID("user", userID); err != nil {
		return "", err
	}
	return InterestSKPrefix + userID, nil
}

func AttributeSK(name string) (string, error) {
	if err := validateID("attribute", name); err != nil {
		return "", err
	}
	return AttributeSKPrefix + name, nil
}

func IdeaSK(memberID string) (string, error) {
	if err := validateID("idea member", memberID); err != nil {
		return "", err
	}
	return IdeaSKPrefix + memberID, nil
}

// Sort keys within the user partition

func TokenSK(tokenID string) (string, error) {
	if err := validateID("token", tokenID); err != nil {
		return "", err
	}
	return TokenSKPrefix + tokenID, nil
}

// Range-query prefixes

// PollChildrenPrefix matches a poll's option and vote rows, never the
// poll's own row, and nothing belonging to a sibling poll.
func PollChildrenPrefix(pollID string) (string, error) {
	base, err := PollSK(pollID)
	if err != nil {
		return "", err
	}
	return base + sep, nil
}

// CarChildrenPrefix matches one car's rider rows.
func CarChildrenPrefix(carID string) (string, error) {
	base, err := CarSK(carID)
	if err != nil {
		return "", err
	}
	return base + sep + "RIDER" + sep, nil
}

// Secondary-index keys

// GSI1 maps a user to the groups they participate in.
func UserGroupsGSI1PK(userID string) (string, error) {
	if err := validateID("user", userID); err != nil {
		return "", err
	}
	return TypeUser + sep + userID, nil
}

func UserGroupsGSI1SK(groupID string) (string, error) {
	if err := validateID("group", groupID); err != nil {
		return "", err
	}
	return TypeGroup + sep + groupID, nil
}

// GSI2 resolves a calendar subscription token back to its user.
func CalendarTokenGSI2PK(token string) (string, error) {
	if err := validateID("calendar token", token); err != nil {
		return "", err
	}
	return "CALTOKEN" + sep + token, nil
}

// GSI3 resolves an external show/ticket id back to its event series.
func ExternalIDGSI3PK(externalID string) (string, error) {
	if err := validateID("external", externalID); err != nil {
		return "", err
	}
	return "EXTID" + sep + externalID, nil
}

// Parsing

// SplitPK breaks a partition key into its entity type and id.
func SplitPK(partitionKey string) (entityType, id string, err error) {
	parts := strings.SplitN(partitionKey, sep, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", appErrors.NewValidation(fmt.Sprintf("malformed partition key %q", partitionKey))
	}
	switch parts[0] {
	case TypeGroup, TypeHangout, TypeSeries, TypeOffer, TypeUser:
		return parts[0], parts[1], nil
	}
	return "", "", appErrors.NewValidation(fmt.Sprintf("unknown partition key type %q", parts[0]))
}

// parseID extracts the id from a key of the form <prefix><id> and rejects
// keys of a different type.
func parseID(kind, prefix, key string) (string, error) {
	if !strings.HasPrefix(key, prefix) {
		return "", appErrors.NewValidation(fmt.Sprintf("key %q is not a %s key", key, kind))
	}
	id := strings.TrimPrefix(key, prefix)
	if id == "" || strings.Contains(id, sep) {
		return "", appErrors.NewValidation(fmt.Sprintf("malformed %s key %q", kind, key))
	}
	return id, nil
}

// GroupIDFromPK extracts the group id, rejecting partition keys of any
// other aggregate.
func GroupIDFromPK(partitionKey string) (string, error) {
	return parseID("group", TypeGroup+sep, partitionKey)
}

func HangoutIDFromPK(partitionKey string) (string, error) {
	return parseID("hangout", TypeHangout+sep, partitionKey)
}

func SeriesIDFromPK(partitionKey string) (string, error) {
	return parseID("series", TypeSeries+sep, partitionKey)
}

func OfferIDFromPK(partitionKey string) (string, error) {
	return parseID("offer", TypeOffer+sep, partitionKey)
}

func UserIDFromPK(partitionKey string) (string, error) {
	return parseID("user", TypeUser+sep, partitionKey)
}

// Segments splits a sort key into its raw segments.
func Segments(sortKey string) []string {
	return strings.Split(sortKey, sep)
}
