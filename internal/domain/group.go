package domain

import (
	"github.com/google/uuid"

	"gatherly-backend/internal/keys"
)

// Group is the canonical record of a coordination group. Its partition also
// holds membership rows, hangout/series pointers, invite codes and seasons.
type Group struct {
	BaseItem
	GroupID     string `dynamodbav:"GroupID"`
	Name        string `dynamodbav:"Name"`
	Description string `dynamodbav:"Description,omitempty"`
	OwnerID     string `dynamodbav:"OwnerID"`
}

// CreateGroupInput carries the validated fields for a new group.
type CreateGroupInput struct {
	Name        string `validate:"required,max=120"`
	Description string `validate:"max=2000"`
	OwnerID     string `validate:"required"`
}

// NewGroup builds a group with a fresh id and stamped metadata.
func NewGroup(input CreateGroupInput) (*Group, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	groupID := uuid.New().String()
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return nil, err
	}
	return &Group{
		BaseItem:    newBaseItem(pk, keys.MetadataSK, ItemTypeGroup),
		GroupID:     groupID,
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     input.OwnerID,
	}, nil
}

// Membership roles.
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Participation is one user's membership in one group. It carries the GSI1
// keys for the user→groups access pattern.
type Participation struct {
	BaseItem
	GroupID string `dynamodbav:"GroupID"`
	UserID  string `dynamodbav:"UserID"`
	Role    string `dynamodbav:"Role"`
}

// NewParticipation builds a membership row inside the group's partition.
func NewParticipation(groupID, userID, role string) (*Participation, error) {
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.MemberSK(userID)
	if err != nil {
		return nil, err
	}
	gsi1pk, err := keys.UserGroupsGSI1PK(userID)
	if err != nil {
		return nil, err
	}
	gsi1sk, err := keys.UserGroupsGSI1SK(groupID)
	if err != nil {
		return nil, err
	}
	base := newBaseItem(pk, sk, ItemTypeParticipation)
	base.GSI1PK = gsi1pk
	base.GSI1SK = gsi1sk
	return &Participation{
		BaseItem: base,
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
	}, nil
}

// InviteCode lets a new member join a group. Lives in the group partition.
type InviteCode struct {
	BaseItem
	GroupID   string `dynamodbav:"GroupID"`
	Code      string `dynamodbav:"Code"`
	CreatedBy string `dynamodbav:"CreatedBy"`
	ExpiresAt string `dynamodbav:"ExpiresAt,omitempty"`
}

// NewInviteCode builds an invite row keyed by a fresh code.
func NewInviteCode(groupID, createdBy, expiresAt string) (*InviteCode, error) {
	code := uuid.New().String()
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.InviteSK(code)
	if err != nil {
		return nil, err
	}
	return &InviteCode{
		BaseItem:  newBaseItem(pk, sk, ItemTypeInviteCode),
		GroupID:   groupID,
		Code:      code,
		CreatedBy: createdBy,
		ExpiresAt: expiresAt,
	}, nil
}

// Season groups a group's event series into a display bucket.
type Season struct {
	BaseItem
	GroupID  string `dynamodbav:"GroupID"`
	SeasonID string `dynamodbav:"SeasonID"`
	Name     string `dynamodbav:"Name"`
	Year     int    `dynamodbav:"Year,omitempty"`
}

// NewSeason builds a season row inside the group's partition.
func NewSeason(groupID, name string, year int) (*Season, error) {
	seasonID := uuid.New().String()
	pk, err := keys.GroupPK(groupID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.SeasonSK(seasonID)
	if err != nil {
		return nil, err
	}
	return &Season{
		BaseItem: newBaseItem(pk, sk, ItemTypeSeason),
		GroupID:  groupID,
		SeasonID: seasonID,
		Name:     name,
		Year:     year,
	}, nil
}
