package domain

import (
	"github.com/google/uuid"

	"gatherly-backend/internal/keys"
)

// User is the canonical account record. Its partition also holds the
// user's refresh-token rows. The calendar subscription token is resolved
// back to the user through GSI2.
type User struct {
	BaseItem
	UserID        string `dynamodbav:"UserID"`
	DisplayName   string `dynamodbav:"DisplayName"`
	Email         string `dynamodbav:"Email"`
	CalendarToken string `dynamodbav:"CalendarToken,omitempty"`
}

// CreateUserInput carries the validated fields for a new user.
type CreateUserInput struct {
	DisplayName string `validate:"required,max=120"`
	Email       string `validate:"required,email"`
}

// NewUser builds a user with a fresh id and calendar token.
func NewUser(input CreateUserInput) (*User, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	userID := uuid.New().String()
	calendarToken := uuid.New().String()
	pk, err := keys.UserPK(userID)
	if err != nil {
		return nil, err
	}
	gsi2pk, err := keys.CalendarTokenGSI2PK(calendarToken)
	if err != nil {
		return nil, err
	}
	base := newBaseItem(pk, keys.MetadataSK, ItemTypeUser)
	base.GSI2PK = gsi2pk
	base.GSI2SK = pk
	return &User{
		BaseItem:      base,
		UserID:        userID,
		DisplayName:   input.DisplayName,
		Email:         input.Email,
		CalendarToken: calendarToken,
	}, nil
}

// RefreshToken is one issued session token. Revoking a user means deleting
// every token row in their partition.
type RefreshToken struct {
	BaseItem
	UserID    string `dynamodbav:"UserID"`
	TokenID   string `dynamodbav:"TokenID"`
	TokenHash string `dynamodbav:"TokenHash"`
	ExpiresAt string `dynamodbav:"ExpiresAt"`
}

// NewRefreshToken builds a token row inside the user's partition.
func NewRefreshToken(userID, tokenHash, expiresAt string) (*RefreshToken, error) {
	tokenID := uuid.New().String()
	pk, err := keys.UserPK(userID)
	if err != nil {
		return nil, err
	}
	sk, err := keys.TokenSK(tokenID)
	if err != nil {
		return nil, err
	}
	return &RefreshToken{
		BaseItem:  newBaseItem(pk, sk, ItemTypeRefreshToken),
		UserID:    userID,
		TokenID:   tokenID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}, nil
}
