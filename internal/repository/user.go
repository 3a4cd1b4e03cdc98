package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gatherly-backend/internal/domain"
	"gatherly-backend/internal/keys"
	appErrors "gatherly-backend/pkg/errors"
)

// UserRepository owns user records and their refresh-token item
// collection.
type UserRepository struct {
	store  Store
	batch  *BatchExecutor
	cas    CASConfig
	logger *zap.Logger
}

// NewUserRepository creates a user repository.
func NewUserRepository(store Store, cas CASConfig, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		store:  store,
		batch:  NewBatchExecutor(store, logger),
		cas:    cas,
		logger: logger,
	}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	item, err := marshalItem(user)
	if err != nil {
		return err
	}
	return r.store.PutItem(ctx, item, PutOptions{IfNotExists: true})
}

// Get reads one user by id.
func (r *UserRepository) Get(ctx context.Context, userID string) (*domain.User, error) {
	pk, err := keys.UserPK(userID)
	if err != nil {
		return nil, err
	}
	item, err := r.store.GetItem(ctx, pk, keys.MetadataSK)
	if err != nil {
		return nil, err
	}
	return unmarshalItem[domain.User](item)
}

// FindByCalendarToken resolves a calendar subscription token to its user
// through GSI2.
func (r *UserRepository) FindByCalendarToken(ctx context.Context, token string) (*domain.User, error) {
	gsi2pk, err := keys.CalendarTokenGSI2PK(token)
	if err != nil {
		return nil, err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: gsi2pk, IndexName: IndexGSI2, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErrors.NewNotFound("no user for calendar token")
	}
	return unmarshalItem[domain.User](items[0])
}

// UpdateUserInput names the mutable fields of a user. Nil fields are left
// untouched.
type UpdateUserInput struct {
	DisplayName *string
	Email       *string
}

// Update applies a field-level mutation, stamping UpdatedAt exactly once.
func (r *UserRepository) Update(ctx context.Context, userID string, input UpdateUserInput) (*domain.User, error) {
	var result *domain.User
	err := RunCAS(ctx, r.cas, r.logger, "user_update", func(ctx context.Context) error {
		user, err := r.Get(ctx, userID)
		if err != nil {
			return err
		}
		if input.DisplayName != nil {
			user.DisplayName = *input.DisplayName
		}
		if input.Email != nil {
			user.Email = *input.Email
		}

		expected := user.Version
		user.Version = expected + 1
		user.UpdatedAt = domain.NowISO()

		item, err := marshalItem(user)
		if err != nil {
			return err
		}
		if err := r.store.PutItem(ctx, item, PutOptions{ExpectedVersion: &expected}); err != nil {
			return err
		}
		result = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateToken stores one refresh token in the user's partition.
func (r *UserRepository) CreateToken(ctx context.Context, token *domain.RefreshToken) error {
	item, err := marshalItem(token)
	if err != nil {
		return err
	}
	return r.store.PutItem(ctx, item, PutOptions{IfNotExists: true})
}

// DeleteToken revokes a single refresh token.
func (r *UserRepository) DeleteToken(ctx context.Context, userID, tokenID string) error {
	pk, err := keys.UserPK(userID)
	if err != nil {
		return err
	}
	sk, err := keys.TokenSK(tokenID)
	if err != nil {
		return err
	}
	return r.store.DeleteItem(ctx, pk, sk)
}

// ListTokens returns every live refresh token of one user.
func (r *UserRepository) ListTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	pk, err := keys.UserPK(userID)
	if err != nil {
		return nil, err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: pk, SortKeyPrefix: keys.TokenSKPrefix})
	if err != nil {
		return nil, err
	}
	tokens := make([]domain.RefreshToken, 0, len(items))
	for _, item := range items {
		token, err := unmarshalItem[domain.RefreshToken](item)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *token)
	}
	return tokens, nil
}

// DeleteAllTokens revokes every session of one user, chunked to the
// store's batch limit.
func (r *UserRepository) DeleteAllTokens(ctx context.Context, userID string) error {
	pk, err := keys.UserPK(userID)
	if err != nil {
		return err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: pk, SortKeyPrefix: keys.TokenSKPrefix})
	if err != nil {
		return appErrors.Wrap(err, "failed to list tokens for bulk revocation")
	}
	reqs := make([]WriteRequest, 0, len(items))
	for _, item := range items {
		key := ItemKey(item)
		reqs = append(reqs, WriteRequest{Delete: &key})
	}
	r.logger.Debug("revoking all tokens",
		zap.String("user_id", userID),
		zap.Int("token_count", len(reqs)))
	return r.batch.Run(ctx, reqs)
}

// Delete removes a user and everything in their partition.
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	pk, err := keys.UserPK(userID)
	if err != nil {
		return err
	}
	items, err := r.store.Query(ctx, QuerySpec{PartitionKey: pk})
	if err != nil {
		return appErrors.Wrap(err, fmt.Sprintf("failed to list items of user %s for deletion", userID))
	}
	reqs := make([]WriteRequest, 0, len(items))
	for _, item := range items {
		key := ItemKey(item)
		reqs = append(reqs, WriteRequest{Delete: &key})
	}
	return r.batch.Run(ctx, reqs)
}
