// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/repository"
	"beacon/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// tokenRepository implements the repository.TokenRepository interface.
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository is the constructor for tokenRepository.
func NewTokenRepository(db *gorm.DB) repository.TokenRepository {
	return &tokenRepository{
		db: db,
	}
}

// CreateToken persists a new device token.
func (repo *tokenRepository) CreateToken(ctx context.Context, token *entity.DeviceToken) error {
	tokenM := fromTokenDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateToken
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrInvalidIdentity.WrapMessage("missing required token information")
		}

		return domainerrors.NewStorageWriteError(err, "failed to create device token")
	}

	// Update the entity with generated values
	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt
	token.UpdatedAt = tokenM.UpdatedAt

	return nil
}

// FindTokenByProviderToken retrieves the live record for a (service, provider token) pair.
func (repo *tokenRepository) FindTokenByProviderToken(ctx context.Context, service entity.PushService, token string) (*entity.DeviceToken, error) {
	var tokenM model.DeviceTokenModel

	if err := repo.db.WithContext(ctx).
		Where("service = ? AND token = ?", service.String(), token).
		First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrTokenNotFound
		}

		return nil, errors.Wrap(err, "failed to find token by provider token")
	}

	return toTokenDomain(&tokenM), nil
}

// RebindToken reassigns ownership of an existing token row and refreshes its
// last-active timestamp. The client-facing UUID stays untouched.
func (repo *tokenRepository) RebindToken(ctx context.Context, id int64, owner entity.Identity, lastActiveAt time.Time) error {
	userID, guestID := ownerColumns(owner)

	result := repo.db.WithContext(ctx).
		Model(&model.DeviceTokenModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"user_id":        userID,
			"guest_id":       guestID,
			"last_active_at": lastActiveAt,
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to rebind token")
	}

	if result.RowsAffected == 0 {
		return repository.ErrTokenNotFound
	}

	return nil
}

// CountTokensByUser returns the number of tokens a user currently holds.
func (repo *tokenRepository) CountTokensByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64

	if err := repo.db.WithContext(ctx).
		Model(&model.DeviceTokenModel{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count tokens by user")
	}

	return count, nil
}

// DeleteOldestTokenByUser evicts the user's token with the smallest id.
func (repo *tokenRepository) DeleteOldestTokenByUser(ctx context.Context, userID int64) error {
	if err := repo.db.WithContext(ctx).
		Where("id = (?)", repo.db.
			Model(&model.DeviceTokenModel{}).
			Select("id").
			Where("user_id = ?", userID).
			Order("id ASC").
			Limit(1),
		).
		Delete(&model.DeviceTokenModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete oldest token by user")
	}

	return nil
}

// DeleteTokenByUUID deletes a token only when it is owned by owner.
func (repo *tokenRepository) DeleteTokenByUUID(ctx context.Context, id uuid.UUID, owner entity.Identity) (bool, error) {
	query, args := ownerCondition(owner)

	result := repo.db.WithContext(ctx).
		Where("uuid = ?", id).
		Where(query, args...).
		Delete(&model.DeviceTokenModel{})

	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to delete token by UUID")
	}

	return result.RowsAffected > 0, nil
}

// DeleteTokensByGuest bulk-deletes all tokens of a guest session.
func (repo *tokenRepository) DeleteTokensByGuest(ctx context.Context, guestID string) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("guest_id = ?", guestID).
		Delete(&model.DeviceTokenModel{})

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete tokens by guest")
	}

	return result.RowsAffected, nil
}

// DeleteTokensByValue removes rows whose provider token is in tokens.
func (repo *tokenRepository) DeleteTokensByValue(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	result := repo.db.WithContext(ctx).
		Where("token IN ?", tokens).
		Delete(&model.DeviceTokenModel{})

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete tokens by value")
	}

	return result.RowsAffected, nil
}

// TouchTokens refreshes last_active_at for the given ids.
func (repo *tokenRepository) TouchTokens(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	if err := repo.db.WithContext(ctx).
		Model(&model.DeviceTokenModel{}).
		Where("id IN ?", ids).
		Update("last_active_at", at).Error; err != nil {
		return errors.Wrap(err, "failed to touch tokens")
	}

	return nil
}

// FindTokensForTargets returns the distinct tokens whose owner holds a
// subscription to any of the targets. The join matches on identity equality,
// so a guest's tokens pair only with that guest's subscriptions and a user's
// tokens only with that user's.
func (repo *tokenRepository) FindTokensForTargets(ctx context.Context, targets []entity.Target, exclude *entity.Identity) ([]*entity.DeviceToken, error) {
	if len(targets) == 0 {
		return []*entity.DeviceToken{}, nil
	}

	query := `
		SELECT DISTINCT t.*
		FROM device_tokens t
		JOIN subscriptions s
		  ON (t.user_id IS NOT NULL AND s.user_id = t.user_id)
		  OR (t.guest_id IS NOT NULL AND s.guest_id = t.guest_id)
		WHERE (s.object_type, s.object_id) IN `

	query += targetTuples(len(targets))

	args := make([]any, 0, len(targets)*2+1)
	for _, target := range targets {
		args = append(args, target.ObjectType, target.ObjectID)
	}

	if exclude != nil {
		if userID, ok := exclude.UserID(); ok {
			query += " AND (t.user_id IS NULL OR t.user_id <> ?)"
			args = append(args, userID)
		} else if guestID, ok := exclude.GuestID(); ok {
			query += " AND (t.guest_id IS NULL OR t.guest_id <> ?)"
			args = append(args, guestID)
		}
	}

	query += " ORDER BY t.id ASC"

	var tokenModels []*model.DeviceTokenModel
	if err := repo.db.WithContext(ctx).
		Raw(query, args...).
		Scan(&tokenModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find tokens for targets")
	}

	tokens := make([]*entity.DeviceToken, 0, len(tokenModels))
	for _, tokenM := range tokenModels {
		tokens = append(tokens, toTokenDomain(tokenM))
	}

	return tokens, nil
}

// MigrateGuestTokens reassigns all tokens of a guest to a user. Rows whose
// (service, token) pair already exists under the user are discarded first so
// the reassignment cannot trip the uniqueness constraint.
func (repo *tokenRepository) MigrateGuestTokens(ctx context.Context, guestID string, userID int64) (int64, error) {
	discard := `
		DELETE FROM device_tokens g
		WHERE g.guest_id = ?
		  AND EXISTS (
		    SELECT 1
		    FROM device_tokens u
		    WHERE u.user_id = ?
		      AND u.service = g.service
		      AND u.token = g.token
		  )`

	if err := repo.db.WithContext(ctx).Exec(discard, guestID, userID).Error; err != nil {
		return 0, errors.Wrap(err, "failed to discard conflicting guest tokens")
	}

	result := repo.db.WithContext(ctx).
		Model(&model.DeviceTokenModel{}).
		Where("guest_id = ?", guestID).
		Updates(map[string]any{
			"user_id":  userID,
			"guest_id": nil,
		})

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to reassign guest tokens")
	}

	return result.RowsAffected, nil
}

// targetTuples renders a parameterized tuple list of the form
// ((?, ?), (?, ?), ...) for n targets.
func targetTuples(n int) string {
	const tuple = "(?, ?)"

	out := make([]byte, 0, 2+len(tuple)*n+2*(n-1))
	out = append(out, '(')
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ", "...)
		}
		out = append(out, tuple...)
	}
	out = append(out, ')')

	return string(out)
}

// --- Mapper Functions ---

// toTokenDomain converts a GORM DeviceTokenModel to a domain DeviceToken entity.
func toTokenDomain(data *model.DeviceTokenModel) *entity.DeviceToken {
	if data == nil {
		return nil
	}

	return &entity.DeviceToken{
		ID:           data.ID,
		UUID:         data.UUID,
		Owner:        ownerFromColumns(data.UserID, data.GuestID),
		Service:      entity.PushService(data.Service),
		Token:        data.Token,
		LastActiveAt: data.LastActiveAt,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}

// fromTokenDomain converts a domain DeviceToken entity to a GORM DeviceTokenModel.
func fromTokenDomain(data *entity.DeviceToken) *model.DeviceTokenModel {
	if data == nil {
		return nil
	}

	userID, guestID := ownerColumns(data.Owner)

	return &model.DeviceTokenModel{
		ID:           data.ID,
		UUID:         data.UUID,
		UserID:       userID,
		GuestID:      guestID,
		Service:      data.Service.String(),
		Token:        data.Token,
		LastActiveAt: data.LastActiveAt,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}
