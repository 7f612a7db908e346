package postgres

import (
	"context"

	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/repository"
	"beacon/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// subscriptionRepository implements the repository.SubscriptionRepository interface.
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository is the constructor for subscriptionRepository.
func NewSubscriptionRepository(db *gorm.DB) repository.SubscriptionRepository {
	return &subscriptionRepository{
		db: db,
	}
}

// CreateSubscription persists a new subscription relationship.
func (repo *subscriptionRepository) CreateSubscription(ctx context.Context, subscription *entity.Subscription) error {
	subscriptionM := fromSubscriptionDomain(subscription)

	if err := repo.db.WithContext(ctx).Create(subscriptionM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateSubscription
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrInvalidIdentity.WrapMessage("missing required subscription information")
		}

		return domainerrors.NewStorageWriteError(err, "failed to create subscription")
	}

	// Update the entity with generated values
	subscription.ID = subscriptionM.ID
	subscription.CreatedAt = subscriptionM.CreatedAt

	return nil
}

// DeleteSubscription removes the owner's subscription to target.
func (repo *subscriptionRepository) DeleteSubscription(ctx context.Context, owner entity.Identity, target entity.Target) (bool, error) {
	query, args := ownerCondition(owner)

	result := repo.db.WithContext(ctx).
		Where("object_type = ? AND object_id = ?", target.ObjectType, target.ObjectID).
		Where(query, args...).
		Delete(&model.SubscriptionModel{})

	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to delete subscription")
	}

	return result.RowsAffected > 0, nil
}

// HasSubscription reports whether owner currently follows target.
func (repo *subscriptionRepository) HasSubscription(ctx context.Context, owner entity.Identity, target entity.Target) (bool, error) {
	query, args := ownerCondition(owner)

	var count int64
	if err := repo.db.WithContext(ctx).
		Model(&model.SubscriptionModel{}).
		Where("object_type = ? AND object_id = ?", target.ObjectType, target.ObjectID).
		Where(query, args...).
		Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "failed to check subscription")
	}

	return count > 0, nil
}

// CountSubscriberTokens counts the distinct device tokens whose owner holds a
// subscription to any of the targets. The join mirrors the recipient
// resolution used at delivery time.
func (repo *subscriptionRepository) CountSubscriberTokens(ctx context.Context, targets []entity.Target) (int64, error) {
	if len(targets) == 0 {
		return 0, nil
	}

	query := `
		SELECT COUNT(DISTINCT t.id)
		FROM device_tokens t
		JOIN subscriptions s
		  ON (t.user_id IS NOT NULL AND s.user_id = t.user_id)
		  OR (t.guest_id IS NOT NULL AND s.guest_id = t.guest_id)
		WHERE (s.object_type, s.object_id) IN `

	query += targetTuples(len(targets))

	args := make([]any, 0, len(targets)*2)
	for _, target := range targets {
		args = append(args, target.ObjectType, target.ObjectID)
	}

	var count int64
	if err := repo.db.WithContext(ctx).
		Raw(query, args...).
		Scan(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count subscriber tokens")
	}

	return count, nil
}

// DeleteSubscriptionsByGuest bulk-deletes all subscriptions of a guest session.
func (repo *subscriptionRepository) DeleteSubscriptionsByGuest(ctx context.Context, guestID string) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("guest_id = ?", guestID).
		Delete(&model.SubscriptionModel{})

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete subscriptions by guest")
	}

	return result.RowsAffected, nil
}

// MigrateGuestSubscriptions reassigns all subscriptions of a guest to a user.
// Rows the user already holds for the same target are discarded first so the
// reassignment cannot trip the per-owner uniqueness constraint.
func (repo *subscriptionRepository) MigrateGuestSubscriptions(ctx context.Context, guestID string, userID int64) (int64, error) {
	discard := `
		DELETE FROM subscriptions g
		WHERE g.guest_id = ?
		  AND EXISTS (
		    SELECT 1
		    FROM subscriptions u
		    WHERE u.user_id = ?
		      AND u.object_type = g.object_type
		      AND u.object_id = g.object_id
		  )`

	if err := repo.db.WithContext(ctx).Exec(discard, guestID, userID).Error; err != nil {
		return 0, errors.Wrap(err, "failed to discard conflicting guest subscriptions")
	}

	result := repo.db.WithContext(ctx).
		Model(&model.SubscriptionModel{}).
		Where("guest_id = ?", guestID).
		Updates(map[string]any{
			"user_id":  userID,
			"guest_id": nil,
		})

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to reassign guest subscriptions")
	}

	return result.RowsAffected, nil
}

// --- Mapper Functions ---

// toSubscriptionDomain converts a GORM SubscriptionModel to a domain Subscription entity.
func toSubscriptionDomain(data *model.SubscriptionModel) *entity.Subscription {
	if data == nil {
		return nil
	}

	return &entity.Subscription{
		ID:    data.ID,
		Owner: ownerFromColumns(data.UserID, data.GuestID),
		Target: entity.Target{
			ObjectType: data.ObjectType,
			ObjectID:   data.ObjectID,
		},
		CreatedAt: data.CreatedAt,
	}
}

// fromSubscriptionDomain converts a domain Subscription entity to a GORM SubscriptionModel.
func fromSubscriptionDomain(data *entity.Subscription) *model.SubscriptionModel {
	if data == nil {
		return nil
	}

	userID, guestID := ownerColumns(data.Owner)

	return &model.SubscriptionModel{
		ID:         data.ID,
		UserID:     userID,
		GuestID:    guestID,
		ObjectType: data.Target.ObjectType,
		ObjectID:   data.Target.ObjectID,
		CreatedAt:  data.CreatedAt,
	}
}
