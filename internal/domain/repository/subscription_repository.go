// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"beacon/internal/domain/entity"
	"beacon/internal/errors"
)

// Domain-specific errors for subscription persistence.
var (
	// ErrSubscriptionNotFound is returned when a subscription is not found.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrDuplicateSubscription is returned when an insert collides with the
	// (owner, object_type, object_id) uniqueness constraint.
	ErrDuplicateSubscription = errors.New("subscription already exists")
)

// SubscriptionRepository defines the interface for subscription database
// operations.
type SubscriptionRepository interface {
	// CreateSubscription persists a new subscription. A uniqueness
	// violation surfaces as ErrDuplicateSubscription so callers can treat
	// re-subscribing as success.
	CreateSubscription(ctx context.Context, subscription *entity.Subscription) error

	// DeleteSubscription removes the owner's subscription to target. The
	// return value reports whether a row existed; absence is not an error.
	DeleteSubscription(ctx context.Context, owner entity.Identity, target entity.Target) (bool, error)

	// HasSubscription reports whether owner currently follows target.
	HasSubscription(ctx context.Context, owner entity.Identity, target entity.Target) (bool, error)

	// CountSubscriberTokens counts the distinct device tokens whose owner
	// holds a subscription to any of the targets.
	CountSubscriberTokens(ctx context.Context, targets []entity.Target) (int64, error)

	// DeleteSubscriptionsByGuest bulk-deletes all subscriptions of a guest
	// session and returns the number removed.
	DeleteSubscriptionsByGuest(ctx context.Context, guestID string) (int64, error)

	// MigrateGuestSubscriptions reassigns all subscriptions of a guest to a
	// user. Rows whose (object_type, object_id) already exists under the
	// user are discarded. Returns the number reassigned. Must be called on
	// a transaction-bound repository.
	MigrateGuestSubscriptions(ctx context.Context, guestID string, userID int64) (int64, error)
}
