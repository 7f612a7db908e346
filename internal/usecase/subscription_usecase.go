package usecase

import (
	"context"

	"beacon/internal/domain/entity"
)

// SubscriptionUsecase defines the interface for subscription management use cases
type SubscriptionUsecase interface {
	// Subscribe records owner following target. Subscribing to an already
	// followed target succeeds without a new row.
	Subscribe(ctx context.Context, owner entity.Identity, target entity.Target) error

	// Unsubscribe removes owner's subscription to target. Unsubscribing
	// from a target never followed succeeds.
	Unsubscribe(ctx context.Context, owner entity.Identity, target entity.Target) error

	// IsSubscribed reports whether owner currently follows target.
	IsSubscribed(ctx context.Context, owner entity.Identity, target entity.Target) (bool, error)

	// CountSubscribers returns the number of device tokens a notification
	// to the targets would reach.
	CountSubscribers(ctx context.Context, targets []entity.Target) (int64, error)
}
