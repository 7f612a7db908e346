package impl

import (
	"context"
	"fmt"

	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"
	"beacon/internal/errors"
	"beacon/internal/usecase"
)

type subscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	contentSource    service.ContentSource
}

// NewSubscriptionService creates a new subscription service instance
func NewSubscriptionService(
	subscriptionRepo repository.SubscriptionRepository,
	contentSource service.ContentSource,
) usecase.SubscriptionUsecase {
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		contentSource:    contentSource,
	}
}

// Subscribe records owner following target after validating the target
// against the content platform. Subscribing twice succeeds without a new row.
func (s *subscriptionService) Subscribe(ctx context.Context, owner entity.Identity, target entity.Target) error {
	if !owner.Valid() {
		return domainerrors.ErrInvalidIdentity
	}

	if err := s.validateTarget(ctx, target); err != nil {
		return err
	}

	subscription := &entity.Subscription{
		Owner:  owner,
		Target: target,
	}

	if err := s.subscriptionRepo.CreateSubscription(ctx, subscription); err != nil {
		// An existing row means the caller already follows the target.
		if errors.Is(err, repository.ErrDuplicateSubscription) {
			return nil
		}

		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// Unsubscribe removes owner's subscription to target. Unsubscribing from a
// target never followed succeeds, keeping the operation idempotent.
func (s *subscriptionService) Unsubscribe(ctx context.Context, owner entity.Identity, target entity.Target) error {
	if !owner.Valid() {
		return domainerrors.ErrInvalidIdentity
	}

	if _, err := s.subscriptionRepo.DeleteSubscription(ctx, owner, target); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	return nil
}

// IsSubscribed reports whether owner currently follows target.
func (s *subscriptionService) IsSubscribed(ctx context.Context, owner entity.Identity, target entity.Target) (bool, error) {
	if !owner.Valid() {
		return false, domainerrors.ErrInvalidIdentity
	}

	subscribed, err := s.subscriptionRepo.HasSubscription(ctx, owner, target)
	if err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}

	return subscribed, nil
}

// CountSubscribers returns the number of device tokens a notification to the
// targets would currently reach.
func (s *subscriptionService) CountSubscribers(ctx context.Context, targets []entity.Target) (int64, error) {
	count, err := s.subscriptionRepo.CountSubscriberTokens(ctx, targets)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscriber tokens: %w", err)
	}

	return count, nil
}

// validateTarget checks the target against the content platform: the type
// must be in the fixed vocabulary, the entity must exist and the request
// principal must be allowed to read it.
func (s *subscriptionService) validateTarget(ctx context.Context, target entity.Target) error {
	if !target.Valid() {
		return domainerrors.ErrUnknownContentType
	}

	types, err := s.contentSource.EntityTypes(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch entity types: %w", err)
	}
	if _, ok := types[target.ObjectType]; !ok {
		return domainerrors.ErrUnknownContentType
	}

	content, err := s.contentSource.Content(ctx, target.ObjectType, target.ObjectID)
	if err != nil {
		return fmt.Errorf("failed to fetch content: %w", err)
	}
	if content == nil {
		return domainerrors.ErrContentNotFound
	}

	allowed, err := s.contentSource.CurrentUserCan(ctx, service.ActionRead, target.ObjectType, target.ObjectID)
	if err != nil {
		return fmt.Errorf("failed to check permission: %w", err)
	}
	if !allowed {
		return domainerrors.ErrPermissionDenied
	}

	return nil
}
