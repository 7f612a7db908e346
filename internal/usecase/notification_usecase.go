package usecase

import (
	"context"

	"beacon/internal/domain/entity"
)

// NotificationUsecase defines the interface for notification publishing use cases
type NotificationUsecase interface {
	// PublishNotification validates the targets, composes the payload and
	// enqueues it for delivery. The author, when present, is excluded from
	// the recipient set at delivery time. Returns the queue entry id.
	PublishNotification(ctx context.Context, author *entity.Identity, targets []entity.Target, msg entity.PushMessage) (int64, error)
}
