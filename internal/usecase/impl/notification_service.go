package impl

import (
	"context"
	"fmt"
	"log/slog"

	deliverycontext "beacon/internal/delivery/context"
	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"
	"beacon/internal/errors"
	"beacon/internal/usecase"
)

// ErrNoTargets is returned when a publish request names no targets.
var ErrNoTargets = errors.New("notification must name at least one target")

type notificationService struct {
	queueRepo     repository.QueueRepository
	contentSource service.ContentSource
	publisher     service.EventPublisher
	logger        *slog.Logger
}

// NewNotificationService creates a new notification service instance
func NewNotificationService(
	queueRepo repository.QueueRepository,
	contentSource service.ContentSource,
	publisher service.EventPublisher,
	logger *slog.Logger,
) usecase.NotificationUsecase {
	return &notificationService{
		queueRepo:     queueRepo,
		contentSource: contentSource,
		publisher:     publisher,
		logger:        logger,
	}
}

// PublishNotification validates the targets, fills message defaults from the
// primary target's content and enqueues the payload. Recipients are resolved
// at delivery time, so subscriptions added between enqueue and dispatch are
// still honored.
func (s *notificationService) PublishNotification(ctx context.Context, author *entity.Identity, targets []entity.Target, msg entity.PushMessage) (int64, error) {
	if len(targets) == 0 {
		return 0, ErrNoTargets
	}

	types, err := s.contentSource.EntityTypes(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch entity types: %w", err)
	}
	for _, target := range targets {
		if !target.Valid() {
			return 0, domainerrors.ErrUnknownContentType
		}
		if _, ok := types[target.ObjectType]; !ok {
			return 0, domainerrors.ErrUnknownContentType
		}
	}

	primary := targets[0]
	content, err := s.contentSource.Content(ctx, primary.ObjectType, primary.ObjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch content: %w", err)
	}
	if content == nil {
		return 0, domainerrors.ErrContentNotFound
	}

	// Fill blanks from the content the notification is about.
	if msg.Title == "" {
		msg.Title = content.Title
	}
	if msg.URL == "" {
		msg.URL = content.URL
	}
	if msg.ImageURL == "" {
		msg.ImageURL = content.ImageURL
	}

	var authorIdentity entity.Identity
	if author != nil {
		authorIdentity = *author
	}

	payload := entity.NewNotificationPayload(targets, msg, authorIdentity)
	raw, err := payload.Encode()
	if err != nil {
		return 0, err
	}

	entryID, err := s.queueRepo.Enqueue(ctx, raw)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue notification: %w", err)
	}

	// The wake event is best effort; the worker tick delivers the entry
	// even when publishing fails.
	event := &service.QueueEvent{
		RequestID: deliverycontext.GetRequestIDFromContext(ctx),
		EntryID:   entryID,
		Targets:   len(targets),
	}
	if err := s.publisher.PublishQueueEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish queue wake event",
			slog.Int64("entry_id", entryID),
			slog.String("error", err.Error()),
		)
	}

	return entryID, nil
}
