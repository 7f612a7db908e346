package handler

import (
	"log/slog"
	"net/http"

	"beacon/internal/delivery/http/middleware"
	"beacon/internal/delivery/http/response"
	"beacon/internal/domain/entity"
	"beacon/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// NotificationHandlerParams holds dependencies for NotificationHandler, injected by Fx.
type NotificationHandlerParams struct {
	fx.In

	NotificationUC usecase.NotificationUsecase
	Logger         *slog.Logger
}

// NotificationHandler holds dependencies for notification publishing handlers
type NotificationHandler struct {
	notificationUC usecase.NotificationUsecase
	logger         *slog.Logger
}

// NewNotificationHandler is the constructor for NotificationHandler
func NewNotificationHandler(params NotificationHandlerParams) *NotificationHandler {
	return &NotificationHandler{
		notificationUC: params.NotificationUC,
		logger:         params.Logger,
	}
}

// PublishRequest represents the request body for publishing a notification
type PublishRequest struct {
	Targets []struct {
		ObjectType string `json:"object_type" validate:"required"`
		ObjectID   int64  `json:"object_id" validate:"required,gt=0"`
	} `json:"targets" validate:"required,min=1,dive"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Body     string `json:"body"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
}

// PublishResponse carries the queue entry id of the accepted notification.
type PublishResponse struct {
	EntryID int64 `json:"entry_id"`
}

// Publish enqueues a notification for asynchronous delivery. The caller,
// when identified, never receives their own notification.
func (h *NotificationHandler) Publish(c echo.Context) error {
	var req PublishRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid notification input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	targets := make([]entity.Target, 0, len(req.Targets))
	for _, t := range req.Targets {
		targets = append(targets, entity.Target{ObjectType: t.ObjectType, ObjectID: t.ObjectID})
	}

	msg := entity.PushMessage{
		Title:    req.Title,
		Subtitle: req.Subtitle,
		Body:     req.Body,
		URL:      req.URL,
		ImageURL: req.ImageURL,
	}

	var author *entity.Identity
	if identity, ok := middleware.GetIdentity(c); ok {
		author = &identity
	}

	entryID, err := h.notificationUC.PublishNotification(c.Request().Context(), author, targets, msg)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusAccepted, PublishResponse{EntryID: entryID}, "Notification enqueued")
}
