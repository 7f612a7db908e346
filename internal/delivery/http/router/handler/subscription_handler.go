package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"beacon/internal/delivery/http/middleware"
	"beacon/internal/delivery/http/response"
	"beacon/internal/domain/entity"
	"beacon/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// SubscriptionHandlerParams holds dependencies for SubscriptionHandler, injected by Fx.
type SubscriptionHandlerParams struct {
	fx.In

	SubscriptionUC usecase.SubscriptionUsecase
	Logger         *slog.Logger
}

// SubscriptionHandler holds dependencies for subscription-related handlers
type SubscriptionHandler struct {
	subscriptionUC usecase.SubscriptionUsecase
	logger         *slog.Logger
}

// NewSubscriptionHandler is the constructor for SubscriptionHandler
func NewSubscriptionHandler(params SubscriptionHandlerParams) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionUC: params.SubscriptionUC,
		logger:         params.Logger,
	}
}

// SubscriptionRequest represents the request body for following content
type SubscriptionRequest struct {
	ObjectType string `json:"object_type" validate:"required"`
	ObjectID   int64  `json:"object_id" validate:"required,gt=0"`
}

// Subscribe handles following a piece of content
func (h *SubscriptionHandler) Subscribe(c echo.Context) error {
	owner, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_IDENTITY", "Request carries no user or guest identity")
	}

	var req SubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid subscription input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	target := entity.Target{ObjectType: req.ObjectType, ObjectID: req.ObjectID}
	if err := h.subscriptionUC.Subscribe(c.Request().Context(), owner, target); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, nil, "Subscribed successfully")
}

// Unsubscribe handles unfollowing a piece of content
func (h *SubscriptionHandler) Unsubscribe(c echo.Context) error {
	owner, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_IDENTITY", "Request carries no user or guest identity")
	}

	target, err := targetFromQuery(c)
	if err != nil {
		return response.BadRequest(c, "INVALID_TARGET", "Invalid target in query")
	}

	if err := h.subscriptionUC.Unsubscribe(c.Request().Context(), owner, target); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, nil, "Unsubscribed successfully")
}

// IsSubscribed reports whether the caller follows the queried content
func (h *SubscriptionHandler) IsSubscribed(c echo.Context) error {
	owner, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_IDENTITY", "Request carries no user or guest identity")
	}

	target, err := targetFromQuery(c)
	if err != nil {
		return response.BadRequest(c, "INVALID_TARGET", "Invalid target in query")
	}

	subscribed, err := h.subscriptionUC.IsSubscribed(c.Request().Context(), owner, target)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]bool{"subscribed": subscribed}, "")
}

// CountSubscribers reports how many device tokens a notification would reach
func (h *SubscriptionHandler) CountSubscribers(c echo.Context) error {
	target, err := targetFromQuery(c)
	if err != nil {
		return response.BadRequest(c, "INVALID_TARGET", "Invalid target in query")
	}

	count, err := h.subscriptionUC.CountSubscribers(c.Request().Context(), []entity.Target{target})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]int64{"count": count}, "")
}

func targetFromQuery(c echo.Context) (entity.Target, error) {
	objectID, err := strconv.ParseInt(c.QueryParam("object_id"), 10, 64)
	if err != nil {
		return entity.Target{}, err
	}

	target := entity.Target{
		ObjectType: c.QueryParam("object_type"),
		ObjectID:   objectID,
	}
	if !target.Valid() {
		return entity.Target{}, echo.ErrBadRequest
	}

	return target, nil
}
