// Package handler contains the echo handlers of the public API.
package handler

import (
	"log/slog"
	"net/http"

	"beacon/internal/delivery/http/middleware"
	"beacon/internal/delivery/http/response"
	"beacon/internal/domain/entity"
	"beacon/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// TokenHandlerParams holds dependencies for TokenHandler, injected by Fx.
type TokenHandlerParams struct {
	fx.In

	TokenUC usecase.TokenUsecase
	Logger  *slog.Logger
}

// TokenHandler holds dependencies for device-token handlers
type TokenHandler struct {
	tokenUC usecase.TokenUsecase
	logger  *slog.Logger
}

// NewTokenHandler is the constructor for TokenHandler
func NewTokenHandler(params TokenHandlerParams) *TokenHandler {
	return &TokenHandler{
		tokenUC: params.TokenUC,
		logger:  params.Logger,
	}
}

// RegisterTokenRequest represents the request body for registering a device token
type RegisterTokenRequest struct {
	Service string `json:"service" validate:"required"`
	Token   string `json:"token" validate:"required"`
	// UUID lets a client that minted its own token id keep it; omitted, the
	// store assigns one.
	UUID string `json:"uuid,omitempty" validate:"omitempty,uuid"`
}

// RegisterTokenResponse carries the stable client-facing token id.
type RegisterTokenResponse struct {
	UUID uuid.UUID `json:"uuid"`
}

// RegisterToken handles registering or rebinding a device token
func (h *TokenHandler) RegisterToken(c echo.Context) error {
	owner, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_IDENTITY", "Request carries no user or guest identity")
	}

	var req RegisterTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid token registration input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	var clientID uuid.UUID
	if req.UUID != "" {
		parsed, err := uuid.Parse(req.UUID)
		if err != nil {
			return response.BadRequest(c, "INVALID_ID", "Invalid token UUID")
		}
		clientID = parsed
	}

	id, err := h.tokenUC.RegisterToken(c.Request().Context(), owner, &usecase.TokenRegistration{
		Service: entity.PushService(req.Service),
		Token:   req.Token,
		UUID:    clientID,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, RegisterTokenResponse{UUID: id}, "Token registered successfully")
}

// DeleteToken handles removing a device token by its UUID
func (h *TokenHandler) DeleteToken(c echo.Context) error {
	owner, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_IDENTITY", "Request carries no user or guest identity")
	}

	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid token UUID")
	}

	if err := h.tokenUC.DeleteToken(c.Request().Context(), owner, id); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, nil, "Token deleted successfully")
}
