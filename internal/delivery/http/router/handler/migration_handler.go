package handler

import (
	"log/slog"
	"net/http"

	"beacon/internal/delivery/http/middleware"
	"beacon/internal/delivery/http/response"
	"beacon/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// MigrationHandlerParams holds dependencies for MigrationHandler, injected by Fx.
type MigrationHandlerParams struct {
	fx.In

	MigrationUC usecase.MigrationUsecase
	Logger      *slog.Logger
}

// MigrationHandler holds dependencies for identity migration handlers
type MigrationHandler struct {
	migrationUC usecase.MigrationUsecase
	logger      *slog.Logger
}

// NewMigrationHandler is the constructor for MigrationHandler
func NewMigrationHandler(params MigrationHandlerParams) *MigrationHandler {
	return &MigrationHandler{
		migrationUC: params.MigrationUC,
		logger:      params.Logger,
	}
}

// MigrateRequest represents the request body for a guest-to-user migration
type MigrateRequest struct {
	GuestToken string `json:"guest_token" validate:"required"`
}

// Migrate moves all state of a guest session to the authenticated user.
// The caller proves ownership of both sides: the user via the access token
// and the guest session via its opaque token in the body.
func (h *MigrationHandler) Migrate(c echo.Context) error {
	identity, ok := middleware.GetIdentity(c)
	if !ok || !identity.IsUser() {
		return response.Forbidden(c, "REQUIRES_USER", "Migration requires an authenticated user")
	}
	userID, _ := identity.UserID()

	var req MigrateRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid migration input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	report, err := h.migrationUC.MigrateGuest(c.Request().Context(), req.GuestToken, userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	h.logger.Info("guest migration finished",
		slog.Int64("user_id", userID),
		slog.Int64("tokens", report.TokensMigrated),
		slog.Int64("subscriptions", report.SubscriptionsMigrated),
	)

	return response.Success(c, http.StatusOK, report, "Migration completed successfully")
}

// PurgeGuest erases all state of the calling guest session, for guests that
// end without ever signing in. The session proves itself with its own token.
func (h *MigrationHandler) PurgeGuest(c echo.Context) error {
	identity, ok := middleware.GetIdentity(c)
	if !ok || !identity.IsGuest() {
		return response.Forbidden(c, "REQUIRES_GUEST", "Purge requires a guest session token")
	}
	guestID, _ := identity.GuestID()

	report, err := h.migrationUC.PurgeGuest(c.Request().Context(), guestID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	h.logger.Info("guest state purged",
		slog.Int64("tokens", report.TokensDeleted),
		slog.Int64("subscriptions", report.SubscriptionsDeleted),
	)

	return response.Success(c, http.StatusOK, report, "Guest state removed")
}
