// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"beacon/internal/delivery/http/middleware"
	"beacon/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	TokenHandler        *handler.TokenHandler
	SubscriptionHandler *handler.SubscriptionHandler
	MigrationHandler    *handler.MigrationHandler
	NotificationHandler *handler.NotificationHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	tokenHandler        *handler.TokenHandler
	subscriptionHandler *handler.SubscriptionHandler
	migrationHandler    *handler.MigrationHandler
	notificationHandler *handler.NotificationHandler
	authMiddleware      *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		tokenHandler:        params.TokenHandler,
		subscriptionHandler: params.SubscriptionHandler,
		migrationHandler:    params.MigrationHandler,
		notificationHandler: params.NotificationHandler,
		authMiddleware:      params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	api := e.Group("/api")
	api.Use(r.authMiddleware.Identify)

	// Device-token routes; both users and guests register tokens
	tokenGroup := api.Group("/tokens")
	tokenGroup.Use(r.authMiddleware.RequireIdentity)
	{
		tokenGroup.POST("", r.tokenHandler.RegisterToken)
		tokenGroup.DELETE("/:uuid", r.tokenHandler.DeleteToken)
	}

	// Subscription routes
	subscriptionGroup := api.Group("/subscriptions")
	{
		subscriptionGroup.POST("", r.subscriptionHandler.Subscribe, r.authMiddleware.RequireIdentity)
		subscriptionGroup.DELETE("", r.subscriptionHandler.Unsubscribe, r.authMiddleware.RequireIdentity)
		subscriptionGroup.GET("", r.subscriptionHandler.IsSubscribed, r.authMiddleware.RequireIdentity)
		subscriptionGroup.GET("/count", r.subscriptionHandler.CountSubscribers)
	}

	// Guest-to-user migration; requires an authenticated user
	api.POST("/migrations", r.migrationHandler.Migrate, r.authMiddleware.RequireUser)

	// Guest session teardown; the session proves itself with its own token
	api.DELETE("/guests", r.migrationHandler.PurgeGuest, r.authMiddleware.RequireIdentity)

	// Notification publishing; the platform calls this server-to-server
	api.POST("/notifications", r.notificationHandler.Publish)
}
