package main

import (
	"context"
	"log/slog"
	"os"

	"beacon/config"
	"beacon/internal/delivery"
	"beacon/internal/delivery/http"
	"beacon/internal/delivery/http/middleware"
	"beacon/internal/delivery/http/router/handler"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"
	"beacon/internal/infra/content"
	logs "beacon/internal/infra/log"
	"beacon/internal/infra/persistence/postgres"
	"beacon/internal/infra/pubsub"
	"beacon/internal/usecase"
	"beacon/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewTokenRepository,
			postgres.NewSubscriptionRepository,
			postgres.NewQueueRepository,
			postgres.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		pubsub.Module,
		fx.Provide(
			newContentSource,
		),
	)
}

// newContentSource creates the content platform client
func newContentSource(cfg *config.Config) service.ContentSource {
	return content.NewHTTPContentSource(cfg.ContentSource)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			newTokenUsecase,
			impl.NewSubscriptionService,
			impl.NewMigrationService,
			impl.NewNotificationService,
		),
	)
}

// newTokenUsecase creates the token use case with the configured per-user cap
func newTokenUsecase(tokenRepo repository.TokenRepository, cfg *config.Config) usecase.TokenUsecase {
	return impl.NewTokenService(tokenRepo, cfg.Push.TokenCapPerUser)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewTokenHandler,
			handler.NewSubscriptionHandler,
			handler.NewMigrationHandler,
			handler.NewNotificationHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
