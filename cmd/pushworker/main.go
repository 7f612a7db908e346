package main

import (
	"context"
	"log/slog"
	"os"

	"beacon/config"
	"beacon/internal/delivery"
	"beacon/internal/delivery/worker"
	"beacon/internal/delivery/worker/handler"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"
	logs "beacon/internal/infra/log"
	"beacon/internal/infra/notification"
	"beacon/internal/infra/persistence/postgres"
	"beacon/internal/usecase"
	"beacon/internal/usecase/impl"

	"github.com/pkg/errors"
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
		injectHandler(),
		injectDelivery(),
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
			postgres.NewQueueRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			newPushSender,
		),
	)
}

// newPushSender creates the Firebase-backed push sender. The worker cannot
// run without one.
func newPushSender(ctx context.Context, cfg *config.Config) (service.NotificationSender, error) {
	if cfg.Firebase == nil {
		return nil, errors.New("firebase configuration is required for the push worker")
	}

	return notification.NewFirebaseSender(ctx, cfg.Firebase)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			newWorkerUsecase,
		),
	)
}

// newWorkerUsecase creates the queue worker with the configured claim policy
func newWorkerUsecase(
	queueRepo repository.QueueRepository,
	tokenRepo repository.TokenRepository,
	sender service.NotificationSender,
	logger *slog.Logger,
	cfg *config.Config,
) usecase.WorkerUsecase {
	return impl.NewQueueWorkerService(queueRepo, tokenRepo, sender, logger, cfg.Queue)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewTickHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				worker.NewServer,
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
