// Package worker hosts the queue worker's HTTP surface and tick loop.
package worker

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"beacon/config"
	"beacon/internal/delivery"
	"beacon/internal/delivery/middleware"
	"beacon/internal/delivery/worker/handler"
	"beacon/internal/domain/lifecycle"
	"beacon/internal/usecase"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

type workerServer struct {
	cfg      *config.Config
	logger   *slog.Logger
	server   *echo.Echo
	workerUC usecase.WorkerUsecase

	tickCancel context.CancelFunc
}

// ServerParams holds dependencies for the worker server
type ServerParams struct {
	fx.In

	Lc          fx.Lifecycle
	Cfg         *config.Config
	Logger      *slog.Logger
	WorkerUC    usecase.WorkerUsecase
	TickHandler *handler.TickHandler
}

// NewServer creates a new worker HTTP server
func NewServer(params ServerParams) (delivery.Delivery, error) {
	e := echo.New()
	e.HideBanner = true

	// Recover first so panics are caught before any other middleware
	e.Use(echomiddleware.Recover())

	requestIDMiddleware := middleware.NewRequestIDMiddleware(params.Logger)
	e.Use(requestIDMiddleware.Process)

	loggerMiddleware := middleware.NewLoggerMiddleware(params.Logger, params.Cfg)
	e.Use(loggerMiddleware.Handle)

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// Prometheus metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Pub/Sub push endpoint and cron-style manual trigger
	e.POST("/push", params.TickHandler.HandlePush)
	e.POST("/tick", params.TickHandler.HandleTick)

	srv := &workerServer{
		cfg:      params.Cfg,
		logger:   params.Logger,
		server:   e,
		workerUC: params.WorkerUC,
	}

	params.Lc.Append(fx.Hook{
		OnStart: srv.startTickLoop,
		OnStop:  srv.stop,
	})

	return srv, nil
}

// Serve starts the worker HTTP server
func (s *workerServer) Serve(ctx context.Context) error {
	hostPort := net.JoinHostPort("0.0.0.0", strconv.Itoa(s.cfg.HTTP.Port))
	s.logger.Info("Starting Worker HTTP server", slog.String("hostPort", hostPort))
	if err := s.server.Start(hostPort); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// startTickLoop launches the periodic queue pass. Wake events and manual
// ticks only shorten latency; this loop guarantees progress.
func (s *workerServer) startTickLoop(_ context.Context) error {
	interval := s.cfg.Queue.TickInterval
	if interval <= 0 {
		s.logger.Info("Tick loop disabled, relying on push and manual triggers")

		return nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.tickCancel = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if _, err := s.workerUC.Tick(loopCtx); err != nil {
					s.logger.Error("scheduled tick failed", slog.Any("error", err))
				}
			}
		}
	}()

	s.logger.Info("Tick loop started", slog.Duration("interval", interval))

	return nil
}

// stop gracefully shuts down the worker server
func (s *workerServer) stop(ctx context.Context) error {
	if s.tickCancel != nil {
		s.tickCancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()

	s.logger.Info("Shutting down Worker HTTP server")

	return errors.WithStack(s.server.Shutdown(shutdownCtx))
}
