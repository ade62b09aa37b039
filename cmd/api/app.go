package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notification"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

type application struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
	redis  *persistence.Redis
	fiber  *fiber.App
	worker *worker.NotificationWorker
}

func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*application, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	pool := pg.PoolHandle()
	if pool == nil {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	app := &application{cfg: cfg, logger: logger, pg: pg, redis: redis}

	location, err := cfg.SLA.Location()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("load SLA timezone: %w", err)
	}
	signer, err := storage.NewSigner(ctx, cfg.Storage)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init storage signer: %w", err)
	}

	userRepo := repository.NewUserRepository(pool)
	areaRepo := repository.NewAreaRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	queue := notification.NewRedisQueue(redis.Client, cfg.Notification.QueueKey)
	service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Queue:      queue,
		UserRepo:   userRepo,
		BaseURL:    cfg.App.BaseURL,
		Logger:     logger,
	}).RegisterHandlers()

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: repository.NewPasswordResetRepository(pool),
		Dispatcher:        dispatcher,
		Logger:            logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		AreaRepo:       areaRepo,
		UserRepo:       userRepo,
		CommentRepo:    repository.NewCommentRepository(pool),
		AttachmentRepo: repository.NewAttachmentRepository(pool),
		HistoryRepo:    repository.NewTicketHistoryRepository(pool),
		Dispatcher:     dispatcher,
		Signer:         signer,
		Logger:         logger,
		Location:       location,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Logger:     logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   userRepo,
		AreaRepo:   areaRepo,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})

	metrics := observability.NewMetrics()
	fiberApp := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(fiberApp, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(fiberApp, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService),
		Areas:          handlers.NewAreasHandler(service.NewAreaService(areaRepo, userRepo)),
		AdminUsers:     handlers.NewAdminUsersHandler(userService),
		Dashboard:      handlers.NewDashboardHandler(service.NewDashboardService(ticketRepo), metrics),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
	})
	app.fiber = fiberApp

	if cfg.App.RunWorker {
		w, err := newNotificationWorker(cfg, redis, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.worker = w
	}
	return app, nil
}

// Serve listens until ctx is cancelled, then drains in-flight requests.
func (a *application) Serve(ctx context.Context) error {
	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	if a.worker != nil {
		go func() {
			defer close(workerDone)
			if err := a.worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("notification worker stopped", zap.Error(err))
			}
		}()
	} else {
		close(workerDone)
	}

	listenErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.cfg.App.Addr()))
		listenErr <- a.fiber.Listen(a.cfg.App.Addr())
	}()

	var err error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case err = <-listenErr:
		a.logger.Error("fiber listen", zap.Error(err))
	}

	if shutdownErr := a.fiber.ShutdownWithTimeout(shutdownTimeout); shutdownErr != nil {
		a.logger.Warn("http shutdown", zap.Error(shutdownErr))
	}
	stopWorker()
	<-workerDone
	return err
}

func (a *application) Close() {
	a.redis.Close()
	a.pg.Close()
}

func newNotificationWorker(cfg *config.Config, redis *persistence.Redis, logger *zap.Logger) (*worker.NotificationWorker, error) {
	renderer, err := notification.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	mailer, err := notification.NewMailer(cfg.Notification, logger)
	if err != nil {
		return nil, fmt.Errorf("init mailer: %w", err)
	}
	queue := notification.NewRedisQueue(redis.Client, cfg.Notification.QueueKey)
	return worker.NewNotificationWorker(queue, renderer, mailer, logger, worker.NotificationWorkerConfig{
		MaxAttempts: cfg.Notification.MaxAttempts,
		PollTimeout: cfg.Notification.PollTimeout(),
	}), nil
}
