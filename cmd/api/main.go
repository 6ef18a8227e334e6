package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/request-hub/internal/api/http"
	"github.com/spec-kit/request-hub/internal/api/http/handlers"
	"github.com/spec-kit/request-hub/internal/auth"
	"github.com/spec-kit/request-hub/internal/config"
	"github.com/spec-kit/request-hub/internal/events"
	"github.com/spec-kit/request-hub/internal/observability"
	"github.com/spec-kit/request-hub/internal/persistence"
	"github.com/spec-kit/request-hub/internal/repository"
	"github.com/spec-kit/request-hub/internal/service"
	"github.com/spec-kit/request-hub/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	accountRepo := repository.NewAccountRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	statusLogRepo := repository.NewStatusLogRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	txManager := repository.NewTxManager(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:  userRepo,
		ResetRepo: resetRepo,
		Tokens:    tokens,
		Logger:    logger,
		Config:    cfg.Auth,
	})
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo:      requestRepo,
		AccountRepo:      accountRepo,
		UserRepo:         userRepo,
		NotificationRepo: notificationRepo,
		Tx:               txManager,
		Dispatcher:       dispatcher,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		RequestRepo:      requestRepo,
		Cache:            redis,
		Dispatcher:       dispatcher,
		Logger:           logger,
		Config:           cfg.Notification,
	})
	statusLogService := service.NewStatusLogService(service.StatusLogDependencies{
		StatusLogRepo: statusLogRepo,
		RequestRepo:   requestRepo,
		Dispatcher:    dispatcher,
	})
	sweepService := service.NewSweepService(service.SweepDependencies{
		RequestRepo:      requestRepo,
		UserRepo:         userRepo,
		NotificationRepo: notificationRepo,
		Cache:            redis,
		Logger:           logger,
		LockTTL:          cfg.Sweep.LockTTL(),
	})
	exportService := service.NewExportService(requestRepo, userRepo)

	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Requests:       handlers.NewRequestsHandler(requestService, statusLogService),
		AdminRequests:  handlers.NewAdminRequestsHandler(requestService, notificationService, sweepService, exportService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
