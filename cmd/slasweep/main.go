package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/spec-kit/request-hub/internal/config"
	"github.com/spec-kit/request-hub/internal/observability"
	"github.com/spec-kit/request-hub/internal/persistence"
	"github.com/spec-kit/request-hub/internal/repository"
	"github.com/spec-kit/request-hub/internal/service"
)

// slasweep is the one-shot batch entrypoint for the SLA breach sweep,
// meant to run from cron. Notification writes are idempotent, so repeated
// runs never duplicate alerts.
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

	ctx := context.Background()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	sweep := service.NewSweepService(service.SweepDependencies{
		RequestRepo:      repository.NewRequestRepository(pool),
		UserRepo:         repository.NewUserRepository(pool),
		NotificationRepo: repository.NewNotificationRepository(pool),
		Cache:            redis,
		Logger:           logger,
		LockTTL:          cfg.Sweep.LockTTL(),
	})

	result, err := sweep.Run(ctx)
	if err != nil {
		logger.Error("sla sweep failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("sla sweep done",
		zap.Int("processed", result.Processed),
		zap.Int("notifications_created", result.Created))
}
