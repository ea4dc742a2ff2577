package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/kds-backend/internal/cron"
	"github.com/angelmondragon/kds-backend/internal/journal"
	"github.com/angelmondragon/kds-backend/pkg/config"
	"github.com/angelmondragon/kds-backend/pkg/db"
	"github.com/angelmondragon/kds-backend/pkg/logger"
	"github.com/angelmondragon/kds-backend/pkg/metrics"
	"github.com/angelmondragon/kds-backend/pkg/migrate"
	"github.com/angelmondragon/kds-backend/pkg/redis"
)

const serviceName = "kds-cron-worker"

func main() {
	boot := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Fields: map[string]any{
			"env":         cfg.App.Env,
			"location_id": cfg.App.LocationID,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	if !cfg.DB.Enabled() || !cfg.Redis.Enabled() {
		return fmt.Errorf("cron worker needs %s and one of %s or %s", config.EnvDBDSN, config.EnvRedisURL, config.EnvRedisAddr)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		return err
	}
	retention, err := cron.NewJournalRetention(logg, journal.NewRepository(dbClient.DB()), cron.RetentionDays(cfg.Journal.RetentionDays))
	if err != nil {
		return err
	}

	var registerer prometheus.Registerer
	if cfg.Metrics.Enabled {
		registerer = prometheus.DefaultRegisterer
	}
	service, err := cron.NewService(cron.ServiceParams{
		Name:     serviceName,
		Logger:   logg,
		Registry: cron.NewRegistry(retention),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(registerer),
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
