package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ollyhq/olly-backend/internal/cron"
	"github.com/ollyhq/olly-backend/internal/licenses"
	"github.com/ollyhq/olly-backend/internal/sherlock"
	"github.com/ollyhq/olly-backend/pkg/config"
	"github.com/ollyhq/olly-backend/pkg/db"
	"github.com/ollyhq/olly-backend/pkg/discord"
	"github.com/ollyhq/olly-backend/pkg/lemonsqueezy"
	"github.com/ollyhq/olly-backend/pkg/logger"
	"github.com/ollyhq/olly-backend/pkg/metrics"
	"github.com/ollyhq/olly-backend/pkg/migrate"
	"github.com/ollyhq/olly-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	notifier := discord.NewNotifier(cfg.Discord.AnalyticsWebhookURL)
	licensesRepo := licenses.NewRepository(dbClient.DB())
	sherlockRepo := sherlock.NewRepository(dbClient.DB())

	sherlockService, err := sherlock.NewService(sherlockRepo, dbClient, notifier, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sherlock service", err)
		os.Exit(1)
	}

	expiry, err := cron.NewSherlockExpiryJob(sherlockService, cfg.Sherlock.TaskTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sherlock expiry job", err)
		os.Exit(1)
	}
	jobs := []cron.Job{expiry}

	if cfg.LemonSqueezy.APIKey != "" {
		lemonClient, err := lemonsqueezy.NewClient(cfg.LemonSqueezy.APIKey, cfg.LemonSqueezy.StoreID)
		if err != nil {
			logg.Error(context.Background(), "failed to create lemonsqueezy client", err)
			os.Exit(1)
		}
		reconcile, err := cron.NewLicenseReconcileJob(licensesRepo, lemonClient, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create license reconcile job", err)
			os.Exit(1)
		}
		jobs = append(jobs, reconcile)
	}

	lock, err := cron.NewRedisLock(redisClient, "nightly", cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	runner, err := cron.NewRunner(jobs, lock, cfg.Cron.Interval, metrics.NewCronJobMetrics(prometheus.DefaultRegisterer), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron runner", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	if err := runner.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
