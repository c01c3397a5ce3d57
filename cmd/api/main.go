package main

import (
	"context"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/ollyhq/olly-backend/api/routes"
	"github.com/ollyhq/olly-backend/internal/credits"
	"github.com/ollyhq/olly-backend/internal/cron"
	"github.com/ollyhq/olly-backend/internal/goals"
	"github.com/ollyhq/olly-backend/internal/licenses"
	"github.com/ollyhq/olly-backend/internal/sherlock"
	"github.com/ollyhq/olly-backend/internal/usage"
	"github.com/ollyhq/olly-backend/internal/webhooks"
	"github.com/ollyhq/olly-backend/pkg/appsumo"
	"github.com/ollyhq/olly-backend/pkg/config"
	"github.com/ollyhq/olly-backend/pkg/db"
	"github.com/ollyhq/olly-backend/pkg/discord"
	"github.com/ollyhq/olly-backend/pkg/lemonsqueezy"
	"github.com/ollyhq/olly-backend/pkg/logger"
	"github.com/ollyhq/olly-backend/pkg/migrate"
	"github.com/ollyhq/olly-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	usageRepo := usage.NewRepository(dbClient.DB())
	goalsRepo := goals.NewRepository(dbClient.DB())
	creditsRepo := credits.NewRepository(dbClient.DB())
	sherlockRepo := sherlock.NewRepository(dbClient.DB())

	milestones, err := usage.NewMilestoneRecorder(usageRepo, notifier, logg)
	requireService(logg, "milestone recorder", err)

	var lemonClient *lemonsqueezy.Client
	resolvers := []licenses.Resolver{
		licenses.NewLocalKeyResolver(licensesRepo),
		licenses.NewLocalSubLicenseResolver(licensesRepo),
	}
	if cfg.LemonSqueezy.APIKey != "" {
		lemonClient, err = lemonsqueezy.NewClient(cfg.LemonSqueezy.APIKey, cfg.LemonSqueezy.StoreID)
		requireService(logg, "lemonsqueezy client", err)
		resolvers = append(resolvers, licenses.NewLemonSqueezyResolver(lemonClient, ""))
	}
	if cfg.AppSumo.APIKey != "" {
		appsumoClient, err := appsumo.NewClient(cfg.AppSumo.APIKey)
		requireService(logg, "appsumo client", err)
		resolvers = append(resolvers, licenses.NewAppSumoResolver(appsumoClient))
	}

	licenseService, err := licenses.NewService(licensesRepo, dbClient, resolvers, cfg.Password, milestones, logg)
	requireService(logg, "licenses service", err)

	creditsService, err := credits.NewService(creditsRepo, dbClient)
	requireService(logg, "credits service", err)

	var testingUserID uuid.UUID
	if cfg.Usage.TestingUserID != "" {
		testingUserID, err = uuid.Parse(cfg.Usage.TestingUserID)
		requireService(logg, "usage testing user id", err)
	}

	usageService, err := usage.NewService(usageRepo, licenseService, creditsService, notifier, logg, testingUserID)
	requireService(logg, "usage service", err)

	goalsService, err := goals.NewService(goalsRepo, milestones)
	requireService(logg, "goals service", err)

	sherlockService, err := sherlock.NewService(sherlockRepo, dbClient, notifier, logg)
	requireService(logg, "sherlock service", err)

	guard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Usage.WebhookIdempotencyTTL)
	requireService(logg, "webhook idempotency guard", err)

	lemonWebhookService, err := webhooks.NewLemonSqueezyService(licenseService, guard, cfg.LemonSqueezy.TeamVariantID, logg)
	requireService(logg, "lemonsqueezy webhook service", err)

	appsumoWebhookService, err := webhooks.NewAppSumoService(licenseService, guard, logg)
	requireService(logg, "appsumo webhook service", err)

	cronRunner, err := buildCronRunner(cfg, logg, redisClient, licensesRepo, lemonClient, sherlockService)
	requireService(logg, "cron runner", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			nil, // sessions live in the dashboard; tokens verify on signature alone
			licenseService,
			usageService,
			goalsService,
			creditsService,
			sherlockService,
			lemonWebhookService,
			appsumoWebhookService,
			cronRunner,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildCronRunner assembles the same job set the cron worker runs, so the
// scheduler can also trigger it over HTTP behind the cron secret.
func buildCronRunner(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	licensesRepo licenses.Repository,
	lemonClient *lemonsqueezy.Client,
	sherlockService sherlock.Service,
) (*cron.Runner, error) {
	lock, err := cron.NewRedisLock(redisClient, "nightly", cfg.Cron.LockTTL)
	if err != nil {
		return nil, err
	}

	expiry, err := cron.NewSherlockExpiryJob(sherlockService, cfg.Sherlock.TaskTTL, logg)
	if err != nil {
		return nil, err
	}
	jobs := []cron.Job{expiry}

	if lemonClient != nil {
		reconcile, err := cron.NewLicenseReconcileJob(licensesRepo, lemonClient, logg)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, reconcile)
	}

	return cron.NewRunner(jobs, lock, cfg.Cron.Interval, nil, logg)
}

func requireService(logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(context.Background(), "failed to create "+name, err)
		os.Exit(1)
	}
}
