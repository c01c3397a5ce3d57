package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ollyhq/olly-backend/api/controllers"
	webhookcontrollers "github.com/ollyhq/olly-backend/api/controllers/webhooks"
	"github.com/ollyhq/olly-backend/api/middleware"
	"github.com/ollyhq/olly-backend/internal/credits"
	"github.com/ollyhq/olly-backend/internal/goals"
	"github.com/ollyhq/olly-backend/internal/licenses"
	"github.com/ollyhq/olly-backend/internal/sherlock"
	"github.com/ollyhq/olly-backend/internal/usage"
	"github.com/ollyhq/olly-backend/internal/webhooks"
	pkgauth "github.com/ollyhq/olly-backend/pkg/auth"
	"github.com/ollyhq/olly-backend/pkg/config"
	"github.com/ollyhq/olly-backend/pkg/db"
	"github.com/ollyhq/olly-backend/pkg/logger"
	"github.com/ollyhq/olly-backend/pkg/redis"
)

type jobRunner interface {
	RunOnce(ctx context.Context)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker pkgauth.SessionChecker,
	licenseService licenses.Service,
	usageService usage.Service,
	goalsService goals.Service,
	creditsService credits.Service,
	sherlockService sherlock.Service,
	lemonWebhookService *webhooks.LemonSqueezyService,
	appsumoWebhookService *webhooks.AppSumoService,
	cronRunner jobRunner,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/sherlock", webhookcontrollers.SherlockResultWebhook(sherlockService, cfg.Sherlock.WebhookSecret, logg))
		r.Post("/lemonsqueezy", webhookcontrollers.LemonSqueezyWebhook(lemonWebhookService, cfg.LemonSqueezy.SigningSecret, logg))
		r.Post("/appsumo", webhookcontrollers.AppSumoWebhook(appsumoWebhookService, cfg.AppSumo.APIKey, logg))
	})

	// The extension calls these with a license key, not a session.
	r.Route("/api/v1/licenses", func(r chi.Router) {
		r.Post("/activate", controllers.LicenseActivate(licenseService, logg))
		r.Post("/redeem", controllers.LicenseRedeem(licenseService, logg))
	})
	r.Post("/api/v1/usage", controllers.UsageTrack(usageService, logg))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))

		r.Get("/api/v1/usage", controllers.UsageAggregate(usageService, logg))
		r.Post("/api/v1/analytics/weekly-comments", controllers.WeeklyComments(usageService, logg))

		r.Route("/api/v1/goals", func(r chi.Router) {
			r.Post("/", controllers.GoalCreate(goalsService, logg))
			r.Get("/", controllers.GoalList(goalsService, logg))
			r.Patch("/{goalId}", controllers.GoalUpdateProgress(goalsService, logg))
			r.Delete("/{goalId}", controllers.GoalDelete(goalsService, logg))
		})

		r.Route("/api/v1/credits", func(r chi.Router) {
			r.Get("/balance", controllers.CreditBalance(creditsService, logg))
			r.Post("/spend", controllers.CreditSpend(creditsService, logg))
			r.Post("/grant", controllers.CreditGrant(creditsService, logg))
			r.Get("/transactions", controllers.CreditTransactions(creditsService, logg))
		})

		r.Route("/api/v1/sherlock", func(r chi.Router) {
			r.Post("/tasks", controllers.SherlockCreateTask(sherlockService, logg))
			r.Get("/tasks", controllers.SherlockListTasks(sherlockService, logg))
		})
	})

	r.With(middleware.CronSecret(cfg.Cron.Secret, logg)).
		Post("/api/v1/cron/run", controllers.CronTrigger(cronRunner, logg))

	return r
}
