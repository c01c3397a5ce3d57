package controllers

import (
	"context"
	"net/http"

	"github.com/ollyhq/olly-backend/api/responses"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

type jobRunner interface {
	RunOnce(ctx context.Context)
}

// CronTrigger runs the nightly jobs on demand. The route sits behind the cron
// secret middleware, so reaching the handler means the caller is the scheduler.
func CronTrigger(runner jobRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if runner == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cron runner unavailable"))
			return
		}

		runner.RunOnce(ctx)
		responses.WriteSuccess(w, map[string]string{"status": "triggered"})
	}
}
