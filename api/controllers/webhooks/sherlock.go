package webhooks

import (
	"encoding/json"
	"net/http"

	"github.com/ollyhq/olly-backend/api/responses"
	"github.com/ollyhq/olly-backend/api/validators"
	"github.com/ollyhq/olly-backend/internal/sherlock"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

type sherlockResultRequest struct {
	Username      string          `json:"username" validate:"required"`
	Success       *bool           `json:"success" validate:"required"`
	TaskID        string          `json:"task_id" validate:"required"`
	OutputFile    string          `json:"output_file"`
	Error         string          `json:"error"`
	AccountsFound json.RawMessage `json:"accounts_found"`
	TotalFound    int             `json:"total_found"`
	ValidFound    int             `json:"valid_found"`
}

// SherlockResultWebhook receives the worker's terminal report for a search
// task. The worker authenticates with the shared webhook secret header.
func SherlockResultWebhook(svc sherlock.Service, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		if !sharedSecretMatches(r.Header.Get("X-Webhook-Secret"), secret) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook secret"))
			return
		}

		var payload sherlockResultRequest
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := "FAILED"
		if *payload.Success {
			status = "COMPLETED"
		}
		outcome, err := svc.ProcessResult(ctx, sherlock.ResultInput{
			TaskID:        payload.TaskID,
			Status:        status,
			OutputFile:    payload.OutputFile,
			Error:         payload.Error,
			AccountsFound: payload.AccountsFound,
			TotalFound:    payload.TotalFound,
			ValidFound:    payload.ValidFound,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}
