package webhooks

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ollyhq/olly-backend/api/responses"
	"github.com/ollyhq/olly-backend/api/validators"
	"github.com/ollyhq/olly-backend/internal/webhooks"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

type appsumoWebhookRequest struct {
	Action     string `json:"action" validate:"required"`
	EventID    string `json:"event_id"`
	LicenseKey string `json:"license_key" validate:"required"`
	Tier       int    `json:"tier"`
}

// AppSumoWebhook applies AppSumo license lifecycle actions. Deliveries are
// authenticated with the shared licensing key header.
func AppSumoWebhook(svc *webhooks.AppSumoService, apiKey string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		if !sharedSecretMatches(r.Header.Get("X-AppSumo-Licensing-Key"), apiKey) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid licensing key"))
			return
		}

		var payload appsumoWebhookRequest
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome, err := svc.Process(ctx, webhooks.AppSumoEvent{
			Action:     payload.Action,
			EventID:    payload.EventID,
			LicenseKey: payload.LicenseKey,
			Tier:       payload.Tier,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

func sharedSecretMatches(provided, expected string) bool {
	provided = strings.TrimSpace(provided)
	expected = strings.TrimSpace(expected)
	if provided == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
