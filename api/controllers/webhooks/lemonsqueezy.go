package webhooks

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/ollyhq/olly-backend/api/responses"
	"github.com/ollyhq/olly-backend/internal/webhooks"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/lemonsqueezy"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

const webhookBodyLimit = 1 << 20

type lemonWebhookPayload struct {
	Meta struct {
		EventName  string `json:"event_name"`
		WebhookID  string `json:"webhook_id"`
		CustomData struct {
			Seats int `json:"seats"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			LicenseKey string      `json:"license_key"`
			VariantID  json.Number `json:"variant_id"`
			UserEmail  string      `json:"user_email"`
		} `json:"attributes"`
	} `json:"data"`
}

// LemonSqueezyWebhook verifies the delivery signature and applies the event.
func LemonSqueezyWebhook(svc *webhooks.LemonSqueezyService, signingSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		signature := r.Header.Get("X-Signature")
		if !lemonsqueezy.VerifySignature(signingSecret, body, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var payload lemonWebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}

		eventID := strings.TrimSpace(payload.Meta.WebhookID)
		if eventID == "" {
			eventID = strings.TrimSpace(payload.Data.ID)
		}

		outcome, err := svc.Process(ctx, webhooks.LemonEvent{
			Name:       payload.Meta.EventName,
			EventID:    eventID,
			LicenseKey: strings.TrimSpace(payload.Data.Attributes.LicenseKey),
			VariantID:  payload.Data.Attributes.VariantID.String(),
			Seats:      payload.Meta.CustomData.Seats,
			Email:      strings.TrimSpace(payload.Data.Attributes.UserEmail),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}
