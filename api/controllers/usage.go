package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/api/responses"
	"github.com/ollyhq/olly-backend/api/validators"
	"github.com/ollyhq/olly-backend/internal/usage"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

type usageTrackRequest struct {
	LicenseKey string          `json:"license_key"`
	UserID     string          `json:"user_id"`
	Action     string          `json:"action" validate:"required"`
	Platform   string          `json:"platform" validate:"required"`
	Event      string          `json:"event"`
	Metadata   json.RawMessage `json:"metadata"`
}

// UsageTrack records one tracked action from the extension. The actor is
// resolved from the license key when present, falling back to an explicit
// user id.
func UsageTrack(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}

		var payload usageTrackRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := usage.RecordUsageInput{
			LicenseKey: strings.TrimSpace(payload.LicenseKey),
			Action:     payload.Action,
			Platform:   payload.Platform,
			Event:      payload.Event,
			Metadata:   payload.Metadata,
		}
		if raw := strings.TrimSpace(payload.UserID); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id"))
				return
			}
			input.UserID = parsed
		}

		result, err := svc.RecordUsage(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UsageAggregate buckets the acting user's events for a dashboard period.
func UsageAggregate(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}

		userID, err := actingUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		period := validators.ParseQueryString(r, "period", "week")
		result, err := svc.Aggregate(ctx, userID, period)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type weeklyCommentsRequest struct {
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

// WeeklyComments returns per-day comment counts for an explicit date range.
func WeeklyComments(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}

		userID, err := actingUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload weeklyCommentsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		start, err := parseDate(payload.StartDate, "startDate")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		end, err := parseDate(payload.EndDate, "endDate")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.WeeklyComments(ctx, usage.WeeklyCommentsInput{
			UserID:    userID,
			StartDate: start,
			EndDate:   end,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseDate(raw, field string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, field+" must be YYYY-MM-DD")
	}
	return parsed, nil
}
