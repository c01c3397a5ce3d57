package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/api/middleware"
	"github.com/ollyhq/olly-backend/api/responses"
	"github.com/ollyhq/olly-backend/api/validators"
	"github.com/ollyhq/olly-backend/internal/goals"
	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

type goalCreateRequest struct {
	Goal         string  `json:"goal" validate:"required"`
	Platform     string  `json:"platform" validate:"required"`
	Target       int     `json:"target" validate:"required,gt=0"`
	LicenseKeyID *string `json:"license_key_id"`
	SubLicenseID *string `json:"sub_license_id"`
}

type goalResponse struct {
	ID         uuid.UUID        `json:"id"`
	Goal       string           `json:"goal"`
	Platform   enums.Platform   `json:"platform"`
	Target     int              `json:"target"`
	Progress   int              `json:"progress"`
	Status     enums.GoalStatus `json:"status"`
	AchievedAt *time.Time       `json:"achieved_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

func goalResponseFromModel(m *models.LicenseGoal) goalResponse {
	return goalResponse{
		ID:         m.ID,
		Goal:       m.Goal,
		Platform:   m.Platform,
		Target:     m.Target,
		Progress:   m.Progress,
		Status:     m.Status,
		AchievedAt: m.AchievedAt,
		CreatedAt:  m.CreatedAt,
	}
}

func actingUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return parsed, nil
}

func parseOptionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return &parsed, nil
}

// GoalCreate registers a new engagement goal for the acting user.
func GoalCreate(svc goals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "goals service unavailable"))
			return
		}

		userID, err := actingUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload goalCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		licenseKeyID, err := parseOptionalUUID(payload.LicenseKeyID, "license_key_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		subLicenseID, err := parseOptionalUUID(payload.SubLicenseID, "sub_license_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		created, err := svc.CreateGoal(ctx, goals.CreateGoalInput{
			UserID:       userID,
			LicenseKeyID: licenseKeyID,
			SubLicenseID: subLicenseID,
			Goal:         payload.Goal,
			Platform:     payload.Platform,
			Target:       payload.Target,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, goalResponseFromModel(created))
	}
}

// GoalList returns the acting user's goals, newest first.
func GoalList(svc goals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "goals service unavailable"))
			return
		}

		userID, err := actingUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.ListGoals(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]goalResponse, 0, len(rows))
		for i := range rows {
			out = append(out, goalResponseFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type goalProgressRequest struct {
	Progress int `json:"progress" validate:"required,gt=0"`
}

// GoalUpdateProgress advances a goal and flips it to achieved at the target.
func GoalUpdateProgress(svc goals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "goals service unavailable"))
			return
		}

		userID, err := actingUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		goalID, err := uuid.Parse(chi.URLParam(r, "goalId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid goal id"))
			return
		}

		var payload goalProgressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		updated, err := svc.UpdateProgress(ctx, goals.UpdateProgressInput{
			UserID:   userID,
			GoalID:   goalID,
			Progress: payload.Progress,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, goalResponseFromModel(updated))
	}
}

// GoalDelete removes one of the acting user's goals.
func GoalDelete(svc goals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "goals service unavailable"))
			return
		}

		userID, err := actingUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		goalID, err := uuid.Parse(chi.URLParam(r, "goalId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid goal id"))
			return
		}

		if err := svc.DeleteGoal(ctx, userID, goalID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
