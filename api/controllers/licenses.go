package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/api/middleware"
	"github.com/ollyhq/olly-backend/api/responses"
	"github.com/ollyhq/olly-backend/api/validators"
	"github.com/ollyhq/olly-backend/internal/licenses"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

type licenseActivateRequest struct {
	LicenseKey string `json:"license_key" validate:"required"`
	Device     string `json:"device"`
	Browser    string `json:"browser"`
}

type licenseActivateResponse struct {
	Source         enums.Vendor `json:"source"`
	Tier           int          `json:"tier"`
	IsSubLicense   bool         `json:"is_sub_license"`
	OrganizationID *uuid.UUID   `json:"organization_id,omitempty"`
}

// LicenseActivate validates a key against the local tables and the vendor
// fallbacks, recording the activation on success.
func LicenseActivate(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		var payload licenseActivateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := licenses.ActivateInput{
			Key:       payload.LicenseKey,
			Device:    strings.TrimSpace(payload.Device),
			Browser:   strings.TrimSpace(payload.Browser),
			IPAddress: clientIP(r),
		}
		if userID := middleware.UserIDFromContext(ctx); userID != "" {
			if parsed, err := uuid.Parse(userID); err == nil {
				input.UserID = &parsed
			}
		}

		result, err := svc.Activate(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, licenseActivateResponse{
			Source:         result.Source,
			Tier:           result.Tier,
			IsSubLicense:   result.IsSubLicense,
			OrganizationID: result.OrganizationID,
		})
	}
}

type licenseRedeemRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	RedeemCode string `json:"redeemCode" validate:"required"`
	LicenseKey string `json:"licenseKey"`
	Vendor     string `json:"vendor"`
}

type licenseRedeemResponse struct {
	LicenseKey   string     `json:"license_key"`
	UserID       uuid.UUID  `json:"user_id"`
	UserCreated  bool       `json:"user_created"`
	TempPassword string     `json:"temp_password,omitempty"`
	RedeemedAt   *time.Time `json:"redeemed_at"`
}

// LicenseRedeem claims a redeem code, provisioning the account when the
// email is new.
func LicenseRedeem(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		var payload licenseRedeemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Redeem(ctx, licenses.RedeemInput{
			Name:       payload.Name,
			Email:      payload.Email,
			Username:   payload.Username,
			Password:   payload.Password,
			RedeemCode: payload.RedeemCode,
			LicenseKey: payload.LicenseKey,
			Vendor:     payload.Vendor,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, licenseRedeemResponse{
			LicenseKey:   result.LicenseKey.Key,
			UserID:       result.User.ID,
			UserCreated:  result.UserCreated,
			TempPassword: result.TempPassword,
			RedeemedAt:   result.LicenseKey.RedeemedAt,
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}
