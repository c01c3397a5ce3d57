package webhooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollyhq/olly-backend/internal/licenses"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

const scopeAppSumo = "appsumo"

// AppSumoEvent is one AppSumo licensing webhook delivery.
type AppSumoEvent struct {
	Action     string
	EventID    string
	LicenseKey string
	Tier       int
}

// AppSumoService applies AppSumo license lifecycle actions to local keys.
type AppSumoService struct {
	manager licenseManager
	guard   guard
	logg    *logger.Logger
}

// NewAppSumoService wires the AppSumo webhook processor.
func NewAppSumoService(manager licenseManager, g guard, logg *logger.Logger) (*AppSumoService, error) {
	if manager == nil {
		return nil, fmt.Errorf("license manager required")
	}
	if g == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	return &AppSumoService{manager: manager, guard: g, logg: logg}, nil
}

// Process handles one AppSumo action with the same replay semantics as the
// LemonSqueezy processor.
func (s *AppSumoService) Process(ctx context.Context, event AppSumoEvent) (*Outcome, error) {
	action := strings.ToLower(strings.TrimSpace(event.Action))
	if action == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action is required")
	}
	if strings.TrimSpace(event.LicenseKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license key is required")
	}
	if s.logg != nil {
		ctx = s.logg.WithVendor(ctx, string(enums.VendorAppSumo))
	}

	fresh, err := s.guard.CheckAndMark(ctx, scopeAppSumo, event.EventID)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return &Outcome{AlreadyProcessed: true}, nil
	}

	outcome, err := s.apply(ctx, action, event)
	if err != nil {
		if releaseErr := s.guard.Release(ctx, scopeAppSumo, event.EventID); releaseErr != nil && s.logg != nil {
			s.logg.Error(ctx, "releasing idempotency mark failed", releaseErr)
		}
		return nil, err
	}
	return outcome, nil
}

func (s *AppSumoService) apply(ctx context.Context, action string, event AppSumoEvent) (*Outcome, error) {
	switch action {
	case "activate":
		key, err := s.manager.IssueKey(ctx, licenses.IssueKeyInput{
			Vendor: enums.VendorAppSumo,
			Key:    event.LicenseKey,
			Tier:   event.Tier,
		})
		if err != nil {
			return nil, err
		}
		// Re-activation of a previously deactivated deal.
		if !key.IsActive {
			key, err = s.manager.SetKeyActive(ctx, event.LicenseKey, true)
			if err != nil {
				return nil, err
			}
		}
		return &Outcome{Processed: true, LicenseKey: key}, nil

	case "enhance_tier", "reduce_tier":
		key, err := s.manager.UpdateKeyTier(ctx, event.LicenseKey, event.Tier)
		if err != nil {
			return nil, err
		}
		return &Outcome{Processed: true, LicenseKey: key}, nil

	case "deactivate":
		key, err := s.manager.SetKeyActive(ctx, event.LicenseKey, false)
		if err != nil {
			return nil, err
		}
		return &Outcome{Processed: true, LicenseKey: key}, nil

	default:
		if s.logg != nil {
			s.logg.Info(ctx, "ignoring unhandled appsumo action "+action)
		}
		return &Outcome{Ignored: true}, nil
	}
}
