package webhooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollyhq/olly-backend/internal/licenses"
	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

const (
	scopeLemonSqueezy = "lemonsqueezy"
	defaultTeamSeats  = 5
)

type licenseManager interface {
	IssueKey(ctx context.Context, input licenses.IssueKeyInput) (*models.LicenseKey, error)
	SetKeyActive(ctx context.Context, key string, active bool) (*models.LicenseKey, error)
	UpdateKeyTier(ctx context.Context, key string, tier int) (*models.LicenseKey, error)
	ConvertToTeam(ctx context.Context, input licenses.ConvertToTeamInput) (*licenses.TeamConversionResult, error)
	RevertTeamConversion(ctx context.Context, key string) (*licenses.TeamReversalResult, error)
	GetKey(ctx context.Context, key string) (*models.LicenseKey, error)
}

type guard interface {
	CheckAndMark(ctx context.Context, scope, eventID string) (bool, error)
	Release(ctx context.Context, scope, eventID string) error
}

// LemonEvent is the subset of a LemonSqueezy webhook the service acts on.
type LemonEvent struct {
	Name       string
	EventID    string
	LicenseKey string
	VariantID  string
	Seats      int
	Email      string
}

// Outcome reports how a webhook delivery was handled.
type Outcome struct {
	Processed        bool               `json:"processed"`
	AlreadyProcessed bool               `json:"alreadyProcessed,omitempty"`
	Ignored          bool               `json:"ignored,omitempty"`
	LicenseKey       *models.LicenseKey `json:"-"`
}

// LemonSqueezyService applies LemonSqueezy lifecycle events to local keys.
type LemonSqueezyService struct {
	manager       licenseManager
	guard         guard
	teamVariantID string
	logg          *logger.Logger
}

// NewLemonSqueezyService wires the LemonSqueezy webhook processor.
func NewLemonSqueezyService(manager licenseManager, g guard, teamVariantID string, logg *logger.Logger) (*LemonSqueezyService, error) {
	if manager == nil {
		return nil, fmt.Errorf("license manager required")
	}
	if g == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	return &LemonSqueezyService{
		manager:       manager,
		guard:         g,
		teamVariantID: strings.TrimSpace(teamVariantID),
		logg:          logg,
	}, nil
}

// Process handles one verified webhook delivery. Replays of an already
// processed event acknowledge without side effects; a failed handler
// releases the idempotency mark so the vendor retry can run again.
func (s *LemonSqueezyService) Process(ctx context.Context, event LemonEvent) (*Outcome, error) {
	name := strings.TrimSpace(event.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name is required")
	}
	if s.logg != nil {
		ctx = s.logg.WithVendor(ctx, string(enums.VendorLemonSqueezy))
	}

	fresh, err := s.guard.CheckAndMark(ctx, scopeLemonSqueezy, event.EventID)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return &Outcome{AlreadyProcessed: true}, nil
	}

	outcome, err := s.apply(ctx, name, event)
	if err != nil {
		if releaseErr := s.guard.Release(ctx, scopeLemonSqueezy, event.EventID); releaseErr != nil && s.logg != nil {
			s.logg.Error(ctx, "releasing idempotency mark failed", releaseErr)
		}
		return nil, err
	}
	return outcome, nil
}

func (s *LemonSqueezyService) apply(ctx context.Context, name string, event LemonEvent) (*Outcome, error) {
	switch name {
	case "order_created":
		variantID := strings.TrimSpace(event.VariantID)
		input := licenses.IssueKeyInput{
			Vendor:         enums.VendorLemonSqueezy,
			Key:            event.LicenseKey,
			WithRedeemCode: true,
		}
		if variantID != "" {
			input.LemonProductID = &variantID
		}
		key, err := s.manager.IssueKey(ctx, input)
		if err != nil {
			return nil, err
		}
		return &Outcome{Processed: true, LicenseKey: key}, nil

	case "order_refunded", "subscription_payment_refunded", "subscription_cancelled", "subscription_expired":
		key, err := s.manager.SetKeyActive(ctx, event.LicenseKey, false)
		if err != nil {
			return nil, err
		}
		return &Outcome{Processed: true, LicenseKey: key}, nil

	case "subscription_resumed", "subscription_unpaused":
		key, err := s.manager.SetKeyActive(ctx, event.LicenseKey, true)
		if err != nil {
			return nil, err
		}
		return &Outcome{Processed: true, LicenseKey: key}, nil

	case "subscription_plan_changed":
		return s.applyPlanChange(ctx, event)

	default:
		if s.logg != nil {
			s.logg.Info(ctx, "ignoring unhandled lemonsqueezy event "+name)
		}
		return &Outcome{Ignored: true}, nil
	}
}

// applyPlanChange converts a key to a team plan when the new variant is the
// configured team variant, and reverses the conversion when a team key
// moves to any other variant.
func (s *LemonSqueezyService) applyPlanChange(ctx context.Context, event LemonEvent) (*Outcome, error) {
	variantID := strings.TrimSpace(event.VariantID)

	if s.teamVariantID != "" && variantID == s.teamVariantID {
		seats := event.Seats
		if seats <= 0 {
			seats = defaultTeamSeats
		}
		result, err := s.manager.ConvertToTeam(ctx, licenses.ConvertToTeamInput{
			Key:   event.LicenseKey,
			Seats: seats,
		})
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
				// Already a team key; the event is effectively a replay.
				return &Outcome{AlreadyProcessed: true}, nil
			}
			return nil, err
		}
		return &Outcome{Processed: true, LicenseKey: result.LicenseKey}, nil
	}

	current, err := s.manager.GetKey(ctx, event.LicenseKey)
	if err != nil {
		return nil, err
	}
	if !current.ConvertedToTeam {
		// Plan changed between non-team variants; nothing to restructure.
		if variantID != "" {
			if _, err := s.manager.SetKeyActive(ctx, event.LicenseKey, true); err != nil {
				return nil, err
			}
		}
		return &Outcome{Ignored: true}, nil
	}

	result, err := s.manager.RevertTeamConversion(ctx, event.LicenseKey)
	if err != nil {
		return nil, err
	}
	return &Outcome{Processed: true, LicenseKey: result.LicenseKey}, nil
}
