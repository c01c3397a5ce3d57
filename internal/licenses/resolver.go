package licenses

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ollyhq/olly-backend/pkg/appsumo"
	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	"github.com/ollyhq/olly-backend/pkg/lemonsqueezy"
)

// Resolution is a tagged match for an activation attempt. Exactly one of
// LicenseKey or SubLicense is set. Remote sources return an unsaved
// LicenseKey that the service persists before recording the activation.
type Resolution struct {
	Source     enums.Vendor
	LicenseKey *models.LicenseKey
	SubLicense *models.SubLicense
}

// Resolver attempts to match an incoming key against one licensing source.
// A (nil, nil) return means "no match here, try the next source".
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, key string) (*Resolution, error)
}

type localKeyResolver struct {
	repo Repository
}

// NewLocalKeyResolver matches against main license keys already on record.
func NewLocalKeyResolver(repo Repository) Resolver {
	return &localKeyResolver{repo: repo}
}

func (r *localKeyResolver) Name() string { return "local_key" }

func (r *localKeyResolver) Resolve(ctx context.Context, key string) (*Resolution, error) {
	row, err := r.repo.FindKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &Resolution{Source: row.Vendor, LicenseKey: row}, nil
}

type localSubLicenseResolver struct {
	repo Repository
}

// NewLocalSubLicenseResolver matches against team member seats.
func NewLocalSubLicenseResolver(repo Repository) Resolver {
	return &localSubLicenseResolver{repo: repo}
}

func (r *localSubLicenseResolver) Name() string { return "local_sub_license" }

func (r *localSubLicenseResolver) Resolve(ctx context.Context, key string) (*Resolution, error) {
	row, err := r.repo.FindSubLicense(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &Resolution{Source: enums.VendorLocal, SubLicense: row}, nil
}

type lemonAPI interface {
	Activate(ctx context.Context, licenseKey, instanceName string) (*lemonsqueezy.LicenseResult, error)
	BelongsToStore(result *lemonsqueezy.LicenseResult) bool
}

type lemonSqueezyResolver struct {
	api          lemonAPI
	instanceName string
}

// NewLemonSqueezyResolver activates unknown keys against the LemonSqueezy
// license API. A successful activation yields an unsaved local record so the
// key resolves locally from then on.
func NewLemonSqueezyResolver(api lemonAPI, instanceName string) Resolver {
	if strings.TrimSpace(instanceName) == "" {
		instanceName = "olly-extension"
	}
	return &lemonSqueezyResolver{api: api, instanceName: instanceName}
}

func (r *lemonSqueezyResolver) Name() string { return "lemonsqueezy" }

func (r *lemonSqueezyResolver) Resolve(ctx context.Context, key string) (*Resolution, error) {
	result, err := r.api.Activate(ctx, key, r.instanceName)
	if err != nil {
		return nil, err
	}
	if result == nil || (!result.Activated && !result.Valid) {
		return nil, nil
	}
	if !r.api.BelongsToStore(result) {
		return nil, nil
	}

	row := &models.LicenseKey{
		Key:      key,
		IsActive: true,
		Vendor:   enums.VendorLemonSqueezy,
	}
	if result.ProductID != "" {
		productID := result.ProductID
		row.LemonProductID = &productID
	}
	return &Resolution{Source: enums.VendorLemonSqueezy, LicenseKey: row}, nil
}

type appSumoAPI interface {
	GetLicense(ctx context.Context, licenseKey string) (*appsumo.License, error)
}

type appSumoResolver struct {
	api appSumoAPI
}

// NewAppSumoResolver checks the AppSumo licensing API as the last fallback.
func NewAppSumoResolver(api appSumoAPI) Resolver {
	return &appSumoResolver{api: api}
}

func (r *appSumoResolver) Name() string { return "appsumo" }

func (r *appSumoResolver) Resolve(ctx context.Context, key string) (*Resolution, error) {
	license, err := r.api.GetLicense(ctx, key)
	if err != nil {
		return nil, err
	}
	if license == nil || !license.IsActive() {
		return nil, nil
	}

	row := &models.LicenseKey{
		Key:      key,
		IsActive: true,
		Vendor:   enums.VendorAppSumo,
		Tier:     license.Tier,
	}
	if row.Tier <= 0 {
		row.Tier = 1
	}
	return &Resolution{Source: enums.VendorAppSumo, LicenseKey: row}, nil
}
