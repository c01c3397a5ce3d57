package licenses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ollyhq/olly-backend/pkg/config"
	"github.com/ollyhq/olly-backend/pkg/db"
	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/logger"
	"github.com/ollyhq/olly-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type milestoneRecorder interface {
	RecordFirstActivation(ctx context.Context, userID uuid.UUID) error
}

// Service is the licensing core: activation with vendor fallback, redeem
// code claiming, team conversion, and the key administration used by
// webhooks and the nightly reconcile job.
type Service interface {
	Activate(ctx context.Context, input ActivateInput) (*ActivateResult, error)
	Redeem(ctx context.Context, input RedeemInput) (*RedeemResult, error)
	ConvertToTeam(ctx context.Context, input ConvertToTeamInput) (*TeamConversionResult, error)
	RevertTeamConversion(ctx context.Context, key string) (*TeamReversalResult, error)
	ResolveUserByKey(ctx context.Context, key string) (uuid.UUID, error)
	IssueKey(ctx context.Context, input IssueKeyInput) (*models.LicenseKey, error)
	SetKeyActive(ctx context.Context, key string, active bool) (*models.LicenseKey, error)
	UpdateKeyTier(ctx context.Context, key string, tier int) (*models.LicenseKey, error)
	GetKey(ctx context.Context, key string) (*models.LicenseKey, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	resolvers  []Resolver
	passwords  config.PasswordConfig
	milestones milestoneRecorder
	logg       *logger.Logger
}

// ActivateInput is one activation attempt from the extension.
type ActivateInput struct {
	Key       string
	UserID    *uuid.UUID
	Device    string
	Browser   string
	IPAddress string
}

// ActivateResult reports which source matched and the entitlement granted.
type ActivateResult struct {
	Source         enums.Vendor       `json:"source"`
	Tier           int                `json:"tier"`
	LicenseKey     *models.LicenseKey `json:"-"`
	SubLicense     *models.SubLicense `json:"-"`
	IsSubLicense   bool               `json:"isSubLicense"`
	OrganizationID *uuid.UUID         `json:"organizationId,omitempty"`
}

// RedeemInput claims a redeem code and provisions the account in one pass.
// LicenseKey and Vendor are optional cross-checks against the key the code
// resolves to; Username and Password seed the account when the email is new.
type RedeemInput struct {
	Name       string
	Email      string
	Username   string
	Password   string
	RedeemCode string
	LicenseKey string
	Vendor     string
}

// RedeemResult returns the claimed key plus the credentials of a freshly
// provisioned account. TempPassword is empty for existing users.
type RedeemResult struct {
	User         *models.User
	LicenseKey   *models.LicenseKey
	UserCreated  bool
	TempPassword string
}

// IssueKeyInput mints a new main license key, usually from a vendor webhook.
type IssueKeyInput struct {
	Vendor         enums.Vendor
	Key            string
	Tier           int
	LemonProductID *string
	WithRedeemCode bool
}

// NewService wires the licensing service. Resolvers run in order; the first
// match wins.
func NewService(repo Repository, tx txRunner, resolvers []Resolver, passwords config.PasswordConfig, milestones milestoneRecorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("licenses repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if len(resolvers) == 0 {
		return nil, fmt.Errorf("at least one resolver required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		resolvers:  resolvers,
		passwords:  passwords,
		milestones: milestones,
		logg:       logg,
	}, nil
}

func (s *service) Activate(ctx context.Context, input ActivateInput) (*ActivateResult, error) {
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license key is required")
	}
	if s.logg != nil {
		ctx = s.logg.WithLicenseKey(ctx, key)
	}

	resolution := s.resolve(ctx, key)
	if resolution == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license key not found")
	}

	if resolution.SubLicense != nil {
		return s.activateSubLicense(ctx, input, resolution.SubLicense)
	}
	return s.activateMainKey(ctx, input, resolution)
}

// resolve walks the resolver chain. Vendor outages degrade to "no match
// here" so a later source can still answer.
func (s *service) resolve(ctx context.Context, key string) *Resolution {
	for _, resolver := range s.resolvers {
		resolution, err := resolver.Resolve(ctx, key)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithVendor(ctx, resolver.Name()), "license resolver failed, trying next source")
			}
			continue
		}
		if resolution != nil {
			return resolution
		}
	}
	return nil
}

func (s *service) activateMainKey(ctx context.Context, input ActivateInput, resolution *Resolution) (*ActivateResult, error) {
	row := resolution.LicenseKey
	if !row.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "license key is not active")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if row.ID == uuid.Nil {
			row.ID = uuid.New()
			if createErr := repo.CreateKey(ctx, row); createErr != nil {
				// A concurrent activation may have persisted the remote
				// key first. Fall back to the stored row.
				if !db.IsUniqueViolation(createErr, "") {
					return createErr
				}
				existing, findErr := repo.FindKey(ctx, row.Key)
				if findErr != nil {
					return findErr
				}
				row = existing
			}
		}

		activation := &models.Activation{
			LicenseKeyID: &row.ID,
			UserID:       input.UserID,
			Device:       input.Device,
			Browser:      input.Browser,
			IPAddress:    input.IPAddress,
		}
		activation.ID = uuid.New()
		if createErr := repo.CreateActivation(ctx, activation); createErr != nil {
			return createErr
		}

		if input.UserID != nil {
			if upsertErr := repo.UpsertUserLicenseKey(ctx, *input.UserID, row.ID); upsertErr != nil {
				return upsertErr
			}
		}
		return repo.IncrementKeyActivation(ctx, row.ID)
	})
	if err != nil {
		return nil, err
	}

	s.recordFirstActivation(ctx, input.UserID)

	return &ActivateResult{
		Source:         resolution.Source,
		Tier:           row.Tier,
		LicenseKey:     row,
		OrganizationID: row.OrganizationID,
	}, nil
}

func (s *service) activateSubLicense(ctx context.Context, input ActivateInput, sub *models.SubLicense) (*ActivateResult, error) {
	if sub.Status != enums.SubLicenseStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "sub-license is not active")
	}

	userID := input.UserID
	if userID == nil {
		userID = sub.AssignedUserID
	}

	var mainKey *models.LicenseKey
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		activation := &models.Activation{
			SubLicenseID: &sub.ID,
			UserID:       userID,
			Device:       input.Device,
			Browser:      input.Browser,
			IPAddress:    input.IPAddress,
		}
		activation.ID = uuid.New()
		if createErr := repo.CreateActivation(ctx, activation); createErr != nil {
			return createErr
		}
		if incErr := repo.IncrementSubLicenseActivation(ctx, sub.ID); incErr != nil {
			return incErr
		}

		var findErr error
		mainKey, findErr = repo.FindKeyByID(ctx, sub.MainLicenseKeyID)
		return findErr
	})
	if err != nil {
		return nil, err
	}

	s.recordFirstActivation(ctx, userID)

	result := &ActivateResult{
		Source:       enums.VendorLocal,
		Tier:         mainKey.Tier,
		SubLicense:   sub,
		IsSubLicense: true,
	}
	if mainKey.OrganizationID != nil {
		result.OrganizationID = mainKey.OrganizationID
	}
	return result, nil
}

// recordFirstActivation is best effort; the activation already committed.
func (s *service) recordFirstActivation(ctx context.Context, userID *uuid.UUID) {
	if s.milestones == nil || userID == nil || *userID == uuid.Nil {
		return
	}
	if err := s.milestones.RecordFirstActivation(ctx, *userID); err != nil && s.logg != nil {
		s.logg.Error(ctx, "recording first activation milestone failed", err)
	}
}

func (s *service) Redeem(ctx context.Context, input RedeemInput) (*RedeemResult, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	code := strings.TrimSpace(input.RedeemCode)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redeem code is required")
	}

	key, err := s.repo.FindKeyByRedeemCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "redeem code not found")
		}
		return nil, err
	}
	if supplied := strings.TrimSpace(input.LicenseKey); supplied != "" && supplied != key.Key {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license key does not match redeem code")
	}
	if vendor := strings.TrimSpace(input.Vendor); vendor != "" && !strings.EqualFold(vendor, string(key.Vendor)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor does not match redeem code")
	}
	if key.RedeemedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redeem code has already been claimed")
	}
	if !key.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "license key is not active")
	}

	result := &RedeemResult{LicenseKey: key}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, findErr := repo.FindUserByEmail(ctx, email)
		switch {
		case findErr == nil:
			result.User = user
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			created, password, createErr := s.provisionUser(ctx, repo, name, email, input.Username, input.Password)
			if createErr != nil {
				return createErr
			}
			result.User = created
			result.UserCreated = true
			result.TempPassword = password
		default:
			return findErr
		}

		now := time.Now().UTC()
		key.RedeemedAt = &now
		if updateErr := repo.UpdateKey(ctx, key); updateErr != nil {
			return updateErr
		}

		activation := &models.Activation{
			LicenseKeyID: &key.ID,
			UserID:       &result.User.ID,
			Device:       "redeem",
		}
		activation.ID = uuid.New()
		if createErr := repo.CreateActivation(ctx, activation); createErr != nil {
			return createErr
		}
		if upsertErr := repo.UpsertUserLicenseKey(ctx, result.User.ID, key.ID); upsertErr != nil {
			return upsertErr
		}
		return repo.IncrementKeyActivation(ctx, key.ID)
	})
	if err != nil {
		return nil, err
	}

	s.recordFirstActivation(ctx, &result.User.ID)
	return result, nil
}

// provisionUser creates the account for a first-time redeemer. A caller-
// supplied password is hashed as-is; otherwise a temp password is minted and
// returned so it can be handed back once.
func (s *service) provisionUser(ctx context.Context, repo Repository, name, email, username, password string) (*models.User, string, error) {
	tempPassword := ""
	if password == "" {
		generated, err := security.GenerateTempPassword(16)
		if err != nil {
			return nil, "", err
		}
		password = generated
		tempPassword = generated
	}
	hash, err := security.HashPassword(password, s.passwords)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: &hash,
	}
	if trimmed := strings.TrimSpace(username); trimmed != "" {
		user.Username = &trimmed
	}
	user.ID = uuid.New()
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}
	return user, tempPassword, nil
}

// ResolveUserByKey maps a license or sub-license key to the acting user.
// Returns uuid.Nil when no user is linked yet.
func (s *service) ResolveUserByKey(ctx context.Context, key string) (uuid.UUID, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return uuid.Nil, nil
	}

	mainKey, err := s.repo.FindKey(ctx, key)
	if err == nil {
		userID, findErr := s.repo.FindFirstUserForKey(ctx, mainKey.ID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return uuid.Nil, nil
			}
			return uuid.Nil, findErr
		}
		return userID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, err
	}

	sub, err := s.repo.FindSubLicense(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	if sub.AssignedUserID != nil {
		return *sub.AssignedUserID, nil
	}
	return uuid.Nil, nil
}

func (s *service) IssueKey(ctx context.Context, input IssueKeyInput) (*models.LicenseKey, error) {
	if !input.Vendor.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor is invalid")
	}

	key := strings.TrimSpace(input.Key)
	if key == "" {
		generated, err := security.GenerateLicenseKey()
		if err != nil {
			return nil, err
		}
		key = generated
	}

	tier := input.Tier
	if tier <= 0 {
		tier = 1
	}

	row := &models.LicenseKey{
		Key:            key,
		IsActive:       true,
		Tier:           tier,
		Vendor:         input.Vendor,
		LemonProductID: input.LemonProductID,
	}
	row.ID = uuid.New()

	if input.WithRedeemCode {
		code, err := security.GenerateRedeemCode()
		if err != nil {
			return nil, err
		}
		row.RedeemCode = &code
	}

	if err := s.repo.CreateKey(ctx, row); err != nil {
		// Webhook deliveries repeat; an existing key is the same key.
		if db.IsUniqueViolation(err, "") {
			return s.repo.FindKey(ctx, key)
		}
		return nil, err
	}
	return row, nil
}

func (s *service) SetKeyActive(ctx context.Context, key string, active bool) (*models.LicenseKey, error) {
	row, err := s.findKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if row.IsActive == active {
		return row, nil
	}
	row.IsActive = active
	if err := s.repo.UpdateKey(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) UpdateKeyTier(ctx context.Context, key string, tier int) (*models.LicenseKey, error) {
	if tier <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier must be positive")
	}
	row, err := s.findKey(ctx, key)
	if err != nil {
		return nil, err
	}
	row.Tier = tier
	if err := s.repo.UpdateKey(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) GetKey(ctx context.Context, key string) (*models.LicenseKey, error) {
	return s.findKey(ctx, key)
}

func (s *service) findKey(ctx context.Context, key string) (*models.LicenseKey, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license key is required")
	}
	row, err := s.repo.FindKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license key not found")
		}
		return nil, err
	}
	return row, nil
}
