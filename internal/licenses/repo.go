package licenses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
)

// Repository manages persistence for license keys, sub-licenses, activations,
// and the users/organizations they attach to.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindKey(ctx context.Context, key string) (*models.LicenseKey, error)
	FindKeyByID(ctx context.Context, id uuid.UUID) (*models.LicenseKey, error)
	FindKeyByRedeemCode(ctx context.Context, code string) (*models.LicenseKey, error)
	CreateKey(ctx context.Context, key *models.LicenseKey) error
	UpdateKey(ctx context.Context, key *models.LicenseKey) error
	IncrementKeyActivation(ctx context.Context, id uuid.UUID) error
	ListActiveKeysByVendor(ctx context.Context, vendor enums.Vendor) ([]models.LicenseKey, error)

	FindSubLicense(ctx context.Context, key string) (*models.SubLicense, error)
	ListSubLicensesByMainKey(ctx context.Context, mainKeyID uuid.UUID) ([]models.SubLicense, error)
	CreateSubLicense(ctx context.Context, sub *models.SubLicense) error
	UpdateSubLicense(ctx context.Context, sub *models.SubLicense) error
	DeleteSubLicense(ctx context.Context, id uuid.UUID) error
	IncrementSubLicenseActivation(ctx context.Context, id uuid.UUID) error

	CreateActivation(ctx context.Context, activation *models.Activation) error
	UpsertUserLicenseKey(ctx context.Context, userID, licenseKeyID uuid.UUID) error
	FindFirstUserForKey(ctx context.Context, licenseKeyID uuid.UUID) (uuid.UUID, error)

	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	CreateOrganization(ctx context.Context, org *models.Organization) error
	FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, org *models.Organization) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a licenses repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindKey(ctx context.Context, key string) (*models.LicenseKey, error) {
	var row models.LicenseKey
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindKeyByID(ctx context.Context, id uuid.UUID) (*models.LicenseKey, error) {
	var row models.LicenseKey
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindKeyByRedeemCode(ctx context.Context, code string) (*models.LicenseKey, error) {
	var row models.LicenseKey
	if err := r.db.WithContext(ctx).Where("redeem_code = ?", code).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) CreateKey(ctx context.Context, key *models.LicenseKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

func (r *repository) UpdateKey(ctx context.Context, key *models.LicenseKey) error {
	return r.db.WithContext(ctx).Save(key).Error
}

func (r *repository) IncrementKeyActivation(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.LicenseKey{}).
		Where("id = ?", id).
		UpdateColumn("activation_count", gorm.Expr("activation_count + 1")).Error
}

func (r *repository) ListActiveKeysByVendor(ctx context.Context, vendor enums.Vendor) ([]models.LicenseKey, error) {
	var rows []models.LicenseKey
	err := r.db.WithContext(ctx).
		Where("vendor = ? AND is_active = ?", vendor, true).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindSubLicense(ctx context.Context, key string) (*models.SubLicense, error) {
	var row models.SubLicense
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListSubLicensesByMainKey(ctx context.Context, mainKeyID uuid.UUID) ([]models.SubLicense, error) {
	var rows []models.SubLicense
	err := r.db.WithContext(ctx).
		Where("main_license_key_id = ?", mainKeyID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateSubLicense(ctx context.Context, sub *models.SubLicense) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) UpdateSubLicense(ctx context.Context, sub *models.SubLicense) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *repository) DeleteSubLicense(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SubLicense{}).Error
}

func (r *repository) IncrementSubLicenseActivation(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SubLicense{}).
		Where("id = ?", id).
		UpdateColumn("activation_count", gorm.Expr("activation_count + 1")).Error
}

func (r *repository) CreateActivation(ctx context.Context, activation *models.Activation) error {
	return r.db.WithContext(ctx).Create(activation).Error
}

// UpsertUserLicenseKey keeps repeated activations of the same key idempotent.
func (r *repository) UpsertUserLicenseKey(ctx context.Context, userID, licenseKeyID uuid.UUID) error {
	row := models.UserLicenseKey{UserID: userID, LicenseKeyID: licenseKeyID}
	row.ID = uuid.New()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "license_key_id"}},
			DoNothing: true,
		}).
		Create(&row).Error
}

func (r *repository) FindFirstUserForKey(ctx context.Context, licenseKeyID uuid.UUID) (uuid.UUID, error) {
	var row models.UserLicenseKey
	err := r.db.WithContext(ctx).
		Where("license_key_id = ?", licenseKeyID).
		Order("created_at ASC").
		First(&row).Error
	if err != nil {
		return uuid.Nil, err
	}
	return row.UserID, nil
}

func (r *repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var row models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) CreateOrganization(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *repository) FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var row models.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Save(org).Error
}
