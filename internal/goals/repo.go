package goals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
)

// Repository manages persistence for license goals.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, goal *models.LicenseGoal) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LicenseGoal, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.LicenseGoal, error)
	FindActiveByPlatform(ctx context.Context, userID uuid.UUID, platform enums.Platform) (*models.LicenseGoal, error)
	Update(ctx context.Context, goal *models.LicenseGoal) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a goals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, goal *models.LicenseGoal) error {
	return r.db.WithContext(ctx).Create(goal).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LicenseGoal, error) {
	var row models.LicenseGoal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.LicenseGoal, error) {
	var rows []models.LicenseGoal
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindActiveByPlatform returns the user's non-achieved goal for the platform,
// or gorm.ErrRecordNotFound when none exists.
func (r *repository) FindActiveByPlatform(ctx context.Context, userID uuid.UUID, platform enums.Platform) (*models.LicenseGoal, error) {
	var row models.LicenseGoal
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND platform = ? AND status = ?", userID, platform, enums.GoalStatusInProgress).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Update(ctx context.Context, goal *models.LicenseGoal) error {
	return r.db.WithContext(ctx).Save(goal).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.LicenseGoal{}).Error
}

func (r *repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LicenseGoal{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
