package sherlock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
)

// Repository persists username search tasks keyed by the worker's task id.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, task *models.SherlockTask) error
	FindByTaskID(ctx context.Context, taskID string) (*models.SherlockTask, error)
	Update(ctx context.Context, task *models.SherlockTask) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.SherlockTask, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.SherlockTask, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sherlock task repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, task *models.SherlockTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *repository) FindByTaskID(ctx context.Context, taskID string) (*models.SherlockTask, error) {
	var row models.SherlockTask
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Update(ctx context.Context, task *models.SherlockTask) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.SherlockTask, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.SherlockTask
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.SherlockTask, error) {
	var rows []models.SherlockTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.SherlockTaskPending, cutoff).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
