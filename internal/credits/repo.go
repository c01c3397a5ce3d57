package credits

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/pagination"
)

// Repository manages persistence for credit balances and their audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.UserCredit, error)
	EnsureAccount(ctx context.Context, userID uuid.UUID) (*models.UserCredit, error)
	DecrementGuarded(ctx context.Context, userID uuid.UUID, amount int64) (bool, error)
	Increment(ctx context.Context, userID uuid.UUID, amount int64) error
	CreateTransaction(ctx context.Context, txRow *models.CreditTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error)
	ListTransactionsBefore(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.CreditTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a credits repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.UserCredit, error) {
	var row models.UserCredit
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// EnsureAccount creates a zero-balance account when none exists yet.
func (r *repository) EnsureAccount(ctx context.Context, userID uuid.UUID) (*models.UserCredit, error) {
	row := models.UserCredit{UserID: userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}
	return r.FindByUserID(ctx, userID)
}

// DecrementGuarded subtracts amount only while the balance stays non-negative.
// Returns false when the guard rejected the update.
func (r *repository) DecrementGuarded(ctx context.Context, userID uuid.UUID, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UserCredit{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Increment(ctx context.Context, userID uuid.UUID, amount int64) error {
	return r.db.WithContext(ctx).
		Model(&models.UserCredit{}).
		Where("user_id = ?", userID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount)).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txRow *models.CreditTransaction) error {
	return r.db.WithContext(ctx).Create(txRow).Error
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error) {
	var rows []models.CreditTransaction
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListTransactionsBefore pages newest-first from the cursor position.
func (r *repository) ListTransactionsBefore(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.CreditTransaction, error) {
	var rows []models.CreditTransaction
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC")
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
