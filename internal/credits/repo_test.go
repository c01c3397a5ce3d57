package credits

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	"github.com/ollyhq/olly-backend/pkg/pagination"
)

func setupCreditsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	userCredits := `
CREATE TABLE IF NOT EXISTS user_credits (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  balance INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	creditTransactions := `
CREATE TABLE IF NOT EXISTS credit_transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount INTEGER NOT NULL,
  action TEXT NOT NULL,
  description TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(userCredits).Error)
	require.NoError(t, db.Exec(creditTransactions).Error)
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, userID uuid.UUID, balance int64) {
	t.Helper()

	row := &models.UserCredit{UserID: userID, Balance: balance}
	row.ID = uuid.New()
	require.NoError(t, db.Create(row).Error)
}

func TestDecrementGuardedRejectsOverdraft(t *testing.T) {
	db := setupCreditsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	seedAccount(t, db, userID, 5)

	ok, err := repo.DecrementGuarded(ctx, userID, 3)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.DecrementGuarded(ctx, userID, 3)
	require.NoError(t, err)
	require.False(t, ok, "decrement past zero must be rejected")

	row, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(2), row.Balance)
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	db := setupCreditsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	seedAccount(t, db, userID, 7)

	row, err := repo.EnsureAccount(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(7), row.Balance, "existing balance must survive EnsureAccount")
}

func TestIncrementAndTransactionTrail(t *testing.T) {
	db := setupCreditsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	seedAccount(t, db, userID, 0)
	require.NoError(t, repo.Increment(ctx, userID, 10))

	txRow := &models.CreditTransaction{
		UserID: userID,
		Type:   enums.CreditTransactionEarned,
		Amount: 10,
		Action: "signup_bonus",
	}
	txRow.ID = uuid.New()
	require.NoError(t, repo.CreateTransaction(ctx, txRow))

	rows, err := repo.ListTransactions(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, enums.CreditTransactionEarned, rows[0].Type)

	account, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(10), account.Balance)
}

func TestListTransactionsBeforePagesNewestFirst(t *testing.T) {
	db := setupCreditsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		row := &models.CreditTransaction{
			UserID:    userID,
			Type:      enums.CreditTransactionSpent,
			Amount:    1,
			Action:    "comment",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		row.ID = uuid.New()
		require.NoError(t, db.Create(row).Error)
	}

	first, err := repo.ListTransactionsBefore(ctx, userID, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.True(t, first[0].CreatedAt.After(first[1].CreatedAt))

	cursor := &pagination.Cursor{CreatedAt: first[1].CreatedAt, ID: first[1].ID}
	rest, err := repo.ListTransactionsBefore(ctx, userID, cursor, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.True(t, rest[0].CreatedAt.Before(first[1].CreatedAt))
}
