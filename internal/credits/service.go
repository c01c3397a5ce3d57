package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes credit balance reads and atomic spend/grant mutations.
type Service interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error)
	CurrentBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	Spend(ctx context.Context, input SpendInput) (*Balance, error)
	Grant(ctx context.Context, input GrantInput) (*Balance, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error)
	TransactionsPage(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionsPage, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// SpendInput describes a metered action charging a user's balance.
type SpendInput struct {
	UserID      uuid.UUID
	Action      string
	Cost        int64
	Description string
}

// GrantInput describes credits being added to a user's balance.
type GrantInput struct {
	UserID      uuid.UUID
	Action      string
	Amount      int64
	Description string
}

// Balance is the read model returned to controllers.
type Balance struct {
	UserID  uuid.UUID `json:"user_id"`
	Balance int64     `json:"balance"`
}

// TransactionsPage is one cursor-paged slice of the audit trail.
type TransactionsPage struct {
	Transactions []models.CreditTransaction
	NextCursor   string
}

// NewService wires a credits service with its repository and transaction runner.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("credits repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	row, err := s.repo.EnsureAccount(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credit balance")
	}
	return &Balance{UserID: row.UserID, Balance: row.Balance}, nil
}

// CurrentBalance is the raw balance read other services embed in their own
// responses.
func (s *service) CurrentBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	balance, err := s.GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	return balance.Balance, nil
}

// Spend decrements the balance and writes the SPENT transaction row in one
// database transaction. The guarded decrement keeps the balance non-negative
// under concurrent spends; an insufficient balance never mutates anything.
func (s *service) Spend(ctx context.Context, input SpendInput) (*Balance, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(input.Action) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action is required")
	}
	if input.Cost <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost must be positive")
	}

	account, err := s.repo.EnsureAccount(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credit balance")
	}
	if account.Balance < input.Cost {
		return nil, insufficientErr(account.Balance, input.Cost)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.DecrementGuarded(ctx, input.UserID, input.Cost)
		if err != nil {
			return fmt.Errorf("decrement balance: %w", err)
		}
		if !ok {
			// Raced with another spend since the pre-check.
			current, err := repo.FindByUserID(ctx, input.UserID)
			if err != nil {
				return fmt.Errorf("reload balance: %w", err)
			}
			return insufficientErr(current.Balance, input.Cost)
		}

		return repo.CreateTransaction(ctx, &models.CreditTransaction{
			UserID:      input.UserID,
			Type:        enums.CreditTransactionSpent,
			Amount:      input.Cost,
			Action:      strings.TrimSpace(input.Action),
			Description: optional(input.Description),
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "spend credits")
	}

	return s.GetBalance(ctx, input.UserID)
}

// Grant adds credits and records the EARNED transaction atomically.
func (s *service) Grant(ctx context.Context, input GrantInput) (*Balance, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(input.Action) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	if _, err := s.repo.EnsureAccount(ctx, input.UserID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credit balance")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Increment(ctx, input.UserID, input.Amount); err != nil {
			return fmt.Errorf("increment balance: %w", err)
		}
		return repo.CreateTransaction(ctx, &models.CreditTransaction{
			UserID:      input.UserID,
			Type:        enums.CreditTransactionEarned,
			Amount:      input.Amount,
			Action:      strings.TrimSpace(input.Action),
			Description: optional(input.Description),
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant credits")
	}

	return s.GetBalance(ctx, input.UserID)
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListTransactions(ctx, userID, limit)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list credit transactions")
	}
	return rows, nil
}

// TransactionsPage pages the audit trail newest-first; the returned cursor is
// empty on the last page.
func (s *service) TransactionsPage(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionsPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListTransactionsBefore(ctx, userID, cursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list credit transactions")
	}

	page := &TransactionsPage{Transactions: rows}
	if len(rows) > limit {
		page.Transactions = rows[:limit]
		last := page.Transactions[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

func insufficientErr(balance, cost int64) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientCredits, "insufficient credits").
		WithDetails(map[string]any{"balance": balance, "required": cost})
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
