package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/api/responses"
	"github.com/ollyhq/olly-backend/api/validators"
	"github.com/ollyhq/olly-backend/internal/credits"
	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/logger"
	"github.com/ollyhq/olly-backend/pkg/pagination"
)

// CreditBalance returns the acting user's current balance.
func CreditBalance(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credits service unavailable"))
			return
		}

		userID, err := actingUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		balance, err := svc.GetBalance(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

type creditSpendRequest struct {
	Action      string `json:"action" validate:"required"`
	Cost        int64  `json:"cost" validate:"required,gt=0"`
	Description string `json:"description"`
}

// CreditSpend deducts credits for one action, rejecting overdrafts before
// any state changes.
func CreditSpend(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credits service unavailable"))
			return
		}

		userID, err := actingUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload creditSpendRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		balance, err := svc.Spend(ctx, credits.SpendInput{
			UserID:      userID,
			Action:      payload.Action,
			Cost:        payload.Cost,
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

type creditGrantRequest struct {
	Action      string `json:"action" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description"`
}

// CreditGrant adds earned credits to the acting user's balance.
func CreditGrant(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credits service unavailable"))
			return
		}

		userID, err := actingUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload creditGrantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		balance, err := svc.Grant(ctx, credits.GrantInput{
			UserID:      userID,
			Action:      payload.Action,
			Amount:      payload.Amount,
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

type creditTransactionResponse struct {
	ID          uuid.UUID                   `json:"id"`
	Type        enums.CreditTransactionType `json:"type"`
	Amount      int64                       `json:"amount"`
	Action      string                      `json:"action"`
	Description *string                     `json:"description,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
}

func creditTransactionFromModel(m *models.CreditTransaction) creditTransactionResponse {
	return creditTransactionResponse{
		ID:          m.ID,
		Type:        m.Type,
		Amount:      m.Amount,
		Action:      m.Action,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

// CreditTransactions lists the acting user's recent balance changes.
func CreditTransactions(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credits service unavailable"))
			return
		}

		userID, err := actingUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.TransactionsPage(ctx, userID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := creditTransactionsResponse{
			Transactions: make([]creditTransactionResponse, 0, len(page.Transactions)),
			NextCursor:   page.NextCursor,
		}
		for i := range page.Transactions {
			out.Transactions = append(out.Transactions, creditTransactionFromModel(&page.Transactions[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type creditTransactionsResponse struct {
	Transactions []creditTransactionResponse `json:"transactions"`
	NextCursor   string                      `json:"next_cursor,omitempty"`
}
