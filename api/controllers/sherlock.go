package controllers

import (
	"net/http"
	"time"

	"github.com/ollyhq/olly-backend/api/responses"
	"github.com/ollyhq/olly-backend/api/validators"
	"github.com/ollyhq/olly-backend/internal/sherlock"
	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

type sherlockCreateRequest struct {
	TaskID   string `json:"task_id" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type sherlockTaskResponse struct {
	TaskID     string                   `json:"task_id"`
	Username   string                   `json:"username"`
	Status     enums.SherlockTaskStatus `json:"status"`
	TotalFound int                      `json:"total_found"`
	ValidFound int                      `json:"valid_found"`
	OutputFile *string                  `json:"output_file,omitempty"`
	Error      *string                  `json:"error,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
}

func sherlockTaskFromModel(m *models.SherlockTask) sherlockTaskResponse {
	return sherlockTaskResponse{
		TaskID:     m.TaskID,
		Username:   m.Username,
		Status:     m.Status,
		TotalFound: m.TotalFound,
		ValidFound: m.ValidFound,
		OutputFile: m.OutputFile,
		Error:      m.Error,
		CreatedAt:  m.CreatedAt,
	}
}

// SherlockCreateTask registers a username search submitted to the worker.
func SherlockCreateTask(svc sherlock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sherlock service unavailable"))
			return
		}

		userID, err := actingUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload sherlockCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		task, err := svc.CreateTask(ctx, sherlock.CreateTaskInput{
			TaskID:   payload.TaskID,
			UserID:   &userID,
			Username: payload.Username,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sherlockTaskFromModel(task))
	}
}

// SherlockListTasks returns the acting user's recent searches.
func SherlockListTasks(svc sherlock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sherlock service unavailable"))
			return
		}

		userID, err := actingUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.ListTasks(ctx, userID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]sherlockTaskResponse, 0, len(rows))
		for i := range rows {
			out = append(out, sherlockTaskFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
