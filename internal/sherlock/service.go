package sherlock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Enabled() bool
	Send(ctx context.Context, content string) error
}

// Service tracks username search tasks and applies the worker's result
// webhook exactly once.
type Service interface {
	CreateTask(ctx context.Context, input CreateTaskInput) (*models.SherlockTask, error)
	ProcessResult(ctx context.Context, input ResultInput) (*ResultOutcome, error)
	ListTasks(ctx context.Context, userID uuid.UUID, limit int) ([]models.SherlockTask, error)
	ExpireStale(ctx context.Context, ttl time.Duration) (int, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	notify notifier
	logg   *logger.Logger
}

// CreateTaskInput registers a search submitted to the worker.
type CreateTaskInput struct {
	TaskID   string
	UserID   *uuid.UUID
	Username string
}

// ResultInput is the worker's result webhook payload.
type ResultInput struct {
	TaskID        string
	Status        string
	OutputFile    string
	Error         string
	AccountsFound json.RawMessage
	TotalFound    int
	ValidFound    int
}

// ResultOutcome reports whether this delivery made the transition or
// arrived after a terminal status was already recorded.
type ResultOutcome struct {
	Task             *models.SherlockTask
	AlreadyProcessed bool
}

// NewService wires the sherlock task service.
func NewService(repo Repository, tx txRunner, notify notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sherlock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, notify: notify, logg: logg}, nil
}

func (s *service) CreateTask(ctx context.Context, input CreateTaskInput) (*models.SherlockTask, error) {
	taskID := strings.TrimSpace(input.TaskID)
	username := strings.TrimSpace(input.Username)
	if taskID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task id is required")
	}
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}

	task := &models.SherlockTask{
		TaskID:   taskID,
		UserID:   input.UserID,
		Username: username,
		Status:   enums.SherlockTaskPending,
	}
	task.ID = uuid.New()
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ProcessResult applies a terminal status to a pending task. The read and
// the write share one transaction so concurrent deliveries cannot both win;
// a delivery that finds the task already terminal is acknowledged without
// side effects.
func (s *service) ProcessResult(ctx context.Context, input ResultInput) (*ResultOutcome, error) {
	taskID := strings.TrimSpace(input.TaskID)
	if taskID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task_id is required")
	}
	status, err := parseResultStatus(input.Status)
	if err != nil {
		return nil, err
	}

	outcome := &ResultOutcome{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		task, findErr := repo.FindByTaskID(ctx, taskID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "unknown task id")
			}
			return findErr
		}

		if task.Status.IsTerminal() {
			outcome.Task = task
			outcome.AlreadyProcessed = true
			return nil
		}

		task.Status = status
		if input.OutputFile != "" {
			outputFile := input.OutputFile
			task.OutputFile = &outputFile
		}
		if input.Error != "" {
			taskErr := input.Error
			task.Error = &taskErr
		}
		if len(input.AccountsFound) > 0 {
			task.AccountsFound = input.AccountsFound
		}
		task.TotalFound = input.TotalFound
		task.ValidFound = input.ValidFound

		if status == enums.SherlockTaskCompleted {
			now := time.Now().UTC()
			task.NotifiedAt = &now
		}

		if updateErr := repo.Update(ctx, task); updateErr != nil {
			return updateErr
		}
		outcome.Task = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !outcome.AlreadyProcessed && outcome.Task.Status == enums.SherlockTaskCompleted {
		s.announceCompletion(ctx, outcome.Task)
	}
	return outcome, nil
}

func (s *service) ListTasks(ctx context.Context, userID uuid.UUID, limit int) ([]models.SherlockTask, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// ExpireStale fails pending tasks older than the TTL and returns how many
// were flipped.
func (s *service) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-ttl)

	stale, err := s.repo.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		task := stale[i]
		task.Status = enums.SherlockTaskFailed
		reason := "task expired before the worker reported a result"
		task.Error = &reason
		if err := s.repo.Update(ctx, &task); err != nil {
			if s.logg != nil {
				s.logg.Error(ctx, "expiring sherlock task failed", err)
			}
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *service) announceCompletion(ctx context.Context, task *models.SherlockTask) {
	if s.notify == nil || !s.notify.Enabled() {
		return
	}
	content := fmt.Sprintf("sherlock search for %q finished: %d accounts found (%d valid)",
		task.Username, task.TotalFound, task.ValidFound)
	if err := s.notify.Send(ctx, content); err != nil && s.logg != nil {
		s.logg.Error(ctx, "sherlock.notify_failed", err)
	}
}

func parseResultStatus(raw string) (enums.SherlockTaskStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(enums.SherlockTaskCompleted):
		return enums.SherlockTaskCompleted, nil
	case string(enums.SherlockTaskFailed):
		return enums.SherlockTaskFailed, nil
	case "":
		return "", pkgerrors.New(pkgerrors.CodeValidation, "status is required")
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "status must be COMPLETED or FAILED")
	}
}
