package goals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
)

type milestoneRecorder interface {
	RecordFirstGoal(ctx context.Context, userID uuid.UUID) error
}

// Service exposes goal CRUD scoped to the authenticated user's entitlement.
type Service interface {
	CreateGoal(ctx context.Context, input CreateGoalInput) (*models.LicenseGoal, error)
	ListGoals(ctx context.Context, userID uuid.UUID) ([]models.LicenseGoal, error)
	UpdateProgress(ctx context.Context, input UpdateProgressInput) (*models.LicenseGoal, error)
	DeleteGoal(ctx context.Context, userID, goalID uuid.UUID) error
}

type service struct {
	repo       Repository
	milestones milestoneRecorder
}

// CreateGoalInput carries the data needed to open a goal.
type CreateGoalInput struct {
	UserID       uuid.UUID
	LicenseKeyID *uuid.UUID
	SubLicenseID *uuid.UUID
	Goal         string
	Platform     string
	Target       int
}

// UpdateProgressInput moves a goal's progress forward.
type UpdateProgressInput struct {
	UserID   uuid.UUID
	GoalID   uuid.UUID
	Progress int
}

// NewService wires a goals service. The milestone recorder is optional.
func NewService(repo Repository, milestones milestoneRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("goals repository required")
	}
	return &service{repo: repo, milestones: milestones}, nil
}

func (s *service) CreateGoal(ctx context.Context, input CreateGoalInput) (*models.LicenseGoal, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(input.Goal) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "goal is required")
	}
	platform, err := enums.ParsePlatform(input.Platform)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid platform")
	}
	if input.Target <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target must be positive")
	}
	if input.LicenseKeyID == nil && input.SubLicenseID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "goal must be scoped to a license or sub-license")
	}

	// One active goal per platform.
	existing, err := s.repo.FindActiveByPlatform(ctx, input.UserID, platform)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active goal")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an active goal already exists for this platform").
			WithDetails(map[string]any{"goal_id": existing.ID})
	}

	isFirst := false
	if count, err := s.repo.CountByUser(ctx, input.UserID); err == nil {
		isFirst = count == 0
	}

	goal := &models.LicenseGoal{
		UserID:       input.UserID,
		LicenseKeyID: input.LicenseKeyID,
		SubLicenseID: input.SubLicenseID,
		Goal:         strings.TrimSpace(input.Goal),
		Platform:     platform,
		Target:       input.Target,
		Progress:     0,
		Status:       enums.GoalStatusInProgress,
	}
	goal.ID = uuid.New()

	if err := s.repo.Create(ctx, goal); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create goal")
	}

	if isFirst && s.milestones != nil {
		// Best-effort; the goal row is already committed.
		_ = s.milestones.RecordFirstGoal(ctx, input.UserID)
	}

	return goal, nil
}

func (s *service) ListGoals(ctx context.Context, userID uuid.UUID) ([]models.LicenseGoal, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list goals")
	}
	return rows, nil
}

func (s *service) UpdateProgress(ctx context.Context, input UpdateProgressInput) (*models.LicenseGoal, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.GoalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "goal id is required")
	}
	if input.Progress < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "progress cannot be negative")
	}

	goal, err := s.repo.FindByID(ctx, input.GoalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "goal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup goal")
	}
	if goal.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "goal does not belong to user")
	}
	if goal.Status == enums.GoalStatusAchieved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "goal already achieved")
	}

	goal.Progress = input.Progress
	if goal.Progress >= goal.Target {
		goal.Status = enums.GoalStatusAchieved
		now := time.Now().UTC()
		goal.AchievedAt = &now
	}

	if err := s.repo.Update(ctx, goal); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update goal")
	}
	return goal, nil
}

func (s *service) DeleteGoal(ctx context.Context, userID, goalID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if goalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "goal id is required")
	}

	goal, err := s.repo.FindByID(ctx, goalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "goal not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup goal")
	}
	if goal.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "goal does not belong to user")
	}

	if err := s.repo.Delete(ctx, goalID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete goal")
	}
	return nil
}
