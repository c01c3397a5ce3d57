package goals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
)

type fakeGoalsRepo struct {
	rows map[uuid.UUID]*models.LicenseGoal
}

func newFakeGoalsRepo() *fakeGoalsRepo {
	return &fakeGoalsRepo{rows: map[uuid.UUID]*models.LicenseGoal{}}
}

func (f *fakeGoalsRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeGoalsRepo) Create(_ context.Context, goal *models.LicenseGoal) error {
	copied := *goal
	f.rows[goal.ID] = &copied
	return nil
}

func (f *fakeGoalsRepo) FindByID(_ context.Context, id uuid.UUID) (*models.LicenseGoal, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeGoalsRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]models.LicenseGoal, error) {
	var rows []models.LicenseGoal
	for _, row := range f.rows {
		if row.UserID == userID {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func (f *fakeGoalsRepo) FindActiveByPlatform(_ context.Context, userID uuid.UUID, platform enums.Platform) (*models.LicenseGoal, error) {
	for _, row := range f.rows {
		if row.UserID == userID && row.Platform == platform && row.Status == enums.GoalStatusInProgress {
			copied := *row
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeGoalsRepo) Update(_ context.Context, goal *models.LicenseGoal) error {
	copied := *goal
	f.rows[goal.ID] = &copied
	return nil
}

func (f *fakeGoalsRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeGoalsRepo) CountByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, row := range f.rows {
		if row.UserID == userID {
			count++
		}
	}
	return count, nil
}

type fakeMilestones struct {
	firstGoalUsers []uuid.UUID
}

func (f *fakeMilestones) RecordFirstGoal(_ context.Context, userID uuid.UUID) error {
	f.firstGoalUsers = append(f.firstGoalUsers, userID)
	return nil
}

func scoped(id uuid.UUID) *uuid.UUID { return &id }

func TestCreateGoalConflictsOnActivePlatformGoal(t *testing.T) {
	repo := newFakeGoalsRepo()
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	userID := uuid.New()
	licenseID := uuid.New()

	input := CreateGoalInput{
		UserID:       userID,
		LicenseKeyID: scoped(licenseID),
		Goal:         "50 comments this month",
		Platform:     "linkedin",
		Target:       50,
	}

	if _, err := svc.CreateGoal(context.Background(), input); err != nil {
		t.Fatalf("create goal: %v", err)
	}

	_, err = svc.CreateGoal(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT for duplicate active goal, got %v", err)
	}

	// A different platform is fine.
	input.Platform = "instagram"
	if _, err := svc.CreateGoal(context.Background(), input); err != nil {
		t.Fatalf("create goal on second platform: %v", err)
	}
}

func TestCreateGoalRecordsFirstGoalMilestone(t *testing.T) {
	repo := newFakeGoalsRepo()
	milestones := &fakeMilestones{}
	svc, err := NewService(repo, milestones)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	userID := uuid.New()
	input := CreateGoalInput{
		UserID:       userID,
		LicenseKeyID: scoped(uuid.New()),
		Goal:         "first goal",
		Platform:     "linkedin",
		Target:       10,
	}
	if _, err := svc.CreateGoal(context.Background(), input); err != nil {
		t.Fatalf("create goal: %v", err)
	}

	input.Platform = "twitter"
	if _, err := svc.CreateGoal(context.Background(), input); err != nil {
		t.Fatalf("create second goal: %v", err)
	}

	if len(milestones.firstGoalUsers) != 1 || milestones.firstGoalUsers[0] != userID {
		t.Fatalf("expected exactly one first-goal milestone, got %v", milestones.firstGoalUsers)
	}
}

func TestUpdateProgressFlipsToAchievedAtTarget(t *testing.T) {
	repo := newFakeGoalsRepo()
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	userID := uuid.New()
	goal, err := svc.CreateGoal(context.Background(), CreateGoalInput{
		UserID:       userID,
		LicenseKeyID: scoped(uuid.New()),
		Goal:         "20 posts",
		Platform:     "linkedin",
		Target:       20,
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	updated, err := svc.UpdateProgress(context.Background(), UpdateProgressInput{UserID: userID, GoalID: goal.ID, Progress: 10})
	if err != nil {
		t.Fatalf("update progress: %v", err)
	}
	if updated.Status != enums.GoalStatusInProgress {
		t.Fatalf("expected in_progress at 10/20, got %s", updated.Status)
	}

	updated, err = svc.UpdateProgress(context.Background(), UpdateProgressInput{UserID: userID, GoalID: goal.ID, Progress: 20})
	if err != nil {
		t.Fatalf("update progress to target: %v", err)
	}
	if updated.Status != enums.GoalStatusAchieved {
		t.Fatalf("expected achieved at target, got %s", updated.Status)
	}
	if updated.AchievedAt == nil {
		t.Fatal("expected achieved_at timestamp")
	}

	// Further updates to an achieved goal are rejected.
	_, err = svc.UpdateProgress(context.Background(), UpdateProgressInput{UserID: userID, GoalID: goal.ID, Progress: 25})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT on achieved goal, got %v", err)
	}
}

func TestUpdateProgressOwnershipAndExistence(t *testing.T) {
	repo := newFakeGoalsRepo()
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	owner := uuid.New()
	goal, err := svc.CreateGoal(context.Background(), CreateGoalInput{
		UserID:       owner,
		LicenseKeyID: scoped(uuid.New()),
		Goal:         "goal",
		Platform:     "linkedin",
		Target:       5,
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	_, err = svc.UpdateProgress(context.Background(), UpdateProgressInput{UserID: uuid.New(), GoalID: goal.ID, Progress: 1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN for foreign goal, got %v", err)
	}

	_, err = svc.UpdateProgress(context.Background(), UpdateProgressInput{UserID: owner, GoalID: uuid.New(), Progress: 1})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for unknown goal, got %v", err)
	}
}

func TestDeleteGoal(t *testing.T) {
	repo := newFakeGoalsRepo()
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	userID := uuid.New()
	goal, err := svc.CreateGoal(context.Background(), CreateGoalInput{
		UserID:       userID,
		LicenseKeyID: scoped(uuid.New()),
		Goal:         "goal",
		Platform:     "linkedin",
		Target:       5,
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	if err := svc.DeleteGoal(context.Background(), uuid.New(), goal.ID); err == nil {
		t.Fatal("expected error deleting foreign goal")
	}
	if err := svc.DeleteGoal(context.Background(), userID, goal.ID); err != nil {
		t.Fatalf("delete goal: %v", err)
	}

	rows, err := svc.ListGoals(context.Background(), userID)
	if err != nil {
		t.Fatalf("list goals: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no goals after delete, got %d", len(rows))
	}
}

func TestCreateGoalValidation(t *testing.T) {
	svc, err := NewService(newFakeGoalsRepo(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	cases := []CreateGoalInput{
		{UserID: uuid.Nil, LicenseKeyID: scoped(uuid.New()), Goal: "g", Platform: "linkedin", Target: 1},
		{UserID: uuid.New(), LicenseKeyID: scoped(uuid.New()), Goal: "", Platform: "linkedin", Target: 1},
		{UserID: uuid.New(), LicenseKeyID: scoped(uuid.New()), Goal: "g", Platform: "myspace", Target: 1},
		{UserID: uuid.New(), LicenseKeyID: scoped(uuid.New()), Goal: "g", Platform: "linkedin", Target: 0},
		{UserID: uuid.New(), Goal: "g", Platform: "linkedin", Target: 1},
	}
	for _, input := range cases {
		if _, err := svc.CreateGoal(context.Background(), input); err == nil {
			t.Fatalf("expected validation error for %+v", input)
		}
	}
}
