package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/api/middleware"
	"github.com/ollyhq/olly-backend/internal/goals"
	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
)

type fakeGoalsService struct {
	created []goals.CreateGoalInput
}

func (f *fakeGoalsService) CreateGoal(_ context.Context, input goals.CreateGoalInput) (*models.LicenseGoal, error) {
	f.created = append(f.created, input)
	goal := &models.LicenseGoal{
		UserID:   input.UserID,
		Goal:     input.Goal,
		Platform: enums.Platform(input.Platform),
		Target:   input.Target,
		Status:   enums.GoalStatusInProgress,
	}
	goal.ID = uuid.New()
	return goal, nil
}

func (f *fakeGoalsService) ListGoals(_ context.Context, _ uuid.UUID) ([]models.LicenseGoal, error) {
	return nil, nil
}

func (f *fakeGoalsService) UpdateProgress(_ context.Context, _ goals.UpdateProgressInput) (*models.LicenseGoal, error) {
	return nil, nil
}

func (f *fakeGoalsService) DeleteGoal(_ context.Context, _, _ uuid.UUID) error {
	return nil
}

func TestGoalCreateRespondsOK(t *testing.T) {
	svc := &fakeGoalsService{}
	userID := uuid.New()

	body := `{"goal":"comments","platform":"linkedin","target":50}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/goals", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()
	GoalCreate(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.created) != 1 {
		t.Fatalf("expected one goal created, got %d", len(svc.created))
	}
	if svc.created[0].UserID != userID {
		t.Fatalf("expected acting user %s, got %s", userID, svc.created[0].UserID)
	}

	var envelope struct {
		Data goalResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Progress != 0 {
		t.Fatalf("expected progress 0, got %d", envelope.Data.Progress)
	}
	if envelope.Data.Status != enums.GoalStatusInProgress {
		t.Fatalf("expected in_progress, got %s", envelope.Data.Status)
	}
}
