package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/api/middleware"
	"github.com/ollyhq/olly-backend/internal/usage"
)

type fakeUsageService struct {
	weeklyInputs []usage.WeeklyCommentsInput
}

func (f *fakeUsageService) RecordUsage(_ context.Context, _ usage.RecordUsageInput) (*usage.RecordUsageResult, error) {
	return &usage.RecordUsageResult{}, nil
}

func (f *fakeUsageService) Aggregate(_ context.Context, _ uuid.UUID, period string) (*usage.AggregateResult, error) {
	return &usage.AggregateResult{Period: period}, nil
}

func (f *fakeUsageService) WeeklyComments(_ context.Context, input usage.WeeklyCommentsInput) (*usage.WeeklyCommentsResult, error) {
	f.weeklyInputs = append(f.weeklyInputs, input)
	return &usage.WeeklyCommentsResult{Days: []usage.DayCount{{Date: "2026-08-24", Count: 4}}}, nil
}

func postWeeklyComments(t *testing.T, svc usage.Service, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/weekly-comments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	WeeklyComments(svc, nil)(rec, req)
	return rec
}

func TestWeeklyCommentsAcceptsDateRangeBody(t *testing.T) {
	svc := &fakeUsageService{}
	userID := uuid.New()

	body := `{"startDate":"2026-08-24","endDate":"2026-08-30"}`
	rec := postWeeklyComments(t, svc, userID.String(), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.weeklyInputs) != 1 {
		t.Fatalf("expected one query, got %d", len(svc.weeklyInputs))
	}
	got := svc.weeklyInputs[0]
	if got.UserID != userID {
		t.Fatalf("expected acting user %s, got %s", userID, got.UserID)
	}
	if got.StartDate.Format("2006-01-02") != "2026-08-24" || got.EndDate.Format("2006-01-02") != "2026-08-30" {
		t.Fatalf("unexpected range: %s to %s", got.StartDate, got.EndDate)
	}
}

func TestWeeklyCommentsRejectsMissingDates(t *testing.T) {
	svc := &fakeUsageService{}

	rec := postWeeklyComments(t, svc, uuid.New().String(), `{"startDate":"2026-08-24"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(svc.weeklyInputs) != 0 {
		t.Fatal("expected no query")
	}
}

func TestWeeklyCommentsRejectsBadDate(t *testing.T) {
	svc := &fakeUsageService{}

	rec := postWeeklyComments(t, svc, uuid.New().String(), `{"startDate":"24-08-2026","endDate":"2026-08-30"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWeeklyCommentsRequiresUser(t *testing.T) {
	svc := &fakeUsageService{}

	rec := postWeeklyComments(t, svc, "", `{"startDate":"2026-08-24","endDate":"2026-08-30"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
