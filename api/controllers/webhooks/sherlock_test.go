package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/internal/sherlock"
	"github.com/ollyhq/olly-backend/pkg/db/models"
)

type fakeSherlockService struct {
	inputs []sherlock.ResultInput
	err    error
}

func (f *fakeSherlockService) CreateTask(_ context.Context, _ sherlock.CreateTaskInput) (*models.SherlockTask, error) {
	return nil, nil
}

func (f *fakeSherlockService) ProcessResult(_ context.Context, input sherlock.ResultInput) (*sherlock.ResultOutcome, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &sherlock.ResultOutcome{}, nil
}

func (f *fakeSherlockService) ListTasks(_ context.Context, _ uuid.UUID, _ int) ([]models.SherlockTask, error) {
	return nil, nil
}

func (f *fakeSherlockService) ExpireStale(_ context.Context, _ time.Duration) (int, error) {
	return 0, nil
}

func postSherlockResult(t *testing.T, svc sherlock.Service, secret, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/sherlock", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	rec := httptest.NewRecorder()
	SherlockResultWebhook(svc, "worker-secret", nil)(rec, req)
	return rec
}

func TestSherlockResultWebhookAcceptsWorkerPayload(t *testing.T) {
	svc := &fakeSherlockService{}
	taskID := uuid.New().String()

	// The worker reports extra fields the handler does not model.
	body := `{
		"username": "target_handle",
		"success": true,
		"task_id": "` + taskID + `",
		"output_file": "results/target_handle.json",
		"error": "",
		"accounts_found": ["https://github.com/target_handle"],
		"total_found": 12,
		"valid_found": 9,
		"worker_version": "1.4.2"
	}`

	rec := postSherlockResult(t, svc, "worker-secret", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.inputs) != 1 {
		t.Fatalf("expected one result processed, got %d", len(svc.inputs))
	}
	got := svc.inputs[0]
	if got.TaskID != taskID {
		t.Fatalf("expected task id %s, got %s", taskID, got.TaskID)
	}
	if got.Status != "COMPLETED" {
		t.Fatalf("expected success mapped to COMPLETED, got %s", got.Status)
	}
	if got.TotalFound != 12 || got.ValidFound != 9 {
		t.Fatalf("expected counts carried through, got %d/%d", got.TotalFound, got.ValidFound)
	}
}

func TestSherlockResultWebhookMapsFailure(t *testing.T) {
	svc := &fakeSherlockService{}
	body := `{"username":"gone_handle","success":false,"task_id":"` + uuid.New().String() + `","error":"timed out"}`

	rec := postSherlockResult(t, svc, "worker-secret", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.inputs) != 1 {
		t.Fatalf("expected one result processed, got %d", len(svc.inputs))
	}
	if svc.inputs[0].Status != "FAILED" {
		t.Fatalf("expected FAILED, got %s", svc.inputs[0].Status)
	}
	if svc.inputs[0].Error != "timed out" {
		t.Fatalf("expected error carried through, got %s", svc.inputs[0].Error)
	}
}

func TestSherlockResultWebhookRejectsMissingFields(t *testing.T) {
	svc := &fakeSherlockService{}
	body := `{"username":"target_handle","success":true}`

	rec := postSherlockResult(t, svc, "worker-secret", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(svc.inputs) != 0 {
		t.Fatal("expected no result processed")
	}
}

func TestSherlockResultWebhookRejectsBadSecret(t *testing.T) {
	svc := &fakeSherlockService{}
	body := `{"username":"target_handle","success":true,"task_id":"` + uuid.New().String() + `"}`

	rec := postSherlockResult(t, svc, "wrong-secret", body)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(svc.inputs) != 0 {
		t.Fatal("expected no result processed")
	}
}
