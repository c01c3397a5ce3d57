package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ollyhq/olly-backend/internal/licenses"
	"github.com/ollyhq/olly-backend/internal/webhooks"
	"github.com/ollyhq/olly-backend/pkg/db/models"
)

type fakeLicenseManager struct {
	issued []licenses.IssueKeyInput
}

func (f *fakeLicenseManager) IssueKey(_ context.Context, input licenses.IssueKeyInput) (*models.LicenseKey, error) {
	f.issued = append(f.issued, input)
	return &models.LicenseKey{Key: input.Key, IsActive: true, Tier: input.Tier, Vendor: input.Vendor}, nil
}

func (f *fakeLicenseManager) SetKeyActive(_ context.Context, key string, active bool) (*models.LicenseKey, error) {
	return &models.LicenseKey{Key: key, IsActive: active}, nil
}

func (f *fakeLicenseManager) UpdateKeyTier(_ context.Context, key string, tier int) (*models.LicenseKey, error) {
	return &models.LicenseKey{Key: key, IsActive: true, Tier: tier}, nil
}

func (f *fakeLicenseManager) ConvertToTeam(_ context.Context, _ licenses.ConvertToTeamInput) (*licenses.TeamConversionResult, error) {
	return &licenses.TeamConversionResult{}, nil
}

func (f *fakeLicenseManager) RevertTeamConversion(_ context.Context, _ string) (*licenses.TeamReversalResult, error) {
	return &licenses.TeamReversalResult{}, nil
}

func (f *fakeLicenseManager) GetKey(_ context.Context, key string) (*models.LicenseKey, error) {
	return &models.LicenseKey{Key: key, IsActive: true}, nil
}

type fakeGuard struct{}

func (fakeGuard) CheckAndMark(_ context.Context, _, _ string) (bool, error) { return true, nil }
func (fakeGuard) Release(_ context.Context, _, _ string) error              { return nil }

func TestAppSumoWebhookToleratesExtraFields(t *testing.T) {
	manager := &fakeLicenseManager{}
	svc, err := webhooks.NewAppSumoService(manager, fakeGuard{}, nil)
	if err != nil {
		t.Fatalf("NewAppSumoService: %v", err)
	}

	// Real deliveries carry fields beyond the ones the handler models.
	body := `{
		"action": "activate",
		"license_key": "OLLY-AS-2024-001",
		"tier": 2,
		"plan_id": "olly_tier2",
		"uuid": "7c6f4a1e-9f93-4a36-a9a6-2f1f6f0f4b6e",
		"invoice_item_uuid": "0b1d5a8c-4c7e-4b62-9f0e-6a2d1c3e5f7a"
	}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/appsumo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-AppSumo-Licensing-Key", "licensing-key")
	rec := httptest.NewRecorder()
	AppSumoWebhook(svc, "licensing-key", nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(manager.issued) != 1 {
		t.Fatalf("expected one key issued, got %d", len(manager.issued))
	}
	if manager.issued[0].Key != "OLLY-AS-2024-001" || manager.issued[0].Tier != 2 {
		t.Fatalf("unexpected issue input: %+v", manager.issued[0])
	}
}
