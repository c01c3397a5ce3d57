package webhooks

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/internal/licenses"
	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
)

type fakeLicenseManager struct {
	keys        map[string]*models.LicenseKey
	conversions []string
	reversals   []string
	failNext    error
}

func newFakeLicenseManager() *fakeLicenseManager {
	return &fakeLicenseManager{keys: map[string]*models.LicenseKey{}}
}

func (f *fakeLicenseManager) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeLicenseManager) IssueKey(_ context.Context, input licenses.IssueKeyInput) (*models.LicenseKey, error) {
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	if existing, ok := f.keys[input.Key]; ok {
		return existing, nil
	}
	row := &models.LicenseKey{Key: input.Key, IsActive: true, Tier: input.Tier, Vendor: input.Vendor, LemonProductID: input.LemonProductID}
	if row.Tier <= 0 {
		row.Tier = 1
	}
	row.ID = uuid.New()
	f.keys[input.Key] = row
	return row, nil
}

func (f *fakeLicenseManager) SetKeyActive(_ context.Context, key string, active bool) (*models.LicenseKey, error) {
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	row, ok := f.keys[key]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license key not found")
	}
	row.IsActive = active
	return row, nil
}

func (f *fakeLicenseManager) UpdateKeyTier(_ context.Context, key string, tier int) (*models.LicenseKey, error) {
	row, ok := f.keys[key]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license key not found")
	}
	row.Tier = tier
	return row, nil
}

func (f *fakeLicenseManager) ConvertToTeam(_ context.Context, input licenses.ConvertToTeamInput) (*licenses.TeamConversionResult, error) {
	row, ok := f.keys[input.Key]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license key not found")
	}
	if row.ConvertedToTeam {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "license key is already a team key")
	}
	row.ConvertedToTeam = true
	f.conversions = append(f.conversions, input.Key)
	return &licenses.TeamConversionResult{LicenseKey: row}, nil
}

func (f *fakeLicenseManager) RevertTeamConversion(_ context.Context, key string) (*licenses.TeamReversalResult, error) {
	row, ok := f.keys[key]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license key not found")
	}
	row.ConvertedToTeam = false
	f.reversals = append(f.reversals, key)
	return &licenses.TeamReversalResult{LicenseKey: row}, nil
}

func (f *fakeLicenseManager) GetKey(_ context.Context, key string) (*models.LicenseKey, error) {
	row, ok := f.keys[key]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license key not found")
	}
	return row, nil
}

type fakeGuard struct {
	seen     map[string]bool
	released []string
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{seen: map[string]bool{}}
}

func (f *fakeGuard) CheckAndMark(_ context.Context, scope, eventID string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	key := scope + ":" + eventID
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeGuard) Release(_ context.Context, scope, eventID string) error {
	key := scope + ":" + eventID
	delete(f.seen, key)
	f.released = append(f.released, key)
	return nil
}

func newLemonService(t *testing.T, manager *fakeLicenseManager, g *fakeGuard) *LemonSqueezyService {
	t.Helper()

	svc, err := NewLemonSqueezyService(manager, g, "team-variant-9", nil)
	if err != nil {
		t.Fatalf("NewLemonSqueezyService: %v", err)
	}
	return svc
}

func TestLemonOrderCreatedIssuesKey(t *testing.T) {
	manager := newFakeLicenseManager()
	svc := newLemonService(t, manager, newFakeGuard())

	outcome, err := svc.Process(context.Background(), LemonEvent{
		Name:       "order_created",
		EventID:    "evt-1",
		LicenseKey: "LS-NEW-KEY",
		VariantID:  "variant-1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !outcome.Processed {
		t.Fatal("expected event processed")
	}

	stored := manager.keys["LS-NEW-KEY"]
	if stored == nil || stored.Vendor != enums.VendorLemonSqueezy {
		t.Fatal("expected lemonsqueezy key issued")
	}
	if stored.LemonProductID == nil || *stored.LemonProductID != "variant-1" {
		t.Fatal("expected variant recorded on key")
	}
}

func TestLemonReplayIsAcknowledgedOnce(t *testing.T) {
	manager := newFakeLicenseManager()
	g := newFakeGuard()
	svc := newLemonService(t, manager, g)

	event := LemonEvent{Name: "order_created", EventID: "evt-2", LicenseKey: "LS-ONCE-KEY"}
	if _, err := svc.Process(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	outcome, err := svc.Process(context.Background(), event)
	if err != nil {
		t.Fatalf("replay delivery: %v", err)
	}
	if !outcome.AlreadyProcessed {
		t.Fatal("expected replay flagged as already processed")
	}
}

func TestLemonFailureReleasesIdempotencyMark(t *testing.T) {
	manager := newFakeLicenseManager()
	g := newFakeGuard()
	svc := newLemonService(t, manager, g)

	manager.failNext = pkgerrors.New(pkgerrors.CodeDependency, "db down")
	event := LemonEvent{Name: "order_created", EventID: "evt-3", LicenseKey: "LS-RETRY-KEY"}
	if _, err := svc.Process(context.Background(), event); err == nil {
		t.Fatal("expected failure")
	}
	if len(g.released) != 1 {
		t.Fatalf("expected mark released, got %d releases", len(g.released))
	}

	// The vendor retry succeeds.
	outcome, err := svc.Process(context.Background(), event)
	if err != nil {
		t.Fatalf("retry delivery: %v", err)
	}
	if !outcome.Processed {
		t.Fatal("expected retry to process")
	}
}

func TestLemonRefundDeactivatesKey(t *testing.T) {
	manager := newFakeLicenseManager()
	key := &models.LicenseKey{Key: "LS-REFUND-KEY", IsActive: true, Tier: 1, Vendor: enums.VendorLemonSqueezy}
	key.ID = uuid.New()
	manager.keys[key.Key] = key

	svc := newLemonService(t, manager, newFakeGuard())

	outcome, err := svc.Process(context.Background(), LemonEvent{
		Name:       "subscription_payment_refunded",
		EventID:    "evt-4",
		LicenseKey: key.Key,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !outcome.Processed {
		t.Fatal("expected event processed")
	}
	if manager.keys[key.Key].IsActive {
		t.Fatal("expected key deactivated")
	}
}

func TestLemonPlanChangeToTeamVariantConverts(t *testing.T) {
	manager := newFakeLicenseManager()
	key := &models.LicenseKey{Key: "LS-PLAN-KEY", IsActive: true, Tier: 1, Vendor: enums.VendorLemonSqueezy}
	key.ID = uuid.New()
	manager.keys[key.Key] = key

	svc := newLemonService(t, manager, newFakeGuard())

	outcome, err := svc.Process(context.Background(), LemonEvent{
		Name:       "subscription_plan_changed",
		EventID:    "evt-5",
		LicenseKey: key.Key,
		VariantID:  "team-variant-9",
		Seats:      4,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !outcome.Processed {
		t.Fatal("expected conversion processed")
	}
	if len(manager.conversions) != 1 {
		t.Fatalf("expected one conversion, got %d", len(manager.conversions))
	}
}

func TestLemonPlanChangeAwayFromTeamVariantReverses(t *testing.T) {
	manager := newFakeLicenseManager()
	key := &models.LicenseKey{Key: "LS-TEAM-KEY", IsActive: true, Tier: 3, Vendor: enums.VendorLemonSqueezy, ConvertedToTeam: true}
	key.ID = uuid.New()
	manager.keys[key.Key] = key

	svc := newLemonService(t, manager, newFakeGuard())

	outcome, err := svc.Process(context.Background(), LemonEvent{
		Name:       "subscription_plan_changed",
		EventID:    "evt-6",
		LicenseKey: key.Key,
		VariantID:  "solo-variant-1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !outcome.Processed {
		t.Fatal("expected reversal processed")
	}
	if len(manager.reversals) != 1 {
		t.Fatalf("expected one reversal, got %d", len(manager.reversals))
	}
}

func TestLemonUnknownEventIsIgnored(t *testing.T) {
	manager := newFakeLicenseManager()
	svc := newLemonService(t, manager, newFakeGuard())

	outcome, err := svc.Process(context.Background(), LemonEvent{Name: "affiliate_activated", EventID: "evt-7"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !outcome.Ignored {
		t.Fatal("expected unknown event ignored")
	}
}
