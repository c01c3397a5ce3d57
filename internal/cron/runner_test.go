package cron

import (
	"context"
	"testing"
	"time"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/lemonsqueezy"
)

type stubJob struct {
	name string
	runs int
	err  error
}

func (s *stubJob) Name() string { return s.name }

func (s *stubJob) Run(_ context.Context) error {
	s.runs++
	return s.err
}

type stubLock struct {
	won      bool
	acquires int
	releases int
}

func (s *stubLock) Acquire(_ context.Context) (bool, error) {
	s.acquires++
	return s.won, nil
}

func (s *stubLock) Release(_ context.Context) error {
	s.releases++
	return nil
}

func TestRunOnceRunsAllJobsWhenLockWon(t *testing.T) {
	first := &stubJob{name: "first"}
	second := &stubJob{name: "second", err: pkgerrors.New(pkgerrors.CodeInternal, "boom")}
	third := &stubJob{name: "third"}
	lock := &stubLock{won: true}

	runner, err := NewRunner([]Job{first, second, third}, lock, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	runner.RunOnce(context.Background())

	if first.runs != 1 || third.runs != 1 {
		t.Fatal("expected all jobs to run")
	}
	if second.runs != 1 {
		t.Fatal("expected failing job attempted")
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}
}

func TestRunOnceSkipsWhenLockLost(t *testing.T) {
	job := &stubJob{name: "only"}
	lock := &stubLock{won: false}

	runner, err := NewRunner([]Job{job}, lock, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	runner.RunOnce(context.Background())

	if job.runs != 0 {
		t.Fatal("expected no jobs to run without the lock")
	}
	if lock.releases != 0 {
		t.Fatal("expected no release without the lock")
	}
}

type fakeKeyStore struct {
	keys    map[string]*models.LicenseKey
	updates []string
}

func (f *fakeKeyStore) ListActiveKeysByVendor(_ context.Context, vendor enums.Vendor) ([]models.LicenseKey, error) {
	var rows []models.LicenseKey
	for _, row := range f.keys {
		if row.Vendor == vendor && row.IsActive {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func (f *fakeKeyStore) UpdateKey(_ context.Context, key *models.LicenseKey) error {
	copied := *key
	f.keys[key.Key] = &copied
	f.updates = append(f.updates, key.Key)
	return nil
}

type fakeLemonValidator struct {
	valid map[string]bool
	err   map[string]error
}

func (f *fakeLemonValidator) Validate(_ context.Context, licenseKey string) (*lemonsqueezy.LicenseResult, error) {
	if err, ok := f.err[licenseKey]; ok {
		return nil, err
	}
	return &lemonsqueezy.LicenseResult{Valid: f.valid[licenseKey], Key: licenseKey}, nil
}

func TestLicenseReconcileDeactivatesInvalidKeys(t *testing.T) {
	store := &fakeKeyStore{keys: map[string]*models.LicenseKey{
		"LS-VALID":   {Key: "LS-VALID", IsActive: true, Vendor: enums.VendorLemonSqueezy},
		"LS-REVOKED": {Key: "LS-REVOKED", IsActive: true, Vendor: enums.VendorLemonSqueezy},
		"LS-FLAKY":   {Key: "LS-FLAKY", IsActive: true, Vendor: enums.VendorLemonSqueezy},
		"LOCAL-KEY":  {Key: "LOCAL-KEY", IsActive: true, Vendor: enums.VendorLocal},
	}}
	validator := &fakeLemonValidator{
		valid: map[string]bool{"LS-VALID": true},
		err:   map[string]error{"LS-FLAKY": pkgerrors.New(pkgerrors.CodeDependency, "timeout")},
	}

	job, err := NewLicenseReconcileJob(store, validator, nil)
	if err != nil {
		t.Fatalf("NewLicenseReconcileJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.keys["LS-VALID"].IsActive != true {
		t.Fatal("expected valid key untouched")
	}
	if store.keys["LS-REVOKED"].IsActive {
		t.Fatal("expected revoked key deactivated")
	}
	if !store.keys["LS-FLAKY"].IsActive {
		t.Fatal("expected key with vendor error left active")
	}
	if !store.keys["LOCAL-KEY"].IsActive {
		t.Fatal("expected non-lemonsqueezy key untouched")
	}
}

type fakeExpirer struct {
	calls int
	ttl   time.Duration
}

func (f *fakeExpirer) ExpireStale(_ context.Context, ttl time.Duration) (int, error) {
	f.calls++
	f.ttl = ttl
	return 3, nil
}

func TestSherlockExpiryJobDelegatesToService(t *testing.T) {
	expirer := &fakeExpirer{}
	job, err := NewSherlockExpiryJob(expirer, 12*time.Hour, nil)
	if err != nil {
		t.Fatalf("NewSherlockExpiryJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if expirer.calls != 1 {
		t.Fatalf("expected one expiry call, got %d", expirer.calls)
	}
	if expirer.ttl != 12*time.Hour {
		t.Fatalf("expected configured ttl passed through, got %s", expirer.ttl)
	}
}
