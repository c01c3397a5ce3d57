package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	"github.com/ollyhq/olly-backend/pkg/lemonsqueezy"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

type keyStore interface {
	ListActiveKeysByVendor(ctx context.Context, vendor enums.Vendor) ([]models.LicenseKey, error)
	UpdateKey(ctx context.Context, key *models.LicenseKey) error
}

type lemonValidator interface {
	Validate(ctx context.Context, licenseKey string) (*lemonsqueezy.LicenseResult, error)
}

// LicenseReconcileJob re-checks active LemonSqueezy keys against the vendor
// and deactivates keys whose subscription was refunded or expired upstream.
type LicenseReconcileJob struct {
	keys  keyStore
	lemon lemonValidator
	logg  *logger.Logger
}

// NewLicenseReconcileJob wires the nightly license reconciliation pass.
func NewLicenseReconcileJob(keys keyStore, lemon lemonValidator, logg *logger.Logger) (*LicenseReconcileJob, error) {
	if keys == nil {
		return nil, fmt.Errorf("key store required")
	}
	if lemon == nil {
		return nil, fmt.Errorf("lemonsqueezy client required")
	}
	return &LicenseReconcileJob{keys: keys, lemon: lemon, logg: logg}, nil
}

func (j *LicenseReconcileJob) Name() string { return "license_reconcile" }

func (j *LicenseReconcileJob) Run(ctx context.Context) error {
	rows, err := j.keys.ListActiveKeysByVendor(ctx, enums.VendorLemonSqueezy)
	if err != nil {
		return err
	}

	deactivated := 0
	var errs []error
	for i := range rows {
		key := rows[i]
		result, err := j.lemon.Validate(ctx, key.Key)
		if err != nil {
			// Vendor outage; leave the key alone and retry next pass.
			if j.logg != nil {
				j.logg.Error(j.logg.WithLicenseKey(ctx, key.Key), "validating license failed", err)
			}
			continue
		}
		if result.Valid {
			continue
		}

		key.IsActive = false
		if err := j.keys.UpdateKey(ctx, &key); err != nil {
			errs = append(errs, fmt.Errorf("deactivate %s: %w", key.Key, err))
			continue
		}
		deactivated++
	}

	if j.logg != nil && deactivated > 0 {
		j.logg.Info(j.logg.WithField(ctx, "deactivated", deactivated), "license reconcile deactivated stale keys")
	}
	return multierr.Combine(errs...)
}

type taskExpirer interface {
	ExpireStale(ctx context.Context, ttl time.Duration) (int, error)
}

// SherlockExpiryJob fails username searches stuck in PENDING beyond the TTL.
type SherlockExpiryJob struct {
	tasks taskExpirer
	ttl   time.Duration
	logg  *logger.Logger
}

// NewSherlockExpiryJob wires the stale task sweeper.
func NewSherlockExpiryJob(tasks taskExpirer, ttl time.Duration, logg *logger.Logger) (*SherlockExpiryJob, error) {
	if tasks == nil {
		return nil, fmt.Errorf("task expirer required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SherlockExpiryJob{tasks: tasks, ttl: ttl, logg: logg}, nil
}

func (j *SherlockExpiryJob) Name() string { return "sherlock_expiry" }

func (j *SherlockExpiryJob) Run(ctx context.Context) error {
	expired, err := j.tasks.ExpireStale(ctx, j.ttl)
	if err != nil {
		return err
	}
	if j.logg != nil && expired > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", expired), "sherlock expiry failed stale tasks")
	}
	return nil
}
