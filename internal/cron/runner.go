package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ollyhq/olly-backend/pkg/logger"
	"github.com/ollyhq/olly-backend/pkg/metrics"
)

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Runner executes registered jobs on a fixed interval, fenced by a
// distributed lock so only one worker replica runs a given pass.
type Runner struct {
	jobs     []Job
	lock     locker
	interval time.Duration
	metrics  *metrics.CronJobMetrics
	logg     *logger.Logger
}

// NewRunner wires the scheduled job runner.
func NewRunner(jobs []Job, lock locker, interval time.Duration, jobMetrics *metrics.CronJobMetrics, logg *logger.Logger) (*Runner, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("at least one job required")
	}
	if lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Runner{
		jobs:     jobs,
		lock:     lock,
		interval: interval,
		metrics:  jobMetrics,
		logg:     logg,
	}, nil
}

// Start blocks until the context is cancelled, running one pass immediately
// and then one per interval.
func (r *Runner) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce runs every registered job if this replica wins the lock. Job
// failures are recorded and do not stop the remaining jobs.
func (r *Runner) RunOnce(ctx context.Context) {
	won, err := r.lock.Acquire(ctx)
	if err != nil {
		if r.logg != nil {
			r.logg.Error(ctx, "acquiring cron lock failed", err)
		}
		return
	}
	if !won {
		if r.logg != nil {
			r.logg.Info(ctx, "cron pass skipped, another replica holds the lock")
		}
		return
	}
	defer func() {
		if err := r.lock.Release(ctx); err != nil && r.logg != nil {
			r.logg.Error(ctx, "releasing cron lock failed", err)
		}
	}()

	for _, job := range r.jobs {
		r.runJob(ctx, job)
	}
}

func (r *Runner) runJob(ctx context.Context, job Job) {
	jobCtx := ctx
	if r.logg != nil {
		jobCtx = r.logg.WithField(ctx, "job", job.Name())
		r.logg.Info(jobCtx, "cron job starting")
	}

	started := time.Now()
	err := job.Run(jobCtx)
	r.metrics.ObserveDuration(job.Name(), time.Since(started))

	if err != nil {
		r.metrics.IncFailure(job.Name())
		if r.logg != nil {
			r.logg.Error(jobCtx, "cron job failed", err)
		}
		return
	}
	r.metrics.IncSuccess(job.Name())
	if r.logg != nil {
		r.logg.Info(jobCtx, "cron job complete")
	}
}
