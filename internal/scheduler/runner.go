package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is a unit of periodic work. Run receives the tick time and decides
// for itself whether there is anything to do.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) error
}

// Runner drives a set of jobs off one ticker. Each job runs in its own
// goroutine per tick, so a slow job can overlap the next tick.
type Runner struct {
	jobs     []Job
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewRunner creates a Runner ticking every interval.
func NewRunner(interval time.Duration, logger *slog.Logger, jobs ...Job) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		jobs:     jobs,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Start ticks until ctx is cancelled, then waits for running jobs.
func (r *Runner) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "scheduler started", "interval", r.interval.String(), "jobs", len(r.jobs))
	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			r.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			r.dispatch(ctx, r.now())
		}
	}
}

// RunOnce runs every job for now and waits for them.
func (r *Runner) RunOnce(ctx context.Context, now time.Time) {
	r.dispatch(ctx, now)
	r.wg.Wait()
}

func (r *Runner) dispatch(ctx context.Context, now time.Time) {
	for _, job := range r.jobs {
		r.wg.Add(1)
		go func(job Job) {
			defer r.wg.Done()
			defer func() {
				if p := recover(); p != nil {
					r.logger.ErrorContext(ctx, "scheduled job panicked", "job", job.Name(), "panic", p)
				}
			}()
			if err := job.Run(ctx, now); err != nil {
				r.logger.ErrorContext(ctx, "scheduled job failed", "job", job.Name(), "error", err)
			}
		}(job)
	}
}
