package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gochang/agri-notify/internal/config"
	apperrors "github.com/gochang/agri-notify/internal/errors"
	"github.com/gochang/agri-notify/internal/logger"
	"github.com/gochang/agri-notify/internal/metrics"
)

const jobName = "notify"

// Locker guards a run across instances. The lease lasts TTL and is renewed
// while a run is still going.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Renew(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	TTL() time.Duration
}

// Job runs the Evaluator for the scheduler and for manual triggers.
// Concurrent triggers in one process share a single run; across processes
// the optional Locker lets only one instance evaluate at a time.
type Job struct {
	eval    *Evaluator
	lock    Locker
	metrics *metrics.Metrics
	log     *logger.Logger

	group singleflight.Group

	mu      sync.Mutex
	running chan struct{} // closed when the current run ends; nil when idle
}

// NewJob creates a Job. lock and m may be nil.
func NewJob(eval *Evaluator, lock Locker, m *metrics.Metrics, log *logger.Logger) *Job {
	return &Job{eval: eval, lock: lock, metrics: m, log: log.WithModule("notify_job")}
}

// Trigger runs an evaluation, or joins the one already in progress. The run
// is detached from ctx cancellation so an impatient caller does not abort
// it for the others; ctx only bounds how long this caller waits.
func (j *Job) Trigger(ctx context.Context) (Result, error) {
	ch := j.group.DoChan(jobName, func() (any, error) {
		done := j.begin()
		defer j.end(done)
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.EvaluationRun)
		defer cancel()
		return j.run(runCtx)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Shared && j.metrics != nil {
			j.metrics.RecordSingleflightDedup(jobName)
		}
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	}
}

func (j *Job) run(ctx context.Context) (Result, error) {
	if j.lock != nil {
		ok, err := j.lock.Acquire(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("notify: acquire lock: %w", err)
		}
		if !ok {
			j.log.InfoContext(ctx, "Another instance is evaluating, skipping run")
			return Result{}, apperrors.ErrLockHeld
		}
		stop := j.keepLease(ctx)
		defer func() {
			stop()
			if err := j.lock.Release(context.WithoutCancel(ctx)); err != nil {
				j.log.WithError(err).WarnContext(ctx, "Failed to release notify lock")
			}
		}()
	}
	return j.eval.Run(ctx)
}

// Wait blocks until the run in progress, if any, has finished or ctx is done.
func (j *Job) Wait(ctx context.Context) error {
	j.mu.Lock()
	running := j.running
	j.mu.Unlock()
	if running == nil {
		return nil
	}
	select {
	case <-running:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify: wait for run: %w", ctx.Err())
	}
}

func (j *Job) begin() chan struct{} {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.running = make(chan struct{})
	return j.running
}

func (j *Job) end(done chan struct{}) {
	j.mu.Lock()
	if j.running == done {
		j.running = nil
	}
	j.mu.Unlock()
	close(done)
}

// keepLease renews the lock at half its TTL until the returned stop is
// called. A lost lease is logged; the run itself is not interrupted.
func (j *Job) keepLease(ctx context.Context) (stop func()) {
	interval := j.lock.TTL() / 2
	if interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := j.lock.Renew(ctx)
				switch {
				case err != nil:
					j.log.WithError(err).WarnContext(ctx, "Failed to renew notify lock")
				case !ok:
					j.log.WarnContext(ctx, "Notify lock lease lost during run")
					return
				}
			}
		}
	})
	return func() {
		cancel()
		wg.Wait()
	}
}
