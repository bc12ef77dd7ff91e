package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-payments/core"
)

// TaskOutcome is the terminal result of processing one queued item. The
// drain loop is the only interpreter: done discards the item, retry keeps it
// in the batch for the next drain. Tasks signal outcomes explicitly; no error
// may escape the item boundary.
type TaskOutcome string

const (
	OutcomeDone  TaskOutcome = "done"
	OutcomeRetry TaskOutcome = "retry"
)

// TaskFunc processes one queued item to a terminal outcome.
type TaskFunc func(ctx context.Context, item core.QueueItem) TaskOutcome

// DrainStats summarizes one drain pass.
type DrainStats struct {
	Batches  int
	Items    int
	Retained int
	// Skipped is set when another drain held the lease.
	Skipped bool
}

const (
	defaultLockTTL          = 30 * time.Second
	defaultFallbackInterval = time.Minute
)

// Drainer claims and fully processes pending batches, one drain per queue at
// a time. Triggers are non-blocking and coalesce; a fallback ticker
// guarantees eventual progress when an immediate trigger is lost.
type Drainer struct {
	queue    *Queue
	task     TaskFunc
	lock     core.DrainLock
	lockTTL  time.Duration
	fallback time.Duration
	logger   glog.Logger

	trigger chan struct{}
	running atomic.Bool
}

func NewDrainer(q *Queue, task TaskFunc, lock core.DrainLock, cfg core.QueueConfig, logger glog.Logger) (*Drainer, error) {
	if q == nil {
		return nil, fmt.Errorf("queue: queue is required")
	}
	if task == nil {
		return nil, fmt.Errorf("queue: task func is required")
	}
	if lock == nil {
		return nil, fmt.Errorf("queue: drain lock is required")
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	fallback := cfg.FallbackInterval
	if fallback <= 0 {
		fallback = defaultFallbackInterval
	}
	return &Drainer{
		queue:    q,
		task:     task,
		lock:     lock,
		lockTTL:  lockTTL,
		fallback: fallback,
		logger:   glog.Ensure(logger),
		trigger:  make(chan struct{}, 1),
	}, nil
}

// Trigger requests an asynchronous drain and returns immediately. Multiple
// triggers between drains coalesce into one.
func (d *Drainer) Trigger() {
	if d == nil {
		return
	}
	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

// Run consumes triggers and the fallback ticker until ctx is done. Only one
// Run loop may be active per Drainer; further calls are rejected so periodic
// registration stays idempotent.
func (d *Drainer) Run(ctx context.Context) error {
	if d == nil {
		return fmt.Errorf("queue: drainer is not configured")
	}
	if !d.running.CompareAndSwap(false, true) {
		return fmt.Errorf("queue: drain loop is already running")
	}
	defer d.running.Store(false)

	ticker := time.NewTicker(d.fallback)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.trigger:
		case <-ticker.C:
		}
		if _, err := d.Drain(ctx); err != nil {
			d.logger.Error("queue drain failed", "queue", d.queue.LockName(), "error", err)
		}
	}
}

// Drain claims the queue lease and processes pending batches until none
// remain. When the lease is held elsewhere the call is an idempotent no-op.
// A poisoned item never blocks the rest of its batch: task panics are
// contained at the item boundary and the item is discarded.
func (d *Drainer) Drain(ctx context.Context) (DrainStats, error) {
	if d == nil || d.queue == nil || d.task == nil {
		return DrainStats{}, fmt.Errorf("queue: drainer is not configured")
	}

	handle, acquired, err := d.lock.Acquire(ctx, d.queue.LockName(), d.lockTTL)
	if err != nil {
		return DrainStats{}, err
	}
	if !acquired {
		return DrainStats{Skipped: true}, nil
	}
	defer func() {
		if releaseErr := handle.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			d.logger.Warn("release drain lease", "queue", d.queue.LockName(), "error", releaseErr)
		}
	}()

	stats := DrainStats{}
	for {
		batch, ok, err := d.queue.NextBatch(ctx)
		if err != nil {
			return stats, err
		}
		if !ok {
			break
		}

		var retained []core.QueueItem
		for _, item := range batch.Items {
			stats.Items++
			if outcome := d.runTask(ctx, item); outcome == OutcomeRetry {
				retained = append(retained, item)
			}
		}

		if len(retained) > 0 {
			stats.Retained += len(retained)
			if err := d.queue.UpdateBatch(ctx, batch.Key, retained); err != nil {
				return stats, err
			}
		} else if err := d.queue.DeleteBatch(ctx, batch.Key); err != nil {
			return stats, err
		}
		stats.Batches++

		// A batch that kept items would be claimed again immediately;
		// leave it for the next trigger instead of spinning.
		if len(retained) > 0 {
			break
		}
	}

	d.logger.Info("completed payment webhook queue drain",
		"queue", d.queue.LockName(),
		"batches", stats.Batches,
		"items", stats.Items,
		"retained", stats.Retained,
	)
	return stats, nil
}

func (d *Drainer) runTask(ctx context.Context, item core.QueueItem) (outcome TaskOutcome) {
	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.Error("webhook task panicked", "panic", fmt.Sprint(recovered))
			outcome = OutcomeDone
		}
	}()
	return d.task(ctx, item)
}
