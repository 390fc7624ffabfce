// Package recovery restores delivery jobs from the reminder store after the
// job queue may have lost them.
package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recuerdito/internal/jobs"
	"recuerdito/internal/logger"
	"recuerdito/internal/reminder"
)

// TriggerKey is the unique key of the pending reconcile job. Re-triggering
// replaces it, which debounces bursts of signals.
const TriggerKey = "boot_reschedule"

const DefaultDelay = 5 * time.Second

// Reason records what asked for a reconciliation.
type Reason string

const (
	ReasonBoot     Reason = "boot"
	ReasonUpdate   Reason = "update"
	ReasonPeriodic Reason = "periodic"
	ReasonManual   Reason = "manual"
)

type Store interface {
	ListActive(ctx context.Context) ([]reminder.Reminder, error)
	Get(ctx context.Context, id uint64) (*reminder.Reminder, error)
}

// Scheduler re-pins one reminder: cancel both slots, then schedule at now.
// WithLock is the same per-reminder lock reminder.Service writes under.
type Scheduler interface {
	WithLock(ctx context.Context, id uint64, fn func(ctx context.Context) error) error
	RescheduleAt(ctx context.Context, r reminder.Reminder, now time.Time) error
}

type Queue interface {
	EnqueueUnique(ctx context.Context, key string, typ jobs.Type, runAt time.Time, payload any) error
}

type Coordinator struct {
	Store     Store
	Scheduler Scheduler
	Queue     Queue
	Delay     time.Duration
	Log       logger.Logger

	now func() time.Time
}

// Result summarizes one Reconcile pass.
type Result struct {
	Active int
	Failed int
}

type triggerPayload struct {
	Reason      Reason    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

func (c *Coordinator) log() logger.Logger {
	if c.Log == nil {
		return logger.Nop{}
	}
	return c.Log
}

func (c *Coordinator) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// Reconcile re-derives the jobs of every active reminder. One reminder
// failing does not stop the pass; all failures are returned joined.
// Each reminder is re-read under its lock, so one completed, deleted or
// edited after the listing is scheduled from its current state, which for a
// reminder no longer active means no jobs.
func (c *Coordinator) Reconcile(ctx context.Context) (Result, error) {
	active, err := c.Store.ListActive(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list active reminders: %w", err)
	}

	now := c.clock()
	res := Result{Active: len(active)}
	var errs []error
	for _, r := range active {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := c.reschedule(ctx, r.ID, now); err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("reminder %d: %w", r.ID, err))
		}
	}

	if res.Failed > 0 {
		c.log().Warning("reconciled %d reminders, %d failed", res.Active, res.Failed)
	} else {
		c.log().Info("reconciled %d reminders", res.Active)
	}
	return res, errors.Join(errs...)
}

func (c *Coordinator) reschedule(ctx context.Context, id uint64, now time.Time) error {
	return c.Scheduler.WithLock(ctx, id, func(ctx context.Context) error {
		r, err := c.Store.Get(ctx, id)
		if errors.Is(err, reminder.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return c.Scheduler.RescheduleAt(ctx, *r, now)
	})
}

// Trigger asks for a reconciliation after the configured delay. Only one
// reconcile job is ever pending.
func (c *Coordinator) Trigger(ctx context.Context, reason Reason) error {
	delay := c.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	now := c.clock()
	runAt := now.Add(delay)
	if err := c.Queue.EnqueueUnique(ctx, TriggerKey, jobs.TypeReconcile, runAt, triggerPayload{Reason: reason, RequestedAt: now}); err != nil {
		return err
	}
	c.log().Info("%s: reconcile at %s", reason, runAt.Format(time.RFC3339))
	return nil
}

// Handler runs Reconcile for RECONCILE jobs. A partial failure is returned so
// the worker retries the whole pass, which is idempotent.
func (c *Coordinator) Handler() jobs.HandlerFunc {
	return func(ctx context.Context, job *jobs.Job) error {
		var p triggerPayload
		if len(job.Payload) > 0 {
			if err := json.Unmarshal(job.Payload, &p); err != nil {
				c.log().Warning("job %s: bad payload: %v", job.Key, err)
			}
		}
		if p.Reason != "" {
			c.log().Info("reconcile requested by %s", p.Reason)
		}
		_, err := c.Reconcile(ctx)
		return err
	}
}
