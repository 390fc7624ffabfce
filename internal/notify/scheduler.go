package notify

import (
	"context"
	"fmt"
	"time"

	"recuerdito/internal/jobs"
	"recuerdito/internal/logger"
	"recuerdito/internal/reminder"
)

// Queue is the keyed job store the scheduler writes to. EnqueueUnique
// replaces whatever job holds key; CancelUnique is a no-op for a missing key.
type Queue interface {
	EnqueueUnique(ctx context.Context, key string, typ jobs.Type, runAt time.Time, payload any) error
	CancelUnique(ctx context.Context, key string) error
}

// Delivery is one planned job.
type Delivery struct {
	Key     string
	Kind    Kind
	FireAt  time.Time
	Payload Payload
}

const earlyTitle = "Recordatorio próximo"

// Scheduler turns reminders into at most two delivery jobs and cancels them.
// Calls for the same reminder id are serialized, and WithLock extends that
// serialization over the caller's store write.
type Scheduler struct {
	Queue Queue
	Clock Clock
	Loc   *time.Location
	Log   logger.Logger

	locks keyedMutex
}

func NewScheduler(q Queue, clock Clock, loc *time.Location, log logger.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Scheduler{Queue: q, Clock: clock, Loc: loc, Log: log}
}

func (s *Scheduler) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Scheduler) log() logger.Logger {
	if s.Log == nil {
		return logger.Nop{}
	}
	return s.Log
}

// Plan computes the jobs r should have at now without touching the queue.
// Fire times at or before now are dropped.
func (s *Scheduler) Plan(r reminder.Reminder, now time.Time) ([]Delivery, error) {
	if r.ID == 0 {
		return nil, fmt.Errorf("%w: reminder has no id", reminder.ErrInvalidReminderState)
	}
	due, err := r.EffectiveDue(s.Loc)
	if err != nil {
		return nil, fmt.Errorf("reminder %d: %w", r.ID, err)
	}
	if !r.IsActive() {
		return nil, nil
	}

	var out []Delivery
	if due.After(now) {
		out = append(out, Delivery{
			Key:    JobKey(r.ID, KindOnTime),
			Kind:   KindOnTime,
			FireAt: due,
			Payload: Payload{
				ReminderID: r.ID,
				Kind:       KindOnTime,
				Title:      r.Title,
				Body:       "¡Es hoy! " + r.Title,
			},
		})
	}
	if r.NotifyDaysBefore > 0 {
		early := reminder.DaysBefore(due, r.NotifyDaysBefore)
		if early.After(now) {
			out = append(out, Delivery{
				Key:    JobKey(r.ID, KindEarly),
				Kind:   KindEarly,
				FireAt: early,
				Payload: Payload{
					ReminderID: r.ID,
					Kind:       KindEarly,
					Title:      earlyTitle,
					Body:       earlyBody(r.NotifyDaysBefore, r.Title),
				},
			})
		}
	}
	return out, nil
}

func earlyBody(days int, title string) string {
	return fmt.Sprintf("Faltan %d día(s) para: %s", days, title)
}

// ScheduleReminder enqueues the jobs planned for r at now. Each enqueue
// replaces the job under its key, so repeated calls are idempotent.
func (s *Scheduler) ScheduleReminder(ctx context.Context, r reminder.Reminder, now time.Time) error {
	unlock := s.locks.lockCtx(ctx, r.ID)
	defer unlock()
	return s.schedule(ctx, r, now)
}

func (s *Scheduler) schedule(ctx context.Context, r reminder.Reminder, now time.Time) error {
	plan, err := s.Plan(r, now)
	if err != nil {
		return err
	}
	for _, d := range plan {
		if err := s.Queue.EnqueueUnique(ctx, d.Key, jobs.TypeReminderDelivery, d.FireAt, d.Payload); err != nil {
			return err
		}
		s.log().Info("scheduled %s at %s", d.Key, d.FireAt.Format(time.RFC3339))
	}
	return nil
}

// Schedule is ScheduleReminder at the clock's current time.
func (s *Scheduler) Schedule(ctx context.Context, r reminder.Reminder) error {
	return s.ScheduleReminder(ctx, r, s.now())
}

// CancelReminder cancels both job slots of id. Missing jobs are fine.
func (s *Scheduler) CancelReminder(ctx context.Context, id uint64) error {
	unlock := s.locks.lockCtx(ctx, id)
	defer unlock()
	return s.cancel(ctx, id)
}

func (s *Scheduler) cancel(ctx context.Context, id uint64) error {
	for _, k := range Kinds {
		if err := s.Queue.CancelUnique(ctx, JobKey(id, k)); err != nil {
			return err
		}
	}
	return nil
}

// Reschedule cancels and re-schedules r under a single hold of its lock, so
// no stale job survives an edit and two edits never interleave.
func (s *Scheduler) Reschedule(ctx context.Context, r reminder.Reminder) error {
	return s.RescheduleAt(ctx, r, s.now())
}

// RescheduleAt is Reschedule with an explicit now.
func (s *Scheduler) RescheduleAt(ctx context.Context, r reminder.Reminder, now time.Time) error {
	unlock := s.locks.lockCtx(ctx, r.ID)
	defer unlock()
	if err := s.cancel(ctx, r.ID); err != nil {
		return err
	}
	return s.schedule(ctx, r, now)
}

// WithLock runs fn while holding the lock of reminder id. Scheduler calls
// made with the context handed to fn reuse that hold, so a store write and
// the scheduling derived from it form one step that no other mutation of the
// same reminder can split.
func (s *Scheduler) WithLock(ctx context.Context, id uint64, fn func(ctx context.Context) error) error {
	ctx, unlock := s.locks.hold(ctx, id)
	defer unlock()
	return fn(ctx)
}
