package reminder

import (
	"context"
	"errors"
	"strings"

	"recuerdito/internal/logger"
)

// Store is the subset of Repo the service writes through.
type Store interface {
	Insert(ctx context.Context, r *Reminder) (uint64, error)
	Update(ctx context.Context, r *Reminder) error
	Delete(ctx context.Context, id uint64) error
	Get(ctx context.Context, id uint64) (*Reminder, error)
	MarkCompleted(ctx context.Context, id uint64) error
}

// Scheduler keeps delivery jobs in line with stored reminders. WithLock
// serializes everything done to one reminder id; the scheduling calls made
// with the context it passes to fn do not wait on that lock again.
type Scheduler interface {
	WithLock(ctx context.Context, id uint64, fn func(ctx context.Context) error) error
	Schedule(ctx context.Context, r Reminder) error
	Reschedule(ctx context.Context, r Reminder) error
	CancelReminder(ctx context.Context, id uint64) error
}

// Service applies a mutation to the store first and then to the job queue,
// both under the reminder's lock. A failed queue call is logged and
// swallowed: the stored reminder stays and the next reconciliation pass
// restores its jobs.
type Service struct {
	Store     Store
	Scheduler Scheduler
	Log       logger.Logger
}

func (s *Service) log() logger.Logger {
	if s.Log == nil {
		return logger.Nop{}
	}
	return s.Log
}

// Create validates and stores a new active reminder, then schedules it.
func (s *Service) Create(ctx context.Context, r Reminder) (*Reminder, error) {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Status = StatusActive
	r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.Store.Insert(ctx, &r); err != nil {
		return nil, err
	}

	// The row is visible from here on, so schedule whatever it holds by the
	// time the lock is ours.
	err := s.Scheduler.WithLock(ctx, r.ID, func(ctx context.Context) error {
		cur, err := s.Store.Get(ctx, r.ID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return s.Scheduler.Schedule(ctx, *cur)
	})
	if err != nil {
		s.log().Warning("schedule reminder %d: %v", r.ID, err)
	}
	return &r, nil
}

// Get returns the reminder if it belongs to userID. userID 0 skips the check.
func (s *Service) Get(ctx context.Context, userID, id uint64) (*Reminder, error) {
	r, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != 0 && r.UserID != userID {
		return nil, ErrNotFound
	}
	return r, nil
}

// Update replaces the editable fields of an existing reminder and re-pins its
// jobs: cancel, then schedule from the fresh state.
func (s *Service) Update(ctx context.Context, userID uint64, r Reminder) (*Reminder, error) {
	err := s.Scheduler.WithLock(ctx, r.ID, func(ctx context.Context) error {
		cur, err := s.Get(ctx, userID, r.ID)
		if err != nil {
			return err
		}

		r.UserID = cur.UserID
		r.CreatedAt = cur.CreatedAt
		if r.Status == "" {
			r.Status = cur.Status
		}
		r.Title = strings.TrimSpace(r.Title)
		r.Description = strings.TrimSpace(r.Description)
		r.Normalize()
		if err := r.Validate(); err != nil {
			return err
		}

		if err := s.Store.Update(ctx, &r); err != nil {
			return err
		}
		if err := s.Scheduler.Reschedule(ctx, r); err != nil {
			s.log().Warning("reschedule reminder %d: %v", r.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Complete marks the reminder completed and drops its pending jobs.
func (s *Service) Complete(ctx context.Context, userID, id uint64) error {
	return s.Scheduler.WithLock(ctx, id, func(ctx context.Context) error {
		if _, err := s.Get(ctx, userID, id); err != nil {
			return err
		}
		if err := s.Store.MarkCompleted(ctx, id); err != nil {
			return err
		}
		if err := s.Scheduler.CancelReminder(ctx, id); err != nil {
			s.log().Warning("cancel reminder %d: %v", id, err)
		}
		return nil
	})
}

// Delete removes the reminder and drops its pending jobs.
func (s *Service) Delete(ctx context.Context, userID, id uint64) error {
	return s.Scheduler.WithLock(ctx, id, func(ctx context.Context) error {
		if _, err := s.Get(ctx, userID, id); err != nil {
			return err
		}
		if err := s.Store.Delete(ctx, id); err != nil {
			return err
		}
		if err := s.Scheduler.CancelReminder(ctx, id); err != nil {
			s.log().Warning("cancel reminder %d: %v", id, err)
		}
		return nil
	})
}
