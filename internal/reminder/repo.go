package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repo is the gorm-backed reminder store. Loc is the zone due dates and
// times are read in; nil means time.Local.
type Repo struct {
	DB  *gorm.DB
	Loc *time.Location
}

// Filter narrows List. Zero values mean "any".
type Filter struct {
	UserID   uint64
	Status   Status
	Category Category
	Limit    int
}

// Insert stores r and returns its new id. r.ID is set on success.
func (s *Repo) Insert(ctx context.Context, r *Reminder) (uint64, error) {
	r.ID = 0
	r.Normalize()
	if err := s.DB.WithContext(ctx).Create(r).Error; err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	return r.ID, nil
}

// Update overwrites every mutable column of an existing reminder.
func (s *Repo) Update(ctx context.Context, r *Reminder) error {
	r.Normalize()
	res := s.DB.WithContext(ctx).Model(&Reminder{}).
		Where("id = ?", r.ID).
		Updates(map[string]any{
			"title":              r.Title,
			"description":        r.Description,
			"due_date":           r.DueDate,
			"due_time":           r.DueTime,
			"category":           r.Category,
			"label":              r.Label,
			"repeat_type":        r.RepeatType,
			"notify_days_before": r.NotifyDaysBefore,
			"status":             r.Status,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("update reminder %d: %w", r.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a reminder permanently.
func (s *Repo) Delete(ctx context.Context, id uint64) error {
	res := s.DB.WithContext(ctx).Delete(&Reminder{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete reminder %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns ErrNotFound when no reminder has the given id.
func (s *Repo) Get(ctx context.Context, id uint64) (*Reminder, error) {
	var r Reminder
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reminder %d: %w", id, err)
	}
	return &r, nil
}

// ListActive returns every active reminder of every user, earliest due first.
func (s *Repo) ListActive(ctx context.Context) ([]Reminder, error) {
	return s.List(ctx, Filter{Status: StatusActive})
}

// ListCompleted returns completed reminders, most recent due date first.
func (s *Repo) ListCompleted(ctx context.Context) ([]Reminder, error) {
	return s.List(ctx, Filter{Status: StatusCompleted})
}

// ListByCategory returns active reminders of one category.
func (s *Repo) ListByCategory(ctx context.Context, c Category) ([]Reminder, error) {
	return s.List(ctx, Filter{Status: StatusActive, Category: c})
}

// List applies f. Completed reminders are ordered newest first, everything
// else by effective due instant ascending.
func (s *Repo) List(ctx context.Context, f Filter) ([]Reminder, error) {
	q := s.DB.WithContext(ctx).Model(&Reminder{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}

	// Time of day only means something in Loc, which the database session
	// does not know, so ascending lists are ordered and cut here.
	ascending := f.Status != StatusCompleted
	if ascending {
		q = q.Order("due_date asc").Order("id asc")
	} else {
		q = q.Order("due_date desc").Order("id desc")
		if f.Limit > 0 {
			q = q.Limit(f.Limit)
		}
	}

	var out []Reminder
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	if ascending {
		SortByDue(out, s.loc())
		if f.Limit > 0 && len(out) > f.Limit {
			out = out[:f.Limit]
		}
	}
	return out, nil
}

func (s *Repo) loc() *time.Location {
	if s.Loc == nil {
		return time.Local
	}
	return s.Loc
}

// ListDueWithin returns active reminders of userID (0 = all users) whose
// effective due instant lies in [now, now+window].
func (s *Repo) ListDueWithin(ctx context.Context, userID uint64, now time.Time, window time.Duration, loc *time.Location) ([]Reminder, error) {
	// Candidates are narrowed on the date column (one day of slack each side),
	// the exact instant is computed in Go.
	q := s.DB.WithContext(ctx).Model(&Reminder{}).
		Where("status = ?", StatusActive).
		Where("due_date between ? and ?", now.Add(-Day), now.Add(window+Day))
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}

	var candidates []Reminder
	if err := q.Order("due_date asc").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}

	end := now.Add(window)
	out := make([]Reminder, 0, len(candidates))
	for _, r := range candidates {
		due, err := r.EffectiveDue(loc)
		if err != nil {
			continue
		}
		if !due.Before(now) && !due.After(end) {
			out = append(out, r)
		}
	}
	SortByDue(out, loc)
	return out, nil
}

// MarkCompleted flips an active reminder to completed.
func (s *Repo) MarkCompleted(ctx context.Context, id uint64) error {
	res := s.DB.WithContext(ctx).Model(&Reminder{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": StatusCompleted, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("complete reminder %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActive counts active reminders of userID (0 = all users).
func (s *Repo) CountActive(ctx context.Context, userID uint64) (int64, error) {
	q := s.DB.WithContext(ctx).Model(&Reminder{}).Where("status = ?", StatusActive)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count reminders: %w", err)
	}
	return n, nil
}
