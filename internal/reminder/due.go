package reminder

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound             = errors.New("reminder not found")
	ErrInvalidInput         = errors.New("invalid reminder")
	ErrInvalidReminderState = errors.New("invalid reminder state")
)

// Day is the fixed length used for "notify N days before" offsets.
const Day = 24 * time.Hour

// CombineDateAndTime merges the calendar date of date with the hour and minute
// of clock, both read in loc. Seconds and sub-seconds are zeroed.
func CombineDateAndTime(date, clock time.Time, loc *time.Location) (time.Time, error) {
	if date.IsZero() || clock.IsZero() {
		return time.Time{}, fmt.Errorf("%w: missing due date or time", ErrInvalidReminderState)
	}
	if loc == nil {
		loc = time.Local
	}
	d := date.In(loc)
	c := clock.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc), nil
}

// EffectiveDue is the single instant obtained from r.DueDate and r.DueTime.
func (r Reminder) EffectiveDue(loc *time.Location) (time.Time, error) {
	return CombineDateAndTime(r.DueDate, r.DueTime, loc)
}

// DaysBefore returns due minus n fixed 24h days.
func DaysBefore(due time.Time, n int) time.Time {
	return due.Add(-time.Duration(n) * Day)
}

// Validate checks what the service layer enforces before a write.
func (r Reminder) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if r.NotifyDaysBefore < 0 {
		return fmt.Errorf("%w: notify_days_before must not be negative", ErrInvalidInput)
	}
	if !r.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, r.Category)
	}
	if !r.RepeatType.Valid() {
		return fmt.Errorf("%w: unknown repeat type %q", ErrInvalidInput, r.RepeatType)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, r.Status)
	}
	if r.DueDate.IsZero() || r.DueTime.IsZero() {
		return fmt.Errorf("%w: due date and time are required", ErrInvalidInput)
	}
	return nil
}

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// ParseDueInput reads a YYYY-MM-DD date and an HH:MM time in loc. The
// returned time of day is anchored on the same date.
func ParseDueInput(date, clock string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: due_date must be YYYY-MM-DD", ErrInvalidInput)
	}
	c, err := time.ParseInLocation(ClockLayout, strings.TrimSpace(clock), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: due_time must be HH:MM", ErrInvalidInput)
	}
	return d, time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc), nil
}

// SortByDue orders rows by effective due instant in loc, earliest first.
// Rows whose instant cannot be computed go last; ties keep their order.
func SortByDue(rows []Reminder, loc *time.Location) {
	due := make(map[uint64]time.Time, len(rows))
	for _, r := range rows {
		if d, err := r.EffectiveDue(loc); err == nil {
			due[r.ID] = d
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		di, iok := due[rows[i].ID]
		dj, jok := due[rows[j].ID]
		if iok != jok {
			return iok
		}
		return di.Before(dj)
	})
}
