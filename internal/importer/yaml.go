// Package importer loads reminders in bulk from YAML.
package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recuerdito/internal/reminder"

	"gopkg.in/yaml.v3"
)

// YAMLReminder is one entry of the import file.
type YAMLReminder struct {
	Title            string `yaml:"title"`
	Description      string `yaml:"description,omitempty"`
	DueDate          string `yaml:"due_date"` // YYYY-MM-DD
	DueTime          string `yaml:"due_time"` // HH:MM
	Category         string `yaml:"category,omitempty"`
	Type             string `yaml:"type,omitempty"`
	Repeat           string `yaml:"repeat,omitempty"`
	NotifyDaysBefore int    `yaml:"notify_days_before,omitempty"`
}

type YAMLInput struct {
	Reminders []YAMLReminder `yaml:"reminders"`
}

// Creator stores and schedules one reminder; reminder.Service satisfies it.
type Creator interface {
	Create(ctx context.Context, r reminder.Reminder) (*reminder.Reminder, error)
}

// Parse decodes the whole file up front so a bad entry aborts the import
// before anything is written.
func Parse(data []byte, userID uint64, loc *time.Location) ([]reminder.Reminder, error) {
	var input YAMLInput
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if len(input.Reminders) == 0 {
		return nil, fmt.Errorf("no reminders found in YAML")
	}

	out := make([]reminder.Reminder, 0, len(input.Reminders))
	for i, y := range input.Reminders {
		r, err := y.toReminder(loc)
		if err != nil {
			return nil, fmt.Errorf("reminder #%d (%q): %w", i+1, y.Title, err)
		}
		r.UserID = userID
		out = append(out, r)
	}
	return out, nil
}

func (y YAMLReminder) toReminder(loc *time.Location) (reminder.Reminder, error) {
	var r reminder.Reminder
	if strings.TrimSpace(y.Title) == "" {
		return r, fmt.Errorf("%w: title is required", reminder.ErrInvalidInput)
	}

	var err error
	if r.DueDate, r.DueTime, err = reminder.ParseDueInput(y.DueDate, y.DueTime, loc); err != nil {
		return r, err
	}
	if r.Category, err = reminder.ParseCategory(y.Category); err != nil {
		return r, err
	}
	if r.RepeatType, err = reminder.ParseRepeatType(y.Repeat); err != nil {
		return r, err
	}
	r.Title = y.Title
	r.Description = y.Description
	r.Label = y.Type
	r.NotifyDaysBefore = y.NotifyDaysBefore
	return r, nil
}

// Import parses data and creates every reminder through c. It returns how
// many were created before the first failure.
func Import(ctx context.Context, c Creator, data []byte, userID uint64, loc *time.Location) (int, error) {
	rems, err := Parse(data, userID, loc)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, r := range rems {
		if _, err := c.Create(ctx, r); err != nil {
			return count, fmt.Errorf("create %q: %w", r.Title, err)
		}
		count++
	}
	return count, nil
}
