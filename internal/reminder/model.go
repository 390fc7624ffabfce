package reminder

import (
	"fmt"
	"time"
)

// Category groups reminders for display. It has no effect on scheduling.
type Category string

const (
	CategoryPaymentElectricity Category = "payment_electricity"
	CategoryPaymentWater       Category = "payment_water"
	CategoryPaymentInternet    Category = "payment_internet"
	CategoryPaymentGas         Category = "payment_gas"
	CategoryPaymentUniversity  Category = "payment_university"
	CategoryPersonal           Category = "personal"
	CategoryWork               Category = "work"
	CategoryStudy              Category = "study"
	CategoryOther              Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryPaymentElectricity,
	CategoryPaymentWater,
	CategoryPaymentInternet,
	CategoryPaymentGas,
	CategoryPaymentUniversity,
	CategoryPersonal,
	CategoryWork,
	CategoryStudy,
	CategoryOther,
}

func (c Category) Valid() bool {
	switch c {
	case CategoryPaymentElectricity, CategoryPaymentWater, CategoryPaymentInternet,
		CategoryPaymentGas, CategoryPaymentUniversity,
		CategoryPersonal, CategoryWork, CategoryStudy, CategoryOther:
		return true
	}
	return false
}

// IsPayment reports whether c is one of the payment subtypes.
func (c Category) IsPayment() bool {
	switch c {
	case CategoryPaymentElectricity, CategoryPaymentWater, CategoryPaymentInternet,
		CategoryPaymentGas, CategoryPaymentUniversity:
		return true
	}
	return false
}

// ParseCategory maps s to a Category; the empty string means CategoryOther.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryOther, nil
	}
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidInput, s)
	}
	return c, nil
}

// RepeatType is stored with the reminder but never expanded into recurring
// jobs by the scheduler.
type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
	RepeatYearly  RepeatType = "yearly"
)

func (r RepeatType) Valid() bool {
	switch r {
	case RepeatNone, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return true
	}
	return false
}

// ParseRepeatType maps s to a RepeatType; the empty string means RepeatNone.
func ParseRepeatType(s string) (RepeatType, error) {
	if s == "" {
		return RepeatNone, nil
	}
	r := RepeatType(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown repeat type %q", ErrInvalidInput, s)
	}
	return r, nil
}

// Status of a reminder. Only active reminders may have live jobs.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus maps s to a Status; the empty string means StatusActive.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return StatusActive, nil
	}
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
	return st, nil
}

// Reminder is the durable record owned by the store. The scheduler only ever
// receives copies.
type Reminder struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	Title       string `gorm:"type:text;not null"`
	Description string `gorm:"type:text;not null;default:''"`

	// DueDate contributes the calendar date, DueTime the time of day.
	DueDate time.Time `gorm:"type:timestamptz;not null"`
	DueTime time.Time `gorm:"type:timestamptz;not null"`

	Category         Category   `gorm:"type:text;index;not null;default:'other'"`
	Label            string     `gorm:"type:text;not null;default:'Task'"`
	RepeatType       RepeatType `gorm:"type:text;not null;default:'none'"`
	NotifyDaysBefore int        `gorm:"not null;default:0"`
	Status           Status     `gorm:"type:text;index;not null;default:'active'"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// IsActive reports whether r may carry live jobs.
func (r Reminder) IsActive() bool {
	return r.Status == StatusActive
}

// Normalize fills defaults for empty enum fields.
func (r *Reminder) Normalize() {
	if r.Category == "" {
		r.Category = CategoryOther
	}
	if r.RepeatType == "" {
		r.RepeatType = RepeatNone
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
	if r.Label == "" {
		r.Label = "Task"
	}
}
