package jobs

import "time"

// Type selects the handler a claimed job is dispatched to.
type Type string

const (
	TypeReminderDelivery Type = "REMINDER_DELIVERY"
	TypeReconcile        Type = "RECONCILE"
)

// Status of a job row.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusDone      Status = "DONE"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

const defaultMaxAttempts = 8

// Job is one keyed slot in the durable queue. Enqueueing under an existing
// Key replaces the row in place, so a key never has two live jobs.
type Job struct {
	ID  uint64 `gorm:"primaryKey"`
	Key string `gorm:"type:text;uniqueIndex;not null"`

	Type    Type   `gorm:"type:text;not null"`
	Payload []byte `gorm:"type:jsonb;not null;default:'{}'::jsonb"`

	RunAt  time.Time `gorm:"index;not null"`
	Status Status    `gorm:"type:text;index;not null;default:'PENDING'"`

	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null;default:8"`

	LockedBy *string    `gorm:"type:text"`
	LockedAt *time.Time `gorm:"type:timestamptz"`

	LastError *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}
